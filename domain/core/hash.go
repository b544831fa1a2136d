package core

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// ComputeEdgeHash fingerprints a graph given as node -> successor names.
// Node and successor order does not matter.
func ComputeEdgeHash(edges map[string][]string) Hash {
	keys := make([]string, 0, len(edges))
	for k := range edges {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var data strings.Builder
	for _, key := range keys {
		succ := append([]string(nil), edges[key]...)
		sort.Strings(succ)
		data.WriteString(key)
		data.WriteByte('>')
		data.WriteString(strings.Join(succ, ","))
		data.WriteByte(';')
	}
	return NewHash([]byte(data.String()))
}
