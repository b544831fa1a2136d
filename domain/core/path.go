package core

import (
	"fmt"
	"strings"
)

// PathSeparator joins the names of a locator.
const PathSeparator = "."

// Path locates an effect or component inside an instance tree: the names of
// the enclosing components followed by the effect name.
type Path []string

// ParsePath splits a dotted locator. Empty segments are rejected.
func ParsePath(s string) (Path, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("%w: empty locator", ErrModeling)
	}
	parts := strings.Split(s, PathSeparator)
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: empty name in locator %q", ErrModeling, s)
		}
	}
	return Path(parts), nil
}

// MustParsePath is ParsePath for literals known to be well formed.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Path) String() string {
	return strings.Join(p, PathSeparator)
}

// Prefix returns a new path with name in front.
func (p Path) Prefix(name string) Path {
	res := make(Path, 0, len(p)+1)
	res = append(res, name)
	return append(res, p...)
}

// Head splits the path into its first name and the rest.
func (p Path) Head() (string, Path) {
	if len(p) == 0 {
		return "", nil
	}
	return p[0], p[1:]
}

// Compare orders paths lexicographically by name, shorter prefix first.
func (p Path) Compare(other Path) int {
	for i := 0; i < len(p) && i < len(other); i++ {
		if c := strings.Compare(p[i], other[i]); c != 0 {
			return c
		}
	}
	return len(p) - len(other)
}

func (p Path) Equal(other Path) bool {
	return p.Compare(other) == 0
}
