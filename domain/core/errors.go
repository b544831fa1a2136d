package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Construction errors
	ErrLatticeConstruction = errors.New("lattice construction failed")
	ErrCyclicRelation      = fmt.Errorf("%w: cyclic implication", ErrLatticeConstruction)
	ErrNotUnique           = fmt.Errorf("%w: extremal element not unique", ErrLatticeConstruction)

	// Map errors
	ErrMapLegality     = errors.New("illegal deficiency map")
	ErrNotIsotone      = fmt.Errorf("%w: not isotone", ErrMapLegality)
	ErrNotTwistIsotone = fmt.Errorf("%w: not twist-isotone", ErrMapLegality)
	ErrNotInvertible   = fmt.Errorf("%w: not invertible", ErrMapLegality)
	ErrNotComposable   = fmt.Errorf("%w: not composable", ErrMapLegality)

	// Typing errors
	ErrTypeMismatch = errors.New("type mismatch")

	// Domain errors
	ErrDomain             = errors.New("domain error")
	ErrUnknownDeficiency  = fmt.Errorf("%w: unknown deficiency", ErrDomain)
	ErrNotMinimal         = fmt.Errorf("%w: deficiency not minimal", ErrDomain)
	ErrInvalidDeficiency  = fmt.Errorf("%w: invalid deficiency set", ErrDomain)
	ErrProbabilityOutside = fmt.Errorf("%w: probability outside (0,1)", ErrDomain)

	// Distribution errors
	ErrDistributionValidity = errors.New("invalid probability distribution")

	// Model errors
	ErrModeling     = errors.New("modeling error")
	ErrVerification = errors.New("class verification failed")
	ErrNotFound     = errors.New("not found")

	// Engine errors
	ErrNotSupported      = errors.New("not yet supported")
	ErrInternalInvariant = errors.New("internal invariant violated")
)

// Error constructors with context
func NewLatticeError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrLatticeConstruction, fmt.Sprintf(format, args...))
}

func NewMapError(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

func NewTypeMismatchError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrTypeMismatch, fmt.Sprintf(format, args...))
}

func NewDomainError(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

func NewDistributionError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrDistributionValidity, fmt.Sprintf(format, args...))
}

func NewModelingError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrModeling, fmt.Sprintf(format, args...))
}

func NewVerifyError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrVerification, fmt.Sprintf(format, args...))
}

func NewNotFoundError(resource string, name string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, resource, name)
}

// NewInvariantError wraps a failure that a validated model cannot produce.
func NewInvariantError(err error) error {
	return fmt.Errorf("%w: %v", ErrInternalInvariant, err)
}

// Error checking helpers
func IsLatticeError(err error) bool {
	return errors.Is(err, ErrLatticeConstruction)
}

func IsMapError(err error) bool {
	return errors.Is(err, ErrMapLegality)
}

func IsTypeMismatch(err error) bool {
	return errors.Is(err, ErrTypeMismatch)
}

func IsDomainError(err error) bool {
	return errors.Is(err, ErrDomain)
}

func IsDistributionError(err error) bool {
	return errors.Is(err, ErrDistributionValidity)
}

// IsModelError reports errors caused by the model description rather than
// by the engine.
func IsModelError(err error) bool {
	return IsLatticeError(err) ||
		IsMapError(err) ||
		IsTypeMismatch(err) ||
		IsDomainError(err) ||
		IsDistributionError(err) ||
		errors.Is(err, ErrModeling) ||
		errors.Is(err, ErrVerification)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvariantError(err error) bool {
	return errors.Is(err, ErrInternalInvariant)
}
