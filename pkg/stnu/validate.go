package stnu

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidNetwork = errors.New("invalid temporal network")
	ErrBoundOverflow  = errors.New("bound exceeds the maximum numeric bound")
)

// InvalidConstraintError describes why a constraint makes the network malformed. It matches ErrInvalidNetwork (or ErrBoundOverflow) through errors.Is
type InvalidConstraintError struct {
	Constraint Constraint
	Reason     string
	overflow   bool
}

func (err *InvalidConstraintError) Error() string {
	return fmt.Sprintf("constraint %q: %v", err.Constraint.Name(), err.Reason)
}

func (err *InvalidConstraintError) Is(target error) bool {
	if err.overflow {
		return target == ErrBoundOverflow
	}
	return target == ErrInvalidNetwork
}

// Validate checks the well-formedness conditions the encoding relies on, plus that every finite bound fits in [-maxBound, maxBound].
// It returns the first violation found, in constraint order
func Validate(network *Network, maxBound float64) error {
	if math.IsNaN(maxBound) || maxBound <= 0 || math.IsInf(maxBound, 0) {
		return fmt.Errorf("%w: maximum numeric bound must be positive and finite, got %v", ErrBoundOverflow, maxBound)
	}

	contingentSinks := make(map[Event]Constraint)
	for _, constraint := range network.Constraints() {
		invalid := func(format string, args ...any) error {
			return &InvalidConstraintError{Constraint: constraint, Reason: fmt.Sprintf(format, args...)}
		}

		if constraint.Source == constraint.Sink {
			return invalid("source and sink are the same event %q", constraint.Source)
		} else if math.IsNaN(constraint.LowerBound) || math.IsNaN(constraint.UpperBound) {
			return invalid("bounds must be numbers")
		} else if math.IsInf(constraint.LowerBound, 1) || math.IsInf(constraint.UpperBound, -1) {
			return invalid("lower bound cannot be +inf and upper bound cannot be -inf")
		} else if constraint.LowerBound > constraint.UpperBound {
			return invalid("lower bound %v is greater than upper bound %v", constraint.LowerBound, constraint.UpperBound)
		}

		if constraint.IsContingent() {
			if !constraint.HasLowerBound() || !constraint.HasUpperBound() {
				return invalid("contingent bounds must be finite")
			} else if constraint.LowerBound < 0 {
				return invalid("contingent lower bound %v is negative", constraint.LowerBound)
			} else if previous, ok := contingentSinks[constraint.Sink]; ok {
				return invalid("event %q is already the sink of contingent constraint %q", constraint.Sink, previous.Name())
			}
			contingentSinks[constraint.Sink] = constraint
		}

		for _, bound := range []float64{constraint.LowerBound, constraint.UpperBound} {
			if !math.IsInf(bound, 0) && math.Abs(bound) > maxBound {
				return &InvalidConstraintError{
					Constraint: constraint,
					Reason:     fmt.Sprintf("bound %v exceeds the maximum numeric bound %v", bound, maxBound),
					overflow:   true,
				}
			}
		}
	}

	return nil
}

// BoundMagnitude returns the sum of the absolute values of every finite bound in the network, an upper bound of any implied distance
func BoundMagnitude(network *Network) float64 {
	var magnitude float64
	for _, constraint := range network.constraints {
		if constraint.HasLowerBound() {
			magnitude += math.Abs(constraint.LowerBound)
		}
		if constraint.HasUpperBound() {
			magnitude += math.Abs(constraint.UpperBound)
		}
	}
	return magnitude
}
