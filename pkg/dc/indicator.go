package dc

import (
	"fmt"
	"math"

	"github.com/limaJavier/dccheck/pkg/milp"
)

// implies adds "expr sense rhs", enforced only while the binary indicator equals active (1 for true, 0 for false).
//
// The row is linearized with a big-M term on the indicator. M is derived from the expression's range over the variables' domains,
// so the relaxed row always holds when the indicator selects the other branch:
//
//	sense  active  row
//	<=     1       expr + M*ind <= rhs + M
//	<=     0       expr - M*ind <= rhs
//	>=     1       expr - M*ind >= rhs - M
//	>=     0       expr + M*ind >= rhs
func implies(model *milp.Model, indicator *milp.Variable, active bool, expr *milp.LinearExpr, sense milp.Sense, rhs float64, name string) error {
	if indicator.Kind() != milp.Binary {
		return fmt.Errorf("%w: indicator %v of %v is not binary", ErrEncoding, indicator, name)
	}

	min, max := model.Range(expr)
	var bigM float64
	switch sense {
	case milp.LessOrEqual:
		bigM = math.Max(max-rhs, 0)
	case milp.GreaterOrEqual:
		bigM = math.Max(rhs-min, 0)
	default:
		return fmt.Errorf("%w: %v cannot gate a %v row", ErrEncoding, name, sense)
	}
	if math.IsInf(bigM, 0) || math.IsNaN(bigM) {
		return fmt.Errorf("%w: %v gates an unbounded expression", ErrEncoding, name)
	}

	gated := expr.Clone()
	coeff := bigM
	if (sense == milp.LessOrEqual) != active {
		coeff = -bigM
	}
	gated.AddTerm(indicator, coeff)
	if active {
		if sense == milp.LessOrEqual {
			rhs += bigM
		} else {
			rhs -= bigM
		}
	}

	_, err := model.AddConstraint(gated, sense, rhs, name)
	return err
}
