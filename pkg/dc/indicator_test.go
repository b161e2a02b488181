package dc

import (
	"fmt"
	"testing"

	"github.com/limaJavier/dccheck/pkg/milp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImplies(t *testing.T) {
	const bound = 1000

	for _, sense := range []milp.Sense{milp.LessOrEqual, milp.GreaterOrEqual} {
		for _, active := range []bool{false, true} {
			t.Run(fmt.Sprintf("%v active at %v", sense, active), func(t *testing.T) {
				//** Arrange
				model := milp.NewModel("indicator")
				x, _ := model.MakeVar(-bound, bound, "x")
				y, _ := model.MakeVar(-bound, bound, "y")
				z, _ := model.MakeVar(-bound, bound, "z")
				ind, _ := model.MakeBoolVar("ind")
				expr := milp.NewLinearExpr().Add(x).Sub(y).Add(z)

				//** Act
				err := implies(model, ind, active, expr, sense, 0, "gated")

				//** Assert
				require.NoError(t, err)
				gated := model.LookupConstraint("gated")
				require.NotNil(t, gated)

				// The most violating corner of the domain box
				extreme := float64(bound)
				if sense == milp.GreaterOrEqual {
					extreme = -bound
				}
				solution := make(milp.Solution, model.NumVariables())
				solution[x.Index()], solution[y.Index()], solution[z.Index()] = extreme, -extreme, extreme

				inactive, enforced := 0.0, 1.0
				if !active {
					inactive, enforced = 1, 0
				}

				solution[ind.Index()] = inactive
				assert.Empty(t, model.Violations(solution, 0), "inactive branch must be vacuous")

				solution[ind.Index()] = enforced
				assert.Len(t, model.Violations(solution, 0), 1, "active branch must enforce the row")

				solution[x.Index()], solution[y.Index()], solution[z.Index()] = 0, 0, 0
				assert.Empty(t, model.Violations(solution, 0), "active branch must accept rows that hold")
			})
		}
	}

	t.Run("Rows with a constant are gated by their own range", func(t *testing.T) {
		model := milp.NewModel("indicator")
		x, _ := model.MakeVar(0, 10, "x")
		ind, _ := model.MakeBoolVar("ind")

		require.NoError(t, implies(model, ind, true, milp.NewLinearExpr().Add(x).AddConstant(2), milp.LessOrEqual, 5, "gated"))

		// x + 2 <= 5 when ind = 1, with M = 12 - 5
		gated := model.LookupConstraint("gated")
		assert.Equal(t, 7.0, gated.Coefficient(ind))
		assert.Equal(t, 10.0, gated.Rhs())
	})

	t.Run("Non binary indicators are rejected", func(t *testing.T) {
		model := milp.NewModel("indicator")
		x, _ := model.MakeVar(0, 10, "x")

		err := implies(model, x, true, milp.NewLinearExpr().Add(x), milp.LessOrEqual, 5, "gated")

		assert.ErrorIs(t, err, ErrEncoding)
	})

	t.Run("Equalities are rejected", func(t *testing.T) {
		model := milp.NewModel("indicator")
		x, _ := model.MakeVar(0, 10, "x")
		ind, _ := model.MakeBoolVar("ind")

		err := implies(model, ind, true, milp.NewLinearExpr().Add(x), milp.Equal, 5, "gated")

		assert.ErrorIs(t, err, ErrEncoding)
	})
}
