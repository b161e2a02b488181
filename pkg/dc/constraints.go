package dc

import (
	"fmt"

	"github.com/limaJavier/dccheck/pkg/milp"
	"github.com/limaJavier/dccheck/pkg/stnu"
)

type encodingState struct {
	model       *milp.Model
	vars        *Variables
	events      []stnu.Event
	constraints []stnu.Constraint
	contingents []stnu.Constraint
	names       map[string]int
}

// add appends a linear row under a name derived from the family tag and event tuple
func (state *encodingState) add(expr *milp.LinearExpr, sense milp.Sense, rhs float64, tag string, events ...stnu.Event) error {
	_, err := state.model.AddConstraint(expr, sense, rhs, state.name(tag, events...))
	return err
}

// addImplied appends a row enforced only while the indicator equals active
func (state *encodingState) addImplied(indicator *milp.Variable, active bool, expr *milp.LinearExpr, sense milp.Sense, rhs float64, tag string, events ...stnu.Event) error {
	return implies(state.model, indicator, active, expr, sense, rhs, state.name(tag, events...))
}

// name keeps row names unique when a network repeats a constraint over the same events
func (state *encodingState) name(tag string, events ...stnu.Event) string {
	name := tupleName(tag, events...)
	seen := state.names[name]
	state.names[name] = seen + 1
	if seen > 0 {
		return fmt.Sprintf("%v#%d", name, seen+1)
	}
	return name
}

func (state *encodingState) u(i, j stnu.Event) (*milp.Variable, error) {
	if v := state.vars.U(i, j); v != nil {
		return v, nil
	}
	return nil, fmt.Errorf("%w: missing distance variable u(%v,%v)", ErrEncoding, i, j)
}

func (state *encodingState) w(i, j, k stnu.Event) (*milp.Variable, error) {
	if v := state.vars.W(i, j, k); v != nil {
		return v, nil
	}
	return nil, fmt.Errorf("%w: missing wait variable w(%v,%v,%v)", ErrEncoding, i, j, k)
}

// distances resolves u(i,j) for each consecutive pair of the arguments
func (state *encodingState) distances(events ...stnu.Event) ([]*milp.Variable, error) {
	vars := make([]*milp.Variable, 0, len(events)/2)
	for n := 0; n+1 < len(events); n += 2 {
		v, err := state.u(events[n], events[n+1])
		if err != nil {
			return nil, err
		}
		vars = append(vars, v)
	}
	return vars, nil
}

// u(i,j) + u(j,i) >= 0, once per unordered pair
func nonNegativeCycleConstraints(state *encodingState) error {
	for a, i := range state.events {
		for _, j := range state.events[a+1:] {
			u, err := state.distances(i, j, j, i)
			if err != nil {
				return err
			}
			if err := state.add(milp.NewLinearExpr().Add(u[0]).Add(u[1]), milp.GreaterOrEqual, 0, "nonneg", i, j); err != nil {
				return err
			}
		}
	}
	return nil
}

// u(s,e) <= ub and u(e,s) <= -lb; contingent links are rigid so both rows also hold as equalities
func boundConstraints(state *encodingState) error {
	for _, c := range state.constraints {
		u, err := state.distances(c.Source, c.Sink, c.Sink, c.Source)
		if err != nil {
			return err
		}
		forward, backward := u[0], u[1]

		if c.HasUpperBound() {
			if err := state.add(milp.NewLinearExpr().Add(forward), milp.LessOrEqual, c.UpperBound, "upperbound", c.Source, c.Sink); err != nil {
				return err
			}
		}
		if c.HasLowerBound() {
			if err := state.add(milp.NewLinearExpr().Add(backward), milp.LessOrEqual, -c.LowerBound, "lowerbound", c.Sink, c.Source); err != nil {
				return err
			}
		}

		if c.IsContingent() {
			if err := state.add(milp.NewLinearExpr().Add(forward), milp.GreaterOrEqual, c.UpperBound, "rigid-upper", c.Source, c.Sink); err != nil {
				return err
			}
			if err := state.add(milp.NewLinearExpr().Add(backward), milp.GreaterOrEqual, -c.LowerBound, "rigid-lower", c.Sink, c.Source); err != nil {
				return err
			}
		}
	}
	return nil
}

// u(i,k) <= u(i,j) + u(j,k) for every ordered triple of distinct events
func shortestPathConstraints(state *encodingState) error {
	for _, i := range state.events {
		for _, j := range state.events {
			for _, k := range state.events {
				if i == j || i == k || j == k {
					continue
				}
				u, err := state.distances(i, k, i, j, j, k)
				if err != nil {
					return err
				}
				expr := milp.NewLinearExpr().Add(u[0]).Sub(u[1]).Sub(u[2])
				if err := state.add(expr, milp.LessOrEqual, 0, "shortestpath", i, j, k); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// b(i,j,k) = 0 forces u(k,j) >= 0; b(i,j,k) = 1 means j precedes k for sure:
// u(i,j) <= -u(k,i) + u(k,j) and -u(j,i) >= u(i,k) - u(j,k)
func precedeConstraints(state *encodingState) error {
	for _, t := range state.vars.triples {
		i, j, k := t[0], t[1], t[2]
		u, err := state.distances(i, j, j, i, i, k, k, i, j, k, k, j)
		if err != nil {
			return err
		}
		uij, uji, uik, uki, ujk, ukj := u[0], u[1], u[2], u[3], u[4], u[5]
		b := state.vars.B(i, j, k)

		if err := state.addImplied(b, false, milp.NewLinearExpr().Add(ukj), milp.GreaterOrEqual, 0, "precede-b0", i, j, k); err != nil {
			return err
		}
		expr := milp.NewLinearExpr().Add(uij).Add(uki).Sub(ukj)
		if err := state.addImplied(b, true, expr, milp.LessOrEqual, 0, "precede-b1-a", i, j, k); err != nil {
			return err
		}
		expr = milp.NewLinearExpr().Sub(uji).Sub(uik).Add(ujk)
		if err := state.addImplied(b, true, expr, milp.GreaterOrEqual, 0, "precede-b1-b", i, j, k); err != nil {
			return err
		}
	}
	return nil
}

// u(i,k) - u(j,k) <= w(i,j,k) <= u(i,j)
func waitConstraints(state *encodingState) error {
	for _, t := range state.vars.triples {
		i, j, k := t[0], t[1], t[2]
		u, err := state.distances(i, k, j, k, i, j)
		if err != nil {
			return err
		}
		uik, ujk, uij := u[0], u[1], u[2]
		w := state.vars.W(i, j, k)

		if err := state.add(milp.NewLinearExpr().Add(uik).Sub(ujk).Sub(w), milp.LessOrEqual, 0, "wait", i, j, k); err != nil {
			return err
		}
		if err := state.add(milp.NewLinearExpr().Add(w).Sub(uij), milp.LessOrEqual, 0, "wait<ub", i, j, k); err != nil {
			return err
		}
	}
	return nil
}

// min(l(i,k), w(i,j,k)) <= l(i,j), split by x(i,j,k):
// x = 0 gives l(i,j) >= l(i,k) and w >= l(i,k); x = 1 gives l(i,j) >= w and w <= l(i,k)
func waitConditionConstraints(state *encodingState) error {
	for _, t := range state.vars.triples {
		i, j, k := t[0], t[1], t[2]
		u, err := state.distances(j, i, k, i)
		if err != nil {
			return err
		}
		uji, uki := u[0], u[1]
		w, x := state.vars.W(i, j, k), state.vars.X(i, j, k)

		if err := state.addImplied(x, false, milp.NewLinearExpr().Add(uji).Sub(uki), milp.LessOrEqual, 0, "waitcond0", i, j, k); err != nil {
			return err
		}
		if err := state.addImplied(x, false, milp.NewLinearExpr().Add(w).Add(uki), milp.GreaterOrEqual, 0, "waitcond0+", i, j, k); err != nil {
			return err
		}
		if err := state.addImplied(x, true, milp.NewLinearExpr().Sub(uji).Sub(w), milp.GreaterOrEqual, 0, "waitcond1", i, j, k); err != nil {
			return err
		}
		if err := state.addImplied(x, true, milp.NewLinearExpr().Add(w).Add(uki), milp.LessOrEqual, 0, "waitcond1+", i, j, k); err != nil {
			return err
		}
	}
	return nil
}

// w(i,j,k) - u(m,j) <= w(i,m,k) for every contingent (i,k) and distinct j, m outside it
func regressionConstraints(state *encodingState) error {
	for _, c := range state.contingents {
		i, k := c.Source, c.Sink
		for _, j := range state.events {
			if j == i || j == k {
				continue
			}
			for _, m := range state.events {
				if m == i || m == k || m == j {
					continue
				}
				wijk, err := state.w(i, j, k)
				if err != nil {
					return err
				}
				wimk, err := state.w(i, m, k)
				if err != nil {
					return err
				}
				umj, err := state.u(m, j)
				if err != nil {
					return err
				}
				expr := milp.NewLinearExpr().Add(wijk).Sub(umj).Sub(wimk)
				if err := state.add(expr, milp.LessOrEqual, 0, "regression", i, j, k, m); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// For distinct contingent links (i,k) and (m,j): x(i,j,k) = 0 forces w(i,j,k) + u(j,m) <= w(i,m,k)
func contingentRegressionConstraints(state *encodingState) error {
	for a, c1 := range state.contingents {
		for b, c2 := range state.contingents {
			if a == b {
				continue
			}
			i, k, m, j := c1.Source, c1.Sink, c2.Source, c2.Sink
			if m == i {
				return fmt.Errorf("%w: contingent links %v and %v share source %v", ErrEncoding, c1.Name(), c2.Name(), i)
			}

			wijk, err := state.w(i, j, k)
			if err != nil {
				return err
			}
			wimk, err := state.w(i, m, k)
			if err != nil {
				return err
			}
			ujm, err := state.u(j, m)
			if err != nil {
				return err
			}
			expr := milp.NewLinearExpr().Add(wijk).Add(ujm).Sub(wimk)
			if err := state.addImplied(state.vars.X(i, j, k), false, expr, milp.LessOrEqual, 0, "regression-contingent", i, j, k, m); err != nil {
				return err
			}
		}
	}
	return nil
}
