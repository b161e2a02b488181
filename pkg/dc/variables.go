package dc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/limaJavier/dccheck/pkg/milp"
	"github.com/limaJavier/dccheck/pkg/stnu"
)

// Pair indexes a distance variable u(i,j)
type Pair [2]stnu.Event

// Triple indexes the wait and indicator variables of contingent link (i,k) and third event j, in (i,j,k) order
type Triple [3]stnu.Event

// Variables holds the decision variables of one encoding, keyed by event tuples
type Variables struct {
	u map[Pair]*milp.Variable
	w map[Triple]*milp.Variable
	x map[Triple]*milp.Variable
	b map[Triple]*milp.Variable

	events  []stnu.Event
	triples []Triple // Allocation order of w, x and b
}

// U returns the distance variable u(i,j), or nil if i == j or either event is unknown
func (vars *Variables) U(i, j stnu.Event) *milp.Variable { return vars.u[Pair{i, j}] }

// W returns the wait variable w(i,j,k), or nil if (i,k) is not a contingent link or j is one of its endpoints
func (vars *Variables) W(i, j, k stnu.Event) *milp.Variable { return vars.w[Triple{i, j, k}] }

// X returns the wait case-split indicator x(i,j,k)
func (vars *Variables) X(i, j, k stnu.Event) *milp.Variable { return vars.x[Triple{i, j, k}] }

// B returns the precede indicator b(i,j,k)
func (vars *Variables) B(i, j, k stnu.Event) *milp.Variable { return vars.b[Triple{i, j, k}] }

// Triples returns the (i,j,k) tuples with wait variables, in allocation order
func (vars *Variables) Triples() []Triple { return append([]Triple(nil), vars.triples...) }

func (vars *Variables) Events() []stnu.Event { return append([]stnu.Event(nil), vars.events...) }

// allocateVariables declares u for every ordered pair of distinct events, and w, x and b for every contingent link (i,k) and event j outside it.
// Continuous variables are clipped to ±maxBound
func allocateVariables(model *milp.Model, network *stnu.Network, maxBound float64) (*Variables, error) {
	events := network.Events()
	contingents := network.Contingents()

	vars := &Variables{
		u:      make(map[Pair]*milp.Variable, len(events)*len(events)),
		w:      make(map[Triple]*milp.Variable),
		x:      make(map[Triple]*milp.Variable),
		b:      make(map[Triple]*milp.Variable),
		events: events,
	}

	for _, i := range events {
		for _, j := range events {
			if i == j {
				continue
			}
			u, err := model.MakeVar(-maxBound, maxBound, tupleName("u", i, j))
			if err != nil {
				return nil, err
			}
			vars.u[Pair{i, j}] = u
		}
	}

	for _, c := range contingents {
		i, k := c.Source, c.Sink
		for _, j := range events {
			if j == i || j == k {
				continue
			}
			triple := Triple{i, j, k}
			if _, ok := vars.w[triple]; ok {
				return nil, fmt.Errorf("%w: contingent link %v is declared twice", ErrEncoding, c.Name())
			}

			w, err := model.MakeVar(-maxBound, maxBound, tupleName("w", i, j, k))
			if err != nil {
				return nil, err
			}
			x, err := model.MakeBoolVar(tupleName("x", i, j, k))
			if err != nil {
				return nil, err
			}
			b, err := model.MakeBoolVar(tupleName("b", i, j, k))
			if err != nil {
				return nil, err
			}

			vars.w[triple], vars.x[triple], vars.b[triple] = w, x, b
			vars.triples = append(vars.triples, triple)
		}
	}
	return vars, nil
}

// tupleName renders "prefix(e1,e2,...)"; events that contain separators are quoted so that names stay unique
func tupleName(prefix string, events ...stnu.Event) string {
	var builder strings.Builder
	builder.WriteString(prefix)
	builder.WriteByte('(')
	for n, event := range events {
		if n > 0 {
			builder.WriteByte(',')
		}
		if strings.ContainsAny(string(event), "(),\"") {
			builder.WriteString(strconv.Quote(string(event)))
		} else {
			builder.WriteString(string(event))
		}
	}
	builder.WriteByte(')')
	return builder.String()
}
