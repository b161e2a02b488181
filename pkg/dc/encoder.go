package dc

import (
	"errors"
	"fmt"

	"github.com/limaJavier/dccheck/pkg/milp"
	"github.com/limaJavier/dccheck/pkg/stnu"

	log "github.com/golang/glog"
	"github.com/samber/lo"
)

// DefaultMaxNumericBound stands in for infinity in the variables' domains
const DefaultMaxNumericBound = 100000

// ErrEncoding is returned when an index tuple required by a constraint family has no variable, which only happens on networks that escaped normalization
var ErrEncoding = errors.New("encoding error")

type Family int

const (
	NonNegativeCycle Family = iota
	Bounds
	ShortestPath
	Precede
	Wait
	WaitCondition
	Regression
	ContingentRegression
)

var familyNames = []string{"nonneg", "bounds", "shortestpath", "precede", "wait", "waitcond", "regression", "regression-contingent"}

func (family Family) String() string {
	if family < 0 || int(family) >= len(familyNames) {
		return fmt.Sprintf("family(%d)", int(family))
	}
	return familyNames[family]
}

// Families returns every constraint family in emission order
func Families() []Family {
	return []Family{NonNegativeCycle, Bounds, ShortestPath, Precede, Wait, WaitCondition, Regression, ContingentRegression}
}

// Encoding is the feasibility model of a network: it is feasible if and only if the network is dynamically controllable
type Encoding struct {
	Model      *milp.Model
	Variables  *Variables
	Normalized *stnu.Network
	Injected   []stnu.Constraint // Equality constraints added by normalization
	Counts     map[Family]int    // Rows emitted per family
}

// Encode validates and normalizes the network, then builds its MILP encoding with every continuous variable clipped to ±maxBound
func Encode(network *stnu.Network, maxBound float64) (*Encoding, error) {
	if err := stnu.Validate(network, maxBound); err != nil {
		return nil, err
	}
	if magnitude := stnu.BoundMagnitude(network); magnitude > maxBound {
		log.Warningf("bounds add up to %v, above the numeric bound %v: long paths may be clipped", magnitude, maxBound)
	}

	//** Preprocess network
	normalized, injected := stnu.Normalize(network)
	if len(injected) > 0 {
		log.V(1).Infof("normalization injected %d equality constraints: %v", len(injected), lo.Map(injected, func(c stnu.Constraint, _ int) string {
			return c.Label
		}))
	}

	//** Allocate variables
	model := milp.NewModel("DCchecking")
	vars, err := allocateVariables(model, normalized, maxBound)
	if err != nil {
		return nil, err
	}

	//** Emit constraints
	state := &encodingState{
		model:       model,
		vars:        vars,
		events:      vars.events,
		constraints: normalized.Constraints(),
		contingents: normalized.Contingents(),
		names:       make(map[string]int),
	}
	families := []struct {
		family Family
		emit   func(state *encodingState) error
	}{
		{NonNegativeCycle, nonNegativeCycleConstraints},
		{Bounds, boundConstraints},
		{ShortestPath, shortestPathConstraints},
		{Precede, precedeConstraints},
		{Wait, waitConstraints},
		{WaitCondition, waitConditionConstraints},
		{Regression, regressionConstraints},
		{ContingentRegression, contingentRegressionConstraints},
	}

	counts := make(map[Family]int, len(families))
	for _, f := range families {
		before := model.NumConstraints()
		if err := f.emit(state); err != nil {
			return nil, fmt.Errorf("failed to encode %v constraints: %w", f.family, err)
		}
		counts[f.family] = model.NumConstraints() - before
		log.V(2).Infof("%v: %d constraints", f.family, counts[f.family])
	}

	log.V(1).Infof("encoded %d events and %d contingent links into %d variables and %d constraints",
		len(vars.events), len(state.contingents), model.NumVariables(), model.NumConstraints())

	return &Encoding{
		Model:      model,
		Variables:  vars,
		Normalized: normalized,
		Injected:   injected,
		Counts:     counts,
	}, nil
}
