package stnu

import (
	"fmt"
	"math"

	"github.com/samber/lo"
)

// Event is an opaque time-point identifier
type Event string

type Kind int

const (
	RequirementKind Kind = iota
	ContingentKind
)

func (kind Kind) String() string {
	switch kind {
	case RequirementKind:
		return "requirement"
	case ContingentKind:
		return "contingent"
	default:
		return fmt.Sprintf("kind(%d)", int(kind))
	}
}

// Constraint asserts LowerBound <= Sink - Source <= UpperBound. An absent bound is represented as an infinite value (-Inf for the lower bound and +Inf for the upper one)
type Constraint struct {
	Kind       Kind
	Source     Event
	Sink       Event
	LowerBound float64
	UpperBound float64
	Label      string
}

// Requirement builds a controllable constraint. Use math.Inf to leave a bound open
func Requirement(source, sink Event, lowerBound, upperBound float64, label string) Constraint {
	return Constraint{
		Kind:       RequirementKind,
		Source:     source,
		Sink:       sink,
		LowerBound: lowerBound,
		UpperBound: upperBound,
		Label:      label,
	}
}

// Contingent builds an uncontrollable duration whose sink is chosen by nature within [lowerBound, upperBound] after source fires
func Contingent(source, sink Event, lowerBound, upperBound float64, label string) Constraint {
	return Constraint{
		Kind:       ContingentKind,
		Source:     source,
		Sink:       sink,
		LowerBound: lowerBound,
		UpperBound: upperBound,
		Label:      label,
	}
}

func (c Constraint) IsContingent() bool { return c.Kind == ContingentKind }

func (c Constraint) HasLowerBound() bool { return !math.IsInf(c.LowerBound, 0) }

func (c Constraint) HasUpperBound() bool { return !math.IsInf(c.UpperBound, 0) }

// Name returns the label, or a synthesized description of the constraint when it has none
func (c Constraint) Name() string {
	if c.Label != "" {
		return c.Label
	}
	return fmt.Sprintf("%v(%v,%v)", c.Kind, c.Source, c.Sink)
}

func (c Constraint) String() string {
	return fmt.Sprintf("%v: %v -[%v,%v]-> %v (%v)", c.Name(), c.Source, formatBound(c.LowerBound), formatBound(c.UpperBound), c.Sink, c.Kind)
}

func formatBound(bound float64) string {
	switch {
	case math.IsInf(bound, 1):
		return "+inf"
	case math.IsInf(bound, -1):
		return "-inf"
	default:
		return fmt.Sprint(bound)
	}
}

// Network is a set of events (derived from its constraints) plus the ordered collection of constraints over them.
// Events are kept in order of first appearance so every traversal is deterministic
type Network struct {
	events      []Event
	known       map[Event]bool
	constraints []Constraint
}

func NewNetwork() *Network {
	return &Network{known: make(map[Event]bool)}
}

func (network *Network) AddConstraint(constraint Constraint) {
	network.addEvent(constraint.Source)
	network.addEvent(constraint.Sink)
	network.constraints = append(network.constraints, constraint)
}

func (network *Network) AddConstraints(constraints ...Constraint) {
	for _, constraint := range constraints {
		network.AddConstraint(constraint)
	}
}

// AddEvent registers an event that may not (yet) take part in any constraint
func (network *Network) AddEvent(event Event) {
	network.addEvent(event)
}

func (network *Network) addEvent(event Event) {
	if network.known == nil {
		network.known = make(map[Event]bool)
	}
	if !network.known[event] {
		network.known[event] = true
		network.events = append(network.events, event)
	}
}

// Events returns a copy of the network's events in order of first appearance
func (network *Network) Events() []Event {
	return append([]Event(nil), network.events...)
}

// Constraints returns a copy of the network's constraints in insertion order
func (network *Network) Constraints() []Constraint {
	return append([]Constraint(nil), network.constraints...)
}

func (network *Network) HasEvent(event Event) bool {
	return network.known[event]
}

// Contingents returns the contingent constraints in insertion order
func (network *Network) Contingents() []Constraint {
	return lo.Filter(network.constraints, func(constraint Constraint, _ int) bool { return constraint.IsContingent() })
}

// Clone returns a deep copy of the network
func (network *Network) Clone() *Network {
	clone := NewNetwork()
	for _, event := range network.events {
		clone.addEvent(event)
	}
	clone.constraints = network.Constraints()
	return clone
}
