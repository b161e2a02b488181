package stnu

import (
	"fmt"
	"strconv"

	"github.com/samber/lo"
)

// Normalize rewrites the network so that no contingent constraint starts at the sink of another contingent constraint and no two contingent constraints share a source.
// Every offending contingent constraint is redirected to a fresh copy of its source, pinned to the original through a [0,0] requirement.
// The input network is left untouched; the injected equality constraints are returned alongside the new network
func Normalize(network *Network) (normalized *Network, injected []Constraint) {
	normalized = NewNetwork()
	injected = make([]Constraint, 0)
	constraints := network.Constraints()

	//** Record uncontrollable events
	uncontrollable := lo.SliceToMap(
		lo.Filter(constraints, func(constraint Constraint, _ int) bool { return constraint.IsContingent() }),
		func(constraint Constraint) (Event, bool) { return constraint.Sink, true },
	)

	//** Keep a registry of taken names so copies never collide with existing events
	taken := lo.SliceToMap(network.Events(), func(event Event) (Event, bool) { return event, true })
	copies := make(map[Event]int) // Running copy counter per original source
	usedSources := make(map[Event]bool)

	freshCopy := func(source Event) Event {
		for {
			copies[source]++
			candidate := Event(string(source) + strconv.Itoa(copies[source]))
			if !taken[candidate] {
				taken[candidate] = true
				return candidate
			}
		}
	}

	for _, constraint := range constraints {
		if !constraint.IsContingent() {
			normalized.AddConstraint(constraint)
			continue
		}

		source := constraint.Source
		// Either the source is uncontrollable or it already starts another contingent constraint
		if uncontrollable[source] || usedSources[source] {
			sourceCopy := freshCopy(source)
			equality := Requirement(source, sourceCopy, 0, 0, fmt.Sprintf("equality(%v,%v)", source, sourceCopy))

			redirected := constraint
			redirected.Source = sourceCopy

			normalized.AddConstraints(equality, redirected)
			injected = append(injected, equality)
			continue
		}

		usedSources[source] = true
		normalized.AddConstraint(constraint)
	}

	// Events without constraints survive the rewrite as well
	for _, event := range network.Events() {
		normalized.AddEvent(event)
	}

	return normalized, injected
}

// IsNormalized reports whether the network already satisfies both preconditions of the encoding
func IsNormalized(network *Network) bool {
	contingents := network.Contingents()
	sinks := lo.SliceToMap(contingents, func(constraint Constraint) (Event, bool) { return constraint.Sink, true })
	sources := lo.Map(contingents, func(constraint Constraint, _ int) Event { return constraint.Source })

	return len(lo.Uniq(sources)) == len(sources) &&
		!lo.SomeBy(sources, func(source Event) bool { return sinks[source] })
}
