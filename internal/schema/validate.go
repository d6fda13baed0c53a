package schema

import (
	"fmt"
	"sort"
)

// BindingGap names one concept missing a binding for a dialect.
type BindingGap struct {
	Intent  string
	Concept string
	Dialect string
}

func (g BindingGap) String() string {
	return fmt.Sprintf("intent %s: concept %s has no %s binding", g.Intent, g.Concept, g.Dialect)
}

// ValidateSystem checks binding completeness: every concept referenced by
// every intent must have a binding for the given dialect. Returns the gaps
// found; an empty slice means the system is complete for that dialect.
func (r *Registry) ValidateSystem(systemID, dialect string) ([]BindingGap, error) {
	sys, err := r.System(systemID)
	if err != nil {
		return nil, err
	}

	var gaps []BindingGap
	seen := map[string]bool{}
	for _, in := range sys.Intents() {
		for _, ref := range concatRefs(in) {
			key := in.Name + "/" + ref
			if seen[key] {
				continue
			}
			seen[key] = true
			if _, err := sys.GetBinding(ref, dialect); err != nil {
				gaps = append(gaps, BindingGap{Intent: in.Name, Concept: ref, Dialect: dialect})
			}
		}
	}

	sort.Slice(gaps, func(i, j int) bool {
		if gaps[i].Intent != gaps[j].Intent {
			return gaps[i].Intent < gaps[j].Intent
		}
		return gaps[i].Concept < gaps[j].Concept
	})
	return gaps, nil
}
