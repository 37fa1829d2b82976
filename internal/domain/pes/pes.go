// Package pes groups a mechanism's reactions into potential-energy surfaces:
// formula buckets, the bridging-species graph over stereo-free reactions, and
// the connected components of that graph.
package pes

import (
	"github.com/turtacn/mechstereo/internal/domain/reaction"
)

// Entry is one input reaction as seen by the grouper.
type Entry struct {
	// Source is the reaction over species names.
	Source reaction.Reaction
	// Resolved is Source over structure identifiers, third body kept.
	Resolved reaction.Reaction
	// NoStereo is the stripped, canonically ordered key form.
	NoStereo reaction.Reaction
}

// Bucket holds every reaction whose reactant side has Formula.
type Bucket struct {
	Formula string
	Entries []Entry
}

// Sources returns the named reactions of b whose stereo-free key is in keys.
// Input order is preserved.
func (b Bucket) Sources(keys []string) []reaction.Reaction {
	want := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		want[k] = struct{}{}
	}
	var out []reaction.Reaction
	for _, e := range b.Entries {
		if _, ok := want[e.NoStereo.Key()]; ok {
			out = append(out, e.Source)
		}
	}
	return out
}

// Component is one connected component of a PES graph.
type Component struct {
	Formula string              `json:"formula"`
	Index   int                 `json:"index"`
	Members []reaction.Reaction `json:"members"`
}

// Keys returns the stereo-free keys of c's members in traversal order.
func (c Component) Keys() []string {
	out := make([]string, len(c.Members))
	for i, m := range c.Members {
		out[i] = m.Key()
	}
	return out
}

// Connected reports whether a and b share a bridging species.  The relation
// is symmetric: a bridges to b when a side of a equals a side of b, or when a
// side of a is unimolecular and its species occurs anywhere in b.  Nil and
// empty sides never bridge.  Third bodies are ignored.
//
// The same rule applies to stereo-free and to stereo-resolved reactions.
func Connected(a, b reaction.Reaction) bool {
	return bridges(a, b) || bridges(b, a)
}

func bridges(a, b reaction.Reaction) bool {
	for _, s := range a.Sides() {
		if len(s) == 0 {
			continue
		}
		for _, o := range b.Sides() {
			if s.Equal(o) {
				return true
			}
		}
		if s.Unimolecular() && b.Contains(s[0]) {
			return true
		}
	}
	return false
}
