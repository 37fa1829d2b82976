package stereo

import (
	"slices"

	"github.com/turtacn/mechstereo/internal/domain/chem"
	"github.com/turtacn/mechstereo/internal/domain/pes"
	"github.com/turtacn/mechstereo/internal/domain/reaction"
	"github.com/turtacn/mechstereo/internal/infrastructure/monitoring/logging"
)

// Group is one stereo-consistent sub-network: stereo-resolved reactions that
// are connected to each other and hold no reaction together with its mirror
// image.
type Group []reaction.Reaction

// Keys returns the reaction keys of g in order.
func (g Group) Keys() []string {
	out := make([]string, len(g))
	for i, r := range g {
		out[i] = r.Key()
	}
	return out
}

// KeySet returns the set of reaction keys of g.
func (g Group) KeySet() map[string]struct{} {
	out := make(map[string]struct{}, len(g))
	for _, r := range g {
		out[r.Key()] = struct{}{}
	}
	return out
}

// adjacent reports whether r bridges to any member of g.
func (g Group) adjacent(r reaction.Reaction) bool {
	for _, m := range g {
		if pes.Connected(r, m) {
			return true
		}
	}
	return false
}

func cloneGroups(groups []Group) []Group {
	out := make([]Group, len(groups))
	for i, g := range groups {
		out[i] = slices.Clone(g)
	}
	return out
}

// Splitter partitions the variants of one connected component into groups.
type Splitter struct {
	tk     chem.Toolkit
	logger logging.Logger
}

// NewSplitter creates a Splitter.
func NewSplitter(tk chem.Toolkit, logger logging.Logger) *Splitter {
	return &Splitter{tk: tk, logger: logging.OrNop(logger)}
}

// Split walks comp depth-first along graph edges and places every variant of
// every visited reaction.  Groups are returned in creation order.  A reaction
// may appear in several groups when it sits at a fork.
func (s *Splitter) Split(comp pes.Component, graph *pes.Graph, exp *Expansion) []Group {
	var groups []Group
	for _, key := range graph.Traverse(comp.Keys()) {
		variants := exp.Variants(key)
		if len(variants) == 0 {
			s.logger.Debug("no stereo variants", logging.String("reaction", key))
			continue
		}
		// Forks copy groups as they were before this reaction was visited.
		snapshot := cloneGroups(groups)
		for _, r := range variants {
			groups = s.place(groups, snapshot, r)
		}
	}

	s.logger.Debug("component split",
		logging.String("formula", comp.Formula),
		logging.Int("component", comp.Index),
		logging.Int("groups", len(groups)))
	return groups
}

// place adds r to every adjacent group whose members do not also bridge to
// r's mirror image.  When every adjacent group conflicts, each conflicting
// group that predates the visit is forked from its snapshot and r is added
// to the fork.  A variant adjacent to nothing starts a new group.
func (s *Splitter) place(groups, snapshot []Group, r reaction.Reaction) []Group {
	mirror := chem.Mirror(s.tk, r)

	merged := false
	var forks []int
	for i := range groups {
		if !groups[i].adjacent(r) {
			continue
		}
		if groups[i].adjacent(mirror) {
			if i < len(snapshot) {
				forks = append(forks, i)
			}
			continue
		}
		groups[i] = append(groups[i], r)
		merged = true
	}

	switch {
	case merged:
		return groups
	case len(forks) > 0:
		for _, i := range forks {
			fork := append(slices.Clone(snapshot[i]), r)
			groups = append(groups, fork)
			s.logger.Debug("component forked",
				logging.String("reaction", r.Key()), logging.Int("from", i), logging.Int("to", len(groups)-1))
		}
		return groups
	default:
		return append(groups, Group{r})
	}
}
