package pes

import (
	"github.com/turtacn/mechstereo/internal/domain/chem"
	"github.com/turtacn/mechstereo/internal/domain/reaction"
	"github.com/turtacn/mechstereo/internal/infrastructure/monitoring/logging"
)

// Grouper buckets reactions by reactant formula and builds PES graphs.
type Grouper struct {
	tk     chem.Toolkit
	logger logging.Logger
}

// NewGrouper creates a Grouper.  A nil logger discards diagnostics.
func NewGrouper(tk chem.Toolkit, logger logging.Logger) *Grouper {
	return &Grouper{tk: tk, logger: logging.OrNop(logger)}
}

// Bucket resolves every reaction through lookup and groups the resolvable
// ones by reactant-side formula.  Buckets and their entries keep input order.
// Reactions with an unknown species or an unparsable identifier are dropped
// with a warning.
func (g *Grouper) Bucket(rxns []reaction.Reaction, lookup reaction.Lookup) []Bucket {
	var buckets []Bucket
	index := make(map[string]int)

	for _, r := range rxns {
		resolved, err := r.Resolve(lookup)
		if err != nil {
			g.logger.Warn("reaction dropped: unresolvable species",
				logging.String("reaction", r.Key()), logging.Err(err))
			continue
		}
		f, err := chem.SideFormula(g.tk, resolved.Reactants)
		if err != nil {
			g.logger.Warn("reaction dropped: invalid identifier",
				logging.String("reaction", r.Key()), logging.Err(err))
			continue
		}

		formula := f.String()
		i, ok := index[formula]
		if !ok {
			i = len(buckets)
			index[formula] = i
			buckets = append(buckets, Bucket{Formula: formula})
		}
		buckets[i].Entries = append(buckets[i].Entries, Entry{
			Source:   r,
			Resolved: resolved,
			NoStereo: chem.NoStereo(g.tk, resolved),
		})
	}
	return buckets
}

// BuildGraph builds the PES graph of b.  Every ordered pair of distinct
// stereo-free reactions is tested; a reaction without partners is kept with
// an empty adjacency and reported as disconnected.
func (g *Grouper) BuildGraph(b Bucket) *Graph {
	gr := newGraph(b.Formula)
	for _, e := range b.Entries {
		gr.add(e.NoStereo)
	}

	for _, k := range gr.order {
		a := gr.nodes[k]
		adj := []string{}
		for _, o := range gr.order {
			if o == k {
				continue
			}
			if Connected(a, gr.nodes[o]) {
				adj = append(adj, o)
			}
		}
		gr.adj[k] = adj
		if len(adj) == 0 {
			gr.Disconnected = append(gr.Disconnected, k)
			g.logger.Info("disconnected reaction",
				logging.String("formula", b.Formula), logging.String("reaction", k))
		}
	}

	g.logger.Debug("pes graph built",
		logging.String("formula", b.Formula),
		logging.Int("reactions", len(gr.order)),
		logging.Int("disconnected", len(gr.Disconnected)))
	return gr
}
