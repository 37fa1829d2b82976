// Package rebuild folds stereo-resolved reactions back into species and
// reaction tables written over names.
package rebuild

import (
	"context"
	"fmt"

	"github.com/turtacn/mechstereo/internal/domain/chem"
	"github.com/turtacn/mechstereo/internal/domain/reaction"
	"github.com/turtacn/mechstereo/internal/infrastructure/monitoring/logging"
)

// SmilesResolver renders an identifier as SMILES.
type SmilesResolver interface {
	Smiles(ctx context.Context, id string) (string, error)
}

// Rebuilder materializes species and reaction tables.
type Rebuilder struct {
	tk     chem.Toolkit
	smiles SmilesResolver
	logger logging.Logger
}

// Option configures a Rebuilder.
type Option func(*Rebuilder)

// WithSmiles fills Species.SMILES through r.
func WithSmiles(r SmilesResolver) Option {
	return func(b *Rebuilder) { b.smiles = r }
}

// New creates a Rebuilder.
func New(tk chem.Toolkit, logger logging.Logger, opts ...Option) *Rebuilder {
	b := &Rebuilder{tk: tk, logger: logging.OrNop(logger)}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Species returns one entry per identifier used by rxns, in order of first
// appearance.  Names are chosen as follows:
//   - an entry of base with the same identifier keeps its name;
//   - otherwise, an entry of base with the same stereo-free identifier is the
//     parent and the species is named "<parent>-<k>", k counting from 1;
//   - otherwise the Hill formula is used, suffixed on collision.
func (b *Rebuilder) Species(ctx context.Context, rxns []reaction.Reaction, base []reaction.Species) []reaction.Species {
	exact := make(map[string]reaction.Species, len(base))
	parents := make(map[string]reaction.Species, len(base))
	taken := make(map[string]bool, len(base))
	for _, s := range base {
		taken[s.Name] = true
		if _, ok := exact[s.InChI]; !ok {
			exact[s.InChI] = s
		}
		stripped := b.tk.StripStereo(s.InChI)
		if _, ok := parents[stripped]; !ok {
			parents[stripped] = s
		}
	}

	var out []reaction.Species
	seen := make(map[string]bool)
	children := make(map[string]int)
	for _, r := range rxns {
		for _, id := range r.Species() {
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, b.species(ctx, id, exact, parents, children, taken))
		}
	}
	return out
}

func (b *Rebuilder) species(
	ctx context.Context,
	id string,
	exact, parents map[string]reaction.Species,
	children map[string]int,
	taken map[string]bool,
) reaction.Species {
	formula := ""
	if f, err := b.tk.Formula(id); err == nil {
		formula = f.String()
	} else {
		b.logger.Warn("formula unavailable", logging.String("inchi", id), logging.Err(err))
	}

	if s, ok := exact[id]; ok {
		if s.Formula == "" {
			s.Formula = formula
		}
		return s
	}

	s := reaction.Species{InChI: id, Formula: formula}
	if p, ok := parents[b.tk.StripStereo(id)]; ok {
		s.Mult, s.Charge = p.Mult, p.Charge
		for {
			children[p.Name]++
			name := fmt.Sprintf("%s-%d", p.Name, children[p.Name])
			if !taken[name] {
				s.Name = name
				break
			}
		}
	} else {
		s.Name = uniqueName(formula, taken)
	}
	taken[s.Name] = true

	if b.smiles != nil {
		smi, err := b.smiles.Smiles(ctx, id)
		if err != nil {
			b.logger.Warn("smiles unavailable", logging.String("species", s.Name), logging.Err(err))
		} else {
			s.SMILES = smi
		}
	}
	return s
}

func uniqueName(stem string, taken map[string]bool) string {
	if stem == "" {
		stem = "S"
	}
	if !taken[stem] {
		return stem
	}
	for k := 2; ; k++ {
		name := fmt.Sprintf("%s-%d", stem, k)
		if !taken[name] {
			return name
		}
	}
}

// Reactions maps rxns from identifiers to the names of species and appends
// them to base, skipping reactions already present.  Reactions that use an
// identifier missing from species are dropped with a warning.
func (b *Rebuilder) Reactions(rxns []reaction.Reaction, base []reaction.Reaction, species []reaction.Species) []reaction.Reaction {
	names := make(map[string]string, len(species))
	for _, s := range species {
		if _, ok := names[s.InChI]; !ok {
			names[s.InChI] = s.Name
		}
	}

	out := make([]reaction.Reaction, 0, len(base)+len(rxns))
	out = append(out, base...)
	for _, r := range rxns {
		named, ok := rename(r, names)
		if !ok {
			b.logger.Warn("reaction dropped: species missing from table", logging.String("reaction", r.Key()))
			continue
		}
		out = append(out, named.Canonical())
	}
	return reaction.Dedup(out)
}

func rename(r reaction.Reaction, names map[string]string) (reaction.Reaction, bool) {
	side := func(ids reaction.Side) (reaction.Side, bool) {
		out := make(reaction.Side, len(ids))
		for i, id := range ids {
			n, ok := names[id]
			if !ok {
				return nil, false
			}
			out[i] = n
		}
		return out, true
	}
	rs, ok := side(r.Reactants)
	if !ok {
		return reaction.Reaction{}, false
	}
	ps, ok := side(r.Products)
	if !ok {
		return reaction.Reaction{}, false
	}
	return reaction.Reaction{Reactants: rs, Products: ps, ThirdBody: r.ThirdBody}, true
}

// Mechanism rebuilds a full mechanism from stereo-resolved reactions.
func (b *Rebuilder) Mechanism(ctx context.Context, rxns []reaction.Reaction, hints []reaction.Species) *reaction.Mechanism {
	species := b.Species(ctx, rxns, hints)
	return &reaction.Mechanism{
		Species:   species,
		Reactions: b.Reactions(rxns, nil, species),
	}
}
