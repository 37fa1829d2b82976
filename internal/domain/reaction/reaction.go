// Package reaction defines the mechanism data model: sides, reactions,
// species and the name→identifier lookup used to resolve reactions written
// over species names into reactions written over structure identifiers.
package reaction

import (
	"slices"
	"strings"

	"github.com/turtacn/mechstereo/pkg/errors"
)

// sideSep and arrow are used in canonical keys.  Neither InChI strings nor
// mechanism species names contain spaces.
const (
	sideSep = " + "
	arrow   = " = "
)

// Side is one side of a reaction: species names or structure identifiers.
// A nil Side is the "achiral along this side" marker produced by the
// enantiomer transform and never matches another side.
type Side []string

// Sorted returns a sorted copy of s.  nil stays nil.
func (s Side) Sorted() Side {
	if s == nil {
		return nil
	}
	out := slices.Clone(s)
	slices.Sort(out)
	return out
}

// Key is the canonical, order-insensitive text form of s.
func (s Side) Key() string {
	return strings.Join(s.Sorted(), sideSep)
}

// Equal reports whether s and o hold the same multiset of species.  Empty or
// nil sides are never equal to anything.
func (s Side) Equal(o Side) bool {
	if len(s) == 0 || len(o) == 0 || len(s) != len(o) {
		return false
	}
	return s.Key() == o.Key()
}

// Contains reports whether id appears in s.
func (s Side) Contains(id string) bool {
	return slices.Contains(s, id)
}

// Unimolecular reports whether s holds exactly one species.
func (s Side) Unimolecular() bool {
	return len(s) == 1
}

// Reaction is a two-sided reaction with an optional third-body modifier
// ("(+M)", "+AR", ...).  ThirdBody == "" means no modifier.  The modifier
// never participates in stereochemistry.
type Reaction struct {
	Reactants Side   `json:"reactants" yaml:"reactants"`
	Products  Side   `json:"products" yaml:"products"`
	ThirdBody string `json:"third_body,omitempty" yaml:"third_body,omitempty"`
}

// New builds a Reaction from two sides and a third body.
func New(reactants, products []string, thirdBody string) Reaction {
	return Reaction{Reactants: reactants, Products: products, ThirdBody: thirdBody}
}

// Key is the canonical identity of r: species order within a side is
// insignificant, the reactant/product orientation is not.
func (r Reaction) Key() string {
	k := r.Reactants.Key() + arrow + r.Products.Key()
	if r.ThirdBody != "" {
		k += " [" + r.ThirdBody + "]"
	}
	return k
}

// String is the human-readable form used in diagnostics.
func (r Reaction) String() string {
	return r.Key()
}

// Canonical returns r with both sides sorted.
func (r Reaction) Canonical() Reaction {
	return Reaction{Reactants: r.Reactants.Sorted(), Products: r.Products.Sorted(), ThirdBody: r.ThirdBody}
}

// WithoutThirdBody returns r with the modifier removed.
func (r Reaction) WithoutThirdBody() Reaction {
	r.ThirdBody = ""
	return r
}

// WithThirdBody returns r carrying tb.
func (r Reaction) WithThirdBody(tb string) Reaction {
	r.ThirdBody = tb
	return r
}

// Sides returns the reactant and product sides in order.
func (r Reaction) Sides() [2]Side {
	return [2]Side{r.Reactants, r.Products}
}

// Contains reports whether id appears on either side of r.
func (r Reaction) Contains(id string) bool {
	return r.Reactants.Contains(id) || r.Products.Contains(id)
}

// Species returns every species of r, reactants first.
func (r Reaction) Species() []string {
	out := make([]string, 0, len(r.Reactants)+len(r.Products))
	out = append(out, r.Reactants...)
	return append(out, r.Products...)
}

// Resolve maps every species name of r to its identifier through lookup.
// The third body is carried unchanged.  A name missing from lookup yields an
// ErrCodeUnresolvableSpecies error naming it.
func (r Reaction) Resolve(lookup Lookup) (Reaction, error) {
	reactants, err := lookup.resolveSide(r.Reactants)
	if err != nil {
		return Reaction{}, err.WithDetail("reaction=" + r.Key())
	}
	products, err := lookup.resolveSide(r.Products)
	if err != nil {
		return Reaction{}, err.WithDetail("reaction=" + r.Key())
	}
	return Reaction{Reactants: reactants, Products: products, ThirdBody: r.ThirdBody}, nil
}

// Lookup maps species names to structure identifiers.  It is built once per
// mechanism and only read afterwards, so it is safe to share across workers.
type Lookup map[string]string

func (l Lookup) resolveSide(names Side) (Side, *errors.AppError) {
	out := make(Side, 0, len(names))
	for _, name := range names {
		id, ok := l[name]
		if !ok || id == "" {
			return nil, errors.New(errors.ErrCodeUnresolvableSpecies, "species "+name+" not in mechanism")
		}
		out = append(out, id)
	}
	return out, nil
}

// Dedup returns rxns without repeated keys, keeping first occurrences.
func Dedup(rxns []Reaction) []Reaction {
	seen := make(map[string]struct{}, len(rxns))
	out := make([]Reaction, 0, len(rxns))
	for _, r := range rxns {
		k := r.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}
