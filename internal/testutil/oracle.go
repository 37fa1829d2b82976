package testutil

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/turtacn/mechstereo/internal/domain/reaction"
	"github.com/turtacn/mechstereo/internal/domain/stereo"
)

// OracleEntry is the canned answer for one reaction.
type OracleEntry struct {
	Class    string
	Variants []reaction.Reaction
}

// FakeOracle is an in-memory stereo.Oracle.  Entries are keyed by the
// reaction key of the enumerated sides (reaction.New(r, p, "").Key()).
type FakeOracle struct {
	Entries map[string]OracleEntry
	// Failures maps a variant key to the number of ResolveSides calls that
	// fail before it succeeds.
	Failures map[string]int
	// EnumerateErr, when set, is returned by every Enumerate call.
	EnumerateErr error

	mu          sync.Mutex
	enumerated  map[string]int
	resolveHits map[string]int
}

// NewFakeOracle creates an empty FakeOracle.
func NewFakeOracle() *FakeOracle {
	return &FakeOracle{
		Entries:     make(map[string]OracleEntry),
		Failures:    make(map[string]int),
		enumerated:  make(map[string]int),
		resolveHits: make(map[string]int),
	}
}

// Add registers class and variants for the reaction reactants = products.
func (o *FakeOracle) Add(reactants, products []string, class string, variants ...reaction.Reaction) *FakeOracle {
	o.Entries[reaction.New(reactants, products, "").Key()] = OracleEntry{Class: class, Variants: variants}
	return o
}

var _ stereo.Oracle = (*FakeOracle)(nil)

func (o *FakeOracle) Enumerate(_ context.Context, reactants, products []string) (stereo.Enumeration, error) {
	key := reaction.New(reactants, products, "").Key()
	o.mu.Lock()
	o.enumerated[key]++
	o.mu.Unlock()

	if o.EnumerateErr != nil {
		return stereo.Enumeration{}, o.EnumerateErr
	}
	entry, ok := o.Entries[key]
	if !ok {
		return stereo.Enumeration{}, nil
	}
	variants := entry.Variants
	seq := iter.Seq[stereo.Variant](func(yield func(stereo.Variant) bool) {
		for i, v := range variants {
			if !yield(stereo.Variant{Index: i, Payload: v}) {
				return
			}
		}
	})
	return stereo.Enumeration{Class: entry.Class, Variants: seq}, nil
}

func (o *FakeOracle) ResolveSides(_ context.Context, v stereo.Variant) ([]string, []string, error) {
	r, ok := v.Payload.(reaction.Reaction)
	if !ok {
		return nil, nil, fmt.Errorf("unexpected payload %T", v.Payload)
	}
	key := r.Key()

	o.mu.Lock()
	o.resolveHits[key]++
	hits := o.resolveHits[key]
	o.mu.Unlock()

	if hits <= o.Failures[key] {
		return nil, nil, fmt.Errorf("transient failure %d for %s", hits, key)
	}
	return r.Reactants, r.Products, nil
}

// EnumerateCalls returns how many times reactants = products was enumerated.
func (o *FakeOracle) EnumerateCalls(reactants, products []string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.enumerated[reaction.New(reactants, products, "").Key()]
}

// ResolveCalls returns how many times the variant was resolved.
func (o *FakeOracle) ResolveCalls(variant reaction.Reaction) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.resolveHits[variant.Key()]
}
