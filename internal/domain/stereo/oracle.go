// Package stereo expands reactions into their stereochemically resolved
// variants and splits a connected component's variants into groups that
// never hold a reaction together with its mirror image.
package stereo

import (
	"context"
	"iter"
	"time"

	"github.com/turtacn/mechstereo/internal/domain/reaction"
)

// Variant is one role-resolved stereo configuration produced by an Oracle.
// Payload is opaque to this package and handed back to ResolveSides.
type Variant struct {
	Index   int
	Payload any
}

// Enumeration is the oracle's answer for one reaction.  An empty Class means
// the oracle could not classify the reaction.  Variants is lazy and may be
// consumed once.
type Enumeration struct {
	Class    string
	Variants iter.Seq[Variant]
}

// Oracle enumerates and resolves stereo variants of a two-sided reaction.
// Implementations must be safe for concurrent use.
type Oracle interface {
	// Enumerate classifies the reaction and enumerates its valid stereo
	// configurations.
	Enumerate(ctx context.Context, reactants, products []string) (Enumeration, error)

	// ResolveSides converts a variant back into fully stereo-resolved
	// identifiers.  Failures may be transient.
	ResolveSides(ctx context.Context, v Variant) (reactants, products []string, err error)
}

// CachedExpansion is the cacheable outcome of expanding one reaction.
// Variants carry no third body.
type CachedExpansion struct {
	Class    string              `json:"class"`
	Variants []reaction.Reaction `json:"variants"`
}

// Cache stores per-reaction expansions keyed by the canonical resolved
// reaction.  Get returns (nil, nil) on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (*CachedExpansion, error)
	Put(ctx context.Context, key string, e *CachedExpansion) error
}

// Recorder receives expansion events.
type Recorder interface {
	ReactionExpanded(class string, variants int, elapsed time.Duration)
	ReactionSkipped(reason string)
	VariantRetried()
	VariantDropped()
	CacheLookup(hit bool)
}

// Skip reasons reported to Recorder.ReactionSkipped.
const (
	SkipUnresolvable = "unresolvable"
	SkipOracleError  = "oracle_error"
	SkipNoClass      = "no_class"
)

type nopRecorder struct{}

func (nopRecorder) ReactionExpanded(string, int, time.Duration) {}
func (nopRecorder) ReactionSkipped(string)                      {}
func (nopRecorder) VariantRetried()                             {}
func (nopRecorder) VariantDropped()                             {}
func (nopRecorder) CacheLookup(bool)                            {}
