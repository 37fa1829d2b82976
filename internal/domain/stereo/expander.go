package stereo

import (
	"context"
	"time"

	"github.com/turtacn/mechstereo/internal/domain/chem"
	"github.com/turtacn/mechstereo/internal/domain/reaction"
	"github.com/turtacn/mechstereo/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mechstereo/internal/infrastructure/parallel"
	"github.com/turtacn/mechstereo/pkg/errors"
)

// DefaultMaxAttempts bounds ResolveSides calls per variant.
const DefaultMaxAttempts = 3

// Expansion maps stereo-free reaction keys to their stereo variants.
type Expansion struct {
	// ByKey holds the de-duplicated variants of each key, third body attached.
	ByKey map[string][]reaction.Reaction
	// Classes holds the oracle classification of each key.
	Classes map[string]string
	// Order lists keys in input order.
	Order []string
}

// NewExpansion returns an empty Expansion.
func NewExpansion() *Expansion {
	return &Expansion{
		ByKey:   make(map[string][]reaction.Reaction),
		Classes: make(map[string]string),
	}
}

// Variants returns the variants stored under key.
func (e *Expansion) Variants(key string) []reaction.Reaction {
	return e.ByKey[key]
}

// Count returns the total number of variants.
func (e *Expansion) Count() int {
	n := 0
	for _, v := range e.ByKey {
		n += len(v)
	}
	return n
}

// Add merges variants under key, skipping ones already present.
func (e *Expansion) Add(key, class string, variants []reaction.Reaction) {
	existing, ok := e.ByKey[key]
	if !ok {
		e.Order = append(e.Order, key)
		e.Classes[key] = class
	}
	e.ByKey[key] = reaction.Dedup(append(existing, variants...))
}

// ---------------------------------------------------------------------------
// Expander
// ---------------------------------------------------------------------------

// Expander runs the oracle over a list of reactions on a worker pool.
type Expander struct {
	tk          chem.Toolkit
	oracle      Oracle
	logger      logging.Logger
	cache       Cache
	recorder    Recorder
	workers     int
	maxAttempts int
}

// ExpanderOption configures an Expander.
type ExpanderOption func(*Expander)

// WithCache enables the per-reaction expansion cache.
func WithCache(c Cache) ExpanderOption {
	return func(x *Expander) { x.cache = c }
}

// WithRecorder sets the expansion event recorder.
func WithRecorder(r Recorder) ExpanderOption {
	return func(x *Expander) {
		if r != nil {
			x.recorder = r
		}
	}
}

// WithWorkers sets the worker pool size.  n <= 0 selects the default.
func WithWorkers(n int) ExpanderOption {
	return func(x *Expander) { x.workers = n }
}

// WithMaxAttempts sets the per-variant attempt bound.
func WithMaxAttempts(n int) ExpanderOption {
	return func(x *Expander) {
		if n > 0 {
			x.maxAttempts = n
		}
	}
}

// NewExpander creates an Expander.
func NewExpander(tk chem.Toolkit, oracle Oracle, logger logging.Logger, opts ...ExpanderOption) *Expander {
	x := &Expander{
		tk:          tk,
		oracle:      oracle,
		logger:      logging.OrNop(logger),
		recorder:    nopRecorder{},
		maxAttempts: DefaultMaxAttempts,
	}
	for _, o := range opts {
		o(x)
	}
	return x
}

type expanded struct {
	key      string
	class    string
	variants []reaction.Reaction
}

// Expand expands every reaction of rxns.  Reactions that cannot be resolved
// or classified are skipped with a diagnostic; variants that fail to resolve
// after the attempt bound are dropped individually.
func (x *Expander) Expand(ctx context.Context, rxns []reaction.Reaction, lookup reaction.Lookup) *Expansion {
	results := parallel.Map(ctx, rxns, func(ctx context.Context, r reaction.Reaction) *expanded {
		return x.expandOne(ctx, r, lookup)
	}, parallel.WithWorkers(x.workers), parallel.WithLogger(x.logger))

	exp := NewExpansion()
	for _, res := range results {
		if res == nil {
			continue
		}
		exp.Add(res.key, res.class, res.variants)
	}
	return exp
}

func (x *Expander) expandOne(ctx context.Context, r reaction.Reaction, lookup reaction.Lookup) *expanded {
	start := time.Now()
	log := x.logger.With(logging.String("reaction", r.Key()))

	resolved, err := r.Resolve(lookup)
	if err != nil {
		log.Warn("reaction skipped: unresolvable species", logging.Err(err))
		x.recorder.ReactionSkipped(SkipUnresolvable)
		return nil
	}
	thirdBody := resolved.ThirdBody
	bare := chem.Canonical(x.tk, resolved.WithoutThirdBody())
	key := chem.NoStereo(x.tk, bare).Key()

	out := x.cached(ctx, bare.Key(), log)
	if out == nil {
		var complete bool
		out, complete, err = x.enumerate(ctx, bare, log)
		if err != nil {
			if errors.IsCode(err, errors.ErrCodeNoClassification) {
				log.Warn("reaction skipped: no classification", logging.Err(err))
				x.recorder.ReactionSkipped(SkipNoClass)
			} else {
				log.Warn("reaction skipped: oracle error", logging.Err(err))
				x.recorder.ReactionSkipped(SkipOracleError)
			}
			return nil
		}
		// Only complete expansions are cached; a dropped variant is retried
		// on the next run.
		if complete && ctx.Err() == nil {
			x.store(ctx, bare.Key(), out, log)
		}
	}

	variants := make([]reaction.Reaction, len(out.Variants))
	for i, v := range out.Variants {
		variants[i] = v.WithThirdBody(thirdBody)
	}
	elapsed := time.Since(start)
	x.recorder.ReactionExpanded(out.Class, len(variants), elapsed)
	log.Debug("reaction expanded",
		logging.String("class", out.Class),
		logging.Int("variants", len(variants)),
		logging.Duration("elapsed", elapsed))
	return &expanded{key: key, class: out.Class, variants: variants}
}

// cached returns nil on a miss or when no cache is configured.  Cache
// failures are logged and treated as misses.
func (x *Expander) cached(ctx context.Context, key string, log logging.Logger) *CachedExpansion {
	if x.cache == nil {
		return nil
	}
	e, err := x.cache.Get(ctx, key)
	if err != nil {
		log.Warn("expansion cache read failed", logging.Err(err))
		return nil
	}
	x.recorder.CacheLookup(e != nil)
	return e
}

func (x *Expander) store(ctx context.Context, key string, e *CachedExpansion, log logging.Logger) {
	if x.cache == nil {
		return
	}
	if err := x.cache.Put(ctx, key, e); err != nil {
		log.Warn("expansion cache write failed", logging.Err(err))
	}
}

// enumerate reports complete=false when a variant was dropped or the context
// ended before every variant was resolved.
func (x *Expander) enumerate(ctx context.Context, bare reaction.Reaction, log logging.Logger) (*CachedExpansion, bool, error) {
	enum, err := x.oracle.Enumerate(ctx, bare.Reactants, bare.Products)
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeOracleProcessFailed, "enumeration failed")
	}
	if enum.Class == "" {
		return nil, false, errors.New(errors.ErrCodeNoClassification, "oracle returned no classification")
	}

	out := &CachedExpansion{Class: enum.Class, Variants: []reaction.Reaction{}}
	if enum.Variants == nil {
		return out, true, nil
	}
	complete := true
	for v := range enum.Variants {
		if ctx.Err() != nil {
			complete = false
			break
		}
		rs, ps, ok := x.resolve(ctx, v, log)
		if !ok {
			complete = false
			continue
		}
		out.Variants = append(out.Variants, reaction.Reaction{
			Reactants: x.tk.SortedJoin(rs),
			Products:  x.tk.SortedJoin(ps),
		})
	}
	out.Variants = reaction.Dedup(out.Variants)
	return out, complete, nil
}

// resolve calls ResolveSides up to maxAttempts times.
func (x *Expander) resolve(ctx context.Context, v Variant, log logging.Logger) (reaction.Side, reaction.Side, bool) {
	var lastErr error
	for attempt := 1; attempt <= x.maxAttempts; attempt++ {
		rs, ps, err := x.oracle.ResolveSides(ctx, v)
		if err == nil {
			return rs, ps, true
		}
		lastErr = err
		if attempt < x.maxAttempts {
			x.recorder.VariantRetried()
			log.Debug("variant conversion failed, retrying",
				logging.Int("variant", v.Index), logging.Int("attempt", attempt), logging.Err(err))
		}
	}
	x.recorder.VariantDropped()
	log.Warn("variant dropped",
		logging.Int("variant", v.Index),
		logging.Int("attempts", x.maxAttempts),
		logging.Err(errors.Wrap(lastErr, errors.ErrCodeVariantConversion, "variant conversion failed")))
	return nil, nil, false
}
