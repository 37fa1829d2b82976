// Package expansion provides the application-level service that expands a
// mechanism into its stereo-consistent sub-networks and strips
// stereochemistry from a mechanism.
package expansion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/mechstereo/internal/application/rebuild"
	"github.com/turtacn/mechstereo/internal/domain/chem"
	"github.com/turtacn/mechstereo/internal/domain/pes"
	"github.com/turtacn/mechstereo/internal/domain/reaction"
	"github.com/turtacn/mechstereo/internal/domain/stereo"
	"github.com/turtacn/mechstereo/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mechstereo/pkg/errors"
)

// Service defines the stereo expansion operations.
type Service interface {
	Expand(ctx context.Context, mech *reaction.Mechanism, opts Options) (*Result, error)
	RemoveStereochemistry(ctx context.Context, mech *reaction.Mechanism) (*reaction.Mechanism, error)
	Graph(ctx context.Context, mech *reaction.Mechanism) ([]GraphSummary, error)
}

// Options controls one Expand call.
type Options struct {
	// RemoveEnantiomerDuplicates drops groups that mirror an earlier group of
	// the same component.
	RemoveEnantiomerDuplicates bool
	// Workers overrides the service's worker count when positive.
	Workers int
}

// Stats summarizes an expansion.
type Stats struct {
	Reactions  int `json:"reactions"`
	Species    int `json:"species"`
	Components int `json:"components"`
	Groups     int `json:"groups"`
}

// Result is the outcome of Expand.
type Result struct {
	RunID       string                   `json:"run_id"`
	Components  []stereo.ComponentResult `json:"components"`
	Mechanism   *reaction.Mechanism      `json:"mechanism"`
	Stats       Stats                    `json:"stats"`
	ArtifactKey string                   `json:"artifact_key,omitempty"`
}

// GraphSummary describes the PES graph of one formula bucket.
type GraphSummary struct {
	Formula      string          `json:"formula"`
	Reactions    int             `json:"reactions"`
	Disconnected []string        `json:"disconnected"`
	Components   []pes.Component `json:"components"`
}

// ResultSink receives every component result of a run.
type ResultSink interface {
	PublishComponent(ctx context.Context, runID string, c stereo.ComponentResult) error
}

// ArtifactStore persists the rebuilt mechanism of a run and returns its key.
type ArtifactStore interface {
	SaveMechanism(ctx context.Context, runID string, mech *reaction.Mechanism) (string, error)
}

// Metrics receives expansion events.
type Metrics interface {
	stereo.Recorder
	ComponentSplit(groups int)
	SinkFailed(sink string)
	RunFinished(elapsed time.Duration)
}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// ServiceOption configures the service.
type ServiceOption func(*serviceImpl)

// WithCache enables the per-reaction expansion cache.
func WithCache(c stereo.Cache) ServiceOption {
	return func(s *serviceImpl) { s.cache = c }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) ServiceOption {
	return func(s *serviceImpl) { s.metrics = m }
}

// WithResultSinks adds component result sinks.
func WithResultSinks(sinks ...ResultSink) ServiceOption {
	return func(s *serviceImpl) { s.sinks = append(s.sinks, sinks...) }
}

// WithArtifactStore sets the rebuilt mechanism store.
func WithArtifactStore(a ArtifactStore) ServiceOption {
	return func(s *serviceImpl) { s.store = a }
}

// WithWorkers sets the default worker count.
func WithWorkers(n int) ServiceOption {
	return func(s *serviceImpl) { s.workers = n }
}

// WithMaxAttempts sets the per-variant attempt bound.
func WithMaxAttempts(n int) ServiceOption {
	return func(s *serviceImpl) { s.maxAttempts = n }
}

// WithSmiles fills SMILES of rebuilt species.
func WithSmiles(r rebuild.SmilesResolver) ServiceOption {
	return func(s *serviceImpl) { s.smiles = r }
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type serviceImpl struct {
	tk          chem.Toolkit
	oracle      stereo.Oracle
	logger      logging.Logger
	cache       stereo.Cache
	metrics     Metrics
	sinks       []ResultSink
	store       ArtifactStore
	smiles      rebuild.SmilesResolver
	workers     int
	maxAttempts int

	grouper   *pes.Grouper
	splitter  *stereo.Splitter
	rebuilder *rebuild.Rebuilder
}

// NewService creates a new expansion service.
func NewService(tk chem.Toolkit, oracle stereo.Oracle, logger logging.Logger, opts ...ServiceOption) Service {
	s := &serviceImpl{
		tk:          tk,
		oracle:      oracle,
		logger:      logging.OrNop(logger),
		maxAttempts: stereo.DefaultMaxAttempts,
	}
	for _, o := range opts {
		o(s)
	}
	s.grouper = pes.NewGrouper(tk, s.logger.Named("pes"))
	s.splitter = stereo.NewSplitter(tk, s.logger.Named("splitter"))
	var rbOpts []rebuild.Option
	if s.smiles != nil {
		rbOpts = append(rbOpts, rebuild.WithSmiles(s.smiles))
	}
	s.rebuilder = rebuild.New(tk, s.logger.Named("rebuild"), rbOpts...)
	return s
}

func validate(ctx context.Context, mech *reaction.Mechanism) error {
	if mech == nil || mech.Empty() {
		return errors.New(errors.ErrCodeInvalidMechanism, "mechanism has no reactions")
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeTimeout, "context done before start")
	}
	return nil
}

func (s *serviceImpl) Expand(ctx context.Context, mech *reaction.Mechanism, opts Options) (*Result, error) {
	if err := validate(ctx, mech); err != nil {
		return nil, err
	}
	start := time.Now()
	res := &Result{RunID: uuid.NewString()}
	log := s.logger.With(logging.String("run_id", res.RunID))

	workers := s.workers
	if opts.Workers > 0 {
		workers = opts.Workers
	}
	xOpts := []stereo.ExpanderOption{
		stereo.WithWorkers(workers),
		stereo.WithMaxAttempts(s.maxAttempts),
	}
	if s.cache != nil {
		xOpts = append(xOpts, stereo.WithCache(s.cache))
	}
	if s.metrics != nil {
		xOpts = append(xOpts, stereo.WithRecorder(s.metrics))
	}
	expander := stereo.NewExpander(s.tk, s.oracle, log.Named("expander"), xOpts...)

	lookup := mech.Lookup()
	var all []reaction.Reaction
	for _, b := range s.grouper.Bucket(mech.Reactions, lookup) {
		graph := s.grouper.BuildGraph(b)
		for _, comp := range graph.Components() {
			exp := expander.Expand(ctx, b.Sources(comp.Keys()), lookup)
			if err := interrupted(ctx, log, comp); err != nil {
				return nil, err
			}
			groups := s.splitter.Split(comp, graph, exp)
			if opts.RemoveEnantiomerDuplicates {
				groups = stereo.RemoveEnantiomerDuplicates(s.tk, groups)
			}
			cr := stereo.ComponentResult{
				Formula: comp.Formula,
				Index:   comp.Index,
				Members: comp.Members,
				Groups:  groups,
			}
			res.Components = append(res.Components, cr)
			res.Stats.Groups += len(groups)
			all = append(all, cr.Reactions()...)
			if s.metrics != nil {
				s.metrics.ComponentSplit(len(groups))
			}
			s.publish(ctx, log, res.RunID, cr)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "expansion interrupted")
	}

	all = reaction.Dedup(all)
	res.Mechanism = s.rebuilder.Mechanism(ctx, all, mech.Species)
	res.Stats.Components = len(res.Components)
	res.Stats.Reactions = len(res.Mechanism.Reactions)
	res.Stats.Species = len(res.Mechanism.Species)
	res.ArtifactKey = s.archive(ctx, log, res.RunID, res.Mechanism)

	if s.metrics != nil {
		s.metrics.RunFinished(time.Since(start))
	}
	log.Info("expansion finished",
		logging.Int("components", res.Stats.Components),
		logging.Int("groups", res.Stats.Groups),
		logging.Int("reactions", res.Stats.Reactions),
		logging.Int("species", res.Stats.Species),
		logging.Duration("elapsed", time.Since(start)))
	return res, nil
}

// interrupted returns a Timeout error once ctx is done.  Nothing of an
// interrupted run is published or archived.
func interrupted(ctx context.Context, log logging.Logger, comp pes.Component) error {
	err := ctx.Err()
	if err == nil {
		return nil
	}
	log.Warn("expansion interrupted",
		logging.String("formula", comp.Formula), logging.Int("component", comp.Index), logging.Err(err))
	return errors.Wrap(err, errors.ErrCodeTimeout, "expansion interrupted").
		WithDetail(fmt.Sprintf("%s component %d", comp.Formula, comp.Index))
}

func (s *serviceImpl) publish(ctx context.Context, log logging.Logger, runID string, cr stereo.ComponentResult) {
	for _, sink := range s.sinks {
		if err := sink.PublishComponent(ctx, runID, cr); err != nil {
			log.Error("publish component failed",
				logging.String("formula", cr.Formula), logging.Int("component", cr.Index), logging.Err(err))
			if s.metrics != nil {
				s.metrics.SinkFailed("result")
			}
		}
	}
}

func (s *serviceImpl) archive(ctx context.Context, log logging.Logger, runID string, mech *reaction.Mechanism) string {
	if s.store == nil {
		return ""
	}
	key, err := s.store.SaveMechanism(ctx, runID, mech)
	if err != nil {
		log.Error("archive mechanism failed", logging.Err(err))
		if s.metrics != nil {
			s.metrics.SinkFailed("artifact")
		}
		return ""
	}
	return key
}

func (s *serviceImpl) RemoveStereochemistry(ctx context.Context, mech *reaction.Mechanism) (*reaction.Mechanism, error) {
	if err := validate(ctx, mech); err != nil {
		return nil, err
	}
	lookup := mech.Lookup()
	stripped := make([]reaction.Reaction, 0, len(mech.Reactions))
	for _, r := range mech.Reactions {
		resolved, err := r.Resolve(lookup)
		if err != nil {
			s.logger.Warn("reaction dropped: unresolvable species",
				logging.String("reaction", r.Key()), logging.Err(err))
			continue
		}
		stripped = append(stripped, chem.StripReaction(s.tk, resolved))
	}
	stripped = reaction.Dedup(stripped)

	out := s.rebuilder.Mechanism(ctx, stripped, StrippedSpecies(s.tk, mech.Species))
	s.logger.Info("stereochemistry removed",
		logging.Int("reactions_in", len(mech.Reactions)),
		logging.Int("reactions_out", len(out.Reactions)),
		logging.Int("species_out", len(out.Species)))
	return out, nil
}

// StrippedSpecies returns species with stereo-free identifiers, keeping the
// first entry of each stripped identifier.  SMILES of stripped entries is
// cleared since it may encode stereochemistry.
func StrippedSpecies(tk chem.Toolkit, species []reaction.Species) []reaction.Species {
	seen := make(map[string]bool, len(species))
	out := make([]reaction.Species, 0, len(species))
	for _, sp := range species {
		id := tk.StripStereo(sp.InChI)
		if seen[id] {
			continue
		}
		seen[id] = true
		if id != sp.InChI {
			sp.InChI = id
			sp.SMILES = ""
		}
		out = append(out, sp)
	}
	return out
}

func (s *serviceImpl) Graph(ctx context.Context, mech *reaction.Mechanism) ([]GraphSummary, error) {
	if err := validate(ctx, mech); err != nil {
		return nil, err
	}
	var out []GraphSummary
	for _, b := range s.grouper.Bucket(mech.Reactions, mech.Lookup()) {
		graph := s.grouper.BuildGraph(b)
		out = append(out, GraphSummary{
			Formula:      b.Formula,
			Reactions:    graph.Len(),
			Disconnected: graph.Disconnected,
			Components:   graph.Components(),
		})
	}
	return out, nil
}

// ValidEnantiomerically reports whether the species table of mech holds no
// pair of enantiomers.
func ValidEnantiomerically(tk chem.Toolkit, mech *reaction.Mechanism) bool {
	ids := make([]string, len(mech.Species))
	for i, sp := range mech.Species {
		ids[i] = sp.InChI
	}
	return stereo.ValidEnantiomerically(tk, ids)
}
