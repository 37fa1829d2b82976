package expansion_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/mechstereo/internal/application/expansion"
	"github.com/turtacn/mechstereo/internal/domain/reaction"
	"github.com/turtacn/mechstereo/internal/domain/stereo"
	"github.com/turtacn/mechstereo/internal/infrastructure/chem/inchi"
	"github.com/turtacn/mechstereo/internal/testutil"
	apperrors "github.com/turtacn/mechstereo/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Mocks
// ─────────────────────────────────────────────────────────────────────────────

type mockSink struct {
	mock.Mock
}

func (m *mockSink) PublishComponent(ctx context.Context, runID string, c stereo.ComponentResult) error {
	args := m.Called(ctx, runID, c)
	return args.Error(0)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) SaveMechanism(ctx context.Context, runID string, mech *reaction.Mechanism) (string, error) {
	args := m.Called(ctx, runID, mech)
	return args.String(0), args.Error(1)
}

type mockMetrics struct {
	mock.Mock
}

func (m *mockMetrics) ReactionExpanded(class string, variants int, elapsed time.Duration) {
	m.Called(class, variants, elapsed)
}
func (m *mockMetrics) ReactionSkipped(reason string) { m.Called(reason) }
func (m *mockMetrics) VariantRetried()               { m.Called() }
func (m *mockMetrics) VariantDropped()               { m.Called() }
func (m *mockMetrics) CacheLookup(hit bool)          { m.Called(hit) }
func (m *mockMetrics) ComponentSplit(groups int)     { m.Called(groups) }
func (m *mockMetrics) SinkFailed(sink string)        { m.Called(sink) }
func (m *mockMetrics) RunFinished(elapsed time.Duration) {
	m.Called(elapsed)
}

// ─────────────────────────────────────────────────────────────────────────────
// Suite
// ─────────────────────────────────────────────────────────────────────────────

type ServiceSuite struct {
	suite.Suite
	ctx    context.Context
	oracle *testutil.FakeOracle
	logger *testutil.MockLogger
	mech   *reaction.Mechanism
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.logger = testutil.NewMockLogger()
	s.oracle = testutil.NewFakeOracle().
		Add([]string{testutil.InChIW}, []string{testutil.InChIV}, "isomerization",
			reaction.New([]string{testutil.InChIWR}, []string{testutil.InChIVS}, "")).
		Add([]string{testutil.InChIV}, []string{testutil.InChIW}, "isomerization",
			reaction.New([]string{testutil.InChIVS}, []string{testutil.InChIWS}, ""))
	s.mech = &reaction.Mechanism{
		Species: testutil.ChiralSpecies(),
		Reactions: []reaction.Reaction{
			testutil.Rxn([]string{"W"}, []string{"V"}, ""),
			testutil.Rxn([]string{"V"}, []string{"W"}, ""),
		},
	}
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) TestExpand_ForkedComponent() {
	svc := expansion.NewService(inchi.New(), s.oracle, s.logger)

	res, err := svc.Expand(s.ctx, s.mech, expansion.Options{Workers: 2})
	s.Require().NoError(err)

	s.NotEmpty(res.RunID)
	s.Require().Len(res.Components, 1)
	comp := res.Components[0]
	s.Equal("C4H10O", comp.Formula)
	s.Len(comp.Members, 2)
	s.Require().Len(comp.Groups, 2)
	s.Len(comp.Groups[0], 1)
	s.Len(comp.Groups[1], 2)

	s.Equal(expansion.Stats{Reactions: 2, Species: 3, Components: 1, Groups: 2}, res.Stats)
	names := map[string]string{}
	for _, sp := range res.Mechanism.Species {
		names[sp.InChI] = sp.Name
	}
	s.Equal("W-1", names[testutil.InChIWR])
	s.Equal("V-1", names[testutil.InChIVS])
	s.Equal("W-2", names[testutil.InChIWS])
	s.Equal("W-1 = V-1", res.Mechanism.Reactions[0].Key())
	s.Equal("V-1 = W-2", res.Mechanism.Reactions[1].Key())
	s.True(s.logger.HasMessage("info", "expansion finished"))
}

func (s *ServiceSuite) TestExpand_RemoveEnantiomerDuplicates() {
	oracle := testutil.NewFakeOracle().
		Add([]string{testutil.InChIW}, []string{testutil.InChIV}, "isomerization",
			reaction.New([]string{testutil.InChIWR}, []string{testutil.InChIVS}, ""),
			reaction.New([]string{testutil.InChIWS}, []string{testutil.InChIVR}, ""))
	mech := &reaction.Mechanism{
		Species:   testutil.ChiralSpecies(),
		Reactions: []reaction.Reaction{testutil.Rxn([]string{"W"}, []string{"V"}, "")},
	}
	svc := expansion.NewService(inchi.New(), oracle, nil)

	all, err := svc.Expand(s.ctx, mech, expansion.Options{})
	s.Require().NoError(err)
	s.Equal(2, all.Stats.Groups)

	pruned, err := svc.Expand(s.ctx, mech, expansion.Options{RemoveEnantiomerDuplicates: true})
	s.Require().NoError(err)
	s.Equal(1, pruned.Stats.Groups)
	s.Equal(1, pruned.Stats.Reactions)
}

func (s *ServiceSuite) TestExpand_SinksAndMetrics() {
	sink := &mockSink{}
	sink.On("PublishComponent", mock.Anything, mock.AnythingOfType("string"), mock.AnythingOfType("stereo.ComponentResult")).
		Return(errors.New("broker down")).Once()
	store := &mockStore{}
	store.On("SaveMechanism", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return("runs/abc/mechanism.yaml", nil).Once()
	metrics := &mockMetrics{}
	metrics.On("ReactionExpanded", "isomerization", 1, mock.Anything).Twice()
	metrics.On("ComponentSplit", 2).Once()
	metrics.On("SinkFailed", "result").Once()
	metrics.On("RunFinished", mock.Anything).Once()

	svc := expansion.NewService(inchi.New(), s.oracle, s.logger,
		expansion.WithResultSinks(sink),
		expansion.WithArtifactStore(store),
		expansion.WithMetrics(metrics),
		expansion.WithWorkers(1))

	res, err := svc.Expand(s.ctx, s.mech, expansion.Options{})
	s.Require().NoError(err, "sink failures never abort")
	s.Equal("runs/abc/mechanism.yaml", res.ArtifactKey)
	s.True(s.logger.HasMessage("error", "publish component failed"))
	sink.AssertExpectations(s.T())
	store.AssertExpectations(s.T())
	metrics.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestExpand_ArtifactFailureIsLogged() {
	store := &mockStore{}
	store.On("SaveMechanism", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("bucket missing"))

	svc := expansion.NewService(inchi.New(), s.oracle, s.logger, expansion.WithArtifactStore(store))
	res, err := svc.Expand(s.ctx, s.mech, expansion.Options{})
	s.Require().NoError(err)
	s.Empty(res.ArtifactKey)
	s.True(s.logger.HasMessage("error", "archive mechanism failed"))
}

func (s *ServiceSuite) TestExpand_InvalidInput() {
	svc := expansion.NewService(inchi.New(), s.oracle, nil)

	_, err := svc.Expand(s.ctx, &reaction.Mechanism{}, expansion.Options{})
	s.True(apperrors.IsCode(err, apperrors.ErrCodeInvalidMechanism))

	_, err = svc.Expand(s.ctx, nil, expansion.Options{})
	s.True(apperrors.IsCode(err, apperrors.ErrCodeInvalidMechanism))

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	_, err = svc.Expand(ctx, s.mech, expansion.Options{})
	s.True(apperrors.IsCode(err, apperrors.ErrCodeTimeout))
}

// cancelOnEnumerate cancels the run from inside the first enumeration.
type cancelOnEnumerate struct {
	*testutil.FakeOracle
	cancel context.CancelFunc
}

func (o cancelOnEnumerate) Enumerate(ctx context.Context, reactants, products []string) (stereo.Enumeration, error) {
	o.cancel()
	return o.FakeOracle.Enumerate(ctx, reactants, products)
}

func (s *ServiceSuite) TestExpand_CancelledMidRunPublishesNothing() {
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	sink := &mockSink{}
	store := &mockStore{}
	svc := expansion.NewService(inchi.New(), cancelOnEnumerate{FakeOracle: s.oracle, cancel: cancel}, s.logger,
		expansion.WithResultSinks(sink),
		expansion.WithArtifactStore(store),
		expansion.WithWorkers(1))

	res, err := svc.Expand(ctx, s.mech, expansion.Options{})
	s.Require().Error(err)
	s.Nil(res)
	s.True(apperrors.IsCode(err, apperrors.ErrCodeTimeout))
	s.ErrorIs(err, context.Canceled)
	s.True(s.logger.HasMessage("warn", "expansion interrupted"))
	s.False(s.logger.HasMessage("info", "expansion finished"))
	sink.AssertNotCalled(s.T(), "PublishComponent", mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(s.T(), "SaveMechanism", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestExpand_SkippedReactionsStillRebuild() {
	mech := &reaction.Mechanism{
		Species: append(testutil.ChiralSpecies(), testutil.HydrogenOxygenSpecies()...),
		Reactions: []reaction.Reaction{
			testutil.Rxn([]string{"W"}, []string{"V"}, ""),
			testutil.Rxn([]string{"H2", "O"}, []string{"OH", "H"}, ""),
			testutil.Rxn([]string{"X"}, []string{"Y"}, ""),
		},
	}
	svc := expansion.NewService(inchi.New(), s.oracle, s.logger)

	res, err := svc.Expand(s.ctx, mech, expansion.Options{})
	s.Require().NoError(err)
	s.Len(res.Components, 2)
	s.Equal(1, res.Stats.Reactions)
	s.True(s.logger.HasMessage("warn", "reaction dropped: unresolvable species"))
	s.True(s.logger.HasMessage("warn", "reaction skipped: no classification"))
}

// ─────────────────────────────────────────────────────────────────────────────
// RemoveStereochemistry / Graph
// ─────────────────────────────────────────────────────────────────────────────

func TestRemoveStereochemistry_CollapsesStereoVariants(t *testing.T) {
	mech := &reaction.Mechanism{
		Species: []reaction.Species{
			{Name: "W1", InChI: testutil.InChIWR, SMILES: "CC[C@@H](C)O"},
			{Name: "W2", InChI: testutil.InChIWS},
			{Name: "V", InChI: testutil.InChIV},
		},
		Reactions: []reaction.Reaction{
			testutil.Rxn([]string{"W1"}, []string{"V"}, ""),
			testutil.Rxn([]string{"W2"}, []string{"V"}, ""),
		},
	}
	svc := expansion.NewService(inchi.New(), nil, nil)

	out, err := svc.RemoveStereochemistry(context.Background(), mech)
	require.NoError(t, err)

	require.Len(t, out.Reactions, 1)
	assert.Equal(t, "W1 = V", out.Reactions[0].Key())
	require.Len(t, out.Species, 2)
	assert.Equal(t, testutil.InChIW, out.Species[0].InChI)
	assert.Empty(t, out.Species[0].SMILES)
}

func TestRemoveStereochemistry_KeepsThirdBodies(t *testing.T) {
	mech := &reaction.Mechanism{
		Species: testutil.ChiralSpecies(),
		Reactions: []reaction.Reaction{
			testutil.Rxn([]string{"W"}, []string{"V"}, ""),
			testutil.Rxn([]string{"W"}, []string{"V"}, "(+M)"),
		},
	}
	svc := expansion.NewService(inchi.New(), nil, nil)

	out, err := svc.RemoveStereochemistry(context.Background(), mech)
	require.NoError(t, err)
	assert.Len(t, out.Reactions, 2)
}

func TestGraph(t *testing.T) {
	mech := &reaction.Mechanism{
		Species: testutil.HydrogenOxygenSpecies(),
		Reactions: []reaction.Reaction{
			testutil.Rxn([]string{"H2", "O"}, []string{"OH", "H"}, ""),
			testutil.Rxn([]string{"H2", "O"}, []string{"OH", "OH"}, ""),
			testutil.Rxn([]string{"OH", "OH"}, []string{"H2O2"}, ""),
		},
	}
	svc := expansion.NewService(inchi.New(), nil, nil)

	summaries, err := svc.Graph(context.Background(), mech)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "H2O", summaries[0].Formula)
	assert.Len(t, summaries[0].Components, 1)
	assert.Empty(t, summaries[0].Disconnected)
	assert.Equal(t, "H2O2", summaries[1].Formula)
	assert.Len(t, summaries[1].Disconnected, 1)
}

func TestValidEnantiomerically(t *testing.T) {
	tk := inchi.New()
	ok := &reaction.Mechanism{Species: []reaction.Species{{Name: "a", InChI: testutil.InChIWR}, {Name: "b", InChI: testutil.InChIVR}}}
	bad := &reaction.Mechanism{Species: []reaction.Species{{Name: "a", InChI: testutil.InChIWR}, {Name: "b", InChI: testutil.InChIWS}}}
	assert.True(t, expansion.ValidEnantiomerically(tk, ok))
	assert.False(t, expansion.ValidEnantiomerically(tk, bad))
}
