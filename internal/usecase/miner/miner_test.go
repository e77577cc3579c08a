package miner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"josekiminer/internal/domain"
)

// scriptedEvaluator answers queries from a canned script keyed by the move
// sequence. Unknown positions get an answer with no candidates, which the
// miner treats as a terminal position.
type scriptedEvaluator struct {
	mu        sync.Mutex
	responses map[string]*domain.AnalysisResponse
	errs      map[string]error
	calls     int
}

func historyKey(moves []domain.Move) string {
	parts := make([]string, len(moves))
	for i, m := range moves {
		parts[i] = m.Color + " " + m.Coordinates
	}
	return strings.Join(parts, "|")
}

func (e *scriptedEvaluator) Analyze(ctx context.Context, moves []domain.Move, maxVisits int) (*domain.AnalysisResponse, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	key := historyKey(moves)
	if err, ok := e.errs[key]; ok {
		return nil, err
	}
	if resp, ok := e.responses[key]; ok {
		return resp, nil
	}
	return &domain.AnalysisResponse{RootInfo: domain.RootInfo{Winrate: 0.5, Visits: 1000}}, nil
}

type memorySink struct {
	mu    sync.Mutex
	saved []*domain.MiningResult
}

func (s *memorySink) Save(ctx context.Context, pos domain.StartingPosition, result *domain.MiningResult) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, result)
	return pos.FileName(), nil
}

func response(root domain.RootInfo, candidates ...domain.MoveCandidate) *domain.AnalysisResponse {
	return &domain.AnalysisResponse{RootInfo: root, MoveInfos: candidates}
}

func hoshi() domain.StartingPosition {
	return domain.StartingPosition{
		Name:  "4-4 Point",
		Moves: []domain.Move{{Color: domain.Black, Coordinates: "Q16"}},
	}
}

func newTestMiner(cfg Config, evaluator Evaluator) *Miner {
	return New(cfg, evaluator, zap.NewNop().Sugar())
}

func TestMinePositionExpandsInScopeAndNotesTenuki(t *testing.T) {
	evaluator := &scriptedEvaluator{
		responses: map[string]*domain.AnalysisResponse{
			"B Q16": response(domain.RootInfo{Winrate: 0.48, ScoreLead: 0.0, Visits: 1000},
				candidate("R14", 0.47, -0.2, 800),
				candidate("F3", 0.47, -0.2, 600),
			),
			"B Q16|W R14": response(domain.RootInfo{Winrate: 0.52, ScoreLead: 0.3, Visits: 1000},
				candidate("Q14", 0.48, 0.1, 500),
			),
		},
	}
	m := newTestMiner(testConfig(), evaluator)

	result, err := m.MinePosition(context.Background(), hoshi())
	require.NoError(t, err)

	root := result.Tree
	assert.Equal(t, "Q16", root.Move)
	assert.Equal(t, 0.48, root.Winrate)
	assert.Equal(t, 0.0, root.Score)
	require.Len(t, root.Children, 2)

	r14 := root.Children[0]
	assert.Equal(t, "R14", r14.Move)
	assert.Empty(t, r14.TerminatedReason)
	require.Len(t, r14.Children, 1, "in-scope move is explored")
	assert.Equal(t, "Q14", r14.Children[0].Move)
	assert.Equal(t, domain.ReasonNoValidMoves, r14.Children[0].TerminatedReason)

	f3 := root.Children[1]
	assert.Equal(t, "F3", f3.Move)
	assert.Equal(t, domain.ReasonTenuki, f3.TerminatedReason)
	assert.Empty(t, f3.Children, "tenuki moves are noted but never explored")

	assert.Equal(t, 3, result.Summary.NodesExpanded)
	assert.Equal(t, 1, result.Summary.TenukiLeaves)
	assert.Equal(t, 1, result.Summary.NoValidMoves)
	assert.Equal(t, 0, result.Summary.Truncated)
}

func TestMinePositionUnstableEvaluation(t *testing.T) {
	evaluator := &scriptedEvaluator{
		responses: map[string]*domain.AnalysisResponse{
			"B Q16": response(domain.RootInfo{Winrate: 0.48, Visits: 40},
				candidate("R14", 0.47, 0.0, 10),
			),
		},
	}
	m := newTestMiner(testConfig(), evaluator)

	result, err := m.MinePosition(context.Background(), hoshi())
	require.NoError(t, err)

	root := result.Tree
	assert.Equal(t, domain.ReasonNoValidMoves, root.TerminatedReason,
		"the best candidate failing its own visits gate leaves nothing to accept")
	assert.Empty(t, root.Children)
	assert.True(t, root.UnstableEvaluation)
	assert.Equal(t, 1, result.Summary.UnstableNodes)
}

func TestMinePositionEngineFailureTruncatesBranchOnly(t *testing.T) {
	evaluator := &scriptedEvaluator{
		responses: map[string]*domain.AnalysisResponse{
			"B Q16": response(domain.RootInfo{Winrate: 0.48, Visits: 1000},
				candidate("R14", 0.47, -0.2, 800),
				candidate("Q14", 0.46, -0.5, 700),
			),
		},
		errs: map[string]error{
			"B Q16|W R14": errors.New("engine timed out"),
		},
	}
	m := newTestMiner(testConfig(), evaluator)

	result, err := m.MinePosition(context.Background(), hoshi())
	require.NoError(t, err)

	root := result.Tree
	require.Len(t, root.Children, 2)

	assert.Equal(t, domain.ReasonError, root.Children[0].TerminatedReason,
		"failed branch is marked truncated, not silently empty")
	assert.Equal(t, domain.ReasonNoValidMoves, root.Children[1].TerminatedReason,
		"sibling branch is still explored")
	assert.Equal(t, 1, result.Summary.Truncated)
}

// hangingEvaluator never answers one scripted position until its query context
// expires; everything else is answered from the script.
type hangingEvaluator struct {
	scriptedEvaluator
	hangOn string
}

func (e *hangingEvaluator) Analyze(ctx context.Context, moves []domain.Move, maxVisits int) (*domain.AnalysisResponse, error) {
	if historyKey(moves) == e.hangOn {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return e.scriptedEvaluator.Analyze(ctx, moves, maxVisits)
}

func TestMinePositionQueryTimeoutTruncatesBranchOnly(t *testing.T) {
	evaluator := &hangingEvaluator{
		scriptedEvaluator: scriptedEvaluator{
			responses: map[string]*domain.AnalysisResponse{
				"B Q16": response(domain.RootInfo{Winrate: 0.48, Visits: 1000},
					candidate("R14", 0.47, -0.2, 800),
					candidate("Q14", 0.46, -0.5, 700),
				),
			},
		},
		hangOn: "B Q16|W R14",
	}
	cfg := testConfig()
	cfg.QueryTimeout = 20 * time.Millisecond
	m := newTestMiner(cfg, evaluator)

	ctx := context.Background()
	result, err := m.MinePosition(ctx, hoshi())
	require.NoError(t, err)
	require.NoError(t, ctx.Err(), "a timed-out query never cancels the run")

	root := result.Tree
	require.Len(t, root.Children, 2)
	assert.Equal(t, domain.ReasonError, root.Children[0].TerminatedReason,
		"the hung branch times out instead of stalling the run")
	assert.Equal(t, domain.ReasonNoValidMoves, root.Children[1].TerminatedReason,
		"sibling branch is still explored")
	assert.Equal(t, 1, result.Summary.Truncated)
}

func TestMinePositionMaxDepth(t *testing.T) {
	evaluator := &scriptedEvaluator{
		responses: map[string]*domain.AnalysisResponse{
			"B Q16": response(domain.RootInfo{Winrate: 0.48, Visits: 1000},
				candidate("R14", 0.47, -0.2, 800),
			),
		},
	}
	cfg := testConfig()
	cfg.MaxDepth = 1
	m := newTestMiner(cfg, evaluator)

	result, err := m.MinePosition(context.Background(), hoshi())
	require.NoError(t, err)

	require.Len(t, result.Tree.Children, 1)
	assert.Equal(t, domain.ReasonMaxDepth, result.Tree.Children[0].TerminatedReason)
	assert.Equal(t, 1, result.Summary.MaxDepthLeaves)
	assert.Equal(t, 1, evaluator.calls, "depth bound cuts before the engine is queried")
}

func TestMinePositionPassIsTerminal(t *testing.T) {
	evaluator := &scriptedEvaluator{
		responses: map[string]*domain.AnalysisResponse{
			"B Q16": response(domain.RootInfo{Winrate: 0.48, Visits: 1000},
				candidate("pass", 0.47, -0.1, 800),
			),
		},
	}
	m := newTestMiner(testConfig(), evaluator)

	result, err := m.MinePosition(context.Background(), hoshi())
	require.NoError(t, err)

	require.Len(t, result.Tree.Children, 1)
	pass := result.Tree.Children[0]
	assert.Equal(t, "pass", pass.Move)
	assert.Equal(t, domain.ReasonPass, pass.TerminatedReason,
		"a pass is terminal but distinct from tenuki")
	assert.Equal(t, 1, result.Summary.PassLeaves)
}

func TestMinePositionKoTranspositionTerminates(t *testing.T) {
	// White has just taken a ko at P15; black retakes at Q15 and the engine
	// suggests white recaptures, which reproduces the starting board state.
	setup := []domain.Move{
		{Color: domain.Black, Coordinates: "O15"},
		{Color: domain.White, Coordinates: "Q16"},
		{Color: domain.Black, Coordinates: "P16"},
		{Color: domain.White, Coordinates: "Q14"},
		{Color: domain.Black, Coordinates: "P14"},
		{Color: domain.White, Coordinates: "R15"},
		{Color: domain.Black, Coordinates: "K11"},
		{Color: domain.White, Coordinates: "P15"},
	}
	pos := domain.StartingPosition{Name: "ko corner", Moves: setup}

	rootKey := historyKey(setup)
	retakeKey := historyKey(append(append([]domain.Move{}, setup...),
		domain.Move{Color: domain.Black, Coordinates: "Q15"}))

	evaluator := &scriptedEvaluator{
		responses: map[string]*domain.AnalysisResponse{
			rootKey: response(domain.RootInfo{Winrate: 0.5, Visits: 1000},
				candidate("Q15", 0.5, 0.0, 500),
			),
			retakeKey: response(domain.RootInfo{Winrate: 0.5, Visits: 1000},
				candidate("P15", 0.5, 0.0, 500),
			),
		},
	}
	m := newTestMiner(testConfig(), evaluator)

	result, err := m.MinePosition(context.Background(), pos)
	require.NoError(t, err)

	require.Len(t, result.Tree.Children, 1)
	retake := result.Tree.Children[0]
	require.Len(t, retake.Children, 1)
	assert.Equal(t, "P15", retake.Children[0].Move)
	assert.Equal(t, domain.ReasonTransposition, retake.Children[0].TerminatedReason)
	assert.Equal(t, 1, result.Summary.Transpositions)
}

func TestMinePositionParallelKeepsRankingOrder(t *testing.T) {
	evaluator := &scriptedEvaluator{
		responses: map[string]*domain.AnalysisResponse{
			"B Q16": response(domain.RootInfo{Winrate: 0.48, Visits: 1000},
				candidate("R14", 0.48, 0.0, 800),
				candidate("Q14", 0.47, -0.3, 700),
				candidate("O17", 0.47, -0.5, 600),
				candidate("S16", 0.46, -0.8, 500),
			),
		},
	}
	cfg := testConfig()
	cfg.Parallelism = 4
	m := newTestMiner(cfg, evaluator)

	result, err := m.MinePosition(context.Background(), hoshi())
	require.NoError(t, err)

	got := make([]string, len(result.Tree.Children))
	for i, child := range result.Tree.Children {
		got[i] = child.Move
	}
	assert.Equal(t, []string{"R14", "Q14", "O17", "S16"}, got,
		"children stay in ranking order regardless of completion order")
}

func TestMinePositionRejectsInvalidPosition(t *testing.T) {
	evaluator := &scriptedEvaluator{}
	m := newTestMiner(testConfig(), evaluator)

	_, err := m.MinePosition(context.Background(), domain.StartingPosition{
		Name:  "broken",
		Moves: []domain.Move{{Color: domain.Black, Coordinates: "Z99"}},
	})
	require.Error(t, err)
	assert.Equal(t, 0, evaluator.calls, "no engine call is made for a bad position")
}

func TestMineAllContinuesPastFailedPosition(t *testing.T) {
	evaluator := &scriptedEvaluator{
		responses: map[string]*domain.AnalysisResponse{
			"B Q16": response(domain.RootInfo{Winrate: 0.48, Visits: 1000}),
		},
	}
	m := newTestMiner(testConfig(), evaluator)
	sink := &memorySink{}

	positions := []domain.StartingPosition{
		{Name: "broken", Moves: []domain.Move{{Color: "X", Coordinates: "Q16"}}},
		hoshi(),
	}
	session, err := m.MineAll(context.Background(), positions, sink)
	require.NoError(t, err)

	assert.Equal(t, 1, session.PositionsFailed)
	assert.Equal(t, 1, session.PositionsMined)
	require.Len(t, sink.saved, 1)
	assert.Equal(t, "4-4 Point", sink.saved[0].Name)
}

func TestMineAllAbortedSessionSavesNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := newTestMiner(testConfig(), &scriptedEvaluator{})
	sink := &memorySink{}

	_, err := m.MineAll(ctx, []domain.StartingPosition{hoshi()}, sink)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sink.saved, "partial trees are never serialized as complete results")
}
