package miner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"josekiminer/internal/bootstrap"
	"josekiminer/internal/domain"
)

// Evaluator is the position oracle: it ranks candidate moves for the position
// reached by a move sequence. Satisfied by repository.AnalysisEngine and
// repository.CachedEvaluator.
type Evaluator interface {
	Analyze(ctx context.Context, moves []domain.Move, maxVisits int) (*domain.AnalysisResponse, error)
}

// Sink persists a completed mining result. Satisfied by repository.ResultStore.
type Sink interface {
	Save(ctx context.Context, pos domain.StartingPosition, result *domain.MiningResult) (string, error)
}

// Progress receives mining lifecycle events, e.g. for the live monitor.
type Progress interface {
	PositionStarted(name string)
	NodeExpanded(name string, total int64)
	PositionFinished(name string, summary domain.RunSummary)
}

type nopProgress struct{}

func (nopProgress) PositionStarted(string)                     {}
func (nopProgress) NodeExpanded(string, int64)                 {}
func (nopProgress) PositionFinished(string, domain.RunSummary) {}

// Config holds the mining thresholds. Immutable per Miner, so runs with
// different configurations can execute side by side.
type Config struct {
	WinrateTolerance float64
	ScoreTolerance   float64
	MinVisits        int
	MaxVisits        int
	MaxDepth         int
	Parallelism      int
	QueryTimeout     time.Duration
	Region           Region
}

// ConfigFrom maps the bootstrap configuration onto mining thresholds.
func ConfigFrom(cfg *bootstrap.Config) (Config, error) {
	region, err := NewRegion(cfg.RegionColMin, cfg.RegionColMax, cfg.RegionRowMin, cfg.RegionRowMax)
	if err != nil {
		return Config{}, err
	}
	return Config{
		WinrateTolerance: cfg.WinrateTolerance,
		ScoreTolerance:   cfg.ScoreTolerance,
		MinVisits:        cfg.MinVisits,
		MaxVisits:        cfg.MaxVisits,
		MaxDepth:         cfg.MaxDepth,
		Parallelism:      cfg.Parallelism,
		QueryTimeout:     time.Duration(cfg.QueryTimeoutSec) * time.Second,
		Region:           region,
	}, nil
}

type Option func(*Miner)

func WithProgress(p Progress) Option {
	return func(m *Miner) {
		if p != nil {
			m.progress = p
		}
	}
}

// Miner walks the tolerance band of acceptable moves from each starting
// position, depth first, and assembles one tree per position.
type Miner struct {
	cfg       Config
	evaluator Evaluator
	log       *zap.SugaredLogger
	progress  Progress
	// sem bounds concurrent engine queries; the engine degrades past its
	// concurrency ceiling.
	sem chan struct{}
}

func New(cfg Config, evaluator Evaluator, log *zap.SugaredLogger, options ...Option) *Miner {
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}
	m := &Miner{
		cfg:       cfg,
		evaluator: evaluator,
		log:       log,
		progress:  nopProgress{},
		sem:       make(chan struct{}, cfg.Parallelism),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// SessionSummary aggregates a whole mining session across starting positions.
type SessionSummary struct {
	PositionsMined    int `json:"positions_mined"`
	PositionsFailed   int `json:"positions_failed"`
	NodesExpanded     int `json:"nodes_expanded"`
	TruncatedBranches int `json:"truncated_branches"`
}

// MineAll runs one independent mining run per starting position and persists
// each completed tree. A failed position never aborts the others; an aborted
// session discards the partial tree instead of saving it as complete.
func (m *Miner) MineAll(ctx context.Context, positions []domain.StartingPosition, sink Sink) (SessionSummary, error) {
	var session SessionSummary

	for _, pos := range positions {
		if ctx.Err() != nil {
			return session, ctx.Err()
		}

		m.log.Infow("starting mining", "position", pos.Name)
		m.progress.PositionStarted(pos.Name)

		result, err := m.MinePosition(ctx, pos)
		if err != nil {
			m.log.Errorw("mining failed", "position", pos.Name, "error", err)
			session.PositionsFailed++
			continue
		}
		if ctx.Err() != nil {
			m.log.Warnw("session aborted, discarding partial tree", "position", pos.Name)
			session.PositionsFailed++
			return session, ctx.Err()
		}

		path, err := sink.Save(ctx, pos, result)
		if err != nil {
			m.log.Errorw("failed to save result", "position", pos.Name, "error", err)
			session.PositionsFailed++
			continue
		}

		session.PositionsMined++
		session.NodesExpanded += result.Summary.NodesExpanded
		session.TruncatedBranches += result.Summary.Truncated
		m.progress.PositionFinished(pos.Name, result.Summary)
		m.log.Infow("saved", "position", pos.Name, "path", path,
			"nodes", result.Summary.NodesExpanded, "truncated", result.Summary.Truncated)
	}

	return session, nil
}

// MinePosition builds the full tolerance-band tree for one starting position.
// The only error it returns is a configuration problem surfaced before any
// engine call; engine failures truncate branches inside the tree instead.
func (m *Miner) MinePosition(ctx context.Context, pos domain.StartingPosition) (*domain.MiningResult, error) {
	if err := pos.Validate(); err != nil {
		return nil, err
	}

	history := append([]domain.Move(nil), pos.Moves...)
	last := history[len(history)-1]
	t := &tally{name: pos.Name, progress: m.progress}

	var root *domain.TreeNode
	resp, err := m.analyze(ctx, history)
	if err != nil {
		m.log.Errorw("root query failed", "position", pos.Name, "error", err)
		root = domain.NewTreeNode(last.Coordinates, 0, 0, 0).Terminate(domain.ReasonError)
		t.truncated.Add(1)
	} else {
		// The root annotation is the engine's view of the starting position
		// itself; every other node carries its own candidate's numbers.
		root = domain.NewTreeNode(last.Coordinates, resp.RootInfo.Winrate, resp.RootInfo.ScoreLead, resp.RootInfo.Visits)
		path := []uint64{domain.Fingerprint(history)}
		m.populate(ctx, root, resp, history, path, 0, t)
	}

	return &domain.MiningResult{
		Name:        pos.Name,
		Description: pos.Description,
		RootMoves:   history,
		Tree:        root,
		Summary:     t.summary(),
	}, nil
}

// populate fills node's children from an already-fetched evaluation of the
// position reached by history.
func (m *Miner) populate(ctx context.Context, node *domain.TreeNode, resp *domain.AnalysisResponse, history []domain.Move, path []uint64, depth int, t *tally) {
	t.nodeExpanded()

	accepted, unstable := selectValid(resp.MoveInfos, m.cfg)
	if unstable {
		node.UnstableEvaluation = true
		t.unstable.Add(1)
		m.log.Warnw("unstable evaluation, best candidate under visits floor",
			"position", t.name, "depth", depth, "visits", bestCandidate(resp.MoveInfos).Visits)
	}
	if len(accepted) == 0 {
		node.Terminate(domain.ReasonNoValidMoves)
		t.noValidMoves.Add(1)
		return
	}

	color := domain.NextColor(history)
	node.Children = make([]*domain.TreeNode, len(accepted))

	var wg sync.WaitGroup
	for i, candidate := range accepted {
		child := domain.NewTreeNode(candidate.Move, candidate.Winrate, candidate.ScoreLead, candidate.Visits)
		node.Children[i] = child

		if domain.IsPass(candidate.Move) {
			child.Terminate(domain.ReasonPass)
			t.passLeaves.Add(1)
			continue
		}
		if !m.cfg.Region.Contains(candidate.Move) {
			child.Terminate(domain.ReasonTenuki)
			t.tenukiLeaves.Add(1)
			continue
		}

		next := append(append([]domain.Move(nil), history...), domain.Move{Color: color, Coordinates: candidate.Move})
		fp := domain.Fingerprint(next)
		if onPath(path, fp) {
			child.Terminate(domain.ReasonTransposition)
			t.transpositions.Add(1)
			continue
		}
		childPath := append(append([]uint64(nil), path...), fp)

		if m.cfg.Parallelism > 1 {
			// Sibling subtrees share nothing but the children slice, and each
			// goroutine writes only its own slot. The semaphore inside analyze
			// keeps the engine within its concurrency ceiling.
			wg.Add(1)
			go func() {
				defer wg.Done()
				m.descend(ctx, child, next, childPath, depth+1, t)
			}()
		} else {
			m.descend(ctx, child, next, childPath, depth+1, t)
		}
	}
	wg.Wait()
}

// descend evaluates the position behind node and recurses. Engine failures
// truncate this branch only.
func (m *Miner) descend(ctx context.Context, node *domain.TreeNode, history []domain.Move, path []uint64, depth int, t *tally) {
	if depth >= m.cfg.MaxDepth {
		node.Terminate(domain.ReasonMaxDepth)
		t.maxDepthLeaves.Add(1)
		return
	}

	resp, err := m.analyze(ctx, history)
	if err != nil {
		m.log.Errorw("branch truncated", "position", t.name, "move", node.Move, "depth", depth, "error", err)
		node.Terminate(domain.ReasonError)
		t.truncated.Add(1)
		return
	}

	m.populate(ctx, node, resp, history, path, depth, t)
}

func (m *Miner) analyze(ctx context.Context, history []domain.Move) (*domain.AnalysisResponse, error) {
	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-m.sem }()

	// A hung query truncates its own branch; without the deadline it would
	// stall the whole run.
	if m.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.QueryTimeout)
		defer cancel()
	}

	return m.evaluator.Analyze(ctx, history, m.cfg.MaxVisits)
}

func onPath(path []uint64, fp uint64) bool {
	for _, h := range path {
		if h == fp {
			return true
		}
	}
	return false
}

// tally collects run counters; atomics because sibling subtrees may expand
// concurrently.
type tally struct {
	name     string
	progress Progress

	nodes          atomic.Int64
	tenukiLeaves   atomic.Int64
	passLeaves     atomic.Int64
	noValidMoves   atomic.Int64
	maxDepthLeaves atomic.Int64
	transpositions atomic.Int64
	truncated      atomic.Int64
	unstable       atomic.Int64
}

func (t *tally) nodeExpanded() {
	t.progress.NodeExpanded(t.name, t.nodes.Add(1))
}

func (t *tally) summary() domain.RunSummary {
	return domain.RunSummary{
		NodesExpanded:  int(t.nodes.Load()),
		TenukiLeaves:   int(t.tenukiLeaves.Load()),
		PassLeaves:     int(t.passLeaves.Load()),
		NoValidMoves:   int(t.noValidMoves.Load()),
		MaxDepthLeaves: int(t.maxDepthLeaves.Load()),
		Transpositions: int(t.transpositions.Load()),
		Truncated:      int(t.truncated.Load()),
		UnstableNodes:  int(t.unstable.Load()),
	}
}
