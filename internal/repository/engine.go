package repository

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"josekiminer/internal/apperrors"
	"josekiminer/internal/bootstrap"
	"josekiminer/internal/domain"
)

// AnalysisEngine manages a KataGo analysis-mode subprocess. Queries are JSON
// lines written to the engine's stdin; answers come back on stdout tagged with
// the query ID, in whatever order the engine finishes them.
type AnalysisEngine struct {
	cfg    *bootstrap.Config
	cmd    *exec.Cmd
	stdin  *bufio.Writer
	stdout *bufio.Scanner
	mu     sync.Mutex
	// pending maps query ID to the chan *domain.AnalysisResponse waiting for it.
	pending sync.Map
	log     *zap.SugaredLogger

	closeOnce sync.Once
	done      chan struct{}
}

// scanner buffer: analysis responses with full move lists run long.
const maxResponseLine = 16 * 1024 * 1024

func NewAnalysisEngine(cfg *bootstrap.Config, modelPath string, log *zap.SugaredLogger) (*AnalysisEngine, error) {
	for _, path := range []string{cfg.KatagoBin, cfg.EngineConfig, modelPath} {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrEvaluatorUnavailable, path)
		}
	}

	cmd := exec.Command(
		cfg.KatagoBin,
		"analysis",
		"-config", cfg.EngineConfig,
		"-model", modelPath,
	)

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(stdoutPipe)
	scanner.Buffer(make([]byte, 64*1024), maxResponseLine)

	engine := &AnalysisEngine{
		cfg:    cfg,
		cmd:    cmd,
		stdin:  bufio.NewWriter(stdinPipe),
		stdout: scanner,
		log:    log,
		done:   make(chan struct{}),
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrEvaluatorUnavailable, err)
	}

	go engine.listenForResponses()

	return engine, nil
}

func (e *AnalysisEngine) listenForResponses() {
	for e.stdout.Scan() {
		line := e.stdout.Bytes()

		var resp domain.AnalysisResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			e.log.Errorw("failed to unmarshal engine response", "error", err, "line", string(line))
			continue
		}
		if resp.Warning != "" {
			e.log.Warnw("engine warning", "id", resp.ID, "warning", resp.Warning)
		}

		if chIface, ok := e.pending.Load(resp.ID); ok {
			ch := chIface.(chan *domain.AnalysisResponse)
			ch <- &resp
			e.pending.Delete(resp.ID)
		} else {
			e.log.Warnw("no pending query for response ID", "id", resp.ID)
		}
	}

	// stdout closed: the engine died or Close was called. Every waiter is
	// released through the done channel.
	e.closeOnce.Do(func() { close(e.done) })
}

// Analyze evaluates the position reached by moves and returns the engine's
// ranked candidates. It blocks until the engine answers, ctx expires or the
// engine dies.
func (e *AnalysisEngine) Analyze(ctx context.Context, moves []domain.Move, maxVisits int) (*domain.AnalysisResponse, error) {
	select {
	case <-e.done:
		return nil, apperrors.ErrEngineClosed
	default:
	}

	request := domain.AnalysisRequest{
		ID:            uuid.New().String(),
		Moves:         moves,
		Rules:         e.cfg.Rules,
		Komi:          e.cfg.Komi,
		BoardXSize:    domain.BoardSize,
		BoardYSize:    domain.BoardSize,
		IncludePolicy: true,
	}
	if maxVisits > 0 {
		request.OverrideSettings = map[string]any{"maxVisits": maxVisits}
	}

	responseChan := make(chan *domain.AnalysisResponse, 1)
	e.pending.Store(request.ID, responseChan)

	requestJSON, err := json.Marshal(request)
	if err != nil {
		e.pending.Delete(request.ID)
		return nil, err
	}

	e.mu.Lock()
	_, err = e.stdin.Write(append(requestJSON, '\n'))
	if err == nil {
		err = e.stdin.Flush()
	}
	e.mu.Unlock()
	if err != nil {
		e.pending.Delete(request.ID)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrEvaluatorUnavailable, err)
	}

	select {
	case resp := <-responseChan:
		if resp.Error != "" {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrEngineRejected, resp.Error)
		}
		return resp, nil
	case <-e.done:
		e.pending.Delete(request.ID)
		return nil, apperrors.ErrEngineClosed
	case <-ctx.Done():
		e.pending.Delete(request.ID)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrEvaluatorUnavailable, ctx.Err())
	}
}

// Close terminates the engine process, escalating to SIGKILL if it ignores
// SIGTERM for five seconds.
func (e *AnalysisEngine) Close() error {
	e.closeOnce.Do(func() { close(e.done) })

	if e.cmd.Process == nil {
		return nil
	}
	if err := e.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		_ = e.cmd.Process.Kill()
		return e.cmd.Wait()
	}

	waited := make(chan error, 1)
	go func() { waited <- e.cmd.Wait() }()

	select {
	case err := <-waited:
		return err
	case <-time.After(5 * time.Second):
		_ = e.cmd.Process.Kill()
		return <-waited
	}
}
