package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"josekiminer/internal/adapters"
	"josekiminer/internal/domain"
	"josekiminer/internal/domain/sgf"
)

// ResultStore persists completed mining results. JSON files under the output
// directory are the primary artifact; when a Mongo adapter is supplied each
// result is also archived there. The store keeps an in-memory index of the
// session's results for the monitor.
type ResultStore struct {
	outputDir string
	mongo     *adapters.AdapterMongo
	log       *zap.SugaredLogger

	mu      sync.RWMutex
	results map[string]*domain.MiningResult
}

const resultsCollection = "joseki_results"

func NewResultStore(outputDir string, mongo *adapters.AdapterMongo, log *zap.SugaredLogger) (*ResultStore, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}
	return &ResultStore{
		outputDir: outputDir,
		mongo:     mongo,
		log:       log,
		results:   make(map[string]*domain.MiningResult),
	}, nil
}

// Save writes the result file plus an SGF rendering, and archives the result.
// Returns the JSON file path, the artifact of record.
func (s *ResultStore) Save(ctx context.Context, pos domain.StartingPosition, result *domain.MiningResult) (string, error) {
	bytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.outputDir, pos.FileName())
	if err := os.WriteFile(path, bytes, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}

	sgfPath := strings.TrimSuffix(path, ".json") + ".sgf"
	record := sgf.FromResult(result)
	if err := os.WriteFile(sgfPath, []byte(record.Marshal()), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", sgfPath, err)
	}

	if s.mongo != nil {
		if _, err := s.mongo.Database.Collection(resultsCollection).InsertOne(ctx, result); err != nil {
			// The file on disk is the artifact of record; a failed archive
			// write is non-fatal.
			s.log.Errorw("failed to archive result", "name", result.Name, "error", err)
		}
	}

	s.mu.Lock()
	s.results[result.Name] = result
	s.mu.Unlock()

	return path, nil
}

// Load reads one result file back. Serialization must round-trip: the decoded
// tree is identical to the mined one.
func (s *ResultStore) Load(path string) (*domain.MiningResult, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var result domain.MiningResult
	if err := json.Unmarshal(bytes, &result); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return &result, nil
}

// Get returns a result mined in this session by starting position name.
func (s *ResultStore) Get(name string) (*domain.MiningResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[name]
	return result, ok
}

// Names lists the session's mined positions in stable order.
func (s *ResultStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.results))
	for name := range s.results {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
