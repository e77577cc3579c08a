package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"josekiminer/internal/adapters"
	"josekiminer/internal/bootstrap"
	"josekiminer/internal/delivery/monitor"
	"josekiminer/internal/domain"
	"josekiminer/internal/repository"
	"josekiminer/internal/usecase/miner"
)

func main() {
	logger := NewLogger()
	defer logger.Sync()

	cfg, err := bootstrap.Setup(".env")
	if err != nil {
		logger.Error("Failed to setup configuration", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go handleShutdown(cancel, logger)

	model, err := repository.FindRefereeModel(cfg.ModelsDir)
	if err != nil {
		logger.Error("No analysis model available", zap.Error(err))
		return
	}
	logger.Infow("using analysis model", "alias", model.Alias, "elo", model.Elo, "path", model.FilePath)

	engine, err := repository.NewAnalysisEngine(cfg, model.FilePath, logger)
	if err != nil {
		logger.Error("Failed to start analysis engine", zap.Error(err))
		return
	}
	defer engine.Close()

	evaluator := initEvaluator(ctx, cfg, engine, logger)

	mongoAdapter := initMongo(ctx, cfg, logger)
	if mongoAdapter != nil {
		defer mongoAdapter.Close(ctx)
	}

	store, err := repository.NewResultStore(cfg.OutputDir, mongoAdapter, logger)
	if err != nil {
		logger.Error("Failed to prepare result store", zap.Error(err))
		return
	}

	minerCfg, err := miner.ConfigFrom(cfg)
	if err != nil {
		logger.Error("Invalid mining configuration", zap.Error(err))
		return
	}

	var options []miner.Option
	if cfg.MonitorAddr != "" {
		options = append(options, miner.WithProgress(startMonitor(cfg.MonitorAddr, store, logger)))
	}

	m := miner.New(minerCfg, evaluator, logger, options...)
	session, err := m.MineAll(ctx, domain.DefaultStartingPositions(), store)
	if err != nil {
		logger.Warnw("mining session aborted", "error", err)
	}
	logger.Infow("mining session finished",
		"mined", session.PositionsMined,
		"failed", session.PositionsFailed,
		"nodes", session.NodesExpanded,
		"truncated_branches", session.TruncatedBranches,
	)
}

func NewLogger() *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	return logger.Sugar()
}

// initEvaluator wraps the engine with the Redis analysis cache when Redis is
// configured; the miner works directly against the engine otherwise.
func initEvaluator(ctx context.Context, cfg *bootstrap.Config, engine *repository.AnalysisEngine, log *zap.SugaredLogger) miner.Evaluator {
	if cfg.RedisUrl == "" {
		return engine
	}

	redisAdapter := adapters.NewAdapterRedis(cfg)
	if err := redisAdapter.Init(ctx); err != nil {
		log.Warnw("Redis unavailable, mining without analysis cache", "error", err)
		return engine
	}
	log.Info("analysis cache enabled")

	ttl := time.Duration(cfg.CacheTTLSec) * time.Second
	cache := repository.NewAnalysisCache(redisAdapter, ttl, log)
	return repository.NewCachedEvaluator(engine, cache, log)
}

func initMongo(ctx context.Context, cfg *bootstrap.Config, log *zap.SugaredLogger) *adapters.AdapterMongo {
	if cfg.MongoUri == "" {
		return nil
	}

	mongoAdapter := adapters.NewAdapterMongo(cfg)
	if err := mongoAdapter.Init(ctx); err != nil {
		log.Warnw("MongoDB unavailable, results will only be written to disk", "error", err)
		return nil
	}
	log.Info("result archive enabled")
	return mongoAdapter
}

func startMonitor(addr string, store *repository.ResultStore, log *zap.SugaredLogger) *monitor.Handler {
	handler := monitor.NewHandler(store, log)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	handler.Router(r)

	go func() {
		log.Infof("Monitor is running on %s", addr)
		if err := http.ListenAndServe(addr, r); err != nil {
			log.Errorw("monitor server stopped", "error", err)
		}
	}()

	return handler
}

func handleShutdown(cancelFunc context.CancelFunc, log *zap.SugaredLogger) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info("Received shutdown signal")
	cancelFunc()
	time.Sleep(1 * time.Second) // give in-flight queries time to drain
}
