package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/zoomfind/prodex/internal/config"
	"github.com/zoomfind/prodex/internal/db"
	dbRedis "github.com/zoomfind/prodex/internal/db/redis"
	"github.com/zoomfind/prodex/internal/domain"
	domcatalog "github.com/zoomfind/prodex/internal/domain/catalog"
	domcategory "github.com/zoomfind/prodex/internal/domain/category"
	"github.com/zoomfind/prodex/internal/index"
	logpkg "github.com/zoomfind/prodex/internal/logger"
	"github.com/zoomfind/prodex/internal/metrics"
	"github.com/zoomfind/prodex/internal/oracle/gemini"
	catalogrepo "github.com/zoomfind/prodex/internal/repository/catalog"
	"github.com/zoomfind/prodex/internal/repository/embcache"
	chiTransport "github.com/zoomfind/prodex/internal/transport/chi"
	openaiEmb "github.com/zoomfind/prodex/internal/transport/openai"
	categoryuc "github.com/zoomfind/prodex/internal/usecase/category"
	healthuc "github.com/zoomfind/prodex/internal/usecase/health"
	"github.com/zoomfind/prodex/internal/usecase/queryexpand"
	retrievaluc "github.com/zoomfind/prodex/internal/usecase/retrieval"
	"github.com/zoomfind/prodex/internal/version"
)

func main() {
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting prodex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("embedding_model", cfg.Embedding.Model),
	)

	ctx := context.Background()

	// Embedding cache is optional: with no addresses the server embeds
	// every query through the provider.
	var store db.Store
	if len(cfg.Cache.Addrs) > 0 {
		redisStore, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer redisStore.Close()

		timeout := time.Duration(cfg.Cache.ReadinessTimeout) * time.Second
		if err := redisStore.WaitForReady(ctx, timeout); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		store = redisStore
		logger.Info("Connected to embedding cache", zap.Strings("addrs", cfg.Cache.Addrs))
	} else {
		logger.Warn("No cache configured, embedding every query through the provider")
	}

	// Register retrieval metrics explicitly (no init())
	metrics.RegisterSearchMetrics()

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   "openai",
		Logger:     logger,
	})
	queryEmbedder := buildEmbedder(base, store, cfg.Embedding.QueryInstruction, cfg, logger)
	passageEmbedder := buildEmbedder(base, store, cfg.Embedding.PassageInstruction, cfg, logger)

	// Load the offline-built catalog and bring the index up before serving.
	products, err := catalogrepo.Load(
		cfg.Data.MetadataFile, cfg.Data.VectorsFile, cfg.Embedding.Dimensions)
	if err != nil {
		logger.Fatal("Failed to load catalog", zap.Error(err))
	}
	catalogSet := domcatalog.NewSet(products)

	entries := make([]index.Entry, len(products))
	for i := range products {
		entries[i] = index.Entry{ID: products[i].ID(), Vector: products[i].Vector()}
	}
	idx, err := index.New(cfg.Embedding.Dimensions, entries, index.Options{
		FlatThreshold: cfg.Search.FlatThreshold,
		Probes:        cfg.Search.IVFProbes,
	})
	if err != nil {
		logger.Fatal("Failed to build index", zap.Error(err))
	}
	indexStore := index.NewStore()
	indexStore.Swap(idx)
	logger.Info("Vector index ready",
		zap.Int("products", catalogSet.Len()),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	synonyms, err := queryexpand.LoadTable(cfg.Data.SynonymsFile)
	if err != nil {
		logger.Fatal("Failed to load synonym table", zap.Error(err))
	}
	expander := queryexpand.NewExpander(synonyms)

	taxonomy, err := domcategory.LoadFile(cfg.Data.CategoriesFile)
	if err != nil {
		logger.Fatal("Failed to load category taxonomy", zap.Error(err))
	}

	// Category oracle branch is optional: without an API key every request
	// runs on pure vector ranking.
	var predictor retrievaluc.CategoryPredictor
	subcategories := 0
	for _, cat := range taxonomy {
		subcategories += len(cat.Subcategories)
	}
	if cfg.Oracle.APIKey != "" {
		retriever, err := categoryuc.BuildRetriever(ctx, taxonomy, passageEmbedder, categoryuc.Weights{
			Semantic: cfg.Oracle.SemanticWeight,
			Keyword:  cfg.Oracle.KeywordWeight,
			Floor:    cfg.Oracle.ScoreFloor,
		})
		if err != nil {
			logger.Fatal("Failed to build category retriever", zap.Error(err))
		}

		oracle, err := gemini.New(ctx, cfg.Oracle.APIKey, cfg.Oracle.Model)
		if err != nil {
			logger.Fatal("Failed to create category oracle", zap.Error(err))
		}
		defer func() { _ = oracle.Close() }()

		predictor = categoryuc.New(retriever, queryEmbedder, oracle, cfg.Oracle.TopK)
		logger.Info("Category oracle ready",
			zap.String("model", cfg.Oracle.Model),
			zap.Int("subcategories", subcategories),
		)
	} else {
		logger.Warn("No oracle API key configured, category prediction disabled")
	}

	pool, err := ants.NewPool(cfg.Search.WorkerPoolSize)
	if err != nil {
		logger.Fatal("Failed to create worker pool", zap.Error(err))
	}
	defer pool.Release()

	retrievalSvc := retrievaluc.New(
		expander, queryEmbedder, indexStore, catalogSet, predictor, pool,
		retrievaluc.Config{
			Fusion: retrievaluc.FusionConfig{
				CategoryBoost: cfg.Search.CategoryBoost,
				TermBoost:     cfg.Search.TermBoost,
				TermBoostCap:  cfg.Search.TermBoostCap,
			},
			Diversity: retrievaluc.DiversityConfig{
				MaxResults:     cfg.Search.MaxResults,
				MaxPerCategory: cfg.Search.MaxPerCategory,
				MaxPerBrand:    cfg.Search.MaxPerBrand,
			},
			CandidateMultiplier: cfg.Search.CandidateMultiplier,
			MinSimilarity:       cfg.Search.MinSimilarity,
			OracleTimeout:       time.Duration(cfg.Oracle.TimeoutMS) * time.Millisecond,
		},
	)

	// Pass nil interface (not typed nil pointer!) when the cache is absent.
	var cachePinger healthuc.CachePinger
	if store != nil {
		cachePinger = store
	}
	healthSvc := healthuc.New(indexStore, newEmbeddingHealthChecker(base), cachePinger)

	server := chiTransport.NewServer(retrievalSvc, healthSvc, func() chiTransport.Stats {
		return chiTransport.Stats{
			Products:      catalogSet.Len(),
			IndexSize:     indexStore.Size(),
			Dimension:     indexStore.Dimension(),
			Subcategories: subcategories,
			Model:         cfg.Embedding.Model,
		}
	}, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instruction.
// The instruction prefix sits outermost so the cache key includes it.
func buildEmbedder(
	base *openaiEmb.Embedder,
	store db.Store,
	instruction string,
	cfg config.Config,
	logger *zap.Logger,
) domain.Embedder {
	var embedder domain.Embedder = base
	if store != nil {
		ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour
		embedder = embcache.New(base, store, ttl, metrics.EmbeddingCacheTotal, logger)
	}

	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}

	return embedder
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
