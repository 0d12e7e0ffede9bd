// Package retrieval orchestrates a search request: lexical expansion, the
// concurrent vector and category-oracle branches, score fusion, and result
// diversification.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	domcat "github.com/zoomfind/prodex/internal/domain/category"
	"github.com/zoomfind/prodex/internal/domain/query"
	"github.com/zoomfind/prodex/internal/domain/search"
	"github.com/zoomfind/prodex/internal/index"
	"github.com/zoomfind/prodex/internal/logger"
	"github.com/zoomfind/prodex/internal/metrics"
)

// Config holds the tunables of the retrieval pipeline.
type Config struct {
	Fusion    FusionConfig
	Diversity DiversityConfig

	// CandidateMultiplier widens the index lookup so diversification and the
	// similarity floor still leave enough material for a full result page.
	CandidateMultiplier int
	MinSimilarity       float64
	OracleTimeout       time.Duration
}

// Result is one completed retrieval.
type Result struct {
	Query        query.Query
	Hits         []search.Hit
	Prediction   *domcat.Prediction // nil when the oracle made no call
	TotalMatches int                // fused candidates above the similarity floor
	Elapsed      time.Duration
}

// Service runs the retrieval pipeline. Safe for concurrent use.
type Service struct {
	expander   Expander
	embedder   Embedder
	searcher   VectorSearcher
	products   ProductReader
	categories CategoryPredictor
	pool       *ants.Pool
	cfg        Config
}

// New creates a retrieval service. The worker pool bounds CPU-bound index
// scans; a nil pool runs them on the request goroutine. A nil predictor
// disables the oracle branch.
func New(
	expander Expander,
	embedder Embedder,
	searcher VectorSearcher,
	products ProductReader,
	categories CategoryPredictor,
	pool *ants.Pool,
	cfg Config,
) *Service {
	return &Service{
		expander:   expander,
		embedder:   embedder,
		searcher:   searcher,
		products:   products,
		categories: categories,
		pool:       pool,
		cfg:        cfg,
	}
}

type searchOut struct {
	candidates []index.Candidate
	err        error
}

// Retrieve runs the full pipeline for one query. maxResults values outside
// (0, Diversity.MaxResults] fall back to the configured default. The oracle
// branch can only improve ranking: its absence, failure, or timeout never
// fails the request.
func (s *Service) Retrieve(ctx context.Context, rawQuery string, maxResults int) (Result, error) {
	start := time.Now()
	log := logger.FromContext(ctx)

	if maxResults <= 0 || maxResults > s.cfg.Diversity.MaxResults {
		maxResults = s.cfg.Diversity.MaxResults
	}

	q, err := s.expander.Expand(rawQuery)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return Result{}, err
	}

	// Oracle branch: optional, bounded by its own deadline, always resolves.
	// The query text is snapshotted here because q is reassigned below when
	// the embedding is attached; the goroutine must not read the shared
	// variable.
	oracleCtx, cancelOracle := context.WithTimeout(ctx, s.cfg.OracleTimeout)
	defer cancelOracle()
	oracleCh := make(chan *domcat.Prediction, 1)
	rawText, normalizedText := q.Raw(), q.Normalized()
	go func() {
		if s.categories == nil {
			oracleCh <- nil
			return
		}
		oracleCh <- s.categories.Predict(oracleCtx, rawText, normalizedText)
	}()

	// Vector branch: mandatory. The embedding call is network-bound and
	// awaited inline; the index scan is CPU-bound and runs on the pool.
	emb, err := s.embedder.Embed(ctx, q.Normalized())
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("embed query: %w", err)
	}
	q = q.WithVector(emb.Embedding)

	searchCh := make(chan searchOut, 1)
	scan := func() {
		candidates, err := s.searcher.Search(q.Vector(), maxResults*s.cfg.CandidateMultiplier)
		searchCh <- searchOut{candidates: candidates, err: err}
	}
	if s.pool != nil {
		if err := s.pool.Submit(scan); err != nil {
			log.Warn("worker pool rejected index scan, running inline", zap.Error(err))
			scan()
		}
	} else {
		scan()
	}

	var out searchOut
	select {
	case out = <-searchCh:
	case <-ctx.Done():
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return Result{}, ctx.Err()
	}
	if out.err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("vector search: %w", out.err)
	}
	candidates := aboveFloor(out.candidates, s.cfg.MinSimilarity)

	var prediction *domcat.Prediction
	select {
	case prediction = <-oracleCh:
	case <-ctx.Done():
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return Result{}, ctx.Err()
	}
	metrics.OracleRequestsTotal.WithLabelValues(oracleOutcome(prediction, oracleCtx)).Inc()

	hits := fuse(candidates, s.products, &q, prediction, s.cfg.Fusion)
	diversity := s.cfg.Diversity
	diversity.MaxResults = maxResults
	final := diversify(hits, diversity)

	elapsed := time.Since(start)
	metrics.SearchRequestsTotal.WithLabelValues("ok").Inc()
	metrics.SearchDuration.Observe(elapsed.Seconds())
	log.Debug("retrieval completed",
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(final)),
		zap.Bool("category_predicted", prediction != nil),
		zap.Duration("elapsed", elapsed),
	)

	return Result{
		Query:        q,
		Hits:         final,
		Prediction:   prediction,
		TotalMatches: len(hits),
		Elapsed:      elapsed,
	}, nil
}

func aboveFloor(candidates []index.Candidate, floor float64) []index.Candidate {
	kept := candidates[:0]
	for _, c := range candidates {
		if c.Similarity >= floor {
			kept = append(kept, c)
		}
	}
	return kept
}

func oracleOutcome(prediction *domcat.Prediction, oracleCtx context.Context) string {
	switch {
	case prediction != nil:
		return "predicted"
	case errors.Is(oracleCtx.Err(), context.DeadlineExceeded):
		return "timeout"
	default:
		return "absent"
	}
}
