// Package chi exposes the retrieval service over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/zoomfind/prodex/internal/domain"
	healthuc "github.com/zoomfind/prodex/internal/usecase/health"
	retrievaluc "github.com/zoomfind/prodex/internal/usecase/retrieval"
)

const maxQueryLength = 500

// errorCode is the machine-readable error discriminator in error responses.
type errorCode string

const (
	codeBadRequest        errorCode = "bad_request"
	codeInvalidQuery      errorCode = "invalid_query"
	codeIndexNotLoaded    errorCode = "index_not_loaded"
	codeEmbeddingProvider errorCode = "embedding_provider_error"
	codeInternalError     errorCode = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Retriever runs a search request end to end.
type Retriever interface {
	Retrieve(ctx context.Context, rawQuery string, maxResults int) (retrievaluc.Result, error)
}

// HealthChecker aggregates component readiness.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Stats is the payload of the stats endpoint.
type Stats struct {
	Products      int    `json:"products"`
	IndexSize     int    `json:"index_size"`
	Dimension     int    `json:"dimension"`
	Subcategories int    `json:"subcategories"`
	Model         string `json:"model"`
}

// Server handles the HTTP API.
type Server struct {
	retrieval     Retriever
	health        HealthChecker
	stats         func() Stats
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(retrieval Retriever, health HealthChecker, stats func() Stats, logger *zap.Logger) *Server {
	s := &Server{
		retrieval: retrieval,
		health:    health,
		stats:     stats,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, codeInvalidQuery),
		sentinelHandler(domain.ErrIndexNotLoaded, http.StatusServiceUnavailable, codeIndexNotLoaded),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProvider),
		sentinelHandler(domain.ErrDimensionMismatch, http.StatusInternalServerError, codeInternalError),
	}
	return s
}

// Register mounts all routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Post("/search", s.Search)
	r.Get("/health", s.HealthCheck)
	r.Get("/stats", s.GetStats)
	r.Get("/metrics", s.Metrics)
}

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
}

type categoryResponse struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	URL         string `json:"url,omitempty"`
}

type productResponse struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Price           string            `json:"price"`
	Category        string            `json:"category"`
	Brand           string            `json:"brand,omitempty"`
	Specs           map[string]string `json:"specs,omitempty"`
	SimilarityScore float64           `json:"similarity_score"`
	FinalScore      float64           `json:"final_score"`
	MatchedTerms    []string          `json:"matched_terms,omitempty"`
}

type searchResponse struct {
	Query            string            `json:"query"`
	SelectedCategory *categoryResponse `json:"selected_category,omitempty"`
	Products         []productResponse `json:"products"`
	TotalResults     int               `json:"total_results"`
	ResponseTimeMs   float64           `json:"response_time_ms"`
	Timestamp        time.Time         `json:"timestamp"`
}

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(req.Query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, codeInvalidQuery, "query too long")
		return
	}

	res, err := s.retrieval.Retrieve(r.Context(), req.Query, req.MaxResults)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	products := make([]productResponse, len(res.Hits))
	for i := range res.Hits {
		p := res.Hits[i].Product()
		products[i] = productResponse{
			ID:              p.ID(),
			Title:           p.Title(),
			Price:           p.Price(),
			Category:        p.Category(),
			Brand:           p.Brand(),
			Specs:           p.Specs(),
			SimilarityScore: res.Hits[i].Similarity(),
			FinalScore:      res.Hits[i].FinalScore(),
			MatchedTerms:    res.Hits[i].MatchedTerms(),
		}
	}

	// TotalResults counts the products in this response, not the wider
	// candidate set the ranker considered.
	resp := searchResponse{
		Query:          res.Query.Raw(),
		Products:       products,
		TotalResults:   len(products),
		ResponseTimeMs: float64(res.Elapsed.Microseconds()) / 1000.0,
		Timestamp:      time.Now().UTC(),
	}
	if res.Prediction != nil {
		resp.SelectedCategory = &categoryResponse{
			Category:    res.Prediction.CategoryName,
			Subcategory: res.Prediction.SubcategoryName,
			URL:         res.Prediction.SubcategoryURL,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// GetStats handles GET /stats.
func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats())
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrIndexNotLoaded,
		domain.ErrDimensionMismatch,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
