// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/justinas/alice"

	"github.com/HeikoBre/screening-dashboard-sandbox/internal/adapters/csvfile"
	service "github.com/HeikoBre/screening-dashboard-sandbox/internal/app"
	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/model"
	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/projection"
	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/types"
	"github.com/HeikoBre/screening-dashboard-sandbox/pkg/logger"
)

// DefaultMaxUploadBytes caps POST /datasets bodies when no limit is set.
const DefaultMaxUploadBytes = 32 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	DatasetDependencies
	GeneDependencies
	ReviewDependencies
	ExportDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	datasetHandler *DatasetHandler
	geneHandler    *GeneHandler
	reviewHandler  *ReviewHandler
	exportHandler  *ExportHandler

	logger logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*serverConfig)

type serverConfig struct {
	maxUploadBytes int64
	logger         logger.Logger
}

// WithMaxUploadBytes caps the size of uploaded survey exports.
func WithMaxUploadBytes(n int64) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxUploadBytes = n
		}
	}
}

// WithLogger sets the logger used for access logs and recovered panics.
func WithLogger(l logger.Logger) Option {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := &serverConfig{maxUploadBytes: DefaultMaxUploadBytes, logger: logger.Discard()}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		datasetHandler: NewDatasetHandler(deps, cfg.maxUploadBytes),
		geneHandler:    NewGeneHandler(deps),
		reviewHandler:  NewReviewHandler(deps),
		exportHandler:  NewExportHandler(deps),
		logger:         cfg.logger,
	}
}

// Register attaches all HTTP routes to router.
func (s *Server) Register(_ context.Context, router *mux.Router) {
	GET := router.Methods(http.MethodGet, http.MethodHead).Subrouter()
	POST := router.Methods(http.MethodPost).Subrouter()
	PUT := router.Methods(http.MethodPut).Subrouter()
	DELETE := router.Methods(http.MethodDelete).Subrouter()

	GET.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	GET.Handle("/metrics", s.healthHandler.MetricsHandler())
	GET.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	POST.HandleFunc("/datasets", MetricsMiddleware(s.datasetHandler.HandleUpload, "datasets"))
	GET.HandleFunc("/datasets/current", MetricsMiddleware(s.datasetHandler.HandleCurrent, "datasets_current"))
	DELETE.HandleFunc("/datasets/current", MetricsMiddleware(s.datasetHandler.HandleClear, "datasets_current"))

	GET.HandleFunc("/genes", MetricsMiddleware(s.geneHandler.HandleList, "genes"))
	GET.HandleFunc("/genes/{gene}", MetricsMiddleware(s.geneHandler.HandleGet, "gene"))

	GET.HandleFunc("/reviews", MetricsMiddleware(s.reviewHandler.HandleList, "reviews"))
	PUT.HandleFunc("/reviews/{gene}", MetricsMiddleware(s.reviewHandler.HandlePut, "review"))
	DELETE.HandleFunc("/reviews/{gene}", MetricsMiddleware(s.reviewHandler.HandleDelete, "review"))

	GET.HandleFunc("/export.csv", MetricsMiddleware(s.exportHandler.HandleCSV, "export_csv"))
	GET.HandleFunc("/export", MetricsMiddleware(s.exportHandler.HandleJSON, "export"))

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", nil)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	})
}

// Chain wraps h with the standard middleware stack.
func (s *Server) Chain(h http.Handler) http.Handler {
	return alice.New(
		RecoverMiddleware(s.logger),
		AccessLogMiddleware(s.logger),
	).Then(h)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates service sentinels to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNoDataset):
		writeError(w, http.StatusNotFound, "no_dataset", err)
	case errors.Is(err, service.ErrUnknownGene):
		writeError(w, http.StatusNotFound, "unknown_gene", err)
	case errors.Is(err, model.ErrInvalidDecision):
		writeError(w, http.StatusBadRequest, "invalid_decision", err)
	case errors.Is(err, csvfile.ErrEmptyTable), errors.Is(err, csvfile.ErrNotTabular):
		writeError(w, http.StatusUnprocessableEntity, "invalid_dataset", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// compile-time checks against the service implementation
var (
	_ Dependencies  = (*service.Service)(nil)
	_ StatsProvider = (*service.Service)(nil)
)

// DatasetDependencies defines the dataset operations.
type DatasetDependencies interface {
	LoadDataset(ctx context.Context, r io.Reader, source string) (types.Dataset, error)
	Current(ctx context.Context) (types.Dataset, error)
	ClearDataset(ctx context.Context) error
}

// GeneDependencies defines the gene read operations.
type GeneDependencies interface {
	Genes(ctx context.Context) ([]types.GenePreview, error)
	Gene(ctx context.Context, gene string) (types.GeneDetail, error)
}

// ReviewDependencies defines the review ledger operations.
type ReviewDependencies interface {
	SetReview(ctx context.Context, gene, decision, notes string) (types.Review, error)
	ClearReview(ctx context.Context, gene string) error
	Reviews(ctx context.Context) (types.ReviewList, error)
}

// ExportDependencies defines the export operations.
type ExportDependencies interface {
	ExportRows(ctx context.Context) ([]projection.ExportRow, error)
	ExportCSV(ctx context.Context, w io.Writer) (string, error)
}
