// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HeikoBre/screening-dashboard-sandbox/internal/adapters/csvfile"
	"github.com/HeikoBre/screening-dashboard-sandbox/internal/adapters/repository"
	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/aggregate"
	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/consensus"
	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/header"
	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/model"
	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/projection"
	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/session"
	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/types"
	"github.com/HeikoBre/screening-dashboard-sandbox/pkg/logger"
	"github.com/HeikoBre/screening-dashboard-sandbox/pkg/metrics"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// dataset is one loaded session plus how its file was decoded.
type dataset struct {
	sess *session.ReviewSession
	info csvfile.Info
}

// Service implements the API dependencies for the review dashboard.
type Service struct {
	mu sync.RWMutex

	// Core components
	parser     *header.Parser
	aggregator *aggregate.Aggregator
	classifier *consensus.Classifier
	projector  *projection.Projector
	ledger     repository.Store

	// current is swapped whole on load so readers never see a partial dataset.
	current atomic.Pointer[dataset]
	// swapMu orders review writes against ledger reset plus dataset swap.
	// Writers hold it shared for check-and-write, loads hold it exclusively.
	swapMu sync.RWMutex

	// Configuration
	markers         header.Markers
	labels          aggregate.Labels
	threshold       float64
	delimiter       string
	unreviewedLabel string
	ledgerBackend   string
	ledgerPath      string
	resetOnLoad     bool
	exportTotal     bool
	now             func() time.Time

	// State
	started     bool
	ownsLedger  bool
	loadedCount int

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMarkers sets the header markers.
func WithMarkers(m header.Markers) Option {
	return func(s *Service) { s.markers = m }
}

// WithLabels sets the response labels.
func WithLabels(l aggregate.Labels) Option {
	return func(s *Service) { s.labels = l }
}

// WithThreshold sets the consensus threshold in percent.
func WithThreshold(pct float64) Option {
	return func(s *Service) {
		if pct >= 0 && pct <= 100 {
			s.threshold = pct
		}
	}
}

// WithCommentDelimiter sets the separator joining exported comments.
func WithCommentDelimiter(d string) Option {
	return func(s *Service) { s.delimiter = d }
}

// WithUnreviewedLabel sets the decision exported for unreviewed genes.
func WithUnreviewedLabel(label string) Option {
	return func(s *Service) { s.unreviewedLabel = label }
}

// WithLedger injects an already opened ledger. The service does not close it.
func WithLedger(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.ledger = store
		}
	}
}

// WithLedgerBackend selects the ledger opened by Start.
func WithLedgerBackend(backend, path string) Option {
	return func(s *Service) {
		s.ledgerBackend = backend
		s.ledgerPath = path
	}
}

// WithResetOnLoad clears all reviews whenever a dataset is loaded or cleared.
func WithResetOnLoad(on bool) Option {
	return func(s *Service) { s.resetOnLoad = on }
}

// WithExportTotal prepends the total response column to CSV exports.
func WithExportTotal(on bool) Option {
	return func(s *Service) { s.exportTotal = on }
}

// WithClock sets the time source for session timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		markers:         header.DefaultMarkers(),
		labels:          aggregate.DefaultLabels(),
		threshold:       consensus.DefaultThreshold,
		delimiter:       projection.DefaultDelimiter,
		unreviewedLabel: projection.DefaultUnreviewedLabel,
		ledgerBackend:   repository.BackendMemory,
		resetOnLoad:     true,
		now:             time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.parser = header.NewParser(header.WithMarkers(s.markers))
	s.aggregator = aggregate.New(aggregate.WithLabels(s.labels))
	s.classifier = consensus.NewClassifier(consensus.WithThreshold(s.threshold))
	s.projector = projection.New(
		projection.WithClassifier(s.classifier),
		projection.WithDelimiter(s.delimiter),
		projection.WithUnreviewedLabel(s.unreviewedLabel),
	)
	return s
}

// Start opens the ledger unless one was injected.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting review service...")

	if s.ledger == nil {
		store, err := repository.Open(ctx, s.ledgerBackend, s.ledgerPath)
		if err != nil {
			metrics.RecordErrorByComponent("ledger", "open")
			return fmt.Errorf("open %s ledger: %w", s.ledgerBackend, err)
		}
		s.ledger = store
		s.ownsLedger = true
	}

	s.started = true
	s.logger.Info(ctx, "review service started",
		logger.String("ledger", s.ledgerBackend),
		logger.String("ledgerPath", s.ledgerPath),
		logger.Float64("threshold", s.classifier.Threshold()),
		logger.Int("reviews", s.ledger.Count(ctx)),
	)
	return nil
}

// Stop closes a ledger opened by Start.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping review service...")

	if s.ownsLedger && s.ledger != nil {
		if err := s.ledger.Close(); err != nil {
			s.logger.Warn(context.Background(), "failed to close ledger", logger.Error(err))
		}
		s.ledger = nil
		s.ownsLedger = false
	}

	s.started = false
	s.logger.Info(context.Background(), "review service stopped")
}

func (s *Service) store() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started || s.ledger == nil {
		return nil, ErrNotStarted
	}
	return s.ledger, nil
}

func (s *Service) loaded() (*dataset, error) {
	d := s.current.Load()
	if d == nil {
		return nil, ErrNoDataset
	}
	return d, nil
}

// LoadDataset reads a survey export from r and makes it the current
// dataset. Only unreadable input is an error; schema findings are
// returned as diagnostics.
func (s *Service) LoadDataset(ctx context.Context, r io.Reader, source string) (types.Dataset, error) {
	start := time.Now()
	ledger, err := s.store()
	if err != nil {
		return types.Dataset{}, err
	}

	table, info, err := csvfile.Read(r)
	if err != nil {
		metrics.RecordDatasetLoaded("error")
		metrics.RecordErrorByComponent("loader", loadErrorType(err))
		s.logger.Warn(ctx, "dataset rejected", logger.String("source", source), logger.Error(err))
		return types.Dataset{}, fmt.Errorf("load %q: %w", source, err)
	}

	sess := session.Build(table,
		session.WithSource(source),
		session.WithClock(s.now),
		session.WithParser(s.parser),
		session.WithAggregator(s.aggregator),
		session.WithClassifier(s.classifier),
		session.WithProjector(s.projector),
	)

	d := &dataset{sess: sess, info: info}
	s.swapMu.Lock()
	if s.resetOnLoad {
		if err := ledger.Reset(ctx); err != nil {
			s.swapMu.Unlock()
			metrics.RecordErrorByComponent("ledger", "reset")
			return types.Dataset{}, fmt.Errorf("reset reviews: %w", err)
		}
	}
	s.current.Store(d)
	s.swapMu.Unlock()

	s.mu.Lock()
	s.loadedCount++
	s.mu.Unlock()

	s.observeLoad(ctx, d, time.Since(start))
	return describe(d), nil
}

func loadErrorType(err error) string {
	switch {
	case errors.Is(err, csvfile.ErrEmptyTable):
		return "empty_table"
	case errors.Is(err, csvfile.ErrNotTabular):
		return "not_tabular"
	default:
		return "read"
	}
}

// observeLoad logs the diagnostics of a fresh session and updates metrics.
func (s *Service) observeLoad(ctx context.Context, d *dataset, took time.Duration) {
	sess := d.sess
	diag := sess.Diagnostics

	metrics.RecordDatasetLoaded("ok")
	metrics.RecordDatasetLoadDuration(float64(took.Microseconds()) / 1000)
	metrics.UpdateDatasetShape(sess.Schema.Len(), sess.TotalResponses, diag.SurveyColumns, diag.IgnoredColumns)
	metrics.RecordAmbiguousHeaders(len(diag.AmbiguousHeaders))
	metrics.RecordDroppedValues(diag.DroppedValues)

	counts := make(map[string]int, len(consensus.Recommendations))
	for _, rec := range consensus.Recommendations {
		counts[rec.String()] = 0
	}
	for _, rec := range sess.Recommendations {
		counts[rec.String()]++
	}
	metrics.UpdateRecommendations(counts)

	s.logger.Info(ctx, "dataset loaded",
		logger.String("id", sess.ID),
		logger.String("source", sess.Source),
		logger.String("encoding", d.info.Encoding),
		logger.String("delimiter", string(d.info.Delimiter)),
		logger.Int("genes", sess.Schema.Len()),
		logger.Int("responses", sess.TotalResponses),
		logger.Int("surveyColumns", diag.SurveyColumns),
		logger.Int("ignoredColumns", diag.IgnoredColumns),
	)
	if diag.SchemaEmpty {
		s.logger.Warn(ctx, "no survey columns recognized", logger.String("source", sess.Source))
	}
	for _, h := range diag.AmbiguousHeaders {
		s.logger.Warn(ctx, "header names both tracks, counted as national", logger.String("header", h))
	}
	if diag.DroppedValues > 0 {
		for _, gene := range sess.Genes() {
			for _, track := range model.Tracks {
				if n := sess.Stats.Get(gene, track).Dropped; n > 0 {
					s.logger.Debug(ctx, "unrecognized response values dropped",
						logger.String("gene", gene),
						logger.String("track", track.String()),
						logger.Int("dropped", n),
					)
				}
			}
		}
	}
}

// Current describes the loaded dataset.
func (s *Service) Current(_ context.Context) (types.Dataset, error) {
	d, err := s.loaded()
	if err != nil {
		return types.Dataset{}, err
	}
	return describe(d), nil
}

// ClearDataset drops the current dataset, and its reviews when reset on
// load is enabled.
func (s *Service) ClearDataset(ctx context.Context) error {
	ledger, err := s.store()
	if err != nil {
		return err
	}
	s.swapMu.Lock()
	prev := s.current.Swap(nil)
	if prev == nil {
		s.swapMu.Unlock()
		return ErrNoDataset
	}
	if s.resetOnLoad {
		if err := ledger.Reset(ctx); err != nil {
			s.swapMu.Unlock()
			return fmt.Errorf("reset reviews: %w", err)
		}
	}
	s.swapMu.Unlock()
	metrics.UpdateDatasetShape(0, 0, 0, 0)
	metrics.UpdateRecommendations(nil)
	s.logger.Info(ctx, "dataset cleared", logger.String("id", prev.sess.ID))
	return nil
}

func describe(d *dataset) types.Dataset {
	sess := d.sess
	diag := sess.Diagnostics
	return types.Dataset{
		ID:             sess.ID,
		Source:         sess.Source,
		LoadedAt:       sess.LoadedAt,
		Encoding:       d.info.Encoding,
		Delimiter:      string(d.info.Delimiter),
		TotalResponses: sess.TotalResponses,
		Genes:          sess.Schema.Len(),
		Diagnostics: types.Diagnostics{
			SchemaEmpty:      diag.SchemaEmpty,
			SurveyColumns:    diag.SurveyColumns,
			IgnoredColumns:   diag.IgnoredColumns,
			AmbiguousHeaders: diag.AmbiguousHeaders,
			DroppedValues:    diag.DroppedValues,
		},
	}
}

// Genes returns the overview of every gene in ascending order.
func (s *Service) Genes(ctx context.Context) ([]types.GenePreview, error) {
	d, err := s.loaded()
	if err != nil {
		return nil, err
	}
	reviews, err := s.reviews(ctx)
	if err != nil {
		return nil, err
	}

	sess := d.sess
	genes := sess.Genes()
	out := make([]types.GenePreview, 0, len(genes))
	for _, gene := range genes {
		nat := sess.Stats.Get(gene, model.TrackNational)
		study := sess.Stats.Get(gene, model.TrackScientificStudy)
		rec, _ := sess.Recommendation(gene)
		_, reviewed := reviews[gene]
		out = append(out, types.GenePreview{
			Gene:           gene,
			Disease:        sess.Schema.Disease(gene),
			NationalYesPct: projection.RoundShare(nat.YesCount, nat.Total),
			StudyYesPct:    projection.RoundShare(study.YesCount, study.Total),
			National80:     sess.Meets(nat.YesPct),
			Recommendation: rec.String(),
			Reviewed:       reviewed,
		})
	}
	return out, nil
}

// Gene returns the full view of gene.
func (s *Service) Gene(ctx context.Context, gene string) (types.GeneDetail, error) {
	d, err := s.loaded()
	if err != nil {
		return types.GeneDetail{}, err
	}
	sess := d.sess
	if !sess.Schema.Has(gene) {
		return types.GeneDetail{}, fmt.Errorf("%w: %s", ErrUnknownGene, gene)
	}
	ledger, err := s.store()
	if err != nil {
		return types.GeneDetail{}, err
	}

	rec, _ := sess.Recommendation(gene)
	detail := types.GeneDetail{
		Gene:           gene,
		Disease:        sess.Schema.Disease(gene),
		National:       s.track(sess, gene, model.TrackNational),
		Study:          s.track(sess, gene, model.TrackScientificStudy),
		Recommendation: rec.String(),
	}

	r, err := ledger.Get(ctx, gene)
	switch {
	case err == nil:
		v := toReview(r)
		detail.Review = &v
	case !errors.Is(err, repository.ErrNotFound):
		return types.GeneDetail{}, fmt.Errorf("get review: %w", err)
	}
	return detail, nil
}

func (s *Service) track(sess *session.ReviewSession, gene string, t model.Track) types.Track {
	st := sess.Stats.Get(gene, t)
	return types.Track{
		YesCount:       st.YesCount,
		NoCount:        st.NoCount,
		AbstainCount:   st.AbstainCount,
		N:              st.Total,
		YesPct:         projection.RoundShare(st.YesCount, st.Total),
		MeetsThreshold: sess.Meets(st.YesPct),
		Comments:       st.Comments,
		Dropped:        st.Dropped,
	}
}

// SetReview records a decision and notes for gene. An empty decision with
// blank notes clears the review instead.
func (s *Service) SetReview(ctx context.Context, gene, decision, notes string) (types.Review, error) {
	s.swapMu.RLock()
	defer s.swapMu.RUnlock()

	d, err := s.loaded()
	if err != nil {
		return types.Review{}, err
	}
	if !d.sess.Schema.Has(gene) {
		return types.Review{}, fmt.Errorf("%w: %s", ErrUnknownGene, gene)
	}
	dec, err := model.ParseDecision(decision)
	if err != nil {
		return types.Review{}, err
	}
	ledger, err := s.store()
	if err != nil {
		return types.Review{}, err
	}

	r := model.Review{Gene: gene, Decision: dec, Notes: notes, UpdatedAt: s.now()}
	if r.IsEmpty() {
		return types.Review{Gene: gene}, s.clearReview(ctx, gene)
	}
	if err := ledger.Put(ctx, r); err != nil {
		metrics.RecordErrorByComponent("ledger", "put")
		return types.Review{}, fmt.Errorf("save review: %w", err)
	}
	metrics.RecordReviewSaved(string(dec))
	s.logger.Info(ctx, "review saved",
		logger.String("gene", gene),
		logger.String("decision", string(dec)),
		logger.Int("notesLength", len(notes)),
	)

	stored, err := ledger.Get(ctx, gene)
	if err != nil {
		return types.Review{}, fmt.Errorf("reload review: %w", err)
	}
	return toReview(stored), nil
}

// ClearReview removes the review of gene.
func (s *Service) ClearReview(ctx context.Context, gene string) error {
	s.swapMu.RLock()
	defer s.swapMu.RUnlock()
	return s.clearReview(ctx, gene)
}

// clearReview is ClearReview for callers holding swapMu.
func (s *Service) clearReview(ctx context.Context, gene string) error {
	d, err := s.loaded()
	if err != nil {
		return err
	}
	if !d.sess.Schema.Has(gene) {
		return fmt.Errorf("%w: %s", ErrUnknownGene, gene)
	}
	ledger, err := s.store()
	if err != nil {
		return err
	}
	if err := ledger.Delete(ctx, gene); err != nil {
		metrics.RecordErrorByComponent("ledger", "delete")
		return fmt.Errorf("clear review: %w", err)
	}
	metrics.RecordReviewCleared()
	s.logger.Info(ctx, "review cleared", logger.String("gene", gene))
	return nil
}

// Reviews lists stored reviews in gene order with the progress of the
// current dataset.
func (s *Service) Reviews(ctx context.Context) (types.ReviewList, error) {
	reviews, err := s.reviews(ctx)
	if err != nil {
		return types.ReviewList{}, err
	}

	genes := make([]string, 0, len(reviews))
	for g := range reviews {
		genes = append(genes, g)
	}
	sort.Strings(genes)

	list := types.ReviewList{Reviews: make([]types.Review, 0, len(genes))}
	for _, g := range genes {
		list.Reviews = append(list.Reviews, toReview(reviews[g]))
	}

	if d := s.current.Load(); d != nil {
		list.Progress.Total = d.sess.Schema.Len()
		for _, g := range genes {
			if d.sess.Schema.Has(g) {
				list.Progress.Reviewed++
			}
		}
	}
	return list, nil
}

func (s *Service) reviews(ctx context.Context) (map[string]model.Review, error) {
	ledger, err := s.store()
	if err != nil {
		return nil, err
	}
	reviews, err := ledger.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

func toReview(r model.Review) types.Review {
	return types.Review{
		Gene:      r.Gene,
		Decision:  string(r.Decision),
		Notes:     r.Notes,
		UpdatedAt: r.UpdatedAt,
	}
}

// ExportRows projects the current dataset with the ledger as it is now.
func (s *Service) ExportRows(ctx context.Context) ([]projection.ExportRow, error) {
	d, err := s.loaded()
	if err != nil {
		return nil, err
	}
	reviews, err := s.reviews(ctx)
	if err != nil {
		return nil, err
	}
	rows := d.sess.Rows(reviews)
	metrics.RecordExport(FormatJSON, len(rows))
	return rows, nil
}

// ExportCSV writes the summary CSV to w and returns the download filename.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) (string, error) {
	d, err := s.loaded()
	if err != nil {
		return "", err
	}
	reviews, err := s.reviews(ctx)
	if err != nil {
		return "", err
	}
	rows := d.sess.Rows(reviews)
	if err := csvfile.WriteRows(w, rows, csvfile.WithTotalColumn(s.exportTotal)); err != nil {
		metrics.RecordErrorByComponent("export", "write")
		return "", fmt.Errorf("write export: %w", err)
	}
	metrics.RecordExport(FormatCSV, len(rows))
	s.logger.Info(ctx, "export written", logger.Int("rows", len(rows)))
	return csvfile.ExportFilename(s.now()), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":        s.started,
		"threshold":      s.classifier.Threshold(),
		"ledgerBackend":  s.ledgerBackend,
		"datasetsLoaded": s.loadedCount,
		"datasetLoaded":  false,
	}

	if s.started {
		stats["reviewsStored"] = s.ledger.Count(ctx)
	}
	if d := s.current.Load(); d != nil {
		stats["datasetLoaded"] = true
		stats["datasetId"] = d.sess.ID
		stats["genes"] = d.sess.Schema.Len()
		stats["totalResponses"] = d.sess.TotalResponses
	}
	return stats
}
