// Package stub is a local stand-in for the remote prediction service.
//
// It serves the same HTTP contract the api client consumes, classifies content
// with a deterministic hash instead of a trained model, and keeps a scan log in
// SQLite. Scans are committed before the response is written, so a history
// request issued after an analysis returns always sees it.
package stub

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ppiankov/newsguard/internal/api"
	"github.com/ppiankov/newsguard/internal/cache"
	"github.com/ppiankov/newsguard/internal/model"
	"github.com/rs/zerolog"
)

const (
	maxUploadBytes = 10 << 20
	historyLimit   = 50

	stubModelVersion = "stub-sha256"
	stubArchitecture = "SHA-256 hash classifier (stub)"
	statsCacheKey    = "stats"
)

// Server serves the prediction API
type Server struct {
	store      *Store
	scraper    *Scraper
	summarizer Summarizer
	stats      *cache.MemoryCache[model.ModelStats]
	logger     zerolog.Logger
	startedAt  time.Time
}

// Option customises a Server
type Option func(*Server)

// WithScraper replaces the default scraper
func WithScraper(s *Scraper) Option {
	return func(srv *Server) { srv.scraper = s }
}

// WithSummarizer enables summaries
func WithSummarizer(s Summarizer) Option {
	return func(srv *Server) { srv.summarizer = s }
}

// WithLogger sets the request logger
func WithLogger(logger zerolog.Logger) Option {
	return func(srv *Server) { srv.logger = logger }
}

// WithStatsTTL sets how long /stats results are memoized
func WithStatsTTL(ttl time.Duration) Option {
	return func(srv *Server) {
		srv.stats = cache.NewMemoryCache[model.ModelStats](ttl, 2*ttl)
	}
}

// NewServer creates a stub server backed by store
func NewServer(store *Store, opts ...Option) *Server {
	s := &Server{
		store:     store,
		scraper:   NewScraper(10*time.Second, "Mozilla/5.0 (compatible; newsguard-stub/0.1)", 0),
		stats:     cache.NewMemoryCache[model.ModelStats](5*time.Minute, 10*time.Minute),
		logger:    zerolog.Nop(),
		startedAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the stub's HTTP handler
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.logRequests)
	s.RegisterHTTP(r)
	return r
}

// RegisterHTTP mounts the prediction API on r
func (s *Server) RegisterHTTP(r chi.Router) {
	r.Post("/predict", s.handlePredictImage)
	r.Post("/predict/url", s.handlePredictURL)
	r.Get("/history", s.handleHistory)
	r.Get("/stats", s.handleStats)
	r.Get("/health", s.handleHealth)
}

func (s *Server) handlePredictImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	userID := r.FormValue("user_id")
	if userID == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "user_id is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Image file is required")
		return
	}
	defer func() { _ = file.Close() }()

	image, err := io.ReadAll(file)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Could not read image file")
		return
	}
	if !strings.HasPrefix(http.DetectContentType(image), "image/") {
		writeDetail(w, http.StatusBadRequest, "Invalid image file")
		return
	}

	text := r.FormValue("text")
	result := Classify(text, image)
	s.summarize(r.Context(), text, &result)

	stored := text
	if stored == "" {
		// No OCR here: record which upload the scan came from
		stored = model.WithProvenance(model.ProvenanceOCR, header.Filename)
	}

	s.record(w, r, userID, stored, result)
}

type predictURLRequest struct {
	URL    string `json:"url"`
	UserID string `json:"user_id"`
}

func (s *Server) handlePredictURL(w http.ResponseWriter, r *http.Request) {
	var req predictURLRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid JSON body")
		return
	}
	if req.UserID == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "user_id is required")
		return
	}
	if err := api.ValidateURL(req.URL); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	headline, err := s.scraper.Headline(r.Context(), req.URL)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", req.URL).Msg("scrape failed")
		writeDetail(w, http.StatusBadRequest, "Could not scrape article from URL")
		return
	}

	result := Classify(headline, nil)
	result.ScrapedHeadline = model.StringPtr(headline)
	s.summarize(r.Context(), headline, &result)

	s.record(w, r, req.UserID, model.WithProvenance(model.ProvenanceURL, headline), result)
}

// record commits the scan, then responds with the prediction
func (s *Server) record(w http.ResponseWriter, r *http.Request, userID, text string, result model.PredictionResult) {
	entry, err := s.store.Insert(r.Context(), userID, text, result)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("store scan")
		writeDetail(w, http.StatusInternalServerError, "Failed to save scan")
		return
	}

	s.stats.Delete(statsCacheKey)
	s.logger.Info().
		Str("scan_id", entry.ID).
		Str("user_id", userID).
		Str("label", string(result.Label)).
		Float64("confidence", result.Confidence).
		Msg("scan recorded")

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) summarize(ctx context.Context, text string, result *model.PredictionResult) {
	if s.summarizer == nil {
		return
	}
	summary, err := s.summarizer.Summarize(ctx, text, *result)
	if err != nil {
		s.logger.Warn().Err(err).Msg("summary generation failed")
		summary = unavailableSummary
	}
	result.Summary = model.StringPtr(summary)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeDetail(w, http.StatusBadRequest, "user_id is required")
		return
	}

	entries, err := s.store.History(r.Context(), userID, historyLimit)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("load history")
		writeDetail(w, http.StatusInternalServerError, "Failed to load history")
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.GetOrLoad(statsCacheKey, func() (model.ModelStats, error) {
		return s.computeStats(r.Context())
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("compute stats")
		writeDetail(w, http.StatusInternalServerError, "Failed to load model stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) computeStats(ctx context.Context) (model.ModelStats, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return model.ModelStats{}, err
	}
	return model.ModelStats{
		// A hash classifier is right half the time
		Accuracy:     50.0,
		TotalSamples: n,
		LastTrained:  s.startedAt.Format("2006-01-02"),
		ModelVersion: stubModelVersion,
		Architecture: model.StringPtr(stubArchitecture),
	}, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// logRequests logs one line per request
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// ListenAndServe runs the stub on addr until ctx is canceled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info().Str("addr", addr).Msg("stub backend listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
