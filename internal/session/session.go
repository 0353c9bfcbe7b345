// Package session ties analysis submissions to history refreshes for one user.
//
// Every successful analysis publishes an events.AnalysisCompleted after the
// client has returned its result; the session's refresher answers each event
// with exactly one history request and hands the entries to the view.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/newsguard/internal/api"
	"github.com/ppiankov/newsguard/internal/events"
	"github.com/ppiankov/newsguard/internal/model"
	"github.com/rs/zerolog"
)

// Analyzer submits analyses (satisfied by *api.Client)
type Analyzer interface {
	PredictImage(ctx context.Context, in api.ImageRequest) (*model.PredictionResult, error)
	PredictURL(ctx context.Context, in api.URLRequest) (*model.PredictionResult, error)
}

// HistoryFetcher loads a user's scans (satisfied by *api.Client)
type HistoryFetcher interface {
	History(ctx context.Context, userID string) ([]model.HistoryEntry, error)
}

// HistoryView receives refreshed history. err is non-nil when the refresh failed.
// It is called with the session lock held and must not call Close.
type HistoryView func(entries []model.HistoryEntry, err error)

// Session coordinates analyses and history refreshes for a single user
type Session struct {
	id       string // Source of the events this session publishes
	userID   string
	analyzer Analyzer
	history  HistoryFetcher
	bus      *events.Bus
	logger   zerolog.Logger
	now      func() time.Time

	mu            sync.Mutex
	view          HistoryView
	closed        bool
	issued        uint64 // refreshes started
	lastDelivered uint64 // newest refresh handed to the view
	unsubscribe   func()
}

// Option customises a Session
type Option func(*Session)

// WithBus publishes on a shared bus instead of a private one
func WithBus(bus *events.Bus) Option {
	return func(s *Session) {
		if bus != nil {
			s.bus = bus
		}
	}
}

// WithLogger sets the session logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// New creates a session and subscribes its history refresher
func New(userID string, analyzer Analyzer, history HistoryFetcher, view HistoryView, opts ...Option) *Session {
	s := &Session{
		id:       uuid.NewString(),
		userID:   userID,
		analyzer: analyzer,
		history:  history,
		bus:      events.NewBus(),
		logger:   zerolog.Nop(),
		now:      time.Now,
		view:     view,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.unsubscribe = s.bus.Subscribe(s.onAnalysisCompleted)
	return s
}

// Bus returns the bus the session publishes on
func (s *Session) Bus() *events.Bus {
	return s.bus
}

// AnalyzeImage submits an image analysis and, on success, triggers one history refresh
func (s *Session) AnalyzeImage(ctx context.Context, in api.ImageRequest) (*model.PredictionResult, error) {
	in.UserID = s.userID
	result, err := s.analyzer.PredictImage(ctx, in)
	if err != nil {
		return nil, err
	}
	s.completed(ctx, model.VariantImage, result)
	return result, nil
}

// AnalyzeURL submits a URL analysis and, on success, triggers one history refresh
func (s *Session) AnalyzeURL(ctx context.Context, rawURL string) (*model.PredictionResult, error) {
	result, err := s.analyzer.PredictURL(ctx, api.URLRequest{URL: rawURL, UserID: s.userID})
	if err != nil {
		return nil, err
	}
	s.completed(ctx, model.VariantURL, result)
	return result, nil
}

// Refresh loads the history once without an analysis, e.g. when a view opens
func (s *Session) Refresh(ctx context.Context) {
	s.refresh(ctx)
}

// Close detaches the session. No view call happens after Close returns.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.view = nil
	s.unsubscribe()
}

func (s *Session) completed(ctx context.Context, variant model.Variant, result *model.PredictionResult) {
	s.bus.Publish(ctx, events.AnalysisCompleted{
		Source:  s.id,
		UserID:  s.userID,
		Variant: variant,
		Result:  *result,
		At:      s.now(),
	})
}

// onAnalysisCompleted refreshes only for analyses this session submitted;
// other sessions on a shared bus refresh for their own.
func (s *Session) onAnalysisCompleted(ctx context.Context, ev events.AnalysisCompleted) {
	if ev.Source != s.id {
		return
	}
	s.logger.Debug().
		Str("user_id", ev.UserID).
		Str("variant", string(ev.Variant)).
		Str("label", string(ev.Result.Label)).
		Msg("analysis completed, refreshing history")
	s.refresh(ctx)
}

func (s *Session) refresh(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.issued++
	seq := s.issued
	s.mu.Unlock()

	entries, err := s.history.History(ctx, s.userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.view == nil {
		s.logger.Debug().Uint64("refresh", seq).Msg("discarding history for closed session")
		return
	}
	// A newer refresh already reached the view
	if seq < s.lastDelivered {
		s.logger.Debug().Uint64("refresh", seq).Msg("discarding stale history")
		return
	}
	s.lastDelivered = seq
	s.view(entries, err)
}
