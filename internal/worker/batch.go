package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ppiankov/newsguard/internal/api"
	"github.com/ppiankov/newsguard/internal/model"
	"github.com/rs/zerolog"
)

// URLAnalyzer analyzes one URL (satisfied by *session.Session)
type URLAnalyzer interface {
	AnalyzeURL(ctx context.Context, rawURL string) (*model.PredictionResult, error)
}

// URLJob analyzes a single URL from a batch
type URLJob struct {
	Index    int
	URL      string
	analyzer URLAnalyzer
	limiter  *Limiter
	retries  int
	initial  time.Duration
}

// Execute runs the job, retrying transport and server failures
func (j *URLJob) Execute(ctx context.Context) Result {
	out := &URLResult{Index: j.Index, URL: j.URL}
	start := time.Now()

	operation := func() error {
		if j.limiter != nil {
			if err := j.limiter.Wait(ctx, j.URL); err != nil {
				return backoff.Permanent(err)
			}
		}
		out.Attempts++
		result, err := j.analyzer.AnalyzeURL(ctx, j.URL)
		if err != nil {
			if ctx.Err() != nil || !Retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		out.Result = result
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = j.initial
	policy.MaxElapsedTime = 0

	out.Error = backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(j.retries)), ctx))
	out.Duration = time.Since(start)
	return out
}

// URLResult is the outcome of one URL in a batch
type URLResult struct {
	Index    int
	URL      string
	Result   *model.PredictionResult
	Error    error
	Attempts int
	Duration time.Duration
}

// GetError returns the error from the analysis
func (r *URLResult) GetError() error {
	return r.Error
}

// Retryable reports whether an analysis failure may succeed on a second try:
// no HTTP response at all, or a 5xx from the service
func Retryable(err error) bool {
	var aerr *api.AnalysisError
	if !errors.As(err, &aerr) {
		return false
	}
	return aerr.StatusCode == 0 || aerr.StatusCode >= http.StatusInternalServerError
}

// BatchProcessor analyzes many URLs concurrently
type BatchProcessor struct {
	analyzer     URLAnalyzer
	concurrency  int
	limiter      *Limiter
	retries      int
	retryBackoff time.Duration
	logger       zerolog.Logger
}

// BatchOption customises a BatchProcessor
type BatchOption func(*BatchProcessor)

// WithLimiter paces requests per target host
func WithLimiter(l *Limiter) BatchOption {
	return func(b *BatchProcessor) { b.limiter = l }
}

// WithRetries retries retryable failures up to n extra times, starting at initial
func WithRetries(n int, initial time.Duration) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.retries = n
		}
		if initial > 0 {
			b.retryBackoff = initial
		}
	}
}

// WithLogger sets the batch logger
func WithLogger(logger zerolog.Logger) BatchOption {
	return func(b *BatchProcessor) { b.logger = logger }
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(analyzer URLAnalyzer, concurrency int, opts ...BatchOption) *BatchProcessor {
	b := &BatchProcessor{
		analyzer:     analyzer,
		concurrency:  concurrency,
		retryBackoff: 500 * time.Millisecond,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ProcessURLs analyzes urls and returns one result per URL in input order.
// onResult, if set, is called as each URL finishes.
func (b *BatchProcessor) ProcessURLs(ctx context.Context, urls []string, onResult func(*URLResult)) []*URLResult {
	if len(urls) == 0 {
		return []*URLResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	go func() {
		for i, u := range urls {
			job := &URLJob{
				Index:    i,
				URL:      u,
				analyzer: b.analyzer,
				limiter:  b.limiter,
				retries:  b.retries,
				initial:  b.retryBackoff,
			}
			if !pool.Submit(job) {
				break
			}
		}
		pool.Close()
	}()

	results := make([]*URLResult, 0, len(urls))
	for r := range pool.Results() {
		res := r.(*URLResult)
		ev := b.logger.Debug()
		if res.Error != nil {
			ev = b.logger.Warn().Err(res.Error)
		}
		ev.Str("url", res.URL).Int("attempts", res.Attempts).Dur("took", res.Duration).Msg("batch item done")

		if onResult != nil {
			onResult(res)
		}
		results = append(results, res)
	}

	// URLs never started because ctx was canceled
	if len(results) < len(urls) {
		done := make(map[int]bool, len(results))
		for _, r := range results {
			done[r.Index] = true
		}
		for i, u := range urls {
			if !done[i] {
				results = append(results, &URLResult{Index: i, URL: u, Error: ctx.Err()})
			}
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	return results
}

// ProcessFile reads URLs from a file and analyzes them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string, onResult func(*URLResult)) ([]*URLResult, error) {
	urls, err := ReadURLsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read URLs: %w", err)
	}
	return b.ProcessURLs(ctx, urls, onResult), nil
}

// ReadURLsFromFile reads one URL per line, skipping blanks, # comments and duplicates
func ReadURLsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var urls []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			urls = append(urls, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return urls, nil
}

// Summary counts successes and failures in a batch
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Fake      int
	Real      int
}

// Summarize tallies batch results
func Summarize(results []*URLResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Error != nil || r.Result == nil {
			s.Failed++
			continue
		}
		s.Succeeded++
		switch r.Result.Label {
		case model.LabelFake:
			s.Fake++
		case model.LabelReal:
			s.Real++
		}
	}
	return s
}
