package cli

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/ppiankov/newsguard/internal/access"
	"github.com/ppiankov/newsguard/internal/api"
	"github.com/ppiankov/newsguard/internal/model"
	"github.com/ppiankov/newsguard/internal/render"
	"github.com/ppiankov/newsguard/internal/worker"
	"github.com/spf13/cobra"
)

var (
	concurrency     int
	batchRPS        float64
	batchBurst      int
	batchRetries    int
	batchTimeout    time.Duration
	honorCrawlDelay bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze multiple article URLs from a file in parallel",
	Long: `Batch analyzes many URLs concurrently:
- Read URLs from the input file (one per line, # comments, duplicates skipped)
- Submit them with a bounded number of workers
- Pace requests per news site, honoring robots.txt Crawl-delay if asked
- Optionally retry network and server failures

Example:
  newsguard batch urls.txt
  newsguard batch urls.txt --concurrency 8 --retries 2
  newsguard batch urls.txt --rps 0.5 --crawl-delay`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		applyBatchFlags(cmd, a)

		ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
		defer cancel()
		return a.batch(ctx, args[0], honorCrawlDelay)
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default from config)")
	batchCmd.Flags().Float64Var(&batchRPS, "rps", 0, "requests per second per news site (default from config, 0 in config disables)")
	batchCmd.Flags().IntVar(&batchBurst, "burst", 0, "burst per news site (default from config)")
	batchCmd.Flags().IntVar(&batchRetries, "retries", 0, "extra attempts for network and server errors (default from config)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for the batch")
	batchCmd.Flags().BoolVar(&honorCrawlDelay, "crawl-delay", false, "space requests per site by its robots.txt Crawl-delay")
}

// applyBatchFlags lets explicitly set flags override the batch config
func applyBatchFlags(cmd *cobra.Command, a *app) {
	flags := cmd.Flags()
	if flags.Changed("concurrency") {
		a.cfg.Batch.Workers = concurrency
	}
	if flags.Changed("rps") {
		a.cfg.Batch.RequestsPerSecond = batchRPS
	}
	if flags.Changed("burst") {
		a.cfg.Batch.Burst = batchBurst
	}
	if flags.Changed("retries") {
		a.cfg.Batch.Retries = batchRetries
	}
}

func (a *app) batch(ctx context.Context, file string, crawlDelay bool) error {
	user, err := a.requireUser()
	if err != nil {
		return err
	}

	urls, err := worker.ReadURLsFromFile(file)
	if err != nil {
		return fmt.Errorf("read URLs: %w", err)
	}

	bc := a.cfg.Batch
	_, _ = fmt.Fprintf(a.errOut, "\n")
	_, _ = fmt.Fprintf(a.errOut, "═══════════════════════════════════════════════════════════\n")
	_, _ = fmt.Fprintf(a.errOut, "  NewsGuard Batch Analysis\n")
	_, _ = fmt.Fprintf(a.errOut, "═══════════════════════════════════════════════════════════\n")
	_, _ = fmt.Fprintf(a.errOut, "\n")
	_, _ = fmt.Fprintf(a.errOut, "  Input file:   %s (%d URLs)\n", file, len(urls))
	_, _ = fmt.Fprintf(a.errOut, "  Workers:      %d\n", bc.Workers)
	_, _ = fmt.Fprintf(a.errOut, "  Rate:         %.2f req/s per site (burst %d)\n", bc.RequestsPerSecond, bc.Burst)
	_, _ = fmt.Fprintf(a.errOut, "  Retries:      %d\n", bc.Retries)
	_, _ = fmt.Fprintf(a.errOut, "\n")

	// Invalid lines are reported without being sent
	var valid []string
	var validIndex []int // position in urls of each valid entry
	var invalid []*worker.URLResult
	for i, u := range urls {
		if err := api.ValidateURL(u); err != nil {
			invalid = append(invalid, &worker.URLResult{Index: i, URL: u, Error: err})
			continue
		}
		valid = append(valid, u)
		validIndex = append(validIndex, i)
	}

	limiter := worker.NewLimiter(bc.RequestsPerSecond, bc.Burst)
	if crawlDelay {
		a.applyCrawlDelays(ctx, limiter, valid)
	}

	var capture historyCapture
	sess := a.newSession(user, &capture)
	defer sess.Close()

	processor := worker.NewBatchProcessor(sess, bc.Workers,
		worker.WithLimiter(limiter),
		worker.WithRetries(bc.Retries, 500*time.Millisecond),
		worker.WithLogger(a.logger),
	)

	results := processor.ProcessURLs(ctx, valid, func(r *worker.URLResult) {
		if a.json {
			return
		}
		if r.Error != nil {
			_, _ = fmt.Fprintf(a.errOut, "✗ %s: %v\n", r.URL, r.Error)
			return
		}
		_, _ = fmt.Fprintf(a.errOut, "✓ %s: %s (%s)\n", r.URL, r.Result.Label, render.Percent(r.Result.Confidence))
	})
	for _, r := range invalid {
		if !a.json {
			_, _ = fmt.Fprintf(a.errOut, "✗ %s: %v\n", r.URL, r.Error)
		}
	}
	for _, r := range results {
		r.Index = validIndex[r.Index]
	}
	results = append(results, invalid...)
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })

	summary := worker.Summarize(results)
	if a.json {
		return render.JSON(a.out, batchOutput(results))
	}

	_, _ = fmt.Fprintf(a.errOut, "\n")
	_, _ = fmt.Fprintf(a.errOut, "═══════════════════════════════════════════════════════════\n")
	_, _ = fmt.Fprintf(a.errOut, "  Batch Complete\n")
	_, _ = fmt.Fprintf(a.errOut, "═══════════════════════════════════════════════════════════\n")
	_, _ = fmt.Fprintf(a.errOut, "\n")
	_, _ = fmt.Fprintf(a.errOut, "  Total:     %d URLs\n", summary.Total)
	_, _ = fmt.Fprintf(a.errOut, "  Success:   %d (Fake %d, Real %d)\n", summary.Succeeded, summary.Fake, summary.Real)
	_, _ = fmt.Fprintf(a.errOut, "  Failures:  %d\n", summary.Failed)
	if capture.loaded && capture.err == nil {
		_, _ = fmt.Fprintf(a.errOut, "  History:   %d scans on record\n", len(capture.entries))
	}
	_, _ = fmt.Fprintf(a.errOut, "\n")

	if summary.Failed > 0 && summary.Succeeded == 0 {
		return fmt.Errorf("all %d URLs failed", summary.Failed)
	}
	return nil
}

// applyCrawlDelays slows the limiter for sites that ask for it in robots.txt
func (a *app) applyCrawlDelays(ctx context.Context, limiter *worker.Limiter, urls []string) {
	checker := access.NewRobotsChecker(a.cfg.API.UserAgent, 10*time.Second)
	seen := make(map[string]bool)
	for _, u := range urls {
		parsed, err := url.Parse(u)
		if err != nil || seen[parsed.Host] {
			continue
		}
		seen[parsed.Host] = true

		if delay := checker.CrawlDelay(ctx, u); delay > 0 {
			a.logger.Info().Str("host", parsed.Host).Dur("delay", delay).Msg("honoring crawl delay")
			limiter.SetHostDelay(parsed.Host, delay)
		}
	}
}

type batchItem struct {
	URL      string                  `json:"url"`
	Result   *model.PredictionResult `json:"result,omitempty"`
	Error    string                  `json:"error,omitempty"`
	Attempts int                     `json:"attempts"`
}

func batchOutput(results []*worker.URLResult) []batchItem {
	items := make([]batchItem, 0, len(results))
	for _, r := range results {
		item := batchItem{URL: r.URL, Attempts: r.Attempts}
		if r.Error != nil {
			item.Error = r.Error.Error()
		} else {
			item.Result = r.Result
		}
		items = append(items, item)
	}
	return items
}
