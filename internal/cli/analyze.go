package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/newsguard/internal/access"
	"github.com/ppiankov/newsguard/internal/api"
	"github.com/ppiankov/newsguard/internal/model"
	"github.com/ppiankov/newsguard/internal/render"
	"github.com/ppiankov/newsguard/internal/session"
	"github.com/spf13/cobra"
)

const maxImageBytes = 10 << 20

var (
	imageText string
	diagnose  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a screenshot or an article URL",
	Long: `Submit content for a Real/Fake verdict. The verdict is followed by your
refreshed scan history, which includes the analysis just made.`,
}

var analyzeImageCmd = &cobra.Command{
	Use:   "image <file>",
	Short: "Analyze an image with its accompanying text",
	Long: `Upload an image (e.g. a screenshot of a post) with optional text.

Example:
  newsguard analyze image post.png --text "Scientists confirm the moon is hollow"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		return a.analyzeImage(cmd.Context(), args[0], imageText)
	},
}

var analyzeURLCmd = &cobra.Command{
	Use:   "url <url>",
	Short: "Analyze a news article by URL",
	Long: `Ask the service to fetch the article and analyze its headline.

Example:
  newsguard analyze url https://example.com/news/story`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		return a.analyzeURL(cmd.Context(), args[0], diagnose)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.AddCommand(analyzeImageCmd)
	analyzeCmd.AddCommand(analyzeURLCmd)

	analyzeImageCmd.Flags().StringVar(&imageText, "text", "", "text accompanying the image")
	analyzeURLCmd.Flags().BoolVar(&diagnose, "diagnose", true, "check the site's robots.txt when the article cannot be fetched")
}

// analysisOutput is the --json shape of an analysis
type analysisOutput struct {
	Result       *model.PredictionResult `json:"result"`
	History      []model.HistoryEntry    `json:"history"`
	HistoryError string                  `json:"history_error,omitempty"`
}

// historyCapture is a session view that keeps the latest refresh
type historyCapture struct {
	entries []model.HistoryEntry
	err     error
	loaded  bool
}

func (h *historyCapture) view(entries []model.HistoryEntry, err error) {
	h.entries, h.err, h.loaded = entries, err, true
}

func (a *app) newSession(user string, capture *historyCapture) *session.Session {
	client := a.client()
	return session.New(user, client, client, capture.view, session.WithLogger(a.logger))
}

func (a *app) analyzeImage(ctx context.Context, path, text string) error {
	user, err := a.requireUser()
	if err != nil {
		return err
	}

	image, err := readImage(path)
	if err != nil {
		return err
	}

	var capture historyCapture
	sess := a.newSession(user, &capture)
	defer sess.Close()

	result, err := sess.AnalyzeImage(ctx, api.ImageRequest{
		Text:     text,
		Filename: filepath.Base(path),
		Image:    bytes.NewReader(image),
	})
	if err != nil {
		return err
	}

	return a.printAnalysis(result, &capture)
}

func (a *app) analyzeURL(ctx context.Context, rawURL string, withDiagnosis bool) error {
	user, err := a.requireUser()
	if err != nil {
		return err
	}
	if err := api.ValidateURL(rawURL); err != nil {
		return fmt.Errorf("%w: %s", err, rawURL)
	}

	var capture historyCapture
	sess := a.newSession(user, &capture)
	defer sess.Close()

	result, err := sess.AnalyzeURL(ctx, rawURL)
	if err != nil {
		var aerr *api.AnalysisError
		if withDiagnosis && errors.As(err, &aerr) && aerr.StatusCode != 0 {
			a.printDiagnosis(ctx, rawURL)
		}
		return err
	}

	return a.printAnalysis(result, &capture)
}

func (a *app) printDiagnosis(ctx context.Context, rawURL string) {
	checker := access.NewRobotsChecker(a.cfg.API.UserAgent, 10*time.Second)
	d, err := checker.Diagnose(ctx, rawURL)
	if err != nil {
		a.logger.Debug().Err(err).Str("url", rawURL).Msg("robots.txt diagnosis failed")
		return
	}
	_, _ = fmt.Fprintf(a.errOut, "robots.txt: %s\n", d.Summary())
}

func (a *app) printAnalysis(result *model.PredictionResult, capture *historyCapture) error {
	if a.json {
		out := analysisOutput{Result: result, History: capture.entries}
		if capture.err != nil {
			out.HistoryError = capture.err.Error()
		}
		return render.JSON(a.out, out)
	}

	render.Prediction(a.out, result)
	_, _ = fmt.Fprintln(a.out)
	_, _ = fmt.Fprintln(a.out, "Recent scans:")
	switch {
	case capture.err != nil:
		_, _ = fmt.Fprintf(a.errOut, "✗ %s\n", capture.err)
	case capture.loaded:
		render.History(a.out, capture.entries, a.loc)
	}
	return nil
}

// readImage loads path and checks that it holds an image
func readImage(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if info.Size() > maxImageBytes {
		return nil, fmt.Errorf("image %s is larger than %d MB", path, maxImageBytes>>20)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if ct := http.DetectContentType(data); !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("%s is not an image (detected %s)", path, ct)
	}
	return data, nil
}
