// Package render formats predictions, history and stats for the terminal.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/ppiankov/newsguard/internal/api"
	"github.com/ppiankov/newsguard/internal/model"
)

const (
	// HistoryTextLimit is how many characters of a scan's text a history row shows
	HistoryTextLimit = 50

	rule = "═══════════════════════════════════════════════════════════"
)

// Truncate shortens s to limit runes, appending "..." when anything was cut
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// Percent formats a 0-100 confidence as a whole percentage
func Percent(confidence float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(confidence)))
}

// HistoryLine renders one history entry:
// marker-stripped text, local date and time, then "Label (NN%)"
func HistoryLine(e model.HistoryEntry, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	text := Truncate(e.DisplayText(), HistoryTextLimit)
	when := e.CreatedAt.In(loc).Format("2006-01-02 15:04")
	return fmt.Sprintf("%-53s  %s  %s (%s)", text, when, e.Label, Percent(e.Confidence))
}

// History writes the history list, newest first as received
func History(w io.Writer, entries []model.HistoryEntry, loc *time.Location) {
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(w, "No scans yet.")
		return
	}
	for _, e := range entries {
		_, _ = fmt.Fprintln(w, HistoryLine(e, loc))
	}
}

// Prediction writes a single analysis result
func Prediction(w io.Writer, r *model.PredictionResult) {
	_, _ = fmt.Fprintln(w, rule)
	_, _ = fmt.Fprintf(w, "  Verdict: %s (%.2f%% confidence)\n", r.Label, r.Confidence)
	_, _ = fmt.Fprintln(w, rule)
	if r.ScrapedHeadline != nil {
		_, _ = fmt.Fprintf(w, "Headline:         %s\n", *r.ScrapedHeadline)
	}
	if r.FakeProbability != nil {
		_, _ = fmt.Fprintf(w, "Fake probability: %.4f\n", *r.FakeProbability)
	}
	if r.Summary != nil {
		_, _ = fmt.Fprintf(w, "\n%s\n", *r.Summary)
	}
}

// Stats writes the model statistics. Absent fields are omitted, never defaulted.
func Stats(w io.Writer, s *model.ModelStats) {
	_, _ = fmt.Fprintln(w, rule)
	_, _ = fmt.Fprintln(w, "  Model Statistics")
	_, _ = fmt.Fprintln(w, rule)
	_, _ = fmt.Fprintf(w, "Accuracy:      %.2f%%\n", s.Accuracy)
	_, _ = fmt.Fprintf(w, "Total samples: %d\n", s.TotalSamples)
	_, _ = fmt.Fprintf(w, "Last trained:  %s\n", s.LastTrained)
	_, _ = fmt.Fprintf(w, "Model version: %s\n", s.ModelVersion)
	if s.Architecture != nil {
		_, _ = fmt.Fprintf(w, "Architecture:  %s\n", *s.Architecture)
	}
}

// JSON writes v as indented JSON
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ErrorHint turns an error into guidance for the user. Scrape failures get a
// paywall explanation and the advice to paste the article text instead.
func ErrorHint(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if strings.Contains(strings.ToLower(msg), "scrape") {
		return fmt.Sprintf("%s\nThe site is probably behind a paywall or blocks automated readers.\n"+
			"Try a screenshot of the article with its text pasted via `newsguard analyze image --text`.", msg)
	}

	var herr *api.HistoryFetchError
	var serr *api.StatsFetchError
	var aerr *api.AnalysisError
	switch {
	case errors.As(err, &aerr) && aerr.StatusCode == 0,
		errors.As(err, &herr) && herr.StatusCode == 0,
		errors.As(err, &serr) && serr.StatusCode == 0:
		return fmt.Sprintf("%s\nCould not reach the prediction service. Check --api-url and that the server is running.", msg)
	}
	return msg + "\nPlease try again."
}
