package model

import (
	"fmt"
	"strings"
	"time"
)

// Label is the binary classification outcome reported by the prediction service
type Label string

const (
	LabelReal Label = "Real"
	LabelFake Label = "Fake"
)

// Valid reports whether the label is one the service is allowed to return
func (l Label) Valid() bool {
	return l == LabelReal || l == LabelFake
}

// Variant identifies which kind of input an analysis was submitted with
type Variant string

const (
	VariantImage Variant = "image" // Image file plus optional text
	VariantURL   Variant = "url"   // Article URL scraped by the service
)

// PredictionResult is the normalized outcome of one analysis.
// Optional fields are pointers: nil means the service did not send the field,
// a pointer to "" means it sent an empty value.
type PredictionResult struct {
	Label           Label    `json:"label"`                      // Real or Fake
	Confidence      float64  `json:"confidence"`                 // Certainty in Label, 0-100
	FakeProbability *float64 `json:"fake_probability,omitempty"` // Raw model probability, 0-1
	ScrapedHeadline *string  `json:"scraped_headline,omitempty"` // Only for URL analyses
	Summary         *string  `json:"summary,omitempty"`          // Human-readable explanation
}

// Validate checks the fields that must be present on every successful response
func (r *PredictionResult) Validate() error {
	if r == nil {
		return fmt.Errorf("empty prediction result")
	}
	if !r.Label.Valid() {
		return fmt.Errorf("invalid label %q", r.Label)
	}
	if r.Confidence < 0 || r.Confidence > 100 {
		return fmt.Errorf("confidence %v out of range", r.Confidence)
	}
	return nil
}

// HistoryEntry is a persisted record of a past analysis
type HistoryEntry struct {
	ID              string    `json:"id"`
	Text            string    `json:"text"` // As stored, provenance marker included
	Label           Label     `json:"label"`
	Confidence      float64   `json:"confidence"`
	FakeProbability *float64  `json:"fake_probability,omitempty"`
	Summary         *string   `json:"summary,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// DisplayText returns the entry text without its provenance marker
func (e HistoryEntry) DisplayText() string {
	_, text := SplitProvenance(e.Text)
	return text
}

// Provenance records how the text of a history entry was obtained
type Provenance string

const (
	ProvenanceNone Provenance = ""
	ProvenanceURL  Provenance = "[URL] "
	ProvenanceOCR  Provenance = "[OCR] "
)

// SplitProvenance separates a leading provenance marker from the text
func SplitProvenance(text string) (Provenance, string) {
	for _, p := range []Provenance{ProvenanceURL, ProvenanceOCR} {
		if rest, ok := strings.CutPrefix(text, string(p)); ok {
			return p, rest
		}
	}
	return ProvenanceNone, text
}

// WithProvenance prefixes text with the given marker
func WithProvenance(p Provenance, text string) string {
	return string(p) + text
}

// ModelStats holds the diagnostics the service reports about its current model
type ModelStats struct {
	Accuracy     float64 `json:"accuracy"`      // Percentage
	TotalSamples int     `json:"total_samples"` // Training samples
	LastTrained  string  `json:"last_trained"`  // Opaque, displayed as-is
	ModelVersion string  `json:"model_version"`
	Architecture *string `json:"architecture,omitempty"`
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}

// Float64Ptr returns a pointer to f
func Float64Ptr(f float64) *float64 {
	return &f
}
