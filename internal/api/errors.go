package api

import (
	"fmt"

	"github.com/ppiankov/newsguard/internal/model"
)

// Fixed messages used when the service does not supply a usable detail.
// They are never empty.
const (
	GenericImageAnalysisMessage = "Failed to analyze news"
	GenericURLAnalysisMessage   = "Failed to analyze URL"
	HistoryFailedMessage        = "Failed to load history"
	StatsFailedMessage          = "Failed to load model stats"
)

// AnalysisError reports a failed analysis submission.
// Message is the service's detail when it sent one, verbatim.
type AnalysisError struct {
	Variant    model.Variant
	StatusCode int // 0 when no response was received
	Message    string
	Cause      error
}

func (e *AnalysisError) Error() string {
	return e.Message
}

func (e *AnalysisError) Unwrap() error {
	return e.Cause
}

// HistoryFetchError reports a failed history retrieval
type HistoryFetchError struct {
	UserID     string
	StatusCode int
	Message    string
	Cause      error
}

func (e *HistoryFetchError) Error() string {
	return e.Message
}

func (e *HistoryFetchError) Unwrap() error {
	return e.Cause
}

// StatsFetchError reports a failed model stats retrieval
type StatsFetchError struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *StatsFetchError) Error() string {
	return e.Message
}

func (e *StatsFetchError) Unwrap() error {
	return e.Cause
}

// statusError is the cause attached to typed errors for non-2xx responses
type statusError struct {
	StatusCode int
	Status     string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status: %s", e.Status)
}

func genericAnalysisMessage(v model.Variant) string {
	if v == model.VariantURL {
		return GenericURLAnalysisMessage
	}
	return GenericImageAnalysisMessage
}
