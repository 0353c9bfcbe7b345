package stub

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ppiankov/newsguard/internal/api"
	"github.com/ppiankov/newsguard/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeSummarizer struct {
	summary string
	err     error
}

func (f fakeSummarizer) Summarize(ctx context.Context, text string, result model.PredictionResult) (string, error) {
	return f.summary, f.err
}

// newStubBackend starts the stub plus a site to scrape and returns a client for it
func newStubBackend(t *testing.T, opts ...Option) (*api.Client, *Store, string) {
	t.Helper()

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/news/rates":
			_, _ = w.Write([]byte(`<html><head><meta property="og:title" content="Central bank holds rates"></head></html>`))
		default:
			http.Error(w, "forbidden", http.StatusForbidden)
		}
	}))
	t.Cleanup(site.Close)

	store := newTestStore(t)
	srv := NewServer(store, opts...)
	backend := httptest.NewServer(srv.Routes())
	t.Cleanup(backend.Close)

	return api.New(backend.URL), store, site.URL
}

func TestServer_URLAnalysisThenHistory(t *testing.T) {
	client, _, site := newStubBackend(t)
	ctx := context.Background()

	result, err := client.PredictURL(ctx, api.URLRequest{URL: site + "/news/rates", UserID: "u1"})
	require.NoError(t, err)
	require.NotNil(t, result.ScrapedHeadline)
	assert.Equal(t, "Central bank holds rates", *result.ScrapedHeadline)
	assert.Nil(t, result.Summary)

	want := Classify("Central bank holds rates", nil)
	assert.Equal(t, want.Label, result.Label)
	assert.Equal(t, want.Confidence, result.Confidence)

	entries, err := client.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "[URL] Central bank holds rates", entries[0].Text)
	assert.Equal(t, result.Label, entries[0].Label)
}

func TestServer_ImageAnalysis(t *testing.T) {
	client, _, _ := newStubBackend(t, WithSummarizer(fakeSummarizer{summary: "Reads like satire."}))
	ctx := context.Background()

	result, err := client.PredictImage(ctx, api.ImageRequest{
		Text:     "Aliens land in Ohio",
		Filename: "shot.png",
		Image:    bytes.NewReader(pngHeader),
		UserID:   "u1",
	})
	require.NoError(t, err)
	assert.Nil(t, result.ScrapedHeadline)
	require.NotNil(t, result.Summary)
	assert.Equal(t, "Reads like satire.", *result.Summary)

	_, err = client.PredictImage(ctx, api.ImageRequest{
		Filename: "blank.png",
		Image:    bytes.NewReader(pngHeader),
		UserID:   "u1",
	})
	require.NoError(t, err)

	entries, err := client.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "[OCR] blank.png", entries[0].Text)
	assert.Equal(t, "Aliens land in Ohio", entries[1].Text)
	require.NotNil(t, entries[1].Summary)
	assert.Equal(t, "Reads like satire.", *entries[1].Summary)
}

func TestServer_SummaryFallback(t *testing.T) {
	client, _, _ := newStubBackend(t, WithSummarizer(fakeSummarizer{err: errors.New("rate limited")}))

	result, err := client.PredictImage(context.Background(), api.ImageRequest{
		Text:   "Aliens land in Ohio",
		Image:  bytes.NewReader(pngHeader),
		UserID: "u1",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Summary)
	assert.Equal(t, unavailableSummary, *result.Summary)
}

func TestServer_RejectsNonImage(t *testing.T) {
	client, store, _ := newStubBackend(t)

	_, err := client.PredictImage(context.Background(), api.ImageRequest{
		Text:   "hello",
		Image:  bytes.NewReader([]byte("plain text, not an image")),
		UserID: "u1",
	})
	var aerr *api.AnalysisError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "Invalid image file", aerr.Message)
	assert.Equal(t, http.StatusBadRequest, aerr.StatusCode)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestServer_ScrapeFailureDetail(t *testing.T) {
	client, store, site := newStubBackend(t)

	_, err := client.PredictURL(context.Background(), api.URLRequest{URL: site + "/paywalled", UserID: "u1"})
	var aerr *api.AnalysisError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "Could not scrape article from URL", aerr.Error())
	assert.Equal(t, model.VariantURL, aerr.Variant)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestServer_HistoryRequiresUser(t *testing.T) {
	store := newTestStore(t)
	backend := httptest.NewServer(NewServer(store).Routes())
	defer backend.Close()

	resp, err := http.Get(backend.URL + "/history")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_HistoryIsPerUser(t *testing.T) {
	client, _, site := newStubBackend(t)
	ctx := context.Background()

	_, err := client.PredictURL(ctx, api.URLRequest{URL: site + "/news/rates", UserID: "alice"})
	require.NoError(t, err)

	entries, err := client.History(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestServer_StatsMemoizedUntilNextScan(t *testing.T) {
	client, store, site := newStubBackend(t, WithStatsTTL(time.Hour))
	ctx := context.Background()

	stats, err := client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalSamples)
	assert.Equal(t, stubModelVersion, stats.ModelVersion)
	require.NotNil(t, stats.Architecture)

	// Written behind the server's back: the memoized value is still served
	_, err = store.Insert(ctx, "u1", "direct", model.PredictionResult{Label: model.LabelReal, Confidence: 60})
	require.NoError(t, err)
	stats, err = client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalSamples)

	// A scan through the API invalidates it
	_, err = client.PredictURL(ctx, api.URLRequest{URL: site + "/news/rates", UserID: "u1"})
	require.NoError(t, err)
	stats, err = client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalSamples)
}

func TestServer_Health(t *testing.T) {
	store := newTestStore(t)
	backend := httptest.NewServer(NewServer(store).Routes())
	defer backend.Close()

	resp, err := http.Get(backend.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestServer_ListenAndServeStopsOnCancel(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- NewServer(store).ListenAndServe(ctx, "127.0.0.1:0") }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
