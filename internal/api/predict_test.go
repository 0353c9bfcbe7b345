package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ppiankov/newsguard/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is enough for content sniffing to report image/png
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestPredictURL_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/predict/url", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"url": "https://example.com/a", "user_id": "u1"}, body)

		_, _ = io.WriteString(w, `{"label":"Fake","confidence":87.5,"fake_probability":0.91,"scraped_headline":"Example Headline"}`)
	}))
	defer server.Close()

	client := New(server.URL)
	result, err := client.PredictURL(context.Background(), URLRequest{URL: "https://example.com/a", UserID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, model.LabelFake, result.Label)
	assert.InDelta(t, 87.5, result.Confidence, 1e-9)
	require.NotNil(t, result.FakeProbability)
	assert.InDelta(t, 0.91, *result.FakeProbability, 1e-9)
	require.NotNil(t, result.ScrapedHeadline)
	assert.Equal(t, "Example Headline", *result.ScrapedHeadline)
	assert.Nil(t, result.Summary)
}

func TestPredictImage_MultipartFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "breaking news", r.FormValue("text"))
		assert.Equal(t, "u1", r.FormValue("user_id"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer func() { _ = file.Close() }()
		assert.Equal(t, "photo.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))

		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, pngHeader, data)

		_, _ = io.WriteString(w, `{"label":"Real","confidence":64.2,"fake_probability":0.358,"summary":"Neutral tone."}`)
	}))
	defer server.Close()

	client := New(server.URL)
	result, err := client.PredictImage(context.Background(), ImageRequest{
		Text:     "breaking news",
		Filename: "photo.png",
		Image:    bytes.NewReader(pngHeader),
		UserID:   "u1",
	})
	require.NoError(t, err)

	assert.Equal(t, model.LabelReal, result.Label)
	require.NotNil(t, result.Summary)
	assert.Equal(t, "Neutral tone.", *result.Summary)
	assert.Nil(t, result.ScrapedHeadline)
}

func TestPredictImage_EmptyTextStillSent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, present := r.MultipartForm.Value["text"]
		assert.True(t, present, "text field must be sent even when empty")
		assert.Equal(t, "", r.FormValue("text"))
		_, _ = io.WriteString(w, `{"label":"Real","confidence":51}`)
	}))
	defer server.Close()

	_, err := New(server.URL).PredictImage(context.Background(), ImageRequest{
		Image:  bytes.NewReader(pngHeader),
		UserID: "u1",
	})
	require.NoError(t, err)
}

func TestPredictImage_HeadlineDroppedForImageVariant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"label":"Fake","confidence":90,"scraped_headline":"stray"}`)
	}))
	defer server.Close()

	result, err := New(server.URL).PredictImage(context.Background(), ImageRequest{
		Image:  bytes.NewReader(pngHeader),
		UserID: "u1",
	})
	require.NoError(t, err)
	assert.Nil(t, result.ScrapedHeadline)
}

func TestPredictURL_AbsentHeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"label":"Real","confidence":70,"fake_probability":0.3}`)
	}))
	defer server.Close()

	result, err := New(server.URL).PredictURL(context.Background(), URLRequest{URL: "https://example.com", UserID: "u1"})
	require.NoError(t, err)
	assert.Nil(t, result.ScrapedHeadline)
}

func TestPredict_ErrorDetailVerbatim(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		variant model.Variant
		want    string
	}{
		{"url detail", http.StatusBadRequest, `{"detail":"Could not scrape article from URL"}`, model.VariantURL, "Could not scrape article from URL"},
		{"image detail", http.StatusUnprocessableEntity, `{"detail":"Invalid image file"}`, model.VariantImage, "Invalid image file"},
		{"detail with spacing kept", http.StatusInternalServerError, `{"detail":"  spaced  "}`, model.VariantURL, "  spaced  "},
		{"empty detail", http.StatusBadRequest, `{"detail":""}`, model.VariantURL, GenericURLAnalysisMessage},
		{"structured detail", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","url"],"msg":"field required"}]}`, model.VariantURL, GenericURLAnalysisMessage},
		{"no detail", http.StatusInternalServerError, `{"error":"boom"}`, model.VariantImage, GenericImageAnalysisMessage},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`, model.VariantURL, GenericURLAnalysisMessage},
		{"empty body", http.StatusServiceUnavailable, ``, model.VariantImage, GenericImageAnalysisMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			client := New(server.URL)
			var err error
			if tt.variant == model.VariantURL {
				_, err = client.PredictURL(context.Background(), URLRequest{URL: "https://example.com", UserID: "u1"})
			} else {
				_, err = client.PredictImage(context.Background(), ImageRequest{Image: bytes.NewReader(pngHeader), UserID: "u1"})
			}
			require.Error(t, err)

			var analysisErr *AnalysisError
			require.ErrorAs(t, err, &analysisErr)
			assert.Equal(t, tt.want, err.Error())
			assert.NotEmpty(t, err.Error())
			assert.Equal(t, tt.status, analysisErr.StatusCode)
			assert.Equal(t, tt.variant, analysisErr.Variant)
		})
	}
}

func TestPredict_InvalidSuccessPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{malformed json`},
		{"missing label", `{"confidence":50}`},
		{"unknown label", `{"label":"Unsure","confidence":50}`},
		{"missing confidence", `{"label":"Fake"}`},
		{"null confidence", `{"label":"Fake","confidence":null}`},
		{"confidence above range", `{"label":"Real","confidence":150}`},
		{"negative confidence", `{"label":"Real","confidence":-1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			_, err := New(server.URL).PredictURL(context.Background(), URLRequest{URL: "https://example.com", UserID: "u1"})
			var analysisErr *AnalysisError
			require.ErrorAs(t, err, &analysisErr)
			assert.Equal(t, GenericURLAnalysisMessage, analysisErr.Message)
			assert.Error(t, analysisErr.Cause)
		})
	}
}

func TestPredict_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	_, err := New(baseURL).PredictURL(context.Background(), URLRequest{URL: "https://example.com", UserID: "u1"})

	var analysisErr *AnalysisError
	require.ErrorAs(t, err, &analysisErr)
	assert.Equal(t, GenericURLAnalysisMessage, err.Error())
	assert.Zero(t, analysisErr.StatusCode)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestPredict_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"label":"Real","confidence":60}`)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(server.URL).PredictURL(ctx, URLRequest{URL: "https://example.com", UserID: "u1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPredictImage_MissingImage(t *testing.T) {
	_, err := New("http://127.0.0.1:1").PredictImage(context.Background(), ImageRequest{UserID: "u1"})

	var analysisErr *AnalysisError
	require.ErrorAs(t, err, &analysisErr)
	assert.Equal(t, GenericImageAnalysisMessage, analysisErr.Message)
	assert.True(t, strings.Contains(analysisErr.Cause.Error(), "image is required"))
}

func TestNew_Defaults(t *testing.T) {
	assert.Equal(t, model.DefaultBaseURL, New("").BaseURL())
	assert.Equal(t, "http://api.local", New("http://api.local/").BaseURL())
}

func TestClient_UserAgent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "newsguard-test", r.Header.Get("User-Agent"))
		_, _ = io.WriteString(w, `{"accuracy":1,"total_samples":1,"last_trained":"x","model_version":"v"}`)
	}))
	defer server.Close()

	_, err := New(server.URL, WithUserAgent("newsguard-test")).Stats(context.Background())
	require.NoError(t, err)
}
