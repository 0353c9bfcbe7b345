package api

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProxyRequest(t *testing.T, raw string) *http.Request {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return &http.Request{URL: u}
}

func TestNewProxyFunc(t *testing.T) {
	tests := []struct {
		name       string
		httpProxy  string
		httpsProxy string
		target     string
		wantHost   string
	}{
		{"https uses https proxy", "http://proxy:8080", "http://secure-proxy:8443", "https://example.com", "secure-proxy:8443"},
		{"http uses http proxy", "http://proxy:8080", "http://secure-proxy:8443", "http://example.com", "proxy:8080"},
		{"https falls back to http proxy", "http://proxy:8080", "", "https://example.com", "proxy:8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := NewProxyFunc(tt.httpProxy, tt.httpsProxy)
			got, err := fn(newProxyRequest(t, tt.target))
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantHost, got.Host)
		})
	}
}

func TestNewProxyFunc_EnvironmentFallback(t *testing.T) {
	tests := []struct {
		name       string
		httpProxy  string
		httpsProxy string
		target     string
	}{
		{"nothing configured", "", "", "http://example.com"},
		{"nothing configured https", "", "", "https://example.com"},
		{"http request with only https proxy", "", "http://secure-proxy:8443", "http://example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, wantErr := http.ProxyFromEnvironment(newProxyRequest(t, tt.target))

			got, err := NewProxyFunc(tt.httpProxy, tt.httpsProxy)(newProxyRequest(t, tt.target))
			assert.Equal(t, wantErr, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestNewProxyFunc_InvalidProxyURL(t *testing.T) {
	fn := NewProxyFunc("http://[::1", "")
	_, err := fn(newProxyRequest(t, "http://example.com"))
	assert.Error(t, err)
}
