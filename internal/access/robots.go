// Package access explains why a site may refuse to be scraped.
package access

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// Diagnosis is what a site's robots.txt says about one URL
type Diagnosis struct {
	URL         string
	Host        string
	RobotsFound bool
	Allowed     bool
	CrawlDelay  time.Duration
}

// Summary is a one-line, human readable form of the diagnosis
func (d Diagnosis) Summary() string {
	switch {
	case !d.RobotsFound:
		return fmt.Sprintf("%s publishes no robots.txt", d.Host)
	case !d.Allowed:
		return fmt.Sprintf("%s disallows automated access to this page in robots.txt", d.Host)
	case d.CrawlDelay > 0:
		return fmt.Sprintf("%s allows this page but asks for a %s crawl delay", d.Host, d.CrawlDelay)
	default:
		return fmt.Sprintf("%s allows automated access to this page", d.Host)
	}
}

type robotsEntry struct {
	data  *robotstxt.RobotsData
	found bool
}

// RobotsChecker fetches and caches robots.txt per host
type RobotsChecker struct {
	cache      map[string]robotsEntry
	mu         sync.RWMutex
	httpClient *http.Client
	userAgent  string
}

// NewRobotsChecker creates a checker that evaluates rules for userAgent
func NewRobotsChecker(userAgent string, timeout time.Duration) *RobotsChecker {
	return &RobotsChecker{
		cache: make(map[string]robotsEntry),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: NormalizeUserAgent(userAgent),
	}
}

// Diagnose reports whether rawURL may be fetched according to its host's robots.txt.
// A missing robots.txt (404) allows everything.
func (r *RobotsChecker) Diagnose(ctx context.Context, rawURL string) (Diagnosis, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Diagnosis{}, fmt.Errorf("parse URL: %w", err)
	}
	if parsed.Host == "" {
		return Diagnosis{}, fmt.Errorf("no host in %q", rawURL)
	}

	d := Diagnosis{URL: rawURL, Host: parsed.Host}

	data, found, err := r.robotsData(ctx, parsed.Scheme, parsed.Host)
	if err != nil {
		return d, err
	}
	d.RobotsFound = found

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}
	d.Allowed = data.TestAgent(path, r.userAgent)
	if group := data.FindGroup(r.userAgent); group != nil {
		d.CrawlDelay = group.CrawlDelay
	}

	return d, nil
}

// CrawlDelay returns the host's requested delay for our agent, 0 when unknown
func (r *RobotsChecker) CrawlDelay(ctx context.Context, rawURL string) time.Duration {
	d, err := r.Diagnose(ctx, rawURL)
	if err != nil {
		return 0
	}
	return d.CrawlDelay
}

// robotsData returns the cached or freshly fetched rules for host
func (r *RobotsChecker) robotsData(ctx context.Context, scheme, host string) (*robotstxt.RobotsData, bool, error) {
	key := strings.ToLower(host)

	r.mu.RLock()
	entry, exists := r.cache[key]
	r.mu.RUnlock()
	if exists {
		return entry.data, entry.found, nil
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", scheme, host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	found := resp.StatusCode >= 200 && resp.StatusCode < 300
	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, false, fmt.Errorf("parse robots.txt: %w", err)
	}

	r.mu.Lock()
	r.cache[key] = robotsEntry{data: data, found: found}
	r.mu.Unlock()

	return data, found, nil
}

// Clear drops every cached robots.txt
func (r *RobotsChecker) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]robotsEntry)
}

// NormalizeUserAgent reduces a User-Agent header to the product token robots.txt matches on
func NormalizeUserAgent(ua string) string {
	parts := strings.Fields(ua)
	if len(parts) > 0 {
		return strings.Split(parts[0], "/")[0]
	}
	return ua
}
