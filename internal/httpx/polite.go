package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"

	"github.com/baxromumarov/hh-collector/internal/urlutil"
)

const maxErrorBody = 512

// ErrBlockedByRobots is returned when the host's robots.txt disallows the path.
var ErrBlockedByRobots = errors.New("blocked by robots.txt")

// FetchError is a response with an unexpected status code.
type FetchError struct {
	Status int
	URL    string
	Body   string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.Status, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// PoliteClient honours robots.txt, enforces per-host rate limits and
// retries throttled responses.
type PoliteClient struct {
	client      *http.Client
	ua          string
	limit       rate.Limit
	burst       int
	maxAttempts int
	backoff     time.Duration
	limiters    map[string]*rate.Limiter
	robotsCache map[string]*robotstxt.RobotsData
	mu          sync.Mutex
}

func NewPoliteClient(userAgent string, timeout time.Duration, perSecond float64) *PoliteClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if perSecond <= 0 {
		perSecond = 1
	}
	return &PoliteClient{
		client:      &http.Client{Timeout: timeout},
		ua:          userAgent,
		limit:       rate.Limit(perSecond),
		burst:       2,
		maxAttempts: 3,
		backoff:     500 * time.Millisecond,
		limiters:    map[string]*rate.Limiter{},
		robotsCache: map[string]*robotstxt.RobotsData{},
	}
}

func (p *PoliteClient) limiterFor(host string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.limiters[host]; ok {
		return l
	}
	l := rate.NewLimiter(p.limit, p.burst)
	p.limiters[host] = l
	return l
}

// NewRequest builds an HTTP GET request with context and a safe URL defaulting to https.
func NewRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	if rawURL == "" {
		return nil, errors.New("empty url")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	return http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
}

// robotsFor fetches and caches robots.txt per host. A 5xx answer is not
// cached and is reported as an error.
func (p *PoliteClient) robotsFor(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	host := urlutil.HostKey(u.Hostname())
	p.mu.Lock()
	if data, ok := p.robotsCache[host]; ok {
		p.mu.Unlock()
		return data, nil
	}
	p.mu.Unlock()

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.ua)

	if err := p.limiterFor(host).Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("robots.txt: status %d", resp.StatusCode)
	}
	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.robotsCache[host] = data
	p.mu.Unlock()
	return data, nil
}

// allowed fails open when robots.txt cannot be read.
func (p *PoliteClient) allowed(ctx context.Context, u *url.URL, method string) bool {
	if !strings.EqualFold(method, http.MethodGet) && !strings.EqualFold(method, http.MethodHead) {
		return false
	}
	data, err := p.robotsFor(ctx, u)
	if err != nil {
		return true
	}
	group := data.FindGroup(p.ua)
	if group == nil {
		return true
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	return group.Test(path)
}

// Do executes the request respecting robots.txt and rate limits. 429 and 503
// are retried with exponential backoff; any other response is returned as is.
func (p *PoliteClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", p.ua)
	}
	// hh.ru rejects requests without it.
	if req.Header.Get("HH-User-Agent") == "" {
		req.Header.Set("HH-User-Agent", p.ua)
	}

	if !p.allowed(ctx, req.URL, req.Method) {
		return nil, fmt.Errorf("%w: %s", ErrBlockedByRobots, req.URL)
	}

	limiter := p.limiterFor(urlutil.HostKey(req.URL.Hostname()))

	var lastErr error
	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
			lastErr = &FetchError{Status: resp.StatusCode, URL: req.URL.String()}
			resp.Body.Close()
			backoff := p.backoff * time.Duration(1<<attempt)
			select {
			case <-time.After(backoff):
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		return resp, nil
	}

	if lastErr == nil {
		lastErr = errors.New("polite client: failed without error")
	}
	return nil, lastErr
}

// GetJSON fetches rawURL and decodes a 200 response body into out.
// Any other status becomes a *FetchError.
func (p *PoliteClient) GetJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := NewRequest(ctx, rawURL)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &FetchError{Status: resp.StatusCode, URL: rawURL, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}
	return nil
}
