package adapters

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"miniterminal/internal/diag"
	"miniterminal/internal/series"
)

// DefaultTimeout bounds every upstream request. A hanging provider is a
// recoverable failure, never a stalled rendering pass.
const DefaultTimeout = 12 * time.Second

// Provider fetches one quantity's series from a single upstream source.
// On success it also returns a human-readable source label. Every physical
// HTTP call made during Fetch must leave exactly one Attempt on the
// recorder; a missing-credential short circuit records one attempt with no
// HTTP status.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, rec *diag.Recorder) (series.Series, string, error)
}

// FetchError classifies provider failures so the resolver can treat them as
// data instead of control flow. All kinds are recoverable: the resolver
// advances to the next adapter.
type FetchError struct {
	Kind     string // "network" | "parse" | "provider" | "config"
	Provider string
	Message  string
	Cause    error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error from %s: %s (%v)", e.Kind, e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error from %s: %s", e.Kind, e.Provider, e.Message)
}

func (e *FetchError) Unwrap() error { return e.Cause }

func errNetwork(provider, message string, cause error) *FetchError {
	return &FetchError{Kind: "network", Provider: provider, Message: message, Cause: cause}
}

func errParse(provider, message string, cause error) *FetchError {
	return &FetchError{Kind: "parse", Provider: provider, Message: message, Cause: cause}
}

func errProvider(provider, message string) *FetchError {
	return &FetchError{Kind: "provider", Provider: provider, Message: message}
}

func errConfig(provider, message string) *FetchError {
	return &FetchError{Kind: "config", Provider: provider, Message: message}
}

// NewHTTPClient returns a pooled client shared by all adapters.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   3 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		ForceAttemptHTTP2:   true,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 3 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// fetchResponse is the outcome of one physical GET.
type fetchResponse struct {
	Status int
	Body   []byte
	URL    string
}

// maxBodyBytes caps response reads; the largest expected payload (SGS full
// history) is well under this.
const maxBodyBytes = 8 << 20

func get(ctx context.Context, client *http.Client, rawURL string, params url.Values) (*fetchResponse, error) {
	full := rawURL
	if len(params) > 0 {
		full = rawURL + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return &fetchResponse{URL: full}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return &fetchResponse{URL: full}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &fetchResponse{Status: resp.StatusCode, URL: full}, err
	}
	return &fetchResponse{Status: resp.StatusCode, Body: body, URL: full}, nil
}

// excerpt keeps the first bytes of a payload for diagnostics.
func excerpt(b []byte) string {
	const n = 200
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
