package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"radio-activator/config"
)

// RequestError is the uniform failure for any vendor call: a transport
// error or a non-2xx status, always carrying the target URL.
type RequestError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("request to %s failed with status %d", e.URL, e.StatusCode)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Response is the raw result of a successful vendor call. Interpreting the
// body is left to the caller.
type Response struct {
	StatusCode int
	Body       []byte
}

// RequestOptions carries the per-call parts of a vendor request. Headers
// take precedence over the client's default header set.
type RequestOptions struct {
	Headers   map[string]string
	Form      url.Values
	Query     url.Values
	AuthToken string
}

// Client issues single-shot requests against the dealer API with a uniform
// header set, a fixed timeout, and outbound pacing. It keeps no session
// state of its own; the auth token is supplied per call.
type Client struct {
	http     *http.Client
	limiter  *rate.Limiter
	logger   *zap.Logger
	vendor   *config.VendorConfig
	deviceID string
}

// New creates a client for the given vendor configuration and device
// identifier. The underlying transport reuses connections across calls.
func New(vendor *config.VendorConfig, deviceID string, logger *zap.Logger) *Client {
	return &Client{
		http: &http.Client{
			Timeout: vendor.Timeout,
		},
		limiter:  rate.NewLimiter(rate.Limit(vendor.RatePerSec), 1),
		logger:   logger,
		vendor:   vendor,
		deviceID: deviceID,
	}
}

// Do performs one request. rawURL may be a path on the vendor base URL or
// an absolute URL for calls that target a different host.
func (c *Client) Do(ctx context.Context, method, rawURL string, opts RequestOptions) (*Response, error) {
	target := rawURL
	if strings.HasPrefix(rawURL, "/") {
		target = c.vendor.BaseURL + rawURL
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &RequestError{URL: target, Err: err}
	}

	var body io.Reader
	if opts.Form != nil {
		body = strings.NewReader(opts.Form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &RequestError{URL: target, Err: err}
	}
	if len(opts.Query) > 0 {
		req.URL.RawQuery = opts.Query.Encode()
	}

	for key, value := range c.defaultHeaders(opts.AuthToken) {
		req.Header.Set(key, value)
	}
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("request failed", zap.String("url", target), zap.Error(err))
		return nil, &RequestError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("failed to read response body", zap.String("url", target), zap.Error(err))
		return nil, &RequestError{URL: target, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("request returned non-2xx status",
			zap.String("url", target), zap.Int("status", resp.StatusCode))
		return nil, &RequestError{URL: target, StatusCode: resp.StatusCode}
	}

	c.logger.Info("request succeeded",
		zap.String("url", target), zap.Int("status", resp.StatusCode))
	return &Response{StatusCode: resp.StatusCode, Body: raw}, nil
}

// defaultHeaders builds the fixed header set sent on every call. The auth
// token header is included only once the session has one.
func (c *Client) defaultHeaders(authToken string) map[string]string {
	headers := map[string]string{
		"Accept":               "*/*",
		"Accept-Language":      "en-us",
		"Accept-Encoding":      "br, gzip, deflate",
		"User-Agent":           c.vendor.UserAgent,
		"X-Voltmx-API-Version": c.vendor.APIVersion,
		"X-Voltmx-DeviceId":    c.deviceID,
		"Content-Type":         "application/x-www-form-urlencoded",
	}
	if authToken != "" {
		headers["X-Voltmx-Authorization"] = authToken
	}
	return headers
}
