// Package api is a typed client for the VCar rental API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"vcar-client/internal/domain"
	"vcar-client/internal/logger"
)

const (
	serviceName = "rental-api"

	// DialTimeout is the connection timeout.
	DialTimeout = 10 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 10 * time.Second
	// ResponseHeaderTimeout is time to wait for response headers.
	ResponseHeaderTimeout = 20 * time.Second

	HeaderRequestID = "X-Request-ID"

	maxResponseBytes = 32 << 20
)

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	AccessToken() string
}

// NewHTTPClient creates an HTTP client with bounded timeouts that does not
// follow redirects (the sign endpoint answers with a payment URL, not a 3xx).
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   TLSHandshakeTimeout,
			ResponseHeaderTimeout: ResponseHeaderTimeout,
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

type Client struct {
	baseURL      string
	assetBaseURL string
	http         *http.Client
	tokens       TokenSource
}

func NewClient(baseURL, assetBaseURL string, httpClient *http.Client, tokens TokenSource) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(30 * time.Second)
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		assetBaseURL: strings.TrimRight(assetBaseURL, "/"),
		http:         httpClient,
		tokens:       tokens,
	}
}

// envelope is the response wrapper used by every API endpoint.
type envelope struct {
	Code    int              `json:"code"`
	Message string           `json:"message"`
	Data    json.RawMessage  `json:"data"`
	Meta    *domain.PageMeta `json:"meta"`
}

// Page is one page of a listing.
type Page[T any] struct {
	Items []T
	Meta  domain.PageMeta
}

type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        any
	rawBody     io.Reader
	contentType string
	anonymous   bool
}

// do performs r and decodes the envelope's data into out (when non-nil).
func (c *Client) do(ctx context.Context, r request, out any) (*domain.PageMeta, error) {
	requestID := uuid.NewString()
	logger.ExternalServiceCall(serviceName, r.op, "method", r.method, "path", r.path, "request_id", requestID)

	meta, err := c.roundTrip(ctx, r, requestID, out)
	logger.ExternalServiceResult(serviceName, r.op, err, "request_id", requestID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.op, err)
	}
	return meta, nil
}

func (c *Client) roundTrip(ctx context.Context, r request, requestID string, out any) (*domain.PageMeta, error) {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	body := r.rawBody
	contentType := r.contentType
	if r.body != nil {
		raw, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if !r.anonymous && c.tokens != nil {
		if token := c.tokens.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.ServerError{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &domain.ServerError{StatusCode: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, domain.ErrAuthExpired
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.Message
		if decodeErr != nil {
			msg = strings.TrimSpace(string(raw))
		}
		return nil, &domain.ServerError{StatusCode: resp.StatusCode, Code: env.Code, Message: msg}
	}
	if decodeErr != nil {
		return nil, &domain.ServerError{StatusCode: resp.StatusCode, Message: "malformed response: " + decodeErr.Error()}
	}
	if env.Code != 0 && (env.Code < 200 || env.Code >= 300) {
		return nil, &domain.ServerError{StatusCode: resp.StatusCode, Code: env.Code, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, &domain.ServerError{StatusCode: resp.StatusCode, Message: "malformed response data: " + err.Error()}
		}
	}
	return env.Meta, nil
}

// isNotFound reports whether err is a 404 from the API.
func isNotFound(err error) bool {
	var se *domain.ServerError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// FetchAsset downloads a static asset (document templates) from the web
// client's asset host.
func (c *Client) FetchAsset(ctx context.Context, name string) ([]byte, error) {
	op := "FetchAsset"
	u := c.assetBaseURL + "/" + strings.TrimLeft(name, "/")
	logger.ExternalServiceCall("asset-host", op, "url", u)

	data, err := c.fetch(ctx, u)
	logger.ExternalServiceResult("asset-host", op, err, "url", u, "bytes", len(data))
	return data, err
}

func (c *Client) fetch(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, u)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
}
