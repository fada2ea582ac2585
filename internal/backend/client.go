package backend

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultTimeout = 30 * time.Second
	retryCount     = 3
	retryWaitMin   = 200 * time.Millisecond
	retryWaitMax   = 2 * time.Second
)

// Client is the authenticated HTTP client shared by every versioned API.
// Paths are qualified with the version prefix; transient failures (429, 5xx,
// dropped connections) are retried with exponential backoff before the
// response reaches a ResponseParser. Non-2xx statuses are not errors at this
// layer: the parser maps them to typed outcomes.
type Client struct {
	http    *resty.Client
	version APIVersion
	tokens  *AccessTokenSource
}

type ClientOptions struct {
	BaseURL string
	Version APIVersion
	Tokens  *AccessTokenSource
	Timeout time.Duration
}

func NewClient(opts ClientOptions) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	hc := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(retryCount).
		SetRetryWaitTime(retryWaitMin).
		SetRetryMaxWaitTime(retryWaitMax).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if r == nil {
				return false
			}
			return r.StatusCode() == 429 || r.StatusCode() >= 500
		})

	return &Client{
		http:    hc,
		version: opts.Version,
		tokens:  opts.Tokens,
	}
}

func (c *Client) Version() APIVersion {
	return c.version
}

// Do executes one request against a version-qualified path and returns the
// raw (status, body) pair for parsing. body, when non-nil, is sent as JSON.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (int, []byte, error) {
	token, err := c.tokens.Token()
	if err != nil {
		return 0, nil, err
	}

	req := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+token)
	if query != nil {
		req.SetQueryParamsFromValues(query)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, c.version.PathPrefix()+path)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp.StatusCode(), resp.Body(), nil
}

// DoUnversioned is Do without the version prefix, for endpoints that predate
// versioned paths (api-version).
func (c *Client) DoUnversioned(ctx context.Context, method, path string) (int, []byte, error) {
	req := c.http.R().SetContext(ctx)
	resp, err := req.Execute(method, path)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp.StatusCode(), resp.Body(), nil
}
