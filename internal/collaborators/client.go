// Package collaborators holds the outbound HTTP clients fired after an
// order is paid, plus the Dispatcher that fans out to them.
package collaborators

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/angelmondragon/gatewaysync/pkg/errors"
)

const (
	defaultTimeout       = 10 * time.Second
	errorBodyLimit int64 = 1024
)

var validate = validator.New()

// Option configures a collaborator client.
type Option func(*endpoint)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(e *endpoint) {
		if client != nil {
			e.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured base URL.
func WithBaseURL(baseURL string) Option {
	return func(e *endpoint) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			e.baseURL = trimmed
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(e *endpoint) {
		if timeout > 0 {
			e.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// endpoint is the shared JSON-over-HTTP plumbing of every collaborator.
type endpoint struct {
	name       string
	baseURL    string
	httpClient *http.Client
}

func newEndpoint(name, baseURL string, opts ...Option) (*endpoint, error) {
	e := &endpoint{
		name:       name,
		baseURL:    strings.TrimSpace(baseURL),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.baseURL == "" {
		return nil, fmt.Errorf("%s base url is required", name)
	}
	return e, nil
}

func (e *endpoint) url(path string) string {
	trimmed := strings.TrimRight(e.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	if path == "" {
		return trimmed
	}
	return fmt.Sprintf("%s/%s", trimmed, path)
}

// do sends body as JSON and decodes a 2xx response into out when out is
// non-nil. Every failure is a CodeDependency error.
func (e *endpoint) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		if err := validate.Struct(body); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, e.name+" request invalid")
		}
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal "+e.name+" request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, e.url(path), reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build "+e.name+" request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute "+e.name+" request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), e.name+" request failed")
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+e.name+" response")
	}
	if err := validate.Struct(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, e.name+" response invalid")
	}
	return nil
}
