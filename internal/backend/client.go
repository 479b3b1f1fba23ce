/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package backend is the HTTP/JSON boundary to the image-generation service.
// Every transport, status or decoding failure is reported as
// domain.ErrRemoteUnavailable so callers can keep their prior state.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"promptstudio/internal/domain"
	applog "promptstudio/internal/log"
)

// DefaultTimeout applies when no WithTimeout option is given. Generation runs
// on the server are slow, so it is generous.
const DefaultTimeout = 2 * time.Minute

// maxBody bounds every response read into memory.
const maxBody = 64 << 20

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	BaseURL  string
	Token    string // bearer token
	ClientID string // sent as X-Client-ID
	client   *http.Client
	log      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout; zero disables it and leaves the
// caller's context as the only bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client.Timeout = d }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithClientID sets the X-Client-ID header value.
func WithClientID(id string) Option {
	return func(c *Client) { c.ClientID = strings.TrimSpace(id) }
}

// NewClient creates a new backend client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL string, token string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Token:   token,
		client:  &http.Client{Timeout: DefaultTimeout},
		log:     applog.WithComponent("backend"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Status string
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server %s %s: %s: %s", e.Method, e.Path, e.Status, e.Detail)
	}
	return fmt.Sprintf("server %s %s: %s", e.Method, e.Path, e.Status)
}

func (e *StatusError) Unwrap() error { return domain.ErrRemoteUnavailable }

func remoteErr(method, path string, err error) error {
	return fmt.Errorf("%s %s: %w: %w", method, path, domain.ErrRemoteUnavailable, err)
}

// endpoint resolves a backend-relative path (with optional query) or passes an
// absolute URL through.
func (c *Client) endpoint(path string) (*url.URL, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return url.Parse(path)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return url.Parse(c.BaseURL + path)
}

// do issues one request and returns the response body of a 2xx answer.
func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	u, err := c.endpoint(path)
	if err != nil {
		return nil, remoteErr(method, path, err)
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return nil, remoteErr(method, u.Path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if c.ClientID != "" {
		req.Header.Set("X-Client-ID", c.ClientID)
	}
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.DebugContext(ctx, "request failed", slog.String("method", method), slog.String("path", u.Path), slog.Any("err", err))
		return nil, remoteErr(method, u.Path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	c.log.DebugContext(ctx, "request", slog.String("method", method), slog.String("path", u.Path),
		slog.Int("status", resp.StatusCode), slog.Duration("took", time.Since(start)))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Method: method, Path: u.Path, Code: resp.StatusCode, Status: resp.Status, Detail: detail(data)}
	}
	if err != nil {
		return nil, remoteErr(method, u.Path, err)
	}
	return data, nil
}

// detail extracts the "detail" or "error" member of an error body, if any.
func detail(data []byte) string {
	var e struct {
		Detail any    `json:"detail"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(data, &e) != nil {
		return ""
	}
	if s, ok := e.Detail.(string); ok && s != "" {
		return s
	}
	return e.Error
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, dest any) error {
	data, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(dest); err != nil {
		return remoteErr(method, path, fmt.Errorf("decode: %w", err))
	}
	return nil
}

// Fetch downloads raw bytes, typically an image, from a backend-relative path or absolute URL.
func (c *Client) Fetch(ctx context.Context, path string) ([]byte, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("backend: empty path")
	}
	return c.do(ctx, http.MethodGet, path, nil)
}
