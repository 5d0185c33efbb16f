/*
 * Copyright 2024 MediScan Client Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"mediscan-client/internal/credential"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	loginEndpoint  = "/auth/login"
	signupEndpoint = "/auth/signup"

	requestIDHeader = "X-Request-ID"
)

// Config is the client configuration, fixed at construction.
type Config struct {
	// BaseURL of the remote service
	// Required
	BaseURL string

	// Headers are added to every request
	// Optional
	Headers map[string]string

	// HTTPClient HTTP client
	// Optional. Default: http.DefaultClient
	HTTPClient *http.Client

	// Logger
	// Optional. Default: slog.Default()
	Logger *slog.Logger
}

// getHTTPClient returns the HTTP client, falling back to the default
func (c *Config) getHTTPClient() *http.Client {
	if c.HTTPClient == nil {
		return http.DefaultClient
	}
	return c.HTTPClient
}

// Client performs calls to the remote service with the stored credential attached.
// It is safe for concurrent use.
type Client struct {
	config  Config
	baseURL string
	store   *credential.Store
	logger  *slog.Logger

	mu      sync.Mutex
	lastErr *Failure
}

// New creates a Client over store.
func New(config Config, store *credential.Store) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base_url is required")
	}
	u, err := url.Parse(config.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base_url %q", config.BaseURL)
	}
	if store == nil {
		return nil, fmt.Errorf("credential store is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		config:  config,
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		store:   store,
		logger:  logger,
	}, nil
}

// Request describes one call to the remote service.
type Request struct {
	Method string
	Path   string
	Body   Payload // nil for no body
	// FailureMessage is used when a failure carries no better text.
	FailureMessage string
}

// Login exchanges a username (or email) and password for a bearer token and stores it.
// Expected failures return false with a nil error; the classified failure is
// then available from LastError. A non-nil error means the server answered
// with something that is not a token, or the token could not be stored.
func (c *Client) Login(ctx context.Context, usernameOrEmail, password string) (bool, error) {
	c.setLastError(nil)

	form := url.Values{
		"username": {usernameOrEmail},
		"password": {password},
	}
	resp, err := c.send(ctx, Request{Method: http.MethodPost, Path: loginEndpoint, Body: Form(form)}, false)
	if err != nil {
		failure := Classify(err, "Login failed")
		c.setLastError(failure)
		c.logger.Info("login failed", "kind", failure.Kind, "status", failure.StatusCode)
		return false, nil
	}

	var token oauth2.Token
	if err := json.Unmarshal(resp.Body, &token); err != nil {
		return false, c.fail(fmt.Errorf("%w: %v", ErrMalformedResponse, err))
	}
	if token.AccessToken == "" {
		return false, c.fail(fmt.Errorf("%w: missing access_token", ErrMalformedResponse))
	}
	if token.Type() != "Bearer" {
		return false, c.fail(fmt.Errorf("%w: unsupported token_type %q", ErrMalformedResponse, token.TokenType))
	}

	if err := c.store.Set(ctx, token.AccessToken); err != nil {
		return false, c.fail(fmt.Errorf("failed to store credential: %w", err))
	}
	// a token that does not resolve is already cleared by the store
	if c.store.ResolveIdentity(ctx) == nil {
		return false, c.fail(fmt.Errorf("%w: access_token is not a valid credential", ErrMalformedResponse))
	}

	c.logger.Info("logged in", "login", usernameOrEmail)
	return true, nil
}

// fail records err as the last error and returns it classified.
func (c *Client) fail(err error) *Failure {
	failure := Classify(err, "Login failed")
	c.setLastError(failure)
	c.logger.Warn("login response rejected", "error", err)
	return failure
}

// Signup registers a new account. Failures are returned as *Failure.
func (c *Client) Signup(ctx context.Context, username, email, password string) (*User, error) {
	body := SignupRequest{
		Name:     username,
		Username: username,
		Email:    email,
		Password: password,
	}
	resp, err := c.send(ctx, Request{Method: http.MethodPost, Path: signupEndpoint, Body: JSON(body)}, false)
	if err != nil {
		return nil, Classify(err, "Signup failed")
	}

	var user User
	if err := resp.JSON(&user); err != nil {
		return nil, Classify(err, "Signup failed")
	}
	return &user, nil
}

// AuthorizedRequest sends method path with the stored credential, if any.
func (c *Client) AuthorizedRequest(ctx context.Context, method, path string, body Payload) (*Response, error) {
	return c.Do(ctx, Request{Method: method, Path: path, Body: body})
}

// Do sends req with the stored credential attached when one exists.
// A 401 response clears the credential before the failure is returned, so the
// next identity check reports the session as gone.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	resp, err := c.send(ctx, req, true)
	if err == nil {
		return resp, nil
	}

	var respErr *ResponseError
	if errors.As(err, &respErr) && respErr.StatusCode == http.StatusUnauthorized {
		// the request context may already be done; clearing must still happen
		if clearErr := c.store.Clear(context.WithoutCancel(ctx)); clearErr != nil {
			c.logger.Error("failed to clear rejected credential", "error", clearErr)
		} else {
			c.logger.Info("credential rejected by server, session cleared", "path", req.Path)
		}
	}
	return nil, Classify(err, req.FailureMessage)
}

// Logout clears the stored credential. No network call is made.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	c.setLastError(nil)
	return nil
}

// Identity returns the current identity, or nil when unauthenticated.
func (c *Client) Identity(ctx context.Context) *credential.Identity {
	return c.store.ResolveIdentity(ctx)
}

// LastError returns the failure of the most recent Login, or nil.
func (c *Client) LastError() *Failure {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Client) setLastError(f *Failure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = f
}

// send performs one HTTP round trip. Non-2xx responses are returned as
// *ResponseError, failures without a response as *TransportError.
func (c *Client) send(ctx context.Context, req Request, authorize bool) (*Response, error) {
	var (
		body        io.Reader
		contentType string
	)
	if req.Body != nil {
		var err error
		body, contentType, err = req.Body.encode()
		if err != nil {
			return nil, err
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+"/"+strings.TrimLeft(req.Path, "/"), body)
	if err != nil {
		return nil, fmt.Errorf("create http request: %w", err)
	}

	for k, v := range c.config.Headers {
		httpReq.Header.Set(k, v)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	httpReq.Header.Set(requestIDHeader, requestID)

	if authorize {
		// The raw token is attached without decoding it. An expired or corrupt
		// token still goes out; the server's 401 then clears it in Do, and
		// ResolveIdentity never reports it as present in the meantime.
		// The header is captured here, so a later Clear does not affect this request.
		token, ok, err := c.store.Get(ctx)
		if err != nil {
			c.logger.Warn("failed to read credential, sending unauthenticated", "error", err, "request_id", requestID)
		} else if ok {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.config.getHTTPClient().Do(httpReq)
	if err != nil {
		c.logger.Debug("request failed", "method", req.Method, "path", req.Path, "request_id", requestID, "error", err)
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	c.logger.Debug("request done",
		"method", req.Method,
		"path", req.Path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ResponseError{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}
