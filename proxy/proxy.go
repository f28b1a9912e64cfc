// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/cap-onboarding/internal/httpclient"
	"github.com/hashicorp/go-hclog"
)

const (
	// MaxErrorBodyLen is the most characters of a provider error body which
	// are returned to the caller
	MaxErrorBodyLen = 500

	// maxResponseBytes bounds how much of a provider response is read
	maxResponseBytes = 1 << 20
)

// TokenRequest is an authorization code exchange request from the public
// client.  The proxy adds the client's credentials.
type TokenRequest struct {
	Code         string `json:"code"`
	CodeVerifier string `json:"code_verifier"`
	RedirectUri  string `json:"redirect_uri"`
}

// Validate returns ErrMissingParameter unless every field is set
func (r *TokenRequest) Validate() error {
	const op = "proxy.(TokenRequest).Validate"
	if r == nil || r.Code == "" || r.CodeVerifier == "" || r.RedirectUri == "" {
		return fmt.Errorf("%s: code, code_verifier and redirect_uri are required: %w", op, ErrMissingParameter)
	}
	return nil
}

// Proxy forwards requests to the identity provider.
type Proxy struct {
	config    *Config
	client    *http.Client
	logger    hclog.Logger
	assertion *ClientAssertion
}

// New creates a Proxy.
//
// Supported options: WithLogger, WithHTTPClient
func New(c *Config, opt ...Option) (*Proxy, error) {
	const op = "proxy.New"
	if c == nil {
		return nil, fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: config is invalid: %w", op, err)
	}
	opts := getProxyOpts(opt...)
	client := opts.withHTTPClient
	if client == nil {
		var err error
		client, err = httpclient.New(c.ProviderCA, c.Timeout)
		if err != nil {
			return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
		}
	}
	p := &Proxy{
		config: c,
		client: client,
		logger: opts.withLogger,
	}
	if c.ClientAssertionKey != "" {
		var err error
		if p.assertion, err = NewClientAssertion(c.ClientId, c.TokenEndpoint, c.ClientAssertionKey, c.ClientAssertionKeyId); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return p, nil
}

// ExchangeToken exchanges the authorization code at the token endpoint and
// returns the provider's token payload unmodified.  A provider failure is
// returned as an *IdPError.
func (p *Proxy) ExchangeToken(ctx context.Context, r *TokenRequest) (json.RawMessage, error) {
	const op = "proxy.(Proxy).ExchangeToken"
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {r.Code},
		"redirect_uri":  {r.RedirectUri},
		"client_id":     {p.config.ClientId},
		"code_verifier": {r.CodeVerifier},
	}
	switch {
	case p.assertion != nil:
		assertion, err := p.assertion.Serialize()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		form.Set("client_assertion_type", ClientAssertionType)
		form.Set("client_assertion", assertion)
	case p.config.ClientSecret != "":
		form.Set("client_secret", string(p.config.ClientSecret))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create token request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	logger := p.requestLogger(ctx).With("client_id", p.config.ClientId, "redirect_uri", r.RedirectUri)
	body, err := p.do(req)
	if err != nil {
		logger.Error("token exchange request failed", "error", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if idpErr := body.idpError(true); idpErr != nil {
		logger.Error("token exchange failed", "status", body.status, "idp_error", idpErr.Code, "idp_error_description", idpErr.Description, "body", string(body.raw))
		return nil, fmt.Errorf("%s: %w", op, idpErr)
	}
	if !json.Valid(body.raw) {
		logger.Error("token endpoint returned a non-json payload", "status", body.status)
		return nil, fmt.Errorf("%s: token payload is not json: %w", op, ErrInvalidIdPResponse)
	}
	logger.Debug("token exchange succeeded")
	return json.RawMessage(body.raw), nil
}

// UserInfo forwards the bearer access token to the user-info endpoint and
// returns the provider's payload unmodified.  A provider failure is returned
// as an *IdPError.
func (p *Proxy) UserInfo(ctx context.Context, accessToken string) (json.RawMessage, error) {
	const op = "proxy.(Proxy).UserInfo"
	if accessToken == "" {
		return nil, fmt.Errorf("%s: access token is empty: %w", op, ErrMissingAuthorizationHeader)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.UserInfoEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create user-info request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	logger := p.requestLogger(ctx)
	body, err := p.do(req)
	if err != nil {
		logger.Error("user-info request failed", "error", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if idpErr := body.idpError(false); idpErr != nil {
		logger.Warn("user-info lookup failed", "status", body.status, "body", string(body.raw))
		return nil, fmt.Errorf("%s: %w", op, idpErr)
	}
	if !json.Valid(body.raw) {
		logger.Error("user-info endpoint returned a non-json payload", "status", body.status)
		return nil, fmt.Errorf("%s: user-info payload is not json: %w", op, ErrInvalidIdPResponse)
	}
	return json.RawMessage(body.raw), nil
}

func (p *Proxy) requestLogger(ctx context.Context) hclog.Logger {
	if id := RequestIdFromContext(ctx); id != "" {
		return p.logger.With("request_id", id)
	}
	return p.logger
}

type idpResponse struct {
	status int
	raw    []byte
}

func (p *Proxy) do(req *http.Request) (*idpResponse, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIdPUnavailable, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: unable to read response: %w", ErrIdPUnavailable, err)
	}
	return &idpResponse{status: resp.StatusCode, raw: raw}, nil
}

// idpError returns nil for a 2xx response.  When structured, an oauth2 json
// error body is returned as its code and description, otherwise the raw body
// is kept.
func (r *idpResponse) idpError(structured bool) *IdPError {
	if r.status >= 200 && r.status < 300 {
		return nil
	}
	e := &IdPError{Status: r.status}
	if !structured {
		e.Body = Truncate(string(r.raw), MaxErrorBodyLen)
		return e
	}
	var oauthErr struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(r.raw, &oauthErr); err == nil && (oauthErr.Error != "" || oauthErr.ErrorDescription != "") {
		e.Code = Truncate(oauthErr.Error, MaxErrorBodyLen)
		e.Description = Truncate(oauthErr.ErrorDescription, MaxErrorBodyLen)
		return e
	}
	e.Body = Truncate(string(r.raw), MaxErrorBodyLen)
	return e
}

// Truncate returns at most n characters of s.  Invalid UTF-8 sequences each
// count as one character.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	var count int
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
