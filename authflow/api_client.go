// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package authflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/cap-onboarding/internal/httpclient"
	"github.com/hashicorp/cap-onboarding/proxy"
	"github.com/hashicorp/go-hclog"
)

const (
	tokenRoute    = "/auth/token"
	userInfoRoute = "/auth/userinfo"

	maxResponseBytes = 1 << 20
)

// TokenResponse is the provider's token payload relayed by the backend
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	IdToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
}

// UserInfo is the provider's user-info payload.  Only Sub is required.
type UserInfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// Backend performs the calls which need the confidential client.
type Backend interface {
	// ExchangeToken exchanges an authorization code.  A rejected exchange is
	// returned as a *TokenExchangeError.
	ExchangeToken(ctx context.Context, code, codeVerifier, redirectURI string) (*TokenResponse, error)

	// UserInfo looks up the user for the access token.
	UserInfo(ctx context.Context, accessToken string) (*UserInfo, error)
}

// APIClient is a Backend which calls the proxy's http routes.
type APIClient struct {
	baseURL string
	client  *http.Client
	logger  hclog.Logger
}

// ensure that APIClient implements the Backend interface
var _ Backend = (*APIClient)(nil)

// NewAPIClient creates an APIClient for the api base URL.
//
// Supported options: WithHTTPClient, WithTimeout, WithLogger
func NewAPIClient(baseURL string, opt ...Option) (*APIClient, error) {
	const op = "authflow.NewAPIClient"
	if err := validateURL("api base url", baseURL, false); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	opts := getAPIClientOpts(opt...)
	client := opts.withHTTPClient
	if client == nil {
		var err error
		if client, err = httpclient.New("", opts.withTimeout); err != nil {
			return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
		}
	}
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  opts.withLogger,
	}, nil
}

// ExchangeToken implements Backend.ExchangeToken
func (c *APIClient) ExchangeToken(ctx context.Context, code, codeVerifier, redirectURI string) (*TokenResponse, error) {
	const op = "authflow.(APIClient).ExchangeToken"
	body, err := json.Marshal(&proxy.TokenRequest{
		Code:         code,
		CodeVerifier: codeVerifier,
		RedirectUri:  redirectURI,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: unable to encode request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenRoute, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrTokenExchangeFailed, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to read response: %w: %w", op, ErrTokenExchangeFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e := newTokenExchangeError(resp.StatusCode, resp.Header.Get("Content-Type"), raw)
		c.logger.Error("token exchange failed", "status", e.Status, "idp_error", e.Code, "message", e.Message)
		return nil, fmt.Errorf("%s: %w", op, e)
	}
	var tr TokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return nil, fmt.Errorf("%s: unable to decode token response: %w: %w", op, ErrTokenExchangeFailed, err)
	}
	return &tr, nil
}

// UserInfo implements Backend.UserInfo.  Any non-success response is
// ErrUserInfoUnavailable.
func (c *APIClient) UserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	const op = "authflow.(APIClient).UserInfo"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+userInfoRoute, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrUserInfoUnavailable, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to read response: %w: %w", op, ErrUserInfoUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: status %d: %w", op, resp.StatusCode, ErrUserInfoUnavailable)
	}
	var info UserInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("%s: unable to decode user info: %w: %w", op, ErrUserInfoUnavailable, err)
	}
	if info.Sub == "" {
		return nil, fmt.Errorf("%s: user info has no sub: %w", op, ErrUserInfoUnavailable)
	}
	return &info, nil
}

// newTokenExchangeError picks the most useful message from a failed
// response: the provider's error_description, then the backend's error, then
// a non-empty text body, then DefaultTokenExchangeMessage.
func newTokenExchangeError(status int, contentType string, raw []byte) *TokenExchangeError {
	e := &TokenExchangeError{Status: status, Message: DefaultTokenExchangeMessage}
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "application/json" {
		var er proxy.ErrorResponse
		if err := json.Unmarshal(raw, &er); err == nil {
			if er.IdPStatus != 0 {
				e.Status = er.IdPStatus
			}
			e.Code = proxy.Truncate(er.IdPError, proxy.MaxErrorBodyLen)
			e.Description = proxy.Truncate(er.IdPErrorDescription, proxy.MaxErrorBodyLen)
			e.Body = proxy.Truncate(er.IdPBody, proxy.MaxErrorBodyLen)
			switch {
			case er.IdPErrorDescription != "":
				e.Message = er.IdPErrorDescription
			case er.Error != "":
				e.Message = er.Error
			}
			e.Message = proxy.Truncate(e.Message, proxy.MaxErrorBodyLen)
			return e
		}
	}
	if text := strings.TrimSpace(string(raw)); text != "" {
		e.Body = proxy.Truncate(text, proxy.MaxErrorBodyLen)
		e.Message = e.Body
	}
	return e
}

type apiClientOptions struct {
	withHTTPClient *http.Client
	withTimeout    time.Duration
	withLogger     hclog.Logger
}

func apiClientDefaults() apiClientOptions {
	return apiClientOptions{
		withTimeout: httpclient.DefaultTimeout,
		withLogger:  hclog.NewNullLogger(),
	}
}

func getAPIClientOpts(opt ...Option) apiClientOptions {
	opts := apiClientDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
