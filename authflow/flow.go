// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package authflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/cap-onboarding/pkce"
	"github.com/hashicorp/cap-onboarding/session"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"
)

// Flow drives the login for one client (one browser tab, one CLI).  It keeps
// no state of its own: everything lives in its session.Store.
type Flow struct {
	config   *Config
	store    session.Store
	backend  Backend
	verifier IdTokenVerifier
	logger   hclog.Logger
	now      func() time.Time
	randOpts []pkce.Option
}

// NewFlow creates a Flow.
//
// Supported options: WithBackend, WithIdTokenVerifier, WithLogger, WithNow,
// WithRandReader
func NewFlow(c *Config, store session.Store, opt ...Option) (*Flow, error) {
	const op = "authflow.NewFlow"
	if c == nil {
		return nil, fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: config is invalid: %w", op, err)
	}
	if store == nil {
		return nil, fmt.Errorf("%s: session store is nil: %w", op, ErrNilParameter)
	}
	opts := getFlowOpts(opt...)
	backend := opts.withBackend
	if backend == nil {
		var err error
		if backend, err = NewAPIClient(c.APIBaseURL, WithLogger(opts.withLogger)); err != nil {
			return nil, fmt.Errorf("%s: unable to create api client: %w", op, err)
		}
	}
	f := &Flow{
		config:   c,
		store:    store,
		backend:  backend,
		verifier: opts.withIdTokenVerifier,
		logger:   opts.withLogger,
		now:      opts.withNow,
	}
	if opts.withRandReader != nil {
		f.randOpts = append(f.randOpts, pkce.WithRandReader(opts.withRandReader))
	}
	return f, nil
}

// Config returns the flow's config
func (f *Flow) Config() *Config { return f.config }

// InitiateLogin creates a new LoginAttempt, stores it (replacing any pending
// attempt) and returns the provider's authorization URL.  The caller must
// navigate to the URL; control only comes back through HandleCallback.
func (f *Flow) InitiateLogin(ctx context.Context) (string, error) {
	const op = "authflow.(Flow).InitiateLogin"
	attempt, err := f.newLoginAttempt()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := f.store.Put(ctx, attempt); err != nil {
		return "", fmt.Errorf("%s: unable to store login attempt: %w", op, err)
	}

	redirectURI := f.config.RedirectURI()
	f.logger.Info("starting oauth login", "redirect_uri", redirectURI, "client_id", f.config.ClientId)
	f.logger.Debug("the redirect uri must be registered with the identity provider", "redirect_uri", redirectURI)

	oauth2Config := oauth2.Config{
		ClientID:    f.config.ClientId,
		RedirectURL: redirectURI,
		Endpoint:    oauth2.Endpoint{AuthURL: f.config.AuthEndpoint},
		Scopes:      f.config.Scopes,
	}
	return oauth2Config.AuthCodeURL(attempt.State,
		oidc.Nonce(attempt.Nonce),
		oauth2.SetAuthURLParam("code_challenge", attempt.CodeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", string(pkce.S256)),
		oauth2.SetAuthURLParam("prompt", "login"),
		oauth2.SetAuthURLParam("response_mode", "query"),
	), nil
}

func (f *Flow) newLoginAttempt() (*session.LoginAttempt, error) {
	v, err := pkce.NewCodeVerifier(f.randOpts...)
	if err != nil {
		return nil, err
	}
	state, err := pkce.NewRandomToken(pkce.StateEntropy, f.randOpts...)
	if err != nil {
		return nil, err
	}
	nonce, err := pkce.NewRandomToken(pkce.NonceEntropy, f.randOpts...)
	if err != nil {
		return nil, err
	}
	return &session.LoginAttempt{
		CodeVerifier:  v.Verifier(),
		CodeChallenge: v.Challenge(),
		State:         state,
		Nonce:         nonce,
	}, nil
}

// HandleCallback consumes the pending LoginAttempt, checks state against it,
// exchanges the code through the Backend and stores the resulting
// AuthSession.  The attempt is gone afterwards whatever the outcome, so a
// replayed callback fails with ErrCsrfMismatch.
func (f *Flow) HandleCallback(ctx context.Context, code, state string) (*session.AuthSession, error) {
	const op = "authflow.(Flow).HandleCallback"
	attempt, err := f.store.TakeAndClear(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to read login attempt: %w", op, err)
	}
	// an attempt without a state can't bind a callback
	if attempt == nil || attempt.State == "" || attempt.State != state {
		f.logger.Error("state mismatch, possible csrf attack", "attempt_pending", attempt != nil)
		return nil, fmt.Errorf("%s: %w", op, ErrCsrfMismatch)
	}
	if attempt.CodeVerifier == "" {
		f.logger.Error("code verifier not found in login attempt")
		return nil, fmt.Errorf("%s: %w", op, ErrMissingVerifier)
	}

	tr, err := f.backend.ExchangeToken(ctx, code, attempt.CodeVerifier, f.config.RedirectURI())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%s: token response has no access_token: %w", op, ErrTokenExchangeFailed)
	}
	if f.verifier != nil {
		if err := f.verifier.VerifyIdToken(ctx, tr.IdToken, attempt.Nonce); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	s, err := session.NewAuthSession(tr.AccessToken, tr.IdToken, tr.RefreshToken, tr.ExpiresIn, f.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrTokenExchangeFailed, err)
	}
	if err := f.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("%s: unable to store auth session: %w", op, err)
	}
	f.logger.Info("login succeeded", "expires_at", s.Expiry().UTC().Format(time.RFC3339))
	return s, nil
}

// IsAuthenticated reports whether there's an unexpired AuthSession.  An
// expired session is removed via Logout.
func (f *Flow) IsAuthenticated(ctx context.Context) (bool, error) {
	const op = "authflow.(Flow).IsAuthenticated"
	s, err := f.store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("%s: unable to load auth session: %w", op, err)
	}
	if s == nil {
		return false, nil
	}
	if s.IsExpired(f.now()) {
		f.logger.Debug("auth session expired", "expires_at", s.Expiry().UTC().Format(time.RFC3339))
		if err := f.Logout(ctx); err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
		return false, nil
	}
	return true, nil
}

// Tokens returns the stored AuthSession, without checking expiry.  It returns
// nil when there isn't one.
func (f *Flow) Tokens(ctx context.Context) (*session.AuthSession, error) {
	const op = "authflow.(Flow).Tokens"
	s, err := f.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to load auth session: %w", op, err)
	}
	return s, nil
}

// UserInfo looks up the current user with the stored access token.  It
// returns nil without an error when there's no session or the lookup fails:
// "no user info" is distinct from "not authenticated".  Only a failure to read
// the store or a canceled ctx is returned as an error.
func (f *Flow) UserInfo(ctx context.Context) (*UserInfo, error) {
	const op = "authflow.(Flow).UserInfo"
	s, err := f.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to load auth session: %w", op, err)
	}
	if s == nil {
		return nil, nil
	}
	info, err := f.backend.UserInfo(ctx, s.AccessToken)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		f.logger.Warn("get user info failed", "error", err)
		return nil, nil
	}
	return info, nil
}

// Logout removes the AuthSession and any pending LoginAttempt.  It's
// idempotent.
func (f *Flow) Logout(ctx context.Context) error {
	const op = "authflow.(Flow).Logout"
	if err := f.store.Clear(ctx); err != nil {
		return fmt.Errorf("%s: unable to clear auth session: %w", op, err)
	}
	if err := f.store.ClearAttempt(ctx); err != nil {
		return fmt.Errorf("%s: unable to clear login attempt: %w", op, err)
	}
	return nil
}

type flowOptions struct {
	withBackend         Backend
	withIdTokenVerifier IdTokenVerifier
	withLogger          hclog.Logger
	withNow             func() time.Time
	withRandReader      io.Reader
}

func flowDefaults() flowOptions {
	return flowOptions{
		withLogger: hclog.NewNullLogger(),
		withNow:    time.Now,
	}
}

func getFlowOpts(opt ...Option) flowOptions {
	opts := flowDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
