// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/cap-onboarding/authflow"
	"github.com/hashicorp/cap-onboarding/authflow/callback"
	"github.com/hashicorp/cap-onboarding/session"
	"github.com/spf13/cobra"
)

const (
	successHTML = `<!DOCTYPE html>
<html>
<head><title>Login successful</title></head>
<body><p>Login successful.  You can close this window and return to the terminal.</p></body>
</html>
`
	errorHTML = `<!DOCTYPE html>
<html>
<head><title>Login failed</title></head>
<body><p>Login failed: %s</p><p>Return to the terminal and try again.</p></body>
</html>
`
)

func (a *app) loginCmd() *cobra.Command {
	var (
		noBrowser bool
		timeout   time.Duration
		verify    bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with the identity provider",
		Long: `login serves the redirect URI on the origin's loopback address, opens the
provider's authorization page in a browser and waits for the provider to
redirect back.  The code is exchanged through the backend and the resulting
session is stored in the state directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, err := a.clientConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("verify-id-token") {
				c.VerifyIdToken = verify
			}
			f, store, err := a.flow(ctx, c)
			if err != nil {
				return err
			}
			addr, err := listenAddr(f.Config().Origin)
			if err != nil {
				return err
			}

			type result struct {
				s   *session.AuthSession
				err error
			}
			resultCh := make(chan result, 1)
			send := func(r result) {
				select {
				case resultCh <- r:
				default:
				}
			}
			sFn := func(s *session.AuthSession, w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(http.StatusOK)
				_, _ = fmt.Fprint(w, successHTML)
				send(result{s: s})
			}
			eFn := func(e error, w http.ResponseWriter, _ *http.Request) {
				status := http.StatusUnauthorized
				if errors.Is(e, authflow.ErrMissingCallbackParameter) {
					status = http.StatusBadRequest
				}
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(status)
				_, _ = fmt.Fprintf(w, errorHTML, html.EscapeString(callback.ErrorMessage(e)))
				// a request without code and state never reached the pending
				// attempt, so keep waiting for the provider's redirect.  An
				// error from the provider still ends the login.
				if status == http.StatusBadRequest {
					return
				}
				send(result{err: e})
			}
			h, err := callback.AuthCode(f, sFn, eFn)
			if err != nil {
				return err
			}
			mux := http.NewServeMux()
			mux.Handle(authflow.CallbackPath, h)

			l, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("unable to serve the redirect URI %s: %w", f.Config().RedirectURI(), err)
			}
			srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
			srvCh := make(chan error, 1)
			go func() {
				if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
					srvCh <- err
				}
			}()
			defer srv.Close()

			authURL, err := f.InitiateLogin(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stderr, "Complete the login via your identity provider. Launching browser to:\n\n    %s\n\n", authURL)
			if !noBrowser {
				if err := a.openURL(authURL); err != nil {
					fmt.Fprintf(a.stderr, "Error attempting to automatically open browser: '%s'.\nPlease visit the authorization URL manually.\n", err)
				}
			}

			timer := time.NewTimer(timeout)
			defer timer.Stop()
			select {
			case r := <-resultCh:
				if r.err != nil {
					return errors.New(callback.ErrorMessage(r.err))
				}
				fmt.Fprintf(a.stdout, "Logged in. The session expires at %s.\n", r.s.Expiry().Local().Format(time.RFC1123))
				if info, err := f.UserInfo(ctx); err == nil && info != nil {
					fmt.Fprintf(a.stdout, "Welcome, %s.\n", displayName(info))
				}
				return nil
			case err := <-srvCh:
				_ = store.ClearAttempt(ctx)
				return fmt.Errorf("callback server failed: %w", err)
			case <-timer.C:
				_ = store.ClearAttempt(ctx)
				return errors.New("timed out waiting for the identity provider")
			case <-ctx.Done():
				_ = store.ClearAttempt(ctx)
				return errors.New("interrupted")
			}
		},
	}
	clientFlags(cmd)
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "print the authorization URL without opening a browser")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "how long to wait for the provider's redirect")
	cmd.Flags().BoolVar(&verify, "verify-id-token", false, "verify the id_token signature and nonce (env ONBOARDING_VERIFY_ID_TOKEN)")
	return cmd
}

// listenAddr is the loopback address serving the origin's redirect URI.
func listenAddr(origin string) (string, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("invalid origin %q: %w", origin, err)
	}
	if u.Scheme != "http" {
		return "", fmt.Errorf("login needs an http origin to serve the redirect URI, got %q", origin)
	}
	port := u.Port()
	if port == "" {
		port = "80"
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}

func displayName(info *authflow.UserInfo) string {
	switch {
	case info.Name != "" && info.Email != "":
		return fmt.Sprintf("%s <%s>", info.Name, info.Email)
	case info.Name != "":
		return info.Name
	case info.Email != "":
		return info.Email
	default:
		return info.Sub
	}
}
