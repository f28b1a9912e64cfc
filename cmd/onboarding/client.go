// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/cap-onboarding/authflow"
	"github.com/hashicorp/cap-onboarding/internal/config"
	"github.com/hashicorp/cap-onboarding/session"
	"github.com/spf13/cobra"
)

// clientFlags are shared by the client commands and override the
// environment.
func clientFlags(cmd *cobra.Command) {
	cmd.Flags().String("origin", "", "application origin the redirect URI is built from (env ONBOARDING_ORIGIN)")
	cmd.Flags().String("api-base-url", "", "backend api base URL (env ONBOARDING_API_BASE_URL, default origin + /api)")
	cmd.Flags().String("issuer", "", "provider issuer (env OPENID_ISSUER)")
	cmd.Flags().String("auth-endpoint", "", "provider authorization endpoint (env OPENID_AUTH_ENDPOINT, default issuer + /auth)")
	cmd.Flags().String("client-id", "", "client id (env OPENID_CLIENT_ID)")
	cmd.Flags().String("state-dir", "", "directory holding the session (env ONBOARDING_STATE_DIR)")
}

func (a *app) clientConfig(cmd *cobra.Command) (*config.Client, error) {
	c, err := config.LoadClient(a.environ)
	if err != nil {
		return nil, err
	}
	flagOverride(cmd, "origin", &c.Origin)
	flagOverride(cmd, "api-base-url", &c.APIBaseURL)
	flagOverride(cmd, "issuer", &c.Issuer)
	flagOverride(cmd, "auth-endpoint", &c.AuthEndpoint)
	flagOverride(cmd, "client-id", &c.ClientId)
	flagOverride(cmd, "state-dir", &c.StateDir)
	if cmd.Flags().Changed("issuer") && !cmd.Flags().Changed("auth-endpoint") && a.getenv("OPENID_AUTH_ENDPOINT") == "" {
		c.AuthEndpoint = strings.TrimRight(c.Issuer, "/") + "/auth"
	}
	return c, nil
}

// flow builds the Flow over the file store in the state dir.
func (a *app) flow(ctx context.Context, c *config.Client) (*authflow.Flow, session.Store, error) {
	fc, err := c.FlowConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := session.NewFileStore(c.StateDir)
	if err != nil {
		return nil, nil, err
	}
	logger := a.logger.Named("authflow")
	backend, err := authflow.NewAPIClient(fc.APIBaseURL, authflow.WithTimeout(c.Timeout), authflow.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	opts := []authflow.Option{
		authflow.WithBackend(backend),
		authflow.WithLogger(logger),
	}
	if c.VerifyIdToken {
		v, err := authflow.NewOIDCVerifier(ctx, c.Issuer, c.ClientId,
			authflow.WithProviderCA(c.ProviderCA),
			authflow.WithTimeout(c.Timeout),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to set up id_token verification: %w", err)
		}
		opts = append(opts, authflow.WithIdTokenVerifier(v))
	}
	f, err := authflow.NewFlow(fc, store, opts...)
	if err != nil {
		return nil, nil, err
	}
	return f, store, nil
}

func (a *app) redirectURICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "redirect-uri",
		Short: "Print the redirect URI to register with the identity provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.clientConfig(cmd)
			if err != nil {
				return err
			}
			fc, err := c.FlowConfig()
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, fc.RedirectURI())
			fmt.Fprintf(a.stderr, "\nRegister this redirect URI for client %q with the identity provider before logging in.\n", fc.ClientId)
			return nil
		},
	}
	clientFlags(cmd)
	return cmd
}
