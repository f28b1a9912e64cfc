// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"net"
	"strconv"

	"github.com/hashicorp/cap-onboarding/internal/config"
	"github.com/hashicorp/cap-onboarding/proxy"
	"github.com/hashicorp/cap-onboarding/server"
	"github.com/spf13/cobra"
)

func (a *app) serveCmd() *cobra.Command {
	var (
		port        int
		environment string
		origins     []string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the backend token proxy",
		Long: `serve runs the backend which exchanges authorization codes and looks up
user info on behalf of public clients.  It's configured from the environment:
PORT, OPENID_ISSUER, OPENID_TOKEN_ENDPOINT, OPENID_USERINFO_ENDPOINT,
OPENID_CLIENT_ID, OPENID_CLIENT_SECRET or OPENID_CLIENT_ASSERTION_KEY (with
the optional OPENID_CLIENT_ASSERTION_KEY_ID), OPENID_PROVIDER_CA,
OPENID_HTTP_TIMEOUT, CORS_ALLOWED_ORIGINS and ENVIRONMENT.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := config.LoadBackend(a.environ)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				b.Port = port
			}
			if cmd.Flags().Changed("environment") {
				b.Environment = environment
			}
			if cmd.Flags().Changed("cors-origin") {
				b.AllowedOrigins = origins
			}
			if err := b.Validate(); err != nil {
				return err
			}
			pc, err := b.ProxyConfig()
			if err != nil {
				return err
			}
			p, err := proxy.New(pc, proxy.WithLogger(a.logger.Named("proxy")))
			if err != nil {
				return err
			}
			s, err := server.New(p,
				server.WithLogger(a.logger.Named("http")),
				server.WithEnvironment(b.Environment),
				server.WithAllowedOrigins(b.AllowedOrigins...),
			)
			if err != nil {
				return err
			}

			l, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(b.Port)))
			if err != nil {
				return fmt.Errorf("unable to listen on port %d: %w", b.Port, err)
			}
			a.logger.Info("proxying identity provider", "client_id", pc.ClientId, "token_endpoint", pc.TokenEndpoint, "userinfo_endpoint", pc.UserInfoEndpoint, "client_auth", clientAuthMethod(pc))
			a.logger.Info("health check", "url", fmt.Sprintf("http://localhost:%d%s", b.Port, server.HealthPath))
			return s.Serve(cmd.Context(), l)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "port to listen on (env PORT, default 3000)")
	cmd.Flags().StringVar(&environment, "environment", "", "environment reported by /health (env ENVIRONMENT)")
	cmd.Flags().StringSliceVar(&origins, "cors-origin", nil, "allowed CORS origins (env CORS_ALLOWED_ORIGINS, default *)")
	return cmd
}

// clientAuthMethod names how the proxy authenticates to the token endpoint
func clientAuthMethod(c *proxy.Config) string {
	switch {
	case c.ClientAssertionKey != "":
		return "private_key_jwt"
	case c.ClientSecret != "":
		return "client_secret_post"
	default:
		return "none"
	}
}
