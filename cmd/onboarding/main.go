// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// onboarding runs the backend token proxy (serve) and a command line client
// which logs in through it (login, whoami, logout, redirect-uri).
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hashicorp/cap-onboarding/internal/config"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{stdout: os.Stdout, stderr: os.Stderr, openURL: openURL}
	if err := a.rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		stop()
		os.Exit(1)
	}
}

// app holds what the commands share.  Tests replace the environment, the
// outputs and the browser.
type app struct {
	// environ replaces the process environment when it's not nil
	environ map[string]string

	stdout  io.Writer
	stderr  io.Writer
	openURL func(string) error

	logLevel string
	logger   hclog.Logger
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "onboarding",
		Short: "OAuth2 authorization code login with PKCE",
		Long: `onboarding logs users in with an OpenID Connect provider using the
authorization code flow with PKCE.

The serve command runs the backend which performs the token exchange and
user-info lookups for public clients.  The login, whoami and logout commands
are such a client.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setupLogger(cmd)
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, warn or error (env ONBOARDING_LOG_LEVEL)")

	root.AddCommand(
		a.serveCmd(),
		a.loginCmd(),
		a.whoamiCmd(),
		a.logoutCmd(),
		a.redirectURICmd(),
	)
	return root
}

func (a *app) setupLogger(cmd *cobra.Command) error {
	level, err := config.LoadLogging(a.environ, a.logLevel)
	if err != nil {
		return err
	}
	a.logger = hclog.New(&hclog.LoggerOptions{
		Name:   "onboarding",
		Level:  level,
		Output: cmd.ErrOrStderr(),
	})
	return nil
}

func (a *app) getenv(key string) string {
	if a.environ != nil {
		return a.environ[key]
	}
	return os.Getenv(key)
}

// flagOverride applies a flag to a config value when the flag was set.
func flagOverride(cmd *cobra.Command, name string, target *string) {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		*target = strings.TrimSpace(f.Value.String())
	}
}
