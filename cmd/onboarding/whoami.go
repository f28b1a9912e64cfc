// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var errNotLoggedIn = errors.New("not logged in, run the login command")

func (a *app) whoamiCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, err := a.clientConfig(cmd)
			if err != nil {
				return err
			}
			f, _, err := a.flow(ctx, c)
			if err != nil {
				return err
			}
			ok, err := f.IsAuthenticated(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return errNotLoggedIn
			}
			info, err := f.UserInfo(ctx)
			if err != nil {
				return err
			}
			if info == nil {
				return errors.New("logged in, but the user info is unavailable")
			}
			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			tokens, err := f.Tokens(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Subject: %s\n", info.Sub)
			if info.Name != "" {
				fmt.Fprintf(a.stdout, "Name:    %s\n", info.Name)
			}
			if info.Email != "" {
				fmt.Fprintf(a.stdout, "Email:   %s\n", info.Email)
			}
			if tokens != nil {
				fmt.Fprintf(a.stdout, "Expires: %s\n", tokens.Expiry().Local().Format(time.RFC1123))
			}
			return nil
		},
	}
	clientFlags(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the user info as json")
	return cmd
}
