// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package authflow

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-multierror"
)

// CallbackPath is the path of the redirect URI on the application's origin.
// The full redirect URI must be registered with the provider in advance.
const CallbackPath = "/auth/callback"

// DefaultScopes are requested when no scopes are configured
var DefaultScopes = []string{oidc.ScopeOpenID, "profile", "email"}

// RedirectURI returns the redirect URI for an application origin
func RedirectURI(origin string) string {
	return strings.TrimRight(origin, "/") + CallbackPath
}

// Config represents the public client side of the flow.  It holds no
// secrets.
type Config struct {
	// ClientId is the relying party id
	ClientId string

	// Origin is the application's scheme, host and optional port
	Origin string

	// AuthEndpoint is the provider's authorization endpoint
	AuthEndpoint string

	// APIBaseURL is the backend proxy's base URL
	APIBaseURL string

	// Scopes requested of the provider.  "openid" is always requested.
	Scopes []string
}

// NewConfig composes a new config.
//
// Supported options: WithScopes, WithAPIBaseURL
func NewConfig(clientId, origin, authEndpoint string, opt ...Option) (*Config, error) {
	const op = "authflow.NewConfig"
	opts := getConfigOpts(opt...)
	c := &Config{
		ClientId:     clientId,
		Origin:       strings.TrimRight(origin, "/"),
		AuthEndpoint: authEndpoint,
		APIBaseURL:   strings.TrimRight(opts.withAPIBaseURL, "/"),
		Scopes:       withOpenIdScope(opts.withScopes),
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = c.Origin + "/api"
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid config: %w", op, err)
	}
	return c, nil
}

// RedirectURI returns the config's redirect URI
func (c *Config) RedirectURI() string {
	return RedirectURI(c.Origin)
}

// Validate the config, reporting every problem found.
func (c *Config) Validate() error {
	const op = "authflow.(Config).Validate"
	if c == nil {
		return fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	if c.ClientId == "" {
		result = multierror.Append(result, fmt.Errorf("%s: client id is empty: %w", op, ErrInvalidParameter))
	}
	if err := validateURL("origin", c.Origin, true); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: %w", op, err))
	}
	if err := validateURL("authorization endpoint", c.AuthEndpoint, false); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: %w", op, err))
	}
	if err := validateURL("api base url", c.APIBaseURL, false); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: %w", op, err))
	}
	return result.ErrorOrNil()
}

func validateURL(name, raw string, originOnly bool) error {
	if raw == "" {
		return fmt.Errorf("%s is empty: %w", name, ErrInvalidParameter)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s %q is invalid: %w: %w", name, raw, ErrInvalidParameter, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("%s %q scheme is not http or https: %w", name, raw, ErrInvalidParameter)
	}
	if u.Host == "" {
		return fmt.Errorf("%s %q has no host: %w", name, raw, ErrInvalidParameter)
	}
	if originOnly && (u.Path != "" || u.RawQuery != "" || u.Fragment != "") {
		return fmt.Errorf("%s %q must only contain a scheme, host and port: %w", name, raw, ErrInvalidParameter)
	}
	return nil
}

func withOpenIdScope(scopes []string) []string {
	if len(scopes) == 0 {
		return append([]string(nil), DefaultScopes...)
	}
	for _, s := range scopes {
		if s == oidc.ScopeOpenID {
			return append([]string(nil), scopes...)
		}
	}
	return append([]string{oidc.ScopeOpenID}, scopes...)
}

type configOptions struct {
	withScopes     []string
	withAPIBaseURL string
}

func configDefaults() configOptions {
	return configOptions{}
}

func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
