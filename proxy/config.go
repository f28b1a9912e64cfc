// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package proxy

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/hashicorp/go-multierror"
)

// ClientSecret is an oauth client secret.  It's redacted when printed or
// marshaled.
type ClientSecret string

// RedactedClientSecret is the redacted string or json for an oauth client secret
const RedactedClientSecret = "[REDACTED: client secret]"

// String will redact the client secret
func (t ClientSecret) String() string {
	return RedactedClientSecret
}

// MarshalJSON will redact the client secret
func (t ClientSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedClientSecret)
}

// Config represents the confidential client used to talk to the provider.
type Config struct {
	// ClientId is the relying party id
	ClientId string

	// ClientSecret is the optional relying party secret.  Public clients
	// leave it empty and rely on PKCE alone.
	ClientSecret ClientSecret

	// ClientAssertionKey optionally authenticates the client with a signed
	// JWT (private_key_jwt) instead of a secret.  ClientAssertionKeyId is
	// sent as the JWT's kid header when set.
	ClientAssertionKey   PrivateKeyPEM
	ClientAssertionKeyId string

	// TokenEndpoint is the provider's token endpoint
	TokenEndpoint string

	// UserInfoEndpoint is the provider's user-info endpoint
	UserInfoEndpoint string

	// ProviderCA is an optional CA cert to use when sending requests to the provider.
	ProviderCA string

	// Timeout bounds each request to the provider.
	Timeout time.Duration
}

// NewConfig composes a new proxy config.
//
// Supported options: WithClientSecret, WithClientAssertionKey, WithProviderCA,
// WithTimeout
func NewConfig(clientId, tokenEndpoint, userInfoEndpoint string, opt ...Option) (*Config, error) {
	const op = "proxy.NewConfig"
	opts := getConfigOpts(opt...)
	c := &Config{
		ClientId:             clientId,
		ClientSecret:         opts.withClientSecret,
		ClientAssertionKey:   opts.withClientAssertionKey,
		ClientAssertionKeyId: opts.withClientAssertionKeyId,
		TokenEndpoint:        tokenEndpoint,
		UserInfoEndpoint:     userInfoEndpoint,
		ProviderCA:           opts.withProviderCA,
		Timeout:              opts.withTimeout,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid proxy config: %w", op, err)
	}
	return c, nil
}

// Validate the config, reporting every problem found.
func (c *Config) Validate() error {
	const op = "proxy.(Config).Validate"
	if c == nil {
		return fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	if c.ClientId == "" {
		result = multierror.Append(result, fmt.Errorf("%s: client id is empty: %w", op, ErrInvalidParameter))
	}
	if err := validateEndpoint("token endpoint", c.TokenEndpoint); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: %w", op, err))
	}
	if err := validateEndpoint("user-info endpoint", c.UserInfoEndpoint); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: %w", op, err))
	}
	if c.ClientAssertionKey != "" {
		if c.ClientSecret != "" {
			result = multierror.Append(result, fmt.Errorf("%s: client secret and client assertion key are mutually exclusive: %w", op, ErrInvalidParameter))
		}
		if _, _, err := parsePrivateKey(c.ClientAssertionKey); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", op, err))
		}
	}
	if c.Timeout < 0 {
		result = multierror.Append(result, fmt.Errorf("%s: timeout %s is negative: %w", op, c.Timeout, ErrInvalidParameter))
	}
	return result.ErrorOrNil()
}

func validateEndpoint(name, endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("%s is empty: %w", name, ErrInvalidParameter)
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%s %q is invalid: %w: %w", name, endpoint, ErrInvalidParameter, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("%s %q scheme is not http or https: %w", name, endpoint, ErrInvalidParameter)
	}
	if u.Host == "" {
		return fmt.Errorf("%s %q has no host: %w", name, endpoint, ErrInvalidParameter)
	}
	return nil
}
