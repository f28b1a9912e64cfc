// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package config loads the backend's and the CLI's configuration from the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/cap-onboarding/authflow"
	"github.com/hashicorp/cap-onboarding/proxy"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
)

const (
	DefaultIssuer   = "https://id-dev.mindx.edu.vn"
	DefaultClientId = "mindx-onboarding"
	DefaultOrigin   = "http://localhost:5173"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Backend is the configuration of the backend proxy server.
type Backend struct {
	Port                 int           `env:"PORT"                           envDefault:"3000"`
	Issuer               string        `env:"OPENID_ISSUER"                  envDefault:"https://id-dev.mindx.edu.vn"`
	TokenEndpoint        string        `env:"OPENID_TOKEN_ENDPOINT"`
	UserInfoEndpoint     string        `env:"OPENID_USERINFO_ENDPOINT"`
	ClientId             string        `env:"OPENID_CLIENT_ID"               envDefault:"mindx-onboarding"`
	ClientSecret         string        `env:"OPENID_CLIENT_SECRET"`
	ClientAssertionKey   string        `env:"OPENID_CLIENT_ASSERTION_KEY"`
	ClientAssertionKeyId string        `env:"OPENID_CLIENT_ASSERTION_KEY_ID"`
	ProviderCA           string        `env:"OPENID_PROVIDER_CA"`
	Timeout              time.Duration `env:"OPENID_HTTP_TIMEOUT"            envDefault:"10s"`
	AllowedOrigins       []string      `env:"CORS_ALLOWED_ORIGINS"           envDefault:"*" envSeparator:","`
	Environment          string        `env:"ENVIRONMENT"                    envDefault:"development"`
}

// Client is the configuration of the CLI, the public client.
type Client struct {
	Origin        string        `env:"ONBOARDING_ORIGIN"          envDefault:"http://localhost:5173"`
	APIBaseURL    string        `env:"ONBOARDING_API_BASE_URL"`
	Issuer        string        `env:"OPENID_ISSUER"              envDefault:"https://id-dev.mindx.edu.vn"`
	AuthEndpoint  string        `env:"OPENID_AUTH_ENDPOINT"`
	ClientId      string        `env:"OPENID_CLIENT_ID"           envDefault:"mindx-onboarding"`
	StateDir      string        `env:"ONBOARDING_STATE_DIR"`
	ProviderCA    string        `env:"OPENID_PROVIDER_CA"`
	Timeout       time.Duration `env:"OPENID_HTTP_TIMEOUT"        envDefault:"10s"`
	VerifyIdToken bool          `env:"ONBOARDING_VERIFY_ID_TOKEN"`
}

// Logging is the log configuration shared by every command.
type Logging struct {
	Level string `env:"ONBOARDING_LOG_LEVEL" envDefault:"info"`
}

// LoadLogging reads the Logging configuration and returns its level.  A
// non-empty override wins over the environment.
func LoadLogging(environ map[string]string, override string) (hclog.Level, error) {
	const op = "config.LoadLogging"
	var l Logging
	if err := parse(&l, environ); err != nil {
		return hclog.NoLevel, fmt.Errorf("%s: %w", op, err)
	}
	if override != "" {
		l.Level = override
	}
	level := hclog.LevelFromString(l.Level)
	if level == hclog.NoLevel {
		return hclog.NoLevel, fmt.Errorf("%s: unknown log level %q: %w", op, l.Level, ErrInvalidConfig)
	}
	return level, nil
}

// LoadBackend reads the Backend configuration.  environ overrides the process
// environment when it's not nil.
func LoadBackend(environ map[string]string) (*Backend, error) {
	const op = "config.LoadBackend"
	var b Backend
	if err := parse(&b, environ); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	issuer := strings.TrimRight(b.Issuer, "/")
	if b.TokenEndpoint == "" {
		b.TokenEndpoint = issuer + "/token"
	}
	if b.UserInfoEndpoint == "" {
		b.UserInfoEndpoint = issuer + "/me"
	}
	return &b, nil
}

// LoadClient reads the Client configuration.  environ overrides the process
// environment when it's not nil.
func LoadClient(environ map[string]string) (*Client, error) {
	const op = "config.LoadClient"
	var c Client
	if err := parse(&c, environ); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if c.AuthEndpoint == "" {
		c.AuthEndpoint = strings.TrimRight(c.Issuer, "/") + "/auth"
	}
	if c.StateDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("%s: unable to find user config dir, set ONBOARDING_STATE_DIR: %w", op, err)
		}
		c.StateDir = filepath.Join(dir, "onboarding")
	}
	return &c, nil
}

func parse(target interface{}, environ map[string]string) error {
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(target, opts); err != nil {
		return fmt.Errorf("parse env: %w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ProxyConfig converts the Backend configuration to a proxy.Config
func (b *Backend) ProxyConfig() (*proxy.Config, error) {
	const op = "config.(Backend).ProxyConfig"
	opts := []proxy.Option{
		proxy.WithClientSecret(proxy.ClientSecret(b.ClientSecret)),
		proxy.WithProviderCA(b.ProviderCA),
		proxy.WithTimeout(b.Timeout),
	}
	if b.ClientAssertionKey != "" {
		opts = append(opts, proxy.WithClientAssertionKey(proxy.PrivateKeyPEM(b.ClientAssertionKey), b.ClientAssertionKeyId))
	}
	c, err := proxy.NewConfig(b.ClientId, b.TokenEndpoint, b.UserInfoEndpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// Validate checks the settings which aren't checked by proxy.Config
func (b *Backend) Validate() error {
	const op = "config.(Backend).Validate"
	var result *multierror.Error
	if b.Port <= 0 || b.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("%s: port %d is out of range: %w", op, b.Port, ErrInvalidConfig))
	}
	if len(b.AllowedOrigins) == 0 {
		result = multierror.Append(result, fmt.Errorf("%s: no cors origins: %w", op, ErrInvalidConfig))
	}
	return result.ErrorOrNil()
}

// FlowConfig converts the Client configuration to an authflow.Config
func (c *Client) FlowConfig() (*authflow.Config, error) {
	const op = "config.(Client).FlowConfig"
	var opts []authflow.Option
	if c.APIBaseURL != "" {
		opts = append(opts, authflow.WithAPIBaseURL(c.APIBaseURL))
	}
	fc, err := authflow.NewConfig(c.ClientId, c.Origin, c.AuthEndpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return fc, nil
}
