// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/cap-orcid/orcid"
	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

// demoConfig is read from the environment, and from a .env file when one
// exists in the working directory.
type demoConfig struct {
	ClientID     string `env:"ORCID_CLIENT_ID,required"`
	ClientSecret string `env:"ORCID_CLIENT_SECRET,required"`
	Member       bool   `env:"ORCID_MEMBER" envDefault:"false"`
	Sandbox      bool   `env:"ORCID_SANDBOX" envDefault:"true"`
	APIVersion   string `env:"ORCID_API_VERSION" envDefault:"2.0"`
	OpenID       bool   `env:"ORCID_OPENID" envDefault:"false"`
	// Scope replaces the default scope of authorization requests.
	Scope string `env:"ORCID_SCOPE"`

	Addr       string        `env:"ORCID_DEMO_ADDR" envDefault:"localhost:9292"`
	BaseURL    string        `env:"ORCID_DEMO_BASE_URL"`
	Lang       string        `env:"ORCID_DEMO_LANG" envDefault:"en"`
	LogLevel   string        `env:"ORCID_DEMO_LOG_LEVEL" envDefault:"info"`
	RedisURL   string        `env:"ORCID_DEMO_REDIS_URL"`
	SessionTTL time.Duration `env:"ORCID_DEMO_SESSION_TTL" envDefault:"1h"`
}

// loadConfig reads the config from the process environment.
func loadConfig() (demoConfig, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return demoConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}
	return parseConfig(env.Options{})
}

func parseConfig(opts env.Options) (demoConfig, error) {
	const op = "parseConfig"
	var cfg demoConfig
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://" + cfg.Addr
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return cfg, fmt.Errorf("%s: ORCID_DEMO_BASE_URL: %w", op, err)
	}
	if _, err := cfg.lang(); err != nil {
		return cfg, fmt.Errorf("%s: ORCID_DEMO_LANG: %w", op, err)
	}
	if cfg.SessionTTL <= 0 {
		return cfg, fmt.Errorf("%s: ORCID_DEMO_SESSION_TTL must be positive", op)
	}
	return cfg, nil
}

// lang returns the language ORCID's sign in screen is shown in, as the
// ORCID language code.
func (c demoConfig) lang() (string, error) {
	tag, err := language.Parse(c.Lang)
	if err != nil {
		return "", err
	}
	base, _ := tag.Base()
	return base.String(), nil
}

func (c demoConfig) redirectURL() string {
	return c.BaseURL + "/auth/orcid/callback"
}

func (c demoConfig) logLevel() hclog.Level {
	if l := hclog.LevelFromString(c.LogLevel); l != hclog.NoLevel {
		return l
	}
	return hclog.Info
}

// providerConfig builds the ORCID config. The demo's deployment
// authorization params are its language and, if set, scope.
func (c demoConfig) providerConfig(logger hclog.Logger, opt ...orcid.Option) (*orcid.Config, error) {
	lang, err := c.lang()
	if err != nil {
		return nil, err
	}
	params := map[string]string{"lang": lang}
	if c.Scope != "" {
		params["scope"] = c.Scope
	}
	opts := []orcid.Option{
		orcid.WithAPIVersion(orcid.APIVersion(c.APIVersion)),
		orcid.WithAuthorizeParams(params),
		orcid.WithRedirectURL(c.redirectURL()),
		orcid.WithLogger(logger),
	}
	if c.Member {
		opts = append(opts, orcid.WithMember())
	}
	if c.Sandbox {
		opts = append(opts, orcid.WithSandbox())
	}
	if c.OpenID {
		opts = append(opts, orcid.WithOpenID())
	}
	return orcid.NewConfig(c.ClientID, orcid.ClientSecret(c.ClientSecret), append(opts, opt...)...)
}
