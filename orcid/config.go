// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package orcid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/cap-orcid/orcid/internal/strutils"
	sdkHttp "github.com/hashicorp/cap-orcid/sdk/http"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/time/rate"
)

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

const (
	// DefaultTimeout is the request timeout shared by the token exchange and
	// profile requests.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit and DefaultRateBurst are ORCID's published limits for
	// reads from its public API.
	DefaultRateLimit rate.Limit = 24
	DefaultRateBurst            = 40
)

// DefaultAuthorizeOptions are the authorization request parameters a caller
// may set. See: https://info.orcid.org/documentation/api-tutorials/api-tutorial-get-and-authenticated-orcid-id/
var DefaultAuthorizeOptions = []string{
	"redirect_uri",
	"show_login",
	"lang",
	"given_names",
	"family_names",
	"email",
	"orcid",
	"scope",
}

// Config represents the configuration of an ORCID client for the 3-legged
// OAuth authorization code flow.
type Config struct {
	// ClientID is the ORCID client id
	ClientID string

	// ClientSecret is the ORCID client secret
	ClientSecret ClientSecret

	// Member selects the member API and its scopes.
	Member bool

	// Sandbox selects sandbox.orcid.org instead of orcid.org.
	Sandbox bool

	// SkipInfo omits raw_info from a Session's Extra.
	SkipInfo bool

	// APIVersion is the ORCID API version used for profile requests. It also
	// selects the SchemaAdapter used to normalize responses.
	APIVersion APIVersion

	// AuthorizeOptions is the list of authorization request parameters a
	// caller is allowed to set.
	AuthorizeOptions []string

	// AuthorizeParams are deployment wide values for keys in
	// AuthorizeOptions. Values from the caller's request take precedence.
	AuthorizeParams map[string]string

	// RedirectURL is an optional default redirect_uri.
	RedirectURL string

	// Timeout applies to every request sent to ORCID.
	Timeout time.Duration

	// ProviderCA is an optional CA cert to use when sending requests to ORCID.
	ProviderCA string

	// OpenID requests the openid scope and verifies the id_token returned by
	// the code exchange.
	OpenID bool

	// RateLimit and RateBurst limit ORCID API reads made by a Provider.
	RateLimit rate.Limit
	RateBurst int

	// Logger is an optional logger
	Logger hclog.Logger

	// HTTPClient replaces the client built from ProviderCA and Timeout.
	HTTPClient *http.Client
}

// NewConfig composes a new config for ORCID.
// Supported options:
//   - WithMember
//   - WithSandbox
//   - WithSkipInfo
//   - WithAPIVersion
//   - WithAuthorizeOptions
//   - WithAuthorizeParams
//   - WithRedirectURL
//   - WithTimeout
//   - WithProviderCA
//   - WithOpenID
//   - WithRateLimit
//   - WithLogger
//   - WithHTTPClient
func NewConfig(clientID string, clientSecret ClientSecret, opt ...Option) (*Config, error) {
	const op = "orcid.NewConfig"
	opts := getConfigOpts(opt...)
	c := &Config{
		ClientID:         clientID,
		ClientSecret:     clientSecret,
		Member:           opts.withMember,
		Sandbox:          opts.withSandbox,
		SkipInfo:         opts.withSkipInfo,
		APIVersion:       opts.withAPIVersion,
		AuthorizeOptions: strutils.RemoveDuplicatesStable(opts.withAuthorizeOptions, false),
		AuthorizeParams:  opts.withAuthorizeParams,
		RedirectURL:      opts.withRedirectURL,
		Timeout:          opts.withTimeout,
		ProviderCA:       opts.withProviderCA,
		OpenID:           opts.withOpenID,
		RateLimit:        opts.withRateLimit,
		RateBurst:        opts.withRateBurst,
		Logger:           opts.withLogger,
		HTTPClient:       opts.withHTTPClient,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid provider config: %w", op, err)
	}
	return c, nil
}

// Validate the configuration. Every problem found is reported in the
// returned error, and each one wraps ErrInvalidParameter.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	var errs *multierror.Error
	if c.ClientID == "" {
		errs = multierror.Append(errs, fmt.Errorf("%s: client id is empty: %w", op, ErrInvalidParameter))
	}
	if c.ClientSecret == "" {
		errs = multierror.Append(errs, fmt.Errorf("%s: client secret is empty: %w", op, ErrInvalidParameter))
	}
	if !c.APIVersion.Supported() {
		errs = multierror.Append(errs, fmt.Errorf("%s: api version %q: %w: %w", op, c.APIVersion, ErrUnsupportedAPIVersion, ErrInvalidParameter))
	}
	if c.Timeout <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("%s: timeout %s is not greater than zero: %w", op, c.Timeout, ErrInvalidParameter))
	}
	switch {
	case c.RateBurst < 0:
		errs = multierror.Append(errs, fmt.Errorf("%s: rate burst %d is negative: %w", op, c.RateBurst, ErrInvalidParameter))
	case c.RateBurst == 0 && c.RateLimit != 0 && c.RateLimit != rate.Inf:
		// a limiter with no burst rejects every request
		errs = multierror.Append(errs, fmt.Errorf("%s: rate burst must be at least 1 with rate limit %v: %w", op, c.RateLimit, ErrInvalidParameter))
	}
	if c.RedirectURL != "" {
		if err := validRedirect(c.RedirectURL); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", op, err))
		}
	}
	for k := range c.AuthorizeParams {
		if !strutils.StrListContains(c.AuthorizeOptions, k) {
			errs = multierror.Append(errs, fmt.Errorf("%s: authorize param %q is not an authorize option: %w", op, k, ErrInvalidParameter))
		}
	}
	return errs.ErrorOrNil()
}

func validRedirect(redirect string) error {
	u, err := url.Parse(redirect)
	if err != nil {
		return fmt.Errorf("redirect url %s is invalid: %w", redirect, ErrInvalidParameter)
	}
	if !strutils.StrListContains([]string{"https", "http"}, u.Scheme) {
		return fmt.Errorf("redirect url %s scheme %q is not http or https: %w", redirect, u.Scheme, ErrInvalidParameter)
	}
	return nil
}

// Namespace returns the ORCID deployment selected by the config.
func (c *Config) Namespace() Namespace {
	return NamespaceFor(c.Member, c.Sandbox)
}

// Endpoints returns the config's ORCID endpoints.
func (c *Config) Endpoints() Endpoints {
	return c.Namespace().Endpoints(c.APIVersion)
}

// Scope returns the scope requested when the caller doesn't ask for one.
func (c *Config) Scope() string {
	s := DefaultScope(c.Member, c.APIVersion)
	if c.OpenID {
		s = ScopeOpenID + " " + s
	}
	return s
}

// HttpClient is a helper function that creates a new http client for the
// provider configured
func (c *Config) HttpClient() (*http.Client, error) {
	const op = "Config.HttpClient"
	if c.HTTPClient != nil {
		return c.HTTPClient, nil
	}
	client, err := sdkHttp.NewClient(c.ProviderCA, c.Timeout)
	if err != nil {
		if errors.Is(err, sdkHttp.ErrInvalidCertificatePem) {
			return nil, fmt.Errorf("%s: could not parse CA PEM value successfully: %w", op, ErrInvalidCACert)
		}
		return nil, fmt.Errorf("%s: could not get an http client: %w", op, err)
	}
	return client, nil
}

// HttpClientContext is a helper function that returns a new Context that
// carries the provided HTTP client. This method sets the same context key used
// by the github.com/coreos/go-oidc and golang.org/x/oauth2 packages, so the
// returned context works for those packages as well.
func HttpClientContext(ctx context.Context, client *http.Client) context.Context {
	// simple to implement as a wrapper for the coreos package
	return oidc.ClientContext(ctx, client)
}

// configOptions is the set of available options
type configOptions struct {
	withMember           bool
	withSandbox          bool
	withSkipInfo         bool
	withAPIVersion       APIVersion
	withAuthorizeOptions []string
	withAuthorizeParams  map[string]string
	withRedirectURL      string
	withTimeout          time.Duration
	withProviderCA       string
	withOpenID           bool
	withRateLimit        rate.Limit
	withRateBurst        int
	withLogger           hclog.Logger
	withHTTPClient       *http.Client
}

// configDefaults is a handy way to get the defaults at runtime and
// during unit tests.
func configDefaults() configOptions {
	return configOptions{
		withAPIVersion:       DefaultAPIVersion,
		withAuthorizeOptions: DefaultAuthorizeOptions,
		withTimeout:          DefaultTimeout,
		withRateLimit:        DefaultRateLimit,
		withRateBurst:        DefaultRateBurst,
		withLogger:           hclog.NewNullLogger(),
	}
}

// getConfigOpts gets the defaults and applies the opt overrides passed
// in.
func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithMember selects the ORCID member API
func WithMember() Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withMember = true
		}
	}
}

// WithSandbox selects the ORCID sandbox
func WithSandbox() Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withSandbox = true
		}
	}
}

// WithSkipInfo omits raw_info from a Session's Extra
func WithSkipInfo() Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withSkipInfo = true
		}
	}
}

// WithAPIVersion provides an optional ORCID API version
func WithAPIVersion(v APIVersion) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withAPIVersion = v
		}
	}
}

// WithAuthorizeOptions replaces the DefaultAuthorizeOptions
func WithAuthorizeOptions(keys ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withAuthorizeOptions = keys
		}
	}
}

// WithAuthorizeParams provides deployment wide authorization request
// parameters
func WithAuthorizeParams(params map[string]string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withAuthorizeParams = params
		}
	}
}

// WithTimeout provides an optional request timeout
func WithTimeout(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withTimeout = d
		}
	}
}

// WithProviderCA provides an optional CA cert for the provider's config
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withProviderCA = cert
		}
	}
}

// WithOpenID requests the openid scope and id_token verification
func WithOpenID() Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withOpenID = true
		}
	}
}

// WithRateLimit provides an optional limit for ORCID API reads
func WithRateLimit(l rate.Limit, burst int) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withRateLimit = l
			o.withRateBurst = burst
		}
	}
}

// WithLogger provides an optional logger for the provider's config
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok && l != nil {
			o.withLogger = l
		}
	}
}

// WithHTTPClient provides an optional http client
func WithHTTPClient(c *http.Client) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withHTTPClient = c
		}
	}
}
