// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package orcid

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/cap-orcid/orcid/internal/strutils"
	"github.com/hashicorp/cap-orcid/sdk/id"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// SessionStateKey is the session key AuthorizeParams stores an inbound
// state under.
const SessionStateKey = "orcid.state"

// SessionWriter persists values for the remainder of a login flow, typically
// in the host application's session.
type SessionWriter interface {
	Set(key, value string)
}

// Provider integrates with ORCID using the 3-legged OAuth authorization code
// flow. A Provider is safe for concurrent use.
type Provider struct {
	config    *Config
	endpoints Endpoints
	adapter   SchemaAdapter
	client    *http.Client
	limiter   *rate.Limiter
	logger    hclog.Logger

	// oauth2Config is handed the ORCID endpoints at construction, so it
	// never falls back to provider-agnostic URLs.
	oauth2Config oauth2.Config

	mu       sync.Mutex
	verifier *oidc.IDTokenVerifier

	// backgroundCtx is the context used by the provider for background
	// activities like refreshing the id_token key set.
	backgroundCtx context.Context

	// backgroundCtxCancel is used to cancel any background activities running
	// in spawned go routines.
	backgroundCtxCancel context.CancelFunc
}

// NewProvider creates and initializes a Provider. Initializing the provider
// doesn't make any http requests.
//
// See Provider.Done() which must be called to release provider resources.
func NewProvider(c *Config) (*Provider, error) {
	const op = "orcid.NewProvider"
	if c == nil {
		return nil, fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: provider config is invalid: %w", op, err)
	}
	adapter, err := AdapterFor(c.APIVersion)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	client, err := c.HttpClient()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}
	logger := c.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	limit := c.RateLimit
	if limit == 0 {
		limit = rate.Inf
	}

	e := c.Endpoints()
	ctx, cancel := context.WithCancel(context.Background())
	p := &Provider{
		config:    c,
		endpoints: e,
		adapter:   adapter,
		client:    client,
		limiter:   rate.NewLimiter(limit, c.RateBurst),
		logger:    logger.Named(ProviderName),
		oauth2Config: oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: string(c.ClientSecret),
			RedirectURL:  c.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   e.AuthorizeURL,
				TokenURL:  e.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		backgroundCtx:       ctx,
		backgroundCtxCancel: cancel,
	}
	return p, nil
}

// Done with the provider's background resources and must be called for every
// Provider created
func (p *Provider) Done() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.backgroundCtxCancel != nil {
		p.backgroundCtxCancel()
		p.backgroundCtxCancel = nil
	}
}

// Config returns the provider's configuration.
func (p *Provider) Config() *Config { return p.config }

// Endpoints returns the ORCID endpoints the provider talks to.
func (p *Provider) Endpoints() Endpoints { return p.endpoints }

// NewState returns a new random value for an authorization request's state
// parameter.
func NewState() (string, error) {
	const op = "orcid.NewState"
	s, err := id.New("st")
	if err != nil {
		return "", fmt.Errorf("%s: unable to generate state: %w", op, err)
	}
	return s, nil
}

// AuthorizeParams returns the query parameters of an authorization request.
// It starts with show_login=true and the config's default scope, overlays the
// config's AuthorizeParams and then every AuthorizeOptions key that is
// present and non-empty in req. Keys which aren't AuthorizeOptions are
// dropped. See: https://info.orcid.org/ufaqs/how-do-i-customize-the-oauth-sign-in-screen/
//
// When req carries a non-empty state, it's written to s under
// SessionStateKey for the OAuth layer to verify on callback; s may be nil.
func (p *Provider) AuthorizeParams(req url.Values, s SessionWriter) url.Values {
	params := url.Values{}
	params.Set("show_login", "true")
	params.Set("scope", p.config.Scope())

	for k, v := range p.config.AuthorizeParams {
		if v != "" && strutils.StrListContains(p.config.AuthorizeOptions, k) {
			params.Set(k, v)
		}
	}
	for _, k := range p.config.AuthorizeOptions {
		if v := req.Get(k); v != "" {
			params.Set(k, v)
		}
	}
	if state := req.Get("state"); state != "" && s != nil {
		s.Set(SessionStateKey, state)
	}
	return params
}

// AuthURL will generate the URL to redirect a person to ORCID's authorize
// endpoint with the given state and params (see AuthorizeParams).
func (p *Provider) AuthURL(state string, params url.Values) (string, error) {
	const op = "Provider.AuthURL"
	if state == "" {
		return "", fmt.Errorf("%s: state is empty: %w", op, ErrInvalidParameter)
	}
	opts := make([]oauth2.AuthCodeOption, 0, len(params))
	for k := range params {
		if k == "state" {
			continue
		}
		opts = append(opts, oauth2.SetAuthURLParam(k, params.Get(k)))
	}
	return p.oauth2Config.AuthCodeURL(state, opts...), nil
}

// exchangeOptions is the set of available options for Provider.Exchange
type exchangeOptions struct {
	withRedirectURL string
}

func exchangeDefaults() exchangeOptions {
	return exchangeOptions{}
}

func getExchangeOpts(opt ...Option) exchangeOptions {
	opts := exchangeDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// Exchange will request a token from ORCID's token endpoint using the
// authorizationCode received in the authorization response.
// Supported options: WithRedirectURL
//
// With Config.OpenID, the id_token of the response is verified, and its
// subject must be the token's ORCID iD.
func (p *Provider) Exchange(ctx context.Context, authorizationCode string, opt ...Option) (*Token, error) {
	const op = "Provider.Exchange"
	if authorizationCode == "" {
		return nil, fmt.Errorf("%s: authorization code is empty: %w", op, ErrInvalidParameter)
	}
	opts := getExchangeOpts(opt...)
	var codeOpts []oauth2.AuthCodeOption
	if opts.withRedirectURL != "" {
		codeOpts = append(codeOpts, oauth2.SetAuthURLParam("redirect_uri", opts.withRedirectURL))
	}

	oauth2Token, err := p.oauth2Config.Exchange(HttpClientContext(ctx, p.client), authorizationCode, codeOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to exchange auth code with ORCID: %w: %w", op, ErrExchangeFailed, err)
	}
	t, err := NewToken(oauth2Token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p.logger.Debug("exchanged authorization code", "orcid", t.ORCID(), "scope", t.Scope())

	if p.config.OpenID {
		if err := p.VerifyIDToken(ctx, t); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return t, nil
}

// VerifyIDToken verifies the token's id_token was signed by ORCID for this
// client, and that its subject is the token's ORCID iD.
func (p *Provider) VerifyIDToken(ctx context.Context, t *Token) error {
	const op = "Provider.VerifyIDToken"
	if t == nil {
		return fmt.Errorf("%s: token is nil: %w", op, ErrNilParameter)
	}
	raw := t.IDToken()
	if raw == "" {
		return fmt.Errorf("%s: %w", op, ErrMissingIDToken)
	}
	verifier, err := p.idTokenVerifier()
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrIDTokenVerificationFailed, err)
	}
	idToken, err := verifier.Verify(HttpClientContext(ctx, p.client), string(raw))
	if err != nil {
		return fmt.Errorf("%s: invalid id_token: %w: %w", op, ErrIDTokenVerificationFailed, err)
	}
	if idToken.Subject != t.ORCID() {
		return fmt.Errorf("%s: id_token subject %q is not %q: %w", op, idToken.Subject, t.ORCID(), ErrIDTokenVerificationFailed)
	}
	return nil
}

// idTokenVerifier discovers ORCID's OpenID configuration on first use.
func (p *Provider) idTokenVerifier() (*oidc.IDTokenVerifier, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.verifier != nil {
		return p.verifier, nil
	}
	if p.backgroundCtxCancel == nil {
		return nil, fmt.Errorf("provider is done: %w", ErrInvalidParameter)
	}
	// the key set is refreshed with the background ctx, so it must carry
	// the provider's client
	provider, err := oidc.NewProvider(HttpClientContext(p.backgroundCtx, p.client), p.endpoints.Issuer)
	if err != nil {
		return nil, fmt.Errorf("unable to discover ORCID's openid configuration: %w", err)
	}
	p.verifier = provider.Verifier(&oidc.Config{
		ClientID:             p.config.ClientID,
		SupportedSigningAlgs: []string{oidc.RS256},
	})
	return p.verifier, nil
}

// NewSession creates the Session of one login from the token its code
// exchange produced.
func (p *Provider) NewSession(t *Token) (*Session, error) {
	const op = "Provider.NewSession"
	if t == nil {
		return nil, fmt.Errorf("%s: token is nil: %w", op, ErrNilParameter)
	}
	return &Session{
		provider: p,
		token:    t,
	}, nil
}
