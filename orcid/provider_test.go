// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package orcid

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testNewProvider returns a Provider talking to tp.
func testNewProvider(t *testing.T, tp *TestProvider, opt ...Option) *Provider {
	t.Helper()
	require := require.New(t)
	opts := append([]Option{
		WithRedirectURL("https://example.com/callback"),
		WithHTTPClient(tp.HTTPClient()),
	}, opt...)
	c, err := NewConfig("test-client-id", "test-client-secret", opts...)
	require.NoError(err)
	p, err := NewProvider(c)
	require.NoError(err)
	t.Cleanup(p.Done)
	return p
}

type testSessionWriter map[string]string

func (s testSessionWriter) Set(key, value string) { s[key] = value }

func TestNewProvider(t *testing.T) {
	t.Parallel()
	t.Run("nil-config", func(t *testing.T) {
		_, err := NewProvider(nil)
		assert.ErrorIs(t, err, ErrNilParameter)
	})
	t.Run("invalid-config", func(t *testing.T) {
		_, err := NewProvider(&Config{ClientID: "APP-ID"})
		assert.ErrorIs(t, err, ErrInvalidParameter)
	})
	t.Run("endpoints-injected", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c, err := NewConfig("APP-ID", "secret", WithMember(), WithSandbox())
		require.NoError(err)
		p, err := NewProvider(c)
		require.NoError(err)
		defer p.Done()
		assert.Equal(NamespaceSandbox.Endpoints(APIVersion20), p.Endpoints())
		assert.Equal("https://sandbox.orcid.org/oauth/authorize", p.oauth2Config.Endpoint.AuthURL)
		assert.Equal("https://sandbox.orcid.org/oauth/token", p.oauth2Config.Endpoint.TokenURL)
		assert.Same(c, p.Config())
	})
	t.Run("done-twice", func(t *testing.T) {
		c, err := NewConfig("APP-ID", "secret")
		require.NoError(t, err)
		p, err := NewProvider(c)
		require.NoError(t, err)
		p.Done()
		p.Done()
		var nilProvider *Provider
		nilProvider.Done()
	})
}

func TestProvider_AuthorizeParams(t *testing.T) {
	t.Parallel()
	newProvider := func(t *testing.T, opt ...Option) *Provider {
		c, err := NewConfig("APP-ID", "secret", opt...)
		require.NoError(t, err)
		p, err := NewProvider(c)
		require.NoError(t, err)
		t.Cleanup(p.Done)
		return p
	}

	tests := []struct {
		name string
		opt  []Option
		req  url.Values
		want url.Values
	}{
		{
			name: "defaults",
			req:  url.Values{},
			want: url.Values{"show_login": {"true"}, "scope": {"/authenticate"}},
		},
		{
			name: "member-defaults",
			opt:  []Option{WithMember()},
			req:  nil,
			want: url.Values{"show_login": {"true"}, "scope": {ScopeMember}},
		},
		{
			name: "names-and-email",
			req: url.Values{
				"given_names":  {"Josiah"},
				"family_names": {"Carberry"},
				"email":        {"josiah@brown.edu"},
			},
			want: url.Values{
				"show_login":   {"true"},
				"scope":        {"/authenticate"},
				"given_names":  {"Josiah"},
				"family_names": {"Carberry"},
				"email":        {"josiah@brown.edu"},
			},
		},
		{
			name: "overrides-win",
			req:  url.Values{"show_login": {"false"}, "scope": {"/read-public"}, "lang": {"de"}},
			want: url.Values{"show_login": {"false"}, "scope": {"/read-public"}, "lang": {"de"}},
		},
		{
			name: "empty-is-absent",
			req:  url.Values{"show_login": {""}, "lang": {""}},
			want: url.Values{"show_login": {"true"}, "scope": {"/authenticate"}},
		},
		{
			name: "not-whitelisted",
			req:  url.Values{"prompt": {"login"}, "client_id": {"evil"}, "state": {"abc"}},
			want: url.Values{"show_login": {"true"}, "scope": {"/authenticate"}},
		},
		{
			name: "restricted-whitelist",
			opt:  []Option{WithAuthorizeOptions("lang")},
			req:  url.Values{"lang": {"es"}, "scope": {"/read-public"}},
			want: url.Values{"show_login": {"true"}, "scope": {"/authenticate"}, "lang": {"es"}},
		},
		{
			name: "deployment-params",
			opt:  []Option{WithAuthorizeParams(map[string]string{"scope": "/read-limited", "lang": "fr"})},
			req:  url.Values{"lang": {"it"}},
			want: url.Values{"show_login": {"true"}, "scope": {"/read-limited"}, "lang": {"it"}},
		},
		{
			name: "openid",
			opt:  []Option{WithOpenID()},
			want: url.Values{"show_login": {"true"}, "scope": {"openid /authenticate"}},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := newProvider(t, tt.opt...)
			got := p.AuthorizeParams(tt.req, nil)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("state-to-session", func(t *testing.T) {
		assert := assert.New(t)
		p := newProvider(t)
		s := testSessionWriter{}
		got := p.AuthorizeParams(url.Values{"state": {"st_123"}}, s)
		assert.Equal("st_123", s[SessionStateKey])
		assert.Empty(got.Get("state"))

		s = testSessionWriter{}
		p.AuthorizeParams(url.Values{"state": {""}}, s)
		assert.Empty(s)
	})
	t.Run("deterministic-encoding", func(t *testing.T) {
		p := newProvider(t)
		req := url.Values{"lang": {"en"}, "email": {"a@example.com"}}
		assert.Equal(t, p.AuthorizeParams(req, nil).Encode(), p.AuthorizeParams(req, nil).Encode())
	})
}

func TestProvider_AuthURL(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	c, err := NewConfig("APP-ID", "secret", WithRedirectURL("https://example.com/callback"))
	require.NoError(err)
	p, err := NewProvider(c)
	require.NoError(err)
	defer p.Done()

	_, err = p.AuthURL("", nil)
	require.ErrorIs(err, ErrInvalidParameter)

	params := p.AuthorizeParams(url.Values{"lang": {"de"}}, nil)
	params.Set("state", "ignored")
	got, err := p.AuthURL("st_abc", params)
	require.NoError(err)
	u, err := url.Parse(got)
	require.NoError(err)
	assert.Equal("orcid.org", u.Host)
	assert.Equal("/oauth/authorize", u.Path)
	q := u.Query()
	assert.Equal("APP-ID", q.Get("client_id"))
	assert.Equal("code", q.Get("response_type"))
	assert.Equal("st_abc", q.Get("state"))
	assert.Equal("https://example.com/callback", q.Get("redirect_uri"))
	assert.Equal("/authenticate", q.Get("scope"))
	assert.Equal("true", q.Get("show_login"))
	assert.Equal("de", q.Get("lang"))
}

func TestNewState(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	s1, err := NewState()
	require.NoError(err)
	s2, err := NewState()
	require.NoError(err)
	assert.True(strings.HasPrefix(s1, "st_"))
	assert.NotEqual(s1, s2)
}

func TestProvider_Exchange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		p := testNewProvider(t, tp)
		tk, err := p.Exchange(ctx, "test-code")
		require.NoError(err)
		assert.Equal(TestORCID, tk.ORCID())
		assert.Equal("Josiah Carberry", tk.Name())
		assert.Equal("/authenticate", tk.Scope())
		assert.Equal(AccessToken("test-access-token"), tk.AccessToken())
		assert.Equal(RefreshToken("test-refresh-token"), tk.RefreshToken())
		assert.False(tk.Expiry().IsZero())
		assert.Empty(tk.IDToken())
		assert.Equal(1, tp.Requests("/oauth/token"))
		assert.Equal(1, tp.HostRequests("orcid.org"))
	})
	t.Run("v12-token-host", func(t *testing.T) {
		require := require.New(t)
		tp := StartTestProvider(t)
		p := testNewProvider(t, tp, WithMember(), WithAPIVersion(APIVersion12))
		_, err := p.Exchange(ctx, "test-code")
		require.NoError(err)
		require.Equal(1, tp.HostRequests("api.orcid.org"))
	})
	t.Run("sandbox-token-host", func(t *testing.T) {
		require := require.New(t)
		tp := StartTestProvider(t)
		p := testNewProvider(t, tp, WithSandbox())
		_, err := p.Exchange(ctx, "test-code")
		require.NoError(err)
		require.Equal(1, tp.HostRequests("sandbox.orcid.org"))
	})
	t.Run("redirect-override", func(t *testing.T) {
		require := require.New(t)
		tp := StartTestProvider(t)
		tp.SetAllowedRedirectURIs([]string{"https://example.com/other"})
		p := testNewProvider(t, tp)
		_, err := p.Exchange(ctx, "test-code")
		require.ErrorIs(err, ErrExchangeFailed)
		_, err = p.Exchange(ctx, "test-code", WithRedirectURL("https://example.com/other"))
		require.NoError(err)
	})
	t.Run("empty-code", func(t *testing.T) {
		tp := StartTestProvider(t)
		p := testNewProvider(t, tp)
		_, err := p.Exchange(ctx, "")
		assert.ErrorIs(t, err, ErrInvalidParameter)
		assert.Equal(t, 0, tp.Requests("/oauth/token"))
	})
	t.Run("bad-code", func(t *testing.T) {
		tp := StartTestProvider(t)
		p := testNewProvider(t, tp)
		_, err := p.Exchange(ctx, "wrong-code")
		assert.ErrorIs(t, err, ErrExchangeFailed)
	})
	t.Run("bad-client-creds", func(t *testing.T) {
		tp := StartTestProvider(t)
		tp.SetClientCreds("test-client-id", "another-secret")
		p := testNewProvider(t, tp)
		_, err := p.Exchange(ctx, "test-code")
		assert.ErrorIs(t, err, ErrExchangeFailed)
	})
	t.Run("missing-orcid", func(t *testing.T) {
		tp := StartTestProvider(t)
		tp.OmitORCID()
		p := testNewProvider(t, tp)
		_, err := p.Exchange(ctx, "test-code")
		assert.ErrorIs(t, err, ErrMissingUID)
	})
}

func TestProvider_Exchange_OpenID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("verified", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		tp.IssueIDTokens()
		p := testNewProvider(t, tp, WithOpenID())
		tk, err := p.Exchange(ctx, "test-code")
		require.NoError(err)
		assert.NotEmpty(tk.IDToken())
		assert.Equal(1, tp.Requests("/.well-known/openid-configuration"))

		// discovery happens once per provider
		_, err = p.Exchange(ctx, "test-code")
		require.NoError(err)
		assert.Equal(1, tp.Requests("/.well-known/openid-configuration"))
	})
	t.Run("verified-sandbox", func(t *testing.T) {
		tp := StartTestProvider(t)
		tp.IssueIDTokens()
		p := testNewProvider(t, tp, WithOpenID(), WithSandbox())
		_, err := p.Exchange(ctx, "test-code")
		require.NoError(t, err)
	})
	t.Run("subject-mismatch", func(t *testing.T) {
		tp := StartTestProvider(t)
		tp.IssueIDTokens()
		tp.SetIDTokenSubject("0000-0001-5109-3700")
		p := testNewProvider(t, tp, WithOpenID())
		_, err := p.Exchange(ctx, "test-code")
		assert.ErrorIs(t, err, ErrIDTokenVerificationFailed)
	})
	t.Run("missing-id-token", func(t *testing.T) {
		tp := StartTestProvider(t)
		p := testNewProvider(t, tp, WithOpenID())
		_, err := p.Exchange(ctx, "test-code")
		assert.ErrorIs(t, err, ErrMissingIDToken)
	})
	t.Run("wrong-audience", func(t *testing.T) {
		tp := StartTestProvider(t)
		tp.IssueIDTokens()
		tp.SetClientCreds("another-client", "test-client-secret")
		c, err := NewConfig("another-client", "test-client-secret",
			WithRedirectURL("https://example.com/callback"),
			WithHTTPClient(tp.HTTPClient()),
			WithOpenID(),
		)
		require.NoError(t, err)
		p, err := NewProvider(c)
		require.NoError(t, err)
		defer p.Done()
		tk, err := p.Exchange(ctx, "test-code")
		require.NoError(t, err)

		// a token issued to another client
		other := testNewProvider(t, tp, WithOpenID())
		err = other.VerifyIDToken(ctx, tk)
		assert.ErrorIs(t, err, ErrIDTokenVerificationFailed)
	})
	t.Run("done", func(t *testing.T) {
		tp := StartTestProvider(t)
		tp.IssueIDTokens()
		p := testNewProvider(t, tp, WithOpenID())
		p.Done()
		_, err := p.Exchange(ctx, "test-code")
		assert.True(t, errors.Is(err, ErrIDTokenVerificationFailed))
	})
	t.Run("nil-token", func(t *testing.T) {
		tp := StartTestProvider(t)
		p := testNewProvider(t, tp, WithOpenID())
		assert.ErrorIs(t, p.VerifyIDToken(ctx, nil), ErrNilParameter)
	})
}
