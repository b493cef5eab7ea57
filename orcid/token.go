// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package orcid

import (
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// AccessToken is an oauth access_token
type AccessToken string

// RedactedAccessToken is the redacted string or json for an oauth access_token
const RedactedAccessToken = "[REDACTED: access_token]"

// String will redact the token
func (t AccessToken) String() string {
	return RedactedAccessToken
}

// MarshalJSON will redact the token
func (t AccessToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedAccessToken)
}

// RefreshToken is an oauth refresh_token
type RefreshToken string

// RedactedRefreshToken is the redacted string or json for an oauth refresh_token
const RedactedRefreshToken = "[REDACTED: refresh_token]"

// String will redact the token
func (t RefreshToken) String() string {
	return RedactedRefreshToken
}

// MarshalJSON will redact the token
func (t RefreshToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedRefreshToken)
}

// IDToken is an oidc id_token
type IDToken string

// RedactedIDToken is the redacted string or json for an oidc id_token
const RedactedIDToken = "[REDACTED: id_token]"

// String will redact the token
func (t IDToken) String() string {
	return RedactedIDToken
}

// MarshalJSON will redact the token
func (t IDToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedIDToken)
}

// Token response parameters ORCID adds to a code exchange.
const (
	tokenParamORCID   = "orcid"
	tokenParamName    = "name"
	tokenParamScope   = "scope"
	tokenParamIDToken = "id_token"
)

// Token is the result of an ORCID authorization code exchange.
type Token struct {
	underlying *oauth2.Token
	orcid      string
	name       string
}

// NewToken creates a Token from an oauth2.Token returned by ORCID's token
// endpoint, or rebuilt from storage with oauth2.Token.WithExtra. The token's
// "orcid" parameter is required.
func NewToken(t *oauth2.Token) (*Token, error) {
	const op = "orcid.NewToken"
	if t == nil {
		return nil, fmt.Errorf("%s: token is nil: %w", op, ErrNilParameter)
	}
	if t.AccessToken == "" {
		return nil, fmt.Errorf("%s: access_token is empty: %w", op, ErrInvalidParameter)
	}
	orcid := extraString(t, tokenParamORCID)
	if orcid == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingUID)
	}
	return &Token{
		underlying: t,
		orcid:      orcid,
		name:       extraString(t, tokenParamName),
	}, nil
}

func extraString(t *oauth2.Token, key string) string {
	s, _ := t.Extra(key).(string)
	return s
}

// ORCID returns the person's ORCID iD.
func (t *Token) ORCID() string { return t.orcid }

// Name returns the display name ORCID returned with the token, if any.
func (t *Token) Name() string { return t.name }

// Scope returns the scope ORCID granted.
func (t *Token) Scope() string { return extraString(t.underlying, tokenParamScope) }

// AccessToken returns the access_token.
func (t *Token) AccessToken() AccessToken { return AccessToken(t.underlying.AccessToken) }

// RefreshToken returns the refresh_token, if any.
func (t *Token) RefreshToken() RefreshToken { return RefreshToken(t.underlying.RefreshToken) }

// Expiry returns the access_token's expiry; zero means it doesn't expire.
func (t *Token) Expiry() time.Time { return t.underlying.Expiry }

// IDToken returns the id_token, which ORCID only includes when the openid
// scope was granted.
func (t *Token) IDToken() IDToken { return IDToken(extraString(t.underlying, tokenParamIDToken)) }

// Oauth2Token returns the underlying oauth2.Token, for callers storing the
// token.
func (t *Token) Oauth2Token() *oauth2.Token { return t.underlying }

// StaticTokenSource returns a TokenSource which always returns the token.
func (t *Token) StaticTokenSource() oauth2.TokenSource {
	return oauth2.StaticTokenSource(t.underlying)
}

// Credentials describes the token for an Identity.
func (t *Token) Credentials() Credentials {
	exp := t.Expiry()
	return Credentials{
		Token:        t.AccessToken(),
		RefreshToken: t.RefreshToken(),
		ExpiresAt:    exp,
		Expires:      !exp.IsZero(),
		Scope:        t.Scope(),
	}
}
