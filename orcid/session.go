// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package orcid

import (
	"context"
	"errors"
	"sync"
)

// Session is one login. The profile-derived accessors share a cache which
// lives exactly as long as the Session: the first of them to be called
// fetches the person's profile, every later call reuses the result and makes
// no request. Sessions must not be shared between logins.
type Session struct {
	provider *Provider
	token    *Token

	mu      sync.Mutex
	fetched bool
	raw     Profile
	rawInfo RawInfo
	err     error
}

// Token returns the token the session was created from.
func (s *Session) Token() *Token { return s.token }

// UID returns the person's ORCID iD. It comes from the token response and
// doesn't depend on the profile fetch.
func (s *Session) UID() string { return s.token.ORCID() }

// Name returns the display name from the token response, if any.
func (s *Session) Name() string { return s.token.Name() }

// load fetches and normalizes the profile once. A failed fetch is cached as
// an empty profile along with its error, unless it failed because ctx was
// canceled or expired: the next call then fetches again.
func (s *Session) load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetched {
		return
	}
	raw, err := s.provider.FetchProfile(ctx, s.token)
	s.err = err
	if err != nil {
		raw = Profile{}
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			s.provider.logger.Debug("ORCID profile fetch abandoned", "orcid", s.UID(), "error", err)
			s.raw, s.rawInfo = raw, s.provider.adapter.Normalize(raw)
			return
		}
		s.provider.logger.Warn("unable to fetch ORCID profile, continuing without it", "orcid", s.UID(), "error", err)
	}
	s.fetched = true
	s.raw = raw
	s.rawInfo = s.provider.adapter.Normalize(raw)
}

// Profile returns the raw profile response. It's empty when the fetch
// failed.
func (s *Session) Profile(ctx context.Context) Profile {
	s.load(ctx)
	return s.raw
}

// ProfileErr returns why the profile couldn't be fetched. Nil means the
// fetch succeeded, even if the person makes no data public.
func (s *Session) ProfileErr(ctx context.Context) error {
	s.load(ctx)
	return s.err
}

// RawInfo returns the normalized profile.
func (s *Session) RawInfo(ctx context.Context) RawInfo {
	s.load(ctx)
	return s.rawInfo
}

// Info returns the summary of the person's identity. The name is the one
// from the token response, never the profile's; the profile's credit name is
// RawInfo.Name.
func (s *Session) Info(ctx context.Context) Info {
	ri := s.RawInfo(ctx)
	return Info{
		Name:        strPtr(s.Name()),
		Email:       ri.Email,
		FirstName:   ri.FirstName,
		LastName:    ri.LastName,
		Location:    ri.Location,
		Description: ri.Description,
		URLs:        ri.URLs,
	}
}

// Extra returns the RawInfo, or an empty Extra when the config sets
// SkipInfo. With SkipInfo, Extra doesn't fetch the profile.
func (s *Session) Extra(ctx context.Context) Extra {
	if s.provider.config.SkipInfo {
		return Extra{}
	}
	ri := s.RawInfo(ctx)
	return Extra{RawInfo: &ri}
}

// Identity returns everything the login learned about the person.
func (s *Session) Identity(ctx context.Context) *Identity {
	return &Identity{
		Provider:    ProviderName,
		UID:         s.UID(),
		Info:        s.Info(ctx),
		Credentials: s.token.Credentials(),
		Extra:       s.Extra(ctx),
	}
}
