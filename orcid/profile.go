// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package orcid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxProfileSize bounds the response bodies read from the ORCID API.
const maxProfileSize = 4 << 20

// FetchProfile gets the person resource of the token's ORCID iD, in the
// shape the config's APIVersion SchemaAdapter normalizes.
func (p *Provider) FetchProfile(ctx context.Context, t *Token) (Profile, error) {
	const op = "Provider.FetchProfile"
	if t == nil {
		return nil, fmt.Errorf("%s: token is nil: %w", op, ErrNilParameter)
	}
	return p.get(ctx, t, p.endpoints.ProfileURL(t.ORCID()))
}

// FetchRecord gets the whole record of the token's ORCID iD in the config's
// APIVersion.
func (p *Provider) FetchRecord(ctx context.Context, t *Token) (Profile, error) {
	const op = "Provider.FetchRecord"
	if t == nil {
		return nil, fmt.Errorf("%s: token is nil: %w", op, ErrNilParameter)
	}
	return p.get(ctx, t, p.endpoints.RecordURL(t.ORCID()))
}

// Get makes one authenticated request for a resource of the token's ORCID
// record, for example "record" or "works", and decodes the JSON response.
func (p *Provider) Get(ctx context.Context, t *Token, resource string) (Profile, error) {
	const op = "Provider.Get"
	if t == nil {
		return nil, fmt.Errorf("%s: token is nil: %w", op, ErrNilParameter)
	}
	return p.get(ctx, t, p.endpoints.ResourceURL(t.ORCID(), resource))
}

func (p *Provider) get(ctx context.Context, t *Token, resourceURL string) (Profile, error) {
	const op = "Provider.get"
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: rate limit wait: %w: %w", op, ErrProfileFetchFailed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create request: %w: %w", op, ErrProfileFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	// oauth2's client doesn't inherit the base client's timeout
	client := p.oauth2Config.Client(HttpClientContext(ctx, p.client), t.Oauth2Token())
	client.Timeout = p.client.Timeout

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request to %s failed: %w: %w", op, resourceURL, ErrProfileFetchFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileSize))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to read response: %w: %w", op, ErrProfileFetchFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: %s returned %d: %w", op, resourceURL, resp.StatusCode, ErrProfileFetchFailed)
	}
	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("%s: response is not a json object: %w: %w: %w", op, ErrProfileFetchFailed, ErrMalformedProfile, err)
	}
	if profile == nil {
		// a literal null
		return nil, fmt.Errorf("%s: response is null: %w: %w", op, ErrProfileFetchFailed, ErrMalformedProfile)
	}
	p.logger.Debug("fetched ORCID resource", "url", resourceURL)
	return profile, nil
}
