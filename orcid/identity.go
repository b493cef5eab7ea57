// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package orcid

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	// ProviderName identifies ORCID in an Identity.
	ProviderName = "orcid"

	// ProviderDisplayName is ORCID's name as shown to people.
	ProviderDisplayName = "ORCID"
)

// Profile is a decoded ORCID API response.
type Profile map[string]interface{}

// ResearcherURL is one of the links a person lists on their record. It
// marshals as a single-entry JSON object {label: url}, with a nil label
// marshaled as the empty key.
type ResearcherURL struct {
	Label *string
	URL   *string
}

// MarshalJSON encodes the URL as {label: url}.
func (u ResearcherURL) MarshalJSON() ([]byte, error) {
	label := ""
	if u.Label != nil {
		label = *u.Label
	}
	return json.Marshal(map[string]*string{label: u.URL})
}

// UnmarshalJSON decodes a single-entry {label: url} object.
func (u *ResearcherURL) UnmarshalJSON(data []byte) error {
	const op = "ResearcherURL.UnmarshalJSON"
	var m map[string]*string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if len(m) > 1 {
		return fmt.Errorf("%s: %d entries, want at most one: %w", op, len(m), ErrInvalidParameter)
	}
	*u = ResearcherURL{}
	for label, v := range m {
		if label != "" {
			l := label
			u.Label = &l
		}
		u.URL = v
	}
	return nil
}

// ExternalIdentifier is an identifier the person holds in another system,
// for example a Scopus Author ID.
type ExternalIdentifier struct {
	Type  *string `json:"type"`
	Value *string `json:"value"`
	URL   *string `json:"url"`
}

// RawInfo is the normalized profile, still shaped like ORCID's record.
type RawInfo struct {
	Name                *string              `json:"name,omitempty"`
	FirstName           *string              `json:"first_name"`
	LastName            *string              `json:"last_name"`
	OtherNames          []string             `json:"other_names"`
	Description         *string              `json:"description"`
	Location            *string              `json:"location"`
	Email               *string              `json:"email"`
	URLs                []ResearcherURL      `json:"urls"`
	ExternalIdentifiers []ExternalIdentifier `json:"external_identifiers"`
}

// Info is the summary of a person's identity.
type Info struct {
	Name        *string         `json:"name"`
	Email       *string         `json:"email"`
	FirstName   *string         `json:"first_name"`
	LastName    *string         `json:"last_name"`
	Location    *string         `json:"location"`
	Description *string         `json:"description"`
	URLs        []ResearcherURL `json:"urls"`
}

// Extra carries the RawInfo, unless the config asked for minimal info.
type Extra struct {
	RawInfo *RawInfo `json:"raw_info,omitempty"`
}

// Credentials describes the token a login produced. The tokens redact
// themselves when printed or marshaled.
type Credentials struct {
	Token        AccessToken  `json:"token"`
	RefreshToken RefreshToken `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time    `json:"expires_at"`
	Expires      bool         `json:"expires"`
	Scope        string       `json:"scope,omitempty"`
}

// Identity is everything a login learned about the person.
type Identity struct {
	Provider    string      `json:"provider"`
	UID         string      `json:"uid"`
	Info        Info        `json:"info"`
	Credentials Credentials `json:"credentials"`
	Extra       Extra       `json:"extra"`
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
