// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package orcid

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamespaceFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		member, sandbox bool
		want            Namespace
	}{
		{member: false, sandbox: false, want: NamespacePublic},
		{member: false, sandbox: true, want: NamespacePublicSandbox},
		{member: true, sandbox: false, want: NamespaceProduction},
		{member: true, sandbox: true, want: NamespaceSandbox},
	}
	for _, tt := range tests {
		got := NamespaceFor(tt.member, tt.sandbox)
		assert.Equalf(t, tt.want, got, "NamespaceFor(%t, %t)", tt.member, tt.sandbox)
		assert.Equal(t, tt.member, got.IsMember())
		assert.Equal(t, tt.sandbox, got.IsSandbox())
	}
}

func TestNamespace_Endpoints(t *testing.T) {
	t.Parallel()
	tests := []struct {
		ns      Namespace
		version APIVersion
		want    Endpoints
	}{
		{
			ns:      NamespacePublic,
			version: APIVersion20,
			want: Endpoints{
				Site:         "https://pub.orcid.org",
				APIBaseURL:   "https://pub.orcid.org/v2.0",
				AuthorizeURL: "https://orcid.org/oauth/authorize",
				TokenURL:     "https://orcid.org/oauth/token",
				Issuer:       "https://orcid.org",
			},
		},
		{
			ns:      NamespacePublicSandbox,
			version: APIVersion20,
			want: Endpoints{
				Site:         "https://pub.sandbox.orcid.org",
				APIBaseURL:   "https://pub.sandbox.orcid.org/v2.0",
				AuthorizeURL: "https://sandbox.orcid.org/oauth/authorize",
				TokenURL:     "https://sandbox.orcid.org/oauth/token",
				Issuer:       "https://sandbox.orcid.org",
			},
		},
		{
			ns:      NamespaceProduction,
			version: APIVersion20,
			want: Endpoints{
				Site:         "https://api.orcid.org",
				APIBaseURL:   "https://api.orcid.org/v2.0",
				AuthorizeURL: "https://orcid.org/oauth/authorize",
				TokenURL:     "https://orcid.org/oauth/token",
				Issuer:       "https://orcid.org",
			},
		},
		{
			ns:      NamespaceSandbox,
			version: APIVersion20,
			want: Endpoints{
				Site:         "https://api.sandbox.orcid.org",
				APIBaseURL:   "https://api.sandbox.orcid.org/v2.0",
				AuthorizeURL: "https://sandbox.orcid.org/oauth/authorize",
				TokenURL:     "https://sandbox.orcid.org/oauth/token",
				Issuer:       "https://sandbox.orcid.org",
			},
		},
		{
			ns:      NamespaceProduction,
			version: APIVersion12,
			want: Endpoints{
				Site:         "https://api.orcid.org",
				APIBaseURL:   "https://pub.orcid.org/v1.2",
				AuthorizeURL: "https://orcid.org/oauth/authorize",
				TokenURL:     "https://api.orcid.org/oauth/token",
				Issuer:       "https://orcid.org",
			},
		},
		{
			ns:      NamespacePublicSandbox,
			version: APIVersion12,
			want: Endpoints{
				Site:         "https://pub.sandbox.orcid.org",
				APIBaseURL:   "https://pub.sandbox.orcid.org/v1.2",
				AuthorizeURL: "https://sandbox.orcid.org/oauth/authorize",
				TokenURL:     "https://pub.sandbox.orcid.org/oauth/token",
				Issuer:       "https://sandbox.orcid.org",
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.ns)+"-"+string(tt.version), func(t *testing.T) {
			t.Parallel()
			assert := assert.New(t)
			got := tt.ns.Endpoints(tt.version)
			assert.Equal(tt.want.Site, got.Site)
			assert.Equal(tt.want.APIBaseURL, got.APIBaseURL)
			assert.Equal(tt.want.AuthorizeURL, got.AuthorizeURL)
			assert.Equal(tt.want.TokenURL, got.TokenURL)
			assert.Equal(tt.want.Issuer, got.Issuer)
		})
	}
}

func TestNamespace_Endpoints_environments(t *testing.T) {
	t.Parallel()
	for _, member := range []bool{false, true} {
		for _, sandbox := range []bool{false, true} {
			for _, v := range []APIVersion{APIVersion12, APIVersion20} {
				ns := NamespaceFor(member, sandbox)
				e := ns.Endpoints(v)
				for _, raw := range []string{e.Site, e.APIBaseURL, e.AuthorizeURL, e.TokenURL, e.Issuer} {
					u, err := url.Parse(raw)
					assert.NoError(t, err)
					assert.Equal(t, "https", u.Scheme, raw)
					assert.Equalf(t, sandbox, strings.HasSuffix(u.Host, "sandbox.orcid.org"), "%s of %s", raw, ns)
				}
				if member && !sandbox {
					assert.Equal(t, "api.orcid.org", strings.TrimPrefix(e.Site, "https://"))
				}
			}
		}
	}
}

func TestNamespace_Endpoints_unsupportedVersion(t *testing.T) {
	t.Parallel()
	assert.Equal(t, NamespacePublic.Endpoints(DefaultAPIVersion), NamespacePublic.Endpoints("9.9"))
}

func TestEndpoints_ProfileURL(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	assert.Equal("https://pub.orcid.org/v2.0/0000-0002-1825-0097/person", NamespacePublic.Endpoints(APIVersion20).ProfileURL(TestORCID))
	assert.Equal("https://pub.orcid.org/v1.2/0000-0002-1825-0097/orcid-bio", NamespaceProduction.Endpoints(APIVersion12).ProfileURL(TestORCID))

	assert.Equal("https://pub.orcid.org/v2.0/0000-0002-1825-0097/record", NamespacePublic.Endpoints(APIVersion20).RecordURL(TestORCID))
	assert.Equal("https://pub.orcid.org/v1.2/0000-0002-1825-0097/orcid-profile", NamespaceProduction.Endpoints(APIVersion12).RecordURL(TestORCID))

	e := NamespaceSandbox.Endpoints(APIVersion20)
	assert.Equal("https://api.sandbox.orcid.org/v2.0/0000-0002-1825-0097/record", e.ResourceURL(TestORCID, "/record/"))
	assert.Equal("https://api.sandbox.orcid.org/v2.0/0000-0002-1825-0097", e.ResourceURL(TestORCID, ""))
	assert.Equal("https://api.sandbox.orcid.org/v2.0/a%2Fb/works", e.ResourceURL("a/b", "works"))
}

func TestDefaultScope(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	assert.Equal("/authenticate", DefaultScope(false, APIVersion20))
	assert.Equal("/authenticate", DefaultScope(false, APIVersion12))
	assert.Equal("/read-limited /activities/update /person/update", DefaultScope(true, APIVersion20))
	assert.Equal("/orcid-profile/read-limited /orcid-works/create /orcid-bio/external-identifiers/create /affiliations/create /funding/create", DefaultScope(true, APIVersion12))
}
