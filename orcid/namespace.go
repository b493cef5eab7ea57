// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package orcid

import (
	"fmt"
	"net/url"
	"strings"
)

// Namespace identifies one of the four ORCID deployments.
type Namespace string

const (
	NamespacePublic        Namespace = "public"
	NamespacePublicSandbox Namespace = "public_sandbox"
	NamespaceProduction    Namespace = "production"
	NamespaceSandbox       Namespace = "sandbox"
)

// NamespaceFor returns the namespace selected by the member and sandbox
// deployment flags.
func NamespaceFor(member, sandbox bool) Namespace {
	switch {
	case member && sandbox:
		return NamespaceSandbox
	case member:
		return NamespaceProduction
	case sandbox:
		return NamespacePublicSandbox
	default:
		return NamespacePublic
	}
}

// IsSandbox reports whether the namespace talks to sandbox.orcid.org.
func (n Namespace) IsSandbox() bool {
	return n == NamespaceSandbox || n == NamespacePublicSandbox
}

// IsMember reports whether the namespace uses the member API.
func (n Namespace) IsMember() bool {
	return n == NamespaceSandbox || n == NamespaceProduction
}

// APIVersion is a version of the ORCID API.
type APIVersion string

const (
	APIVersion12 APIVersion = "1.2"
	APIVersion20 APIVersion = "2.0"

	// DefaultAPIVersion is used when a Config doesn't specify one.
	DefaultAPIVersion = APIVersion20
)

// apiResources names the resources of a version's person record: profile is
// what SchemaAdapters normalize, record is the whole record.
type apiResources struct {
	profile string
	record  string
}

var supportedAPIVersions = map[APIVersion]apiResources{
	APIVersion12: {profile: "orcid-bio", record: "orcid-profile"},
	APIVersion20: {profile: "person", record: "record"},
}

// Supported reports whether the package can talk to this API version.
func (v APIVersion) Supported() bool {
	_, ok := supportedAPIVersions[v]
	return ok
}

// Scopes requested when the caller doesn't ask for one.
const (
	ScopeAuthenticate = "/authenticate"
	ScopeMember       = "/read-limited /activities/update /person/update"
	ScopeMemberV12    = "/orcid-profile/read-limited /orcid-works/create /orcid-bio/external-identifiers/create /affiliations/create /funding/create"
	ScopeOpenID       = "openid"
)

// DefaultScope returns the space separated scope requested by default.
func DefaultScope(member bool, v APIVersion) string {
	switch {
	case !member:
		return ScopeAuthenticate
	case v == APIVersion12:
		return ScopeMemberV12
	default:
		return ScopeMember
	}
}

// Endpoints is the set of ORCID URLs for one namespace and API version. The
// URLs always belong to the same environment: sandbox and production hosts
// are never mixed.
type Endpoints struct {
	Site         string
	APIBaseURL   string
	AuthorizeURL string
	TokenURL     string

	// Issuer is the OpenID Connect issuer for the environment.
	Issuer string

	resources apiResources
}

const (
	productionHost = "orcid.org"
	sandboxHost    = "sandbox.orcid.org"
)

// Endpoints returns the endpoint set for the namespace and API version. An
// unsupported version resolves to the DefaultAPIVersion endpoints.
func (n Namespace) Endpoints(v APIVersion) Endpoints {
	if !v.Supported() {
		v = DefaultAPIVersion
	}
	host := productionHost
	if n.IsSandbox() {
		host = sandboxHost
	}
	apiPrefix := "pub."
	if n.IsMember() {
		apiPrefix = "api."
	}
	site := "https://" + apiPrefix + host
	publicSite := "https://pub." + host

	e := Endpoints{
		Site:         site,
		AuthorizeURL: "https://" + host + "/oauth/authorize",
		Issuer:       "https://" + host,
		resources:    supportedAPIVersions[v],
	}
	switch v {
	case APIVersion12:
		// v1.2 hands out tokens on the API host and reads from the public API
		e.APIBaseURL = publicSite + "/v" + string(v)
		e.TokenURL = site + "/oauth/token"
	default:
		e.APIBaseURL = site + "/v" + string(v)
		e.TokenURL = "https://" + host + "/oauth/token"
	}
	return e
}

// ProfileURL returns the URL of the person resource normalized into RawInfo.
func (e Endpoints) ProfileURL(uid string) string {
	return e.ResourceURL(uid, e.resources.profile)
}

// RecordURL returns the URL of the person's whole record: "record" in v2.0,
// "orcid-profile" in v1.2.
func (e Endpoints) RecordURL(uid string) string {
	return e.ResourceURL(uid, e.resources.record)
}

// ResourceURL returns the URL of a resource below the person's record, for
// example "record" or "works".
func (e Endpoints) ResourceURL(uid, resource string) string {
	u := fmt.Sprintf("%s/%s", strings.TrimSuffix(e.APIBaseURL, "/"), url.PathEscape(uid))
	if resource = strings.Trim(resource, "/"); resource != "" {
		u += "/" + resource
	}
	return u
}
