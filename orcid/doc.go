// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
orcid is a package for authenticating people against ORCID using the OAuth 2.0
authorization code flow, and for normalizing their ORCID record into a stable
identity.

Primary types provided by the package

* Config: the deployment configuration (client credentials, the member and
sandbox flags, the authorization parameter whitelist, the ORCID API version,
timeouts, etc).

* Namespace and Endpoints: the ORCID deployment selected by the member and
sandbox flags and its site, API base, authorize and token URLs.

* Provider: configures golang.org/x/oauth2 for ORCID. It builds
authorization parameters and URLs, exchanges authorization codes for tokens,
optionally verifies OpenID Connect id_tokens, and makes authenticated ORCID
API requests.

* Token: the result of a code exchange. ORCID returns the person's ORCID iD
and name as token response parameters.

* Session: one login. It lazily fetches the person's public profile once and
caches the normalized Info, RawInfo and Extra for its lifetime.

* SchemaAdapter: maps a raw ORCID API response (v1.2 or v2.0) into RawInfo.

Profile enrichment never fails a login: when the profile can't be fetched the
session's Info and RawInfo are sparse, UID remains available and ProfileErr
reports why.
*/
package orcid
