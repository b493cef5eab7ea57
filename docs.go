// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// caporcid provides an ORCID sign in strategy: the endpoints of ORCID's four
// deployments, the authorization request parameters, the code exchange and a
// person's normalized identity read from the ORCID API.
//
// See the orcid package, and orcid/examples/demo for a web application using
// it.
package caporcid
