// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package orcid

import (
	"errors"
)

var (
	ErrInvalidParameter          = errors.New("invalid parameter")
	ErrNilParameter              = errors.New("nil parameter")
	ErrInvalidCACert             = errors.New("invalid CA certificate")
	ErrUnsupportedAPIVersion     = errors.New("unsupported api version")
	ErrExchangeFailed            = errors.New("token exchange failed")
	ErrMissingUID                = errors.New("orcid is missing from token response")
	ErrMissingIDToken            = errors.New("id_token is missing")
	ErrIDTokenVerificationFailed = errors.New("id_token verification failed")
	ErrProfileFetchFailed        = errors.New("profile fetch failed")
	ErrMalformedProfile          = errors.New("malformed profile")
)
