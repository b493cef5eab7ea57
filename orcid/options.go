// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package orcid

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

// WithRedirectURL provides an optional redirect URL for: Config and
// Provider.Exchange (where it overrides the config's redirect URL for the
// single exchange, and must match the redirect_uri of the authorization
// request).
func WithRedirectURL(u string) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *configOptions:
			v.withRedirectURL = u
		case *exchangeOptions:
			v.withRedirectURL = u
		}
	}
}
