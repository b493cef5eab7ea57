// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package orcid

// v20Schema normalizes the v2.0 /{orcid}/person resource.
type v20Schema struct{}

var _ SchemaAdapter = v20Schema{}

func (v20Schema) Normalize(p Profile) RawInfo {
	doc := asProfile(p)
	return RawInfo{
		Name:        lookupString(doc, `name."credit-name".value`),
		FirstName:   lookupString(doc, `name."given-names".value`),
		LastName:    lookupString(doc, `name."family-name".value`),
		OtherNames:  lookupStrings(doc, `"other-names"."other-name"[].content`),
		Description: lookupString(doc, `biography.content`),
		Location:    lookupString(doc, `addresses.address[0].country.value`),
		// list order, ORCID doesn't promise one
		Email: lookupString(doc, "emails.email[?verified == `true` && primary == `true`] | [0].email"),
		URLs: researcherURLs(doc,
			`"researcher-urls"."researcher-url"`,
			`"url-name"`,
			`url.value`,
		),
		ExternalIdentifiers: externalIdentifiers(doc,
			`"external-identifiers"."external-identifier"`,
			`"external-id-type"`,
			`"external-id-value"`,
			`"external-id-url".value`,
		),
	}
}
