// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package orcid

// v12Schema normalizes the v1.2 /{orcid}/orcid-bio resource.
type v12Schema struct{}

var _ SchemaAdapter = v12Schema{}

func (v12Schema) Normalize(p Profile) RawInfo {
	bio := search(asProfile(p), `"orcid-profile"."orcid-bio"`)
	return RawInfo{
		Name:        lookupString(bio, `"personal-details"."credit-name".value`),
		FirstName:   lookupString(bio, `"personal-details"."given-names".value`),
		LastName:    lookupString(bio, `"personal-details"."family-name".value`),
		OtherNames:  lookupStrings(bio, `"personal-details"."other-names"."other-name"[].value`),
		Description: lookupString(bio, `biography.value`),
		Location:    lookupString(bio, `"contact-details".address.country.value`),
		Email:       lookupString(bio, "\"contact-details\".email[?visibility == 'PUBLIC' && verified == `true`] | [0].value"),
		URLs: researcherURLs(bio,
			`"researcher-urls"."researcher-url"`,
			`"url-name".value`,
			`url.value`,
		),
		ExternalIdentifiers: externalIdentifiers(bio,
			`"external-identifiers"."external-identifier"`,
			`"external-id-common-name".value`,
			`"external-id-reference".value`,
			`"external-id-url".value`,
		),
	}
}
