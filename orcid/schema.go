// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package orcid

import "fmt"

// SchemaAdapter maps a raw ORCID API response into a RawInfo. Adapters
// tolerate any part of the response being absent, null or empty.
type SchemaAdapter interface {
	Normalize(p Profile) RawInfo
}

var schemaAdapters = map[APIVersion]SchemaAdapter{
	APIVersion12: v12Schema{},
	APIVersion20: v20Schema{},
}

// AdapterFor returns the SchemaAdapter for an API version.
func AdapterFor(v APIVersion) (SchemaAdapter, error) {
	const op = "orcid.AdapterFor"
	a, ok := schemaAdapters[v]
	if !ok {
		return nil, fmt.Errorf("%s: %q: %w", op, v, ErrUnsupportedAPIVersion)
	}
	return a, nil
}

// researcherURLs builds one ResearcherURL per entry of the list at listExpr.
func researcherURLs(doc interface{}, listExpr, labelExpr, urlExpr string) []ResearcherURL {
	entries := lookupList(doc, listExpr)
	urls := make([]ResearcherURL, 0, len(entries))
	for _, e := range entries {
		urls = append(urls, ResearcherURL{
			Label: lookupString(e, labelExpr),
			URL:   lookupString(e, urlExpr),
		})
	}
	return urls
}

// externalIdentifiers builds one ExternalIdentifier per entry of the list at
// listExpr.
func externalIdentifiers(doc interface{}, listExpr, typeExpr, valueExpr, urlExpr string) []ExternalIdentifier {
	entries := lookupList(doc, listExpr)
	ids := make([]ExternalIdentifier, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, ExternalIdentifier{
			Type:  lookupString(e, typeExpr),
			Value: lookupString(e, valueExpr),
			URL:   lookupString(e, urlExpr),
		})
	}
	return ids
}
