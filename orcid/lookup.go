// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package orcid

import (
	jmespath "github.com/jmespath-community/go-jmespath"
)

// The lookup helpers traverse a decoded ORCID response with a JMESPath
// expression. A missing key, a null, or a value of the wrong type anywhere on
// the path yields nil (or an empty slice); they never return an error.

func search(data interface{}, expr string) interface{} {
	if data == nil {
		return nil
	}
	v, err := jmespath.Search(expr, data)
	if err != nil {
		return nil
	}
	return v
}

// lookupString returns the string at expr, or nil.
func lookupString(data interface{}, expr string) *string {
	s, ok := search(data, expr).(string)
	if !ok {
		return nil
	}
	return &s
}

// lookupList returns the list at expr, or an empty list.
func lookupList(data interface{}, expr string) []interface{} {
	l, ok := search(data, expr).([]interface{})
	if !ok {
		return []interface{}{}
	}
	return l
}

// lookupStrings returns the strings of the list at expr. Entries which are
// not strings are skipped. It never returns nil.
func lookupStrings(data interface{}, expr string) []string {
	l := lookupList(data, expr)
	out := make([]string, 0, len(l))
	for _, v := range l {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// asProfile converts the decoded JSON value into a nil-safe document for the
// lookup helpers.
func asProfile(p Profile) interface{} {
	if p == nil {
		return nil
	}
	return map[string]interface{}(p)
}
