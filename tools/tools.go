// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

//go:build tools

// Package tools pins the versions of the tools used to work on this module.
// Install them with:
//
//	$ go generate -tags tools ./tools
//
// Source is formatted with gofumpt:
//
//	$ gofumpt -l -w ./orcid ./sdk
package tools

//go:generate go install mvdan.cc/gofumpt

import (
	_ "mvdan.cc/gofumpt"
)
