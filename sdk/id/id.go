// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package id

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-uuid"
)

// Len is the length of an id without its prefix.
const Len = 32

// New generates a random, URL safe ID with an optional prefix. The ID carries
// 128 bits of randomness, which makes it suitable for an OAuth state value or
// a session id.
func New(optionalPrefix string) (string, error) {
	const op = "id.New"
	u, err := uuid.GenerateUUID()
	if err != nil {
		return "", fmt.Errorf("%s: unable to generate id: %w", op, err)
	}
	id := strings.ReplaceAll(u, "-", "")
	switch {
	case optionalPrefix != "":
		return fmt.Sprintf("%s_%s", optionalPrefix, id), nil
	default:
		return id, nil
	}
}
