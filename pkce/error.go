// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package pkce

import "errors"

var (
	ErrInvalidParameter           = errors.New("invalid parameter")
	ErrEntropySourceUnavailable   = errors.New("entropy source unavailable")
	ErrUnsupportedChallengeMethod = errors.New("unsupported PKCE challenge method")
)
