// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
pkce generates the one-time secrets used by an OAuth2 authorization code flow
with Proof Key for Code Exchange (RFC 7636).

Primary functions and types provided by the package

* NewRandomToken: a URL safe, unpadded base64 encoding of n cryptographically
random bytes.  It's used for code verifiers, oauth state and oidc nonces.

* CreateCodeChallenge: derives the code_challenge for a code verifier.  Only
the S256 method is supported.

* S256Verifier: a code verifier paired with its S256 challenge.

There's no fallback to a weaker random source.  When the platform cannot supply
secure randomness every generator fails with ErrEntropySourceUnavailable.
*/
package pkce
