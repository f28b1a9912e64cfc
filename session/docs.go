// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
session holds the client side state of an authorization code flow.

There are two independent scopes:

* Transient: the LoginAttempt (code verifier, challenge, state and nonce) for
the one login that's in flight.  A new Put overwrites any prior attempt and
TakeAndClear hands it out exactly once.

* Durable: the AuthSession (tokens and their expiry) for the authenticated
user.  Load never applies expiry, that's left to the caller.

The scopes never share keys, so clearing one never affects the other.
MemoryStore and FileStore implement both.
*/
package session
