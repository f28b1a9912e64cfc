// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// onboarding provides the packages behind the onboarding login: an OAuth 2.0
// authorization code flow with PKCE, run by a public client, whose token
// exchange is finished by a small backend proxy holding the client's
// credentials.
//
//   - pkce: code verifiers, challenges, state and nonce values
//   - session: the transient login attempt and the durable auth session stores
//   - authflow: the client orchestrator (InitiateLogin, HandleCallback,
//     IsAuthenticated, UserInfo, Logout)
//   - authflow/callback: http.HandlerFunc factories for the login redirect and
//     the callback
//   - proxy: the token exchange and user-info proxy to the identity provider
//   - server: the backend HTTP server
//
// The onboarding command (cmd/onboarding) runs the backend with "serve" and
// the client with "login", "whoami" and "logout".
package onboarding
