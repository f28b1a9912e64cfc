// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
authflow drives the client side of an OAuth2 authorization code flow with PKCE
against an OpenID Connect provider, using a backend proxy for the two calls
that need the confidential client.

The flow has two entry points connected only through the LoginAttempt kept in
a session.TransientStore, never through memory, since the browser navigation
to the provider and back crosses a process boundary:

	Idle --InitiateLogin--> LoginInitiated --(provider redirect)--> CallbackPending
	CallbackPending --HandleCallback--> Authenticated | Failed

Primary types provided by the package

* Config: the client id, the application origin (the redirect URI is always
origin + "/auth/callback"), the provider's authorization endpoint and the
backend's api base URL.

* Flow: InitiateLogin, HandleCallback, IsAuthenticated, UserInfo, Tokens and
Logout.  Expiry of the durable AuthSession is checked lazily by
IsAuthenticated, there's no timer.

* APIClient: the Backend implementation which talks to the proxy's
/auth/token and /auth/userinfo routes.

* IdTokenVerifier: optional verification of the id_token's signature,
audience and nonce claim.  Without one the nonce is sent to the provider but
never checked.

The http handlers for the login redirect and the callback live in the
authflow/callback package.
*/
package authflow
