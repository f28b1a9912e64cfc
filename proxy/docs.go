// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
proxy forwards the two identity provider calls a browser client can't safely
make itself.

* Proxy.ExchangeToken: posts an authorization code and its PKCE code verifier
to the provider's token endpoint, adding the client id and, when configured,
the confidential client secret.  The secret is never accepted from or returned
to the caller.

* Proxy.UserInfo: forwards a bearer access token to the provider's user-info
endpoint.

TokenHandler and UserInfoHandler expose both as http.HandlerFuncs.  The proxy is
stateless: concurrent requests share nothing but the http client.

Provider failures are returned as an *IdPError carrying the provider's status,
its structured error fields when the body is json, and the raw body truncated
to MaxErrorBodyLen characters.  The full body is only logged.
*/
package proxy
