// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
server is the backend's http surface.  It mounts the proxy's token and
user-info handlers next to a few informational routes:

	GET  /health              liveness, uptime and environment
	GET  /                    hello message
	GET  /api/info            api description
	POST /api/auth/token      proxy.TokenHandler
	GET  /api/auth/userinfo   proxy.UserInfoHandler

Every route is wrapped in CORS handling (github.com/rs/cors) and request
logging.
*/
package server
