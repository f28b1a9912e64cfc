// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package proxy

import (
	"context"
	"net/http"

	"github.com/hashicorp/go-uuid"
)

// RequestIdHeader carries the id used to correlate a request with the proxy's
// logs
const RequestIdHeader = "X-Request-Id"

type requestIdKey struct{}

// ContextWithRequestId returns a context carrying the request id
func ContextWithRequestId(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIdKey{}, id)
}

// RequestIdFromContext returns the request id, or an empty string
func RequestIdFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIdKey{}).(string)
	return id
}

// requestId uses the inbound RequestIdHeader or generates a new id, and echoes
// it on the response.
func requestId(w http.ResponseWriter, r *http.Request) string {
	id := r.Header.Get(RequestIdHeader)
	if id == "" || len(id) > 128 {
		var err error
		if id, err = uuid.GenerateUUID(); err != nil {
			return ""
		}
	}
	w.Header().Set(RequestIdHeader, id)
	return id
}
