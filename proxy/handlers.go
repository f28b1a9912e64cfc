// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package proxy

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"
)

const (
	// TokenPath is the route for TokenHandler
	TokenPath = "/api/auth/token"

	// UserInfoPath is the route for UserInfoHandler
	UserInfoPath = "/api/auth/userinfo"

	maxRequestBytes = 64 << 10
)

// ErrorResponse is the json body of every failed proxy response
type ErrorResponse struct {
	Error               string `json:"error"`
	IdPStatus           int    `json:"idp_status,omitempty"`
	IdPError            string `json:"idp_error,omitempty"`
	IdPErrorDescription string `json:"idp_error_description,omitempty"`
	IdPBody             string `json:"idp_body,omitempty"`
}

// Error messages returned by the handlers
const (
	MsgMissingParameters   = "Missing required parameters"
	MsgMissingAuthHeader   = "Missing or invalid authorization header"
	MsgTokenExchangeFailed = "Token exchange failed"
	MsgUserInfoFailed      = "Failed to get user info"
	MsgIdPUnavailable      = "Identity provider unavailable"
	MsgInternal            = "Internal server error"
)

// TokenHandler handles POST TokenPath.  The body may be json or form encoded
// with the fields code, code_verifier and redirect_uri.
func TokenHandler(p *Proxy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := ContextWithRequestId(r.Context(), requestId(w, r))
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSON(w, http.StatusMethodNotAllowed, &ErrorResponse{Error: http.StatusText(http.StatusMethodNotAllowed)})
			return
		}
		tr, err := decodeTokenRequest(w, r)
		if err != nil {
			p.requestLogger(ctx).Debug("unable to decode token request", "error", err)
			writeJSON(w, http.StatusBadRequest, &ErrorResponse{Error: MsgMissingParameters})
			return
		}
		tokens, err := p.ExchangeToken(ctx, tr)
		if err != nil {
			writeError(w, err, MsgTokenExchangeFailed)
			return
		}
		writeRaw(w, http.StatusOK, tokens)
	}
}

// UserInfoHandler handles GET UserInfoPath.  The request must carry an
// "Authorization: Bearer <token>" header.
func UserInfoHandler(p *Proxy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := ContextWithRequestId(r.Context(), requestId(w, r))
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			writeJSON(w, http.StatusMethodNotAllowed, &ErrorResponse{Error: http.StatusText(http.StatusMethodNotAllowed)})
			return
		}
		token, ok := BearerToken(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, &ErrorResponse{Error: MsgMissingAuthHeader})
			return
		}
		info, err := p.UserInfo(ctx, token)
		if err != nil {
			writeError(w, err, MsgUserInfoFailed)
			return
		}
		writeRaw(w, http.StatusOK, info)
	}
}

// BearerToken returns the token of an "Authorization: Bearer <token>" header
func BearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	token := strings.TrimSpace(h[len(prefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

func decodeTokenRequest(w http.ResponseWriter, r *http.Request) (*TokenRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var tr TokenRequest
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		tr.Code = r.PostFormValue("code")
		tr.CodeVerifier = r.PostFormValue("code_verifier")
		tr.RedirectUri = r.PostFormValue("redirect_uri")
	default:
		if err := json.NewDecoder(r.Body).Decode(&tr); err != nil {
			return nil, err
		}
	}
	if err := tr.Validate(); err != nil {
		return nil, err
	}
	return &tr, nil
}

// writeError maps err onto a response.  Provider failures keep the
// provider's status.
func writeError(w http.ResponseWriter, err error, failedMsg string) {
	var idpErr *IdPError
	switch {
	case errors.As(err, &idpErr):
		writeJSON(w, idpErr.Status, &ErrorResponse{
			Error:               failedMsg,
			IdPStatus:           idpErr.Status,
			IdPError:            idpErr.Code,
			IdPErrorDescription: idpErr.Description,
			IdPBody:             idpErr.Body,
		})
	case errors.Is(err, ErrMissingParameter):
		writeJSON(w, http.StatusBadRequest, &ErrorResponse{Error: MsgMissingParameters})
	case errors.Is(err, ErrMissingAuthorizationHeader):
		writeJSON(w, http.StatusUnauthorized, &ErrorResponse{Error: MsgMissingAuthHeader})
	case errors.Is(err, ErrIdPUnavailable), errors.Is(err, ErrInvalidIdPResponse):
		writeJSON(w, http.StatusBadGateway, &ErrorResponse{Error: MsgIdPUnavailable})
	default:
		writeJSON(w, http.StatusInternalServerError, &ErrorResponse{Error: MsgInternal})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, MsgInternal, http.StatusInternalServerError)
		return
	}
	writeRaw(w, status, b)
}

func writeRaw(w http.ResponseWriter, status int, b []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
