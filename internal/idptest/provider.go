// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package idptest provides an in-process OpenID Connect provider which makes
// writing tests of the authorization code flow much easier.
package idptest

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/require"
)

const (
	signingKeyId        = "idptest-key"
	clientAssertionType = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"
)

// UserInfo is the user-info reply of the TestProvider
type UserInfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// issuedCode is what /auth remembers about a code it handed out
type issuedCode struct {
	clientId      string
	redirectUri   string
	codeChallenge string
	nonce         string
}

// cannedResponse overrides an endpoint's reply
type cannedResponse struct {
	status      int
	contentType string
	body        string
}

// TestProvider is a local TLS server implementing the subset of an OpenID
// Connect provider used by the authorization code flow with PKCE:
//
//	/.well-known/openid-configuration
//	/auth
//	/token
//	/me
//	/certs
//
// /auth issues a new code for every valid request and remembers its
// code_challenge and nonce.  /token only accepts that code once, with the
// matching code_verifier, client credentials and redirect_uri.  The id_token
// carries the nonce sent to /auth.
type TestProvider struct {
	httpServer *httptest.Server
	caCert     string
	signingKey *ecdsa.PrivateKey
	jwks       jose.JSONWebKeySet

	mu                  sync.Mutex
	clientId            string
	clientSecret        string
	clientAssertionKey  crypto.PublicKey
	allowedRedirectURIs []string
	expiresIn           int64
	omitRefreshToken    bool
	userInfo            UserInfo
	codes               map[string]issuedCode
	accessTokens        map[string]struct{}
	tokenOverride       *cannedResponse
	userInfoOverride    *cannedResponse
	tokenRequests       []url.Values
	userInfoRequests    int
	nonceOverride       string
}

// StartTestProvider creates a disposable TestProvider which is stopped by the
// test's cleanup.
func StartTestProvider(t testing.TB) *TestProvider {
	t.Helper()
	require := require.New(t)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(err)

	p := &TestProvider{
		signingKey: key,
		jwks: jose.JSONWebKeySet{
			Keys: []jose.JSONWebKey{
				{
					Key:       &key.PublicKey,
					KeyID:     signingKeyId,
					Algorithm: string(jose.ES256),
					Use:       "sig",
				},
			},
		},
		clientId:     "test-client",
		expiresIn:    3600,
		codes:        map[string]issuedCode{},
		accessTokens: map[string]struct{}{},
		userInfo: UserInfo{
			Sub:     "alice@example.com|1234",
			Email:   "alice@example.com",
			Name:    "Alice Doe-Smith",
			Picture: "https://example.com/alice.png",
		},
	}
	p.httpServer = httptest.NewUnstartedServer(p)
	p.httpServer.Config.ErrorLog = log.New(io.Discard, "", 0)
	p.httpServer.StartTLS()
	t.Cleanup(p.httpServer.Close)

	var buf bytes.Buffer
	require.NoError(pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: p.httpServer.Certificate().Raw}))
	p.caCert = buf.String()
	return p
}

// Stop stops the running TestProvider.
func (p *TestProvider) Stop() { p.httpServer.Close() }

// Addr returns the provider's base URL, which is also its issuer.
func (p *TestProvider) Addr() string { return p.httpServer.URL }

// AuthEndpoint returns the authorization endpoint
func (p *TestProvider) AuthEndpoint() string { return p.Addr() + "/auth" }

// TokenEndpoint returns the token endpoint
func (p *TestProvider) TokenEndpoint() string { return p.Addr() + "/token" }

// UserInfoEndpoint returns the user-info endpoint
func (p *TestProvider) UserInfoEndpoint() string { return p.Addr() + "/me" }

// CACert returns the pem-encoded CA certificate of the provider's server.
func (p *TestProvider) CACert() string { return p.caCert }

// HTTPClient returns a client which trusts the provider's certificate.
func (p *TestProvider) HTTPClient() *http.Client { return p.httpServer.Client() }

// SetClientCreds configures the client the provider accepts.  An empty
// secret means a public client.
func (p *TestProvider) SetClientCreds(clientId, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientId = clientId
	p.clientSecret = clientSecret
}

// SetClientAssertionKey makes the provider authenticate the client with a
// private_key_jwt verified by the public key, instead of a client secret.
func (p *TestProvider) SetClientAssertionKey(pub crypto.PublicKey) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientAssertionKey = pub
}

// SetAllowedRedirectURIs configures the redirect URIs the provider accepts.
// When none are configured every redirect URI is accepted.
func (p *TestProvider) SetAllowedRedirectURIs(uris ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowedRedirectURIs = uris
}

// SetExpiresIn configures the expires_in of issued tokens.
func (p *TestProvider) SetExpiresIn(seconds int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expiresIn = seconds
}

// OmitRefreshToken stops /token from returning a refresh_token
func (p *TestProvider) OmitRefreshToken() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitRefreshToken = true
}

// SetUserInfo configures the reply of /me
func (p *TestProvider) SetUserInfo(u UserInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userInfo = u
}

// SetIdTokenNonce forces the nonce claim of issued id_tokens, regardless of
// the nonce sent to /auth.
func (p *TestProvider) SetIdTokenNonce(nonce string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nonceOverride = nonce
}

// SetTokenResponse forces /token to reply with status and body.
func (p *TestProvider) SetTokenResponse(status int, contentType, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenOverride = &cannedResponse{status: status, contentType: contentType, body: body}
}

// SetUserInfoResponse forces /me to reply with status and body.
func (p *TestProvider) SetUserInfoResponse(status int, contentType, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userInfoOverride = &cannedResponse{status: status, contentType: contentType, body: body}
}

// TokenRequests returns the forms posted to /token
func (p *TestProvider) TokenRequests() []url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]url.Values(nil), p.tokenRequests...)
}

// UserInfoRequests returns the number of requests made to /me
func (p *TestProvider) UserInfoRequests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.userInfoRequests
}

// Authorize follows authURL like a browser would and returns the code and
// state the provider redirected back with.
func (p *TestProvider) Authorize(authURL string) (code, state string, err error) {
	c := *p.HTTPClient()
	c.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	resp, err := c.Get(authURL)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		return "", "", fmt.Errorf("unexpected status %d from /auth", resp.StatusCode)
	}
	loc, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		return "", "", err
	}
	q := loc.Query()
	if e := q.Get("error"); e != "" {
		return "", "", fmt.Errorf("authorization error: %s: %s", e, q.Get("error_description"))
	}
	return q.Get("code"), q.Get("state"), nil
}

// ServeHTTP implements the test provider's http.Handler.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch req.URL.Path {
	case "/.well-known/openid-configuration":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		p.writeJSON(w, http.StatusOK, map[string]interface{}{
			"issuer":                                p.Addr(),
			"authorization_endpoint":                p.AuthEndpoint(),
			"token_endpoint":                        p.TokenEndpoint(),
			"userinfo_endpoint":                     p.UserInfoEndpoint(),
			"jwks_uri":                              p.Addr() + "/certs",
			"response_types_supported":              []string{"code"},
			"code_challenge_methods_supported":      []string{"S256"},
			"id_token_signing_alg_values_supported": []string{string(jose.ES256)},
		})
	case "/certs":
		p.writeJSON(w, http.StatusOK, p.jwks)
	case "/auth":
		p.handleAuth(w, req)
	case "/token":
		p.handleToken(w, req)
	case "/me":
		p.handleUserInfo(w, req)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (p *TestProvider) handleAuth(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	qv := req.URL.Query()
	redirectURI := qv.Get("redirect_uri")
	if redirectURI == "" || !p.redirectAllowed(redirectURI) {
		p.writeJSON(w, http.StatusBadRequest, tokenError{Code: "invalid_request", Desc: "redirect_uri is not allowed"})
		return
	}
	switch {
	case qv.Get("client_id") != p.clientId:
		p.writeAuthError(w, req, "unauthorized_client", "unknown client_id")
	case qv.Get("response_type") != "code":
		p.writeAuthError(w, req, "unsupported_response_type", "")
	case !strings.Contains(" "+qv.Get("scope")+" ", " openid "):
		p.writeAuthError(w, req, "invalid_scope", "")
	case qv.Get("state") == "":
		p.writeAuthError(w, req, "invalid_request", "missing state parameter")
	case qv.Get("code_challenge_method") != "S256" || qv.Get("code_challenge") == "":
		p.writeAuthError(w, req, "invalid_request", "S256 code_challenge required")
	default:
		code := randomString()
		p.codes[code] = issuedCode{
			clientId:      qv.Get("client_id"),
			redirectUri:   redirectURI,
			codeChallenge: qv.Get("code_challenge"),
			nonce:         qv.Get("nonce"),
		}
		http.Redirect(w, req, redirectURI+"?code="+url.QueryEscape(code)+"&state="+url.QueryEscape(qv.Get("state")), http.StatusFound)
	}
}

func (p *TestProvider) handleToken(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := req.ParseForm(); err != nil {
		p.writeJSON(w, http.StatusBadRequest, tokenError{Code: "invalid_request", Desc: "unparseable form"})
		return
	}
	p.tokenRequests = append(p.tokenRequests, req.PostForm)
	if o := p.tokenOverride; o != nil {
		p.writeCanned(w, o)
		return
	}
	code := req.PostFormValue("code")
	issued, ok := p.codes[code]
	switch {
	case req.PostFormValue("grant_type") != "authorization_code":
		p.writeJSON(w, http.StatusBadRequest, tokenError{Code: "unsupported_grant_type", Desc: "bad grant_type"})
		return
	case !p.clientAuthenticated(req.PostForm):
		p.writeJSON(w, http.StatusUnauthorized, tokenError{Code: "invalid_client", Desc: "client authentication failed"})
		return
	case !ok:
		p.writeJSON(w, http.StatusBadRequest, tokenError{Code: "invalid_grant", Desc: "unknown or already used code"})
		return
	case req.PostFormValue("redirect_uri") != issued.redirectUri:
		p.writeJSON(w, http.StatusBadRequest, tokenError{Code: "invalid_grant", Desc: "redirect_uri mismatch"})
		return
	case s256(req.PostFormValue("code_verifier")) != issued.codeChallenge:
		p.writeJSON(w, http.StatusBadRequest, tokenError{Code: "invalid_grant", Desc: "PKCE verification failed"})
		return
	}
	delete(p.codes, code)

	nonce := issued.nonce
	if p.nonceOverride != "" {
		nonce = p.nonceOverride
	}
	now := time.Now()
	idToken, err := p.signIdToken(jwt.Claims{
		Issuer:    p.Addr(),
		Subject:   p.userInfo.Sub,
		Audience:  jwt.Audience{p.clientId},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
		Expiry:    jwt.NewNumericDate(now.Add(time.Duration(p.expiresIn) * time.Second)),
	}, map[string]interface{}{"nonce": nonce, "email": p.userInfo.Email})
	if err != nil {
		p.writeJSON(w, http.StatusInternalServerError, tokenError{Code: "server_error", Desc: err.Error()})
		return
	}
	accessToken := randomString()
	p.accessTokens[accessToken] = struct{}{}
	reply := map[string]interface{}{
		"access_token": accessToken,
		"id_token":     idToken,
		"token_type":   "Bearer",
		"expires_in":   p.expiresIn,
		"scope":        "openid profile email",
	}
	if !p.omitRefreshToken {
		reply["refresh_token"] = randomString()
	}
	p.writeJSON(w, http.StatusOK, reply)
}

// clientAuthenticated checks the client_id and either the client_secret or
// the client_assertion of a token request.
func (p *TestProvider) clientAuthenticated(form url.Values) bool {
	if form.Get("client_id") != p.clientId {
		return false
	}
	if p.clientAssertionKey == nil {
		return form.Get("client_secret") == p.clientSecret
	}
	if form.Get("client_secret") != "" || form.Get("client_assertion_type") != clientAssertionType {
		return false
	}
	tok, err := jwt.ParseSigned(form.Get("client_assertion"), []jose.SignatureAlgorithm{jose.RS256, jose.ES256})
	if err != nil {
		return false
	}
	var claims jwt.Claims
	if err := tok.Claims(p.clientAssertionKey, &claims); err != nil {
		return false
	}
	err = claims.Validate(jwt.Expected{
		Issuer:      p.clientId,
		Subject:     p.clientId,
		AnyAudience: jwt.Audience{p.TokenEndpoint()},
		Time:        time.Now(),
	})
	return err == nil && claims.ID != ""
}

func (p *TestProvider) handleUserInfo(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p.userInfoRequests++
	if o := p.userInfoOverride; o != nil {
		p.writeCanned(w, o)
		return
	}
	token := strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer ")
	if _, ok := p.accessTokens[token]; !ok {
		p.writeJSON(w, http.StatusUnauthorized, tokenError{Code: "invalid_token", Desc: "access token is not valid"})
		return
	}
	p.writeJSON(w, http.StatusOK, p.userInfo)
}

func (p *TestProvider) redirectAllowed(uri string) bool {
	if len(p.allowedRedirectURIs) == 0 {
		return true
	}
	for _, u := range p.allowedRedirectURIs {
		if u == uri {
			return true
		}
	}
	return false
}

func (p *TestProvider) signIdToken(claims jwt.Claims, extra map[string]interface{}) (string, error) {
	sig, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.ES256, Key: p.signingKey},
		(&jose.SignerOptions{}).WithType("JWT").WithHeader("kid", signingKeyId),
	)
	if err != nil {
		return "", err
	}
	return jwt.Signed(sig).Claims(claims).Claims(extra).Serialize()
}

type tokenError struct {
	Code string `json:"error"`
	Desc string `json:"error_description,omitempty"`
}

func (p *TestProvider) writeAuthError(w http.ResponseWriter, req *http.Request, errorCode, errorMessage string) {
	qv := req.URL.Query()
	redirectURI := qv.Get("redirect_uri") +
		"?state=" + url.QueryEscape(qv.Get("state")) +
		"&error=" + url.QueryEscape(errorCode)
	if errorMessage != "" {
		redirectURI += "&error_description=" + url.QueryEscape(errorMessage)
	}
	http.Redirect(w, req, redirectURI, http.StatusFound)
}

func (p *TestProvider) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (p *TestProvider) writeCanned(w http.ResponseWriter, c *cannedResponse) {
	if c.contentType != "" {
		w.Header().Set("Content-Type", c.contentType)
	}
	w.WriteHeader(c.status)
	_, _ = io.WriteString(w, c.body)
}

func s256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func randomString() string {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
