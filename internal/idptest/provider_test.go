// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package idptest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRedirectURI = "http://localhost:5173/auth/callback"
	testVerifier    = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
)

func testAuthURL(p *TestProvider, extra url.Values) string {
	q := url.Values{
		"client_id":             {"test-client"},
		"response_type":         {"code"},
		"scope":                 {"openid email"},
		"state":                 {"st"},
		"nonce":                 {"n-1"},
		"redirect_uri":          {testRedirectURI},
		"code_challenge_method": {"S256"},
		"code_challenge":        {s256(testVerifier)},
	}
	for k, v := range extra {
		q[k] = v
	}
	return p.AuthEndpoint() + "?" + q.Encode()
}

func postToken(t *testing.T, p *TestProvider, form url.Values) (int, map[string]interface{}) {
	t.Helper()
	resp, err := p.HTTPClient().PostForm(p.TokenEndpoint(), form)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func tokenForm(code string) url.Values {
	return url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {"test-client"},
		"redirect_uri":  {testRedirectURI},
		"code_verifier": {testVerifier},
	}
}

func TestTestProvider_Discovery(t *testing.T) {
	assert, require := assert.New(t), require.New(t)
	p := StartTestProvider(t)
	resp, err := p.HTTPClient().Get(p.Addr() + "/.well-known/openid-configuration")
	require.NoError(err)
	defer resp.Body.Close()
	var doc map[string]interface{}
	require.NoError(json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(p.Addr(), doc["issuer"])
	assert.Equal(p.TokenEndpoint(), doc["token_endpoint"])
	assert.Equal(p.UserInfoEndpoint(), doc["userinfo_endpoint"])
	assert.True(strings.HasPrefix(p.CACert(), "-----BEGIN CERTIFICATE-----"))
}

func TestTestProvider_Authorize(t *testing.T) {
	t.Run("issues-code", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		p := StartTestProvider(t)
		code, state, err := p.Authorize(testAuthURL(p, nil))
		require.NoError(err)
		assert.NotEmpty(code)
		assert.Equal("st", state)
	})
	t.Run("requires-pkce", func(t *testing.T) {
		require := require.New(t)
		p := StartTestProvider(t)
		_, _, err := p.Authorize(testAuthURL(p, url.Values{"code_challenge_method": {"plain"}}))
		require.ErrorContains(err, "invalid_request")
	})
	t.Run("unknown-client", func(t *testing.T) {
		require := require.New(t)
		p := StartTestProvider(t)
		_, _, err := p.Authorize(testAuthURL(p, url.Values{"client_id": {"someone-else"}}))
		require.ErrorContains(err, "unauthorized_client")
	})
	t.Run("redirect-not-allowed", func(t *testing.T) {
		require := require.New(t)
		p := StartTestProvider(t)
		p.SetAllowedRedirectURIs("https://app.example.com/auth/callback")
		_, _, err := p.Authorize(testAuthURL(p, nil))
		require.Error(err)
	})
}

func TestTestProvider_Token(t *testing.T) {
	t.Run("single-use-code", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		p := StartTestProvider(t)
		code, _, err := p.Authorize(testAuthURL(p, nil))
		require.NoError(err)

		status, body := postToken(t, p, tokenForm(code))
		require.Equal(http.StatusOK, status)
		assert.NotEmpty(body["access_token"])
		assert.NotEmpty(body["refresh_token"])
		assert.EqualValues(3600, body["expires_in"])

		idToken, err := jwt.ParseSigned(body["id_token"].(string), []jose.SignatureAlgorithm{jose.ES256})
		require.NoError(err)
		var claims struct {
			jwt.Claims
			Nonce string `json:"nonce"`
		}
		require.NoError(idToken.Claims(&p.signingKey.PublicKey, &claims))
		assert.Equal("n-1", claims.Nonce)
		assert.Equal(jwt.Audience{"test-client"}, claims.Audience)

		status, body = postToken(t, p, tokenForm(code))
		assert.Equal(http.StatusBadRequest, status)
		assert.Equal("invalid_grant", body["error"])
		assert.Len(p.TokenRequests(), 2)
	})
	t.Run("wrong-verifier", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		p := StartTestProvider(t)
		code, _, err := p.Authorize(testAuthURL(p, nil))
		require.NoError(err)
		form := tokenForm(code)
		form.Set("code_verifier", "not-the-verifier")
		status, body := postToken(t, p, form)
		assert.Equal(http.StatusBadRequest, status)
		assert.Equal("PKCE verification failed", body["error_description"])
	})
	t.Run("client-secret", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		p := StartTestProvider(t)
		p.SetClientCreds("test-client", "s3cr3t")
		code, _, err := p.Authorize(testAuthURL(p, nil))
		require.NoError(err)
		status, body := postToken(t, p, tokenForm(code))
		assert.Equal(http.StatusUnauthorized, status)
		assert.Equal("invalid_client", body["error"])

		form := tokenForm(code)
		form.Set("client_secret", "s3cr3t")
		status, _ = postToken(t, p, form)
		assert.Equal(http.StatusOK, status)
	})
}

func TestTestProvider_ClientAssertion(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	sign := func(t *testing.T, claims jwt.Claims) string {
		t.Helper()
		sig, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.ES256, Key: key}, (&jose.SignerOptions{}).WithType("JWT"))
		require.NoError(t, err)
		token, err := jwt.Signed(sig).Claims(claims).Serialize()
		require.NoError(t, err)
		return token
	}

	p := StartTestProvider(t)
	p.SetClientAssertionKey(&key.PublicKey)
	now := time.Now()
	valid := jwt.Claims{
		Issuer:   "test-client",
		Subject:  "test-client",
		Audience: jwt.Audience{p.TokenEndpoint()},
		Expiry:   jwt.NewNumericDate(now.Add(time.Minute)),
		IssuedAt: jwt.NewNumericDate(now),
		ID:       "jti-1",
	}
	wrongAudience := valid
	wrongAudience.Audience = jwt.Audience{"https://elsewhere.example.com/token"}
	expired := valid
	expired.Expiry = jwt.NewNumericDate(now.Add(-time.Hour))
	noId := valid
	noId.ID = ""

	tests := []struct {
		name       string
		assertion  string
		typ        string
		wantStatus int
	}{
		{"valid", sign(t, valid), clientAssertionType, http.StatusOK},
		{"wrong-audience", sign(t, wrongAudience), clientAssertionType, http.StatusUnauthorized},
		{"expired", sign(t, expired), clientAssertionType, http.StatusUnauthorized},
		{"no-jti", sign(t, noId), clientAssertionType, http.StatusUnauthorized},
		{"wrong-type", sign(t, valid), "urn:example:other", http.StatusUnauthorized},
		{"garbage", "not.a.jwt", clientAssertionType, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			code, _, err := p.Authorize(testAuthURL(p, nil))
			require.NoError(err)
			form := tokenForm(code)
			form.Set("client_assertion_type", tt.typ)
			form.Set("client_assertion", tt.assertion)
			status, _ := postToken(t, p, form)
			assert.Equal(tt.wantStatus, status)
		})
	}
}
