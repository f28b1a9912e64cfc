// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package proxy

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/hashicorp/go-uuid"
)

// ClientAssertionType is the client_assertion_type of a private_key_jwt.
// See: https://www.rfc-editor.org/rfc/rfc7523.html#section-2.2
const ClientAssertionType = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"

// clientAssertionTTL is the lifetime of each signed assertion
const clientAssertionTTL = 5 * time.Minute

// PrivateKeyPEM is a PEM encoded private key.  It's redacted when printed or
// marshaled.
type PrivateKeyPEM string

// RedactedPrivateKey is the redacted string or json for a private key
const RedactedPrivateKey = "[REDACTED: private key]"

// String will redact the private key
func (k PrivateKeyPEM) String() string {
	return RedactedPrivateKey
}

// MarshalJSON will redact the private key
func (k PrivateKeyPEM) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedPrivateKey)
}

// ClientAssertion signs the JWTs a confidential client authenticates to the
// token endpoint with, instead of sending a client secret (private_key_jwt).
type ClientAssertion struct {
	clientId string
	audience string
	signer   jose.Signer

	// overwritten by tests
	genId func() (string, error)
	now   func() time.Time
}

// NewClientAssertion creates a ClientAssertion for the client, whose
// assertions are addressed to the token endpoint.  RSA keys sign with RS256
// and P-256 keys with ES256.  The keyId is optional.
func NewClientAssertion(clientId, tokenEndpoint string, key PrivateKeyPEM, keyId string) (*ClientAssertion, error) {
	const op = "proxy.NewClientAssertion"
	switch {
	case clientId == "":
		return nil, fmt.Errorf("%s: client id is empty: %w", op, ErrInvalidParameter)
	case tokenEndpoint == "":
		return nil, fmt.Errorf("%s: token endpoint is empty: %w", op, ErrInvalidParameter)
	}
	signingKey, alg, err := parsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sOpts := (&jose.SignerOptions{}).WithType("JWT")
	if keyId != "" {
		sOpts = sOpts.WithHeader(jose.HeaderKey("kid"), keyId)
	}
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: alg, Key: signingKey}, sOpts)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create signer: %w: %w", op, ErrInvalidParameter, err)
	}
	return &ClientAssertion{
		clientId: clientId,
		audience: tokenEndpoint,
		signer:   signer,
		genId:    uuid.GenerateUUID,
		now:      time.Now,
	}, nil
}

// Serialize returns a newly signed assertion.  Each one has a unique jti, so
// it's used for a single token request.
func (a *ClientAssertion) Serialize() (string, error) {
	const op = "proxy.(ClientAssertion).Serialize"
	id, err := a.genId()
	if err != nil {
		return "", fmt.Errorf("%s: unable to generate jti: %w", op, err)
	}
	now := a.now().UTC()
	token, err := jwt.Signed(a.signer).Claims(&jwt.Claims{
		Issuer:    a.clientId,
		Subject:   a.clientId,
		Audience:  jwt.Audience{a.audience},
		Expiry:    jwt.NewNumericDate(now.Add(clientAssertionTTL)),
		NotBefore: jwt.NewNumericDate(now.Add(-1 * time.Second)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        id,
	}).Serialize()
	if err != nil {
		return "", fmt.Errorf("%s: unable to sign assertion: %w", op, err)
	}
	return token, nil
}

func parsePrivateKey(key PrivateKeyPEM) (crypto.Signer, jose.SignatureAlgorithm, error) {
	block, _ := pem.Decode([]byte(key))
	if block == nil {
		return nil, "", fmt.Errorf("client assertion key is not PEM encoded: %w", ErrInvalidParameter)
	}
	var parsed interface{}
	var err error
	switch block.Type {
	case "RSA PRIVATE KEY":
		parsed, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		parsed, err = x509.ParseECPrivateKey(block.Bytes)
	default:
		parsed, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	}
	if err != nil {
		return nil, "", fmt.Errorf("unable to parse client assertion key: %w: %w", ErrInvalidParameter, err)
	}
	switch k := parsed.(type) {
	case *rsa.PrivateKey:
		return k, jose.RS256, nil
	case *ecdsa.PrivateKey:
		if k.Curve != elliptic.P256() {
			return nil, "", fmt.Errorf("client assertion key curve %s is not P-256: %w", k.Curve.Params().Name, ErrInvalidParameter)
		}
		return k, jose.ES256, nil
	default:
		return nil, "", fmt.Errorf("client assertion key type %T is not supported: %w", parsed, ErrInvalidParameter)
	}
}
