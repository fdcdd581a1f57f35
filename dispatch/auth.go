// Optional CREATE_RUNTIME.authToken verification (SPEC_FULL §6/§11): absent
// a secret key configured, the daemon runs unauthenticated, matching a
// loopback/UDS deployment; once configured, every CREATE_RUNTIME must carry
// a token signed with that key.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package dispatch

import (
	"fmt"

	"github.com/golang-jwt/jwt/v4"
)

// Authenticator verifies a CREATE_RUNTIME.authToken against a shared
// secret using HMAC.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	if secret == "" {
		return nil
	}
	return &Authenticator{secret: []byte(secret)}
}

// Verify parses and validates token, returning the claims on success. A
// nil Authenticator (no secret configured) means auth is disabled, and
// callers should not call Verify in that case.
func (a *Authenticator) Verify(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("invalid auth token")
	}
	return claims, nil
}

// Sign produces a token for claims, used only by tests and the example
// daemon's admin tooling.
func (a *Authenticator) Sign(claims jwt.MapClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}
