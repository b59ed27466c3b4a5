/*
 * Copyright 2026 The CanvasAI Collab Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package auth verifies the participant tokens presented on join.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/canvasai/collab/api/types"
	"github.com/canvasai/collab/pkg/cache"
	"github.com/canvasai/collab/pkg/errors"
)

var (
	// ErrUnexpectedSigningMethod is returned when the signing method is unexpected.
	ErrUnexpectedSigningMethod = fmt.Errorf("unexpected signing method")

	// ErrInvalidToken is returned when the token can not be verified.
	ErrInvalidToken = errors.Unauthenticated("invalid token").WithCode("ErrInvalidToken")

	// ErrMissingUserID is returned when the token does not name a user.
	ErrMissingUserID = errors.Unauthenticated("token has no user id").WithCode("ErrMissingUserID")
)

// Verifier verifies tokens and returns the identity they carry.
type Verifier interface {
	Verify(ctx context.Context, token string) (*types.Identity, error)
}

// UserClaims is a JWT claims struct for a user.
type UserClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 tokens. Verified tokens are cached
// until they expire from the cache.
type TokenManager struct {
	secretKey     []byte
	issuer        string
	tokenDuration time.Duration
	cache         *cache.LRUWithExpires[string, *types.Identity]
	now           func() time.Time
}

// NewTokenManager creates a new TokenManager.
func NewTokenManager(conf *Config) (*TokenManager, error) {
	identities, err := cache.NewLRUWithExpires[string, *types.Identity](
		conf.CacheSize,
		conf.ParseCacheTTL(),
		"auth",
	)
	if err != nil {
		return nil, fmt.Errorf("initialize token cache: %w", err)
	}

	return &TokenManager{
		secretKey:     []byte(conf.Secret),
		issuer:        conf.Issuer,
		tokenDuration: conf.ParseTokenDuration(),
		cache:         identities,
		now:           time.Now,
	}, nil
}

// Generate generates a new token for the user.
func (m *TokenManager) Generate(identity *types.Identity) (string, error) {
	now := m.now()
	claims := UserClaims{
		UserID: identity.UserID,
		Email:  identity.Email,
		Name:   identity.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    m.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signedToken, nil
}

// Verify verifies the given token and returns the identity it carries.
func (m *TokenManager) Verify(_ context.Context, token string) (*types.Identity, error) {
	if identity, ok := m.cache.Get(token); ok {
		return identity, nil
	}

	claims := &UserClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		_, ok := token.Method.(*jwt.SigningMethodHMAC)
		if !ok {
			return nil, fmt.Errorf("%s: %w", token.Method.Alg(), ErrUnexpectedSigningMethod)
		}
		return m.secretKey, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %s: %w", err.Error(), ErrInvalidToken)
	}

	if claims.UserID == "" {
		return nil, ErrMissingUserID
	}

	identity := &types.Identity{
		UserID: claims.UserID,
		Email:  claims.Email,
		Name:   claims.Name,
	}
	m.cache.Add(token, identity)
	return identity, nil
}

// CacheStats returns the statistics of the verification cache.
func (m *TokenManager) CacheStats() *cache.Stats {
	return m.cache.Stats()
}
