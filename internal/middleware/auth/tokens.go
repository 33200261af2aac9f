package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	typeAccess  = "access"
	typeRefresh = "refresh"
)

type Claims struct {
	Role string `json:"role"`
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

func sign(username, role, typ string, secret []byte, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		Role: role,
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

func SignAccessToken(username, role string, secret []byte, now time.Time, ttl time.Duration) (string, error) {
	return sign(username, role, typeAccess, secret, now, ttl)
}

func SignRefreshToken(username, role string, secret []byte, now time.Time, ttl time.Duration) (string, error) {
	return sign(username, role, typeRefresh, secret, now, ttl)
}

// ParseAccessToken verifies signature, expiry and token type.
func ParseAccessToken(raw string, secret []byte, now func() time.Time) (*Claims, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signature method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}
	if !t.Valid {
		return nil, errors.New("invalid access token")
	}
	if claims.Type != typeAccess {
		return nil, errors.New("not an access token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}
