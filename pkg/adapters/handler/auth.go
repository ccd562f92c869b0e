package handler

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthCookieName is the cookie the admin middleware accepts besides a bearer token.
const AuthCookieName = "auth_token"

// IssueAdminToken signs an HS256 token for the admin API.
func IssueAdminToken(secret []byte, subject string, ttl time.Duration) (string, time.Time, error) {
	if len(secret) == 0 {
		return "", time.Time{}, errors.New("jwt secret is empty")
	}

	expirationTime := time.Now().Add(ttl)
	claims := &jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expirationTime),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expirationTime, nil
}
