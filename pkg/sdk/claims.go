package sdk

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the claims carried by backend access tokens.
type TokenClaims struct {
	Role      string `json:"role"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// InspectToken decodes the claims of an access token without verifying its
// signature. It is for display only; the backend remains the authority on
// token validity.
func InspectToken(accessToken string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil, fmt.Errorf("failed to decode access token: %w", err)
	}
	return claims, nil
}
