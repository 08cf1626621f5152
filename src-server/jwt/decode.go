package jwt

import (
	"fmt"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Verify an HS256 token and return its identity. Expired tokens and tokens
// signed with any other method are rejected.
func Decode(token string, secret string) (*Payload, error) {
	parsed := new(claims)
	if _, err := gojwt.ParseWithClaims(token, parsed, func(*gojwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()})); err != nil {
		return nil, fmt.Errorf("can't parse token: %w", err)
	}
	if parsed.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	return &Payload{
		UserID:  parsed.Subject,
		Name:    parsed.Name,
		Email:   parsed.Email,
		Picture: parsed.Picture,
		Role:    parsed.Role,
	}, nil
}
