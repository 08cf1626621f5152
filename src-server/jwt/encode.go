package jwt

import (
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Sign payload with HS256; the token expires after ttl.
func Encode(payload Payload, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims{
		Name:    payload.Name,
		Email:   payload.Email,
		Picture: payload.Picture,
		Role:    payload.Role,
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   payload.UserID,
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
		},
	})

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("can't sign token: %w", err)
	}
	return signed, nil
}
