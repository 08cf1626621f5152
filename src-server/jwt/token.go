package jwt

import (
	gojwt "github.com/golang-jwt/jwt/v5"
)

// Identity issued by the identity provider.
type Payload struct {
	UserID  string `json:"sub"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture,omitempty"`
	Role    string `json:"role"`
}

type claims struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture,omitempty"`
	Role    string `json:"role"`
	gojwt.RegisteredClaims
}
