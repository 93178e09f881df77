package models

import (
	"github.com/golang-jwt/jwt/v4"
)

type User struct {
	UserID  string `json:"userId"`
	AppleID string `json:"appleId,omitempty"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
}

// SessionClaims is the payload carried by the opaque session token. The
// client only ever reads it to surface expiry; validation stays server-side.
type SessionClaims struct {
	UserID  string `json:"userId"`
	AppleID string `json:"appleId"`
	jwt.RegisteredClaims
}
