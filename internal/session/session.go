package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the authenticated visitor, passed explicitly to whatever needs it.
type Session struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
	Name   string `json:"name,omitempty"`
}

var userIDClaims = []string{"id", "userId", "user_id", "sub"}

// Valid reports whether the token is present and, when it is a JWT with an
// expiry, not yet expired. Signatures are the backend's concern.
func (s Session) Valid(now time.Time) bool {
	if s.Token == "" {
		return false
	}

	claims, ok := parseClaims(s.Token)
	if !ok {
		return true
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}

	return now.Before(exp.Time)
}

// IsHost compares the stored user id with the room's host id.
func (s Session) IsHost(hostID string) bool {
	return s.UserID != "" && s.UserID == hostID
}

func (s Session) AuthHeader() string {
	if s.Token == "" {
		return ""
	}
	return "Bearer " + s.Token
}

// WithTokenClaims fills UserID from the token when it is missing.
func (s Session) WithTokenClaims() Session {
	if s.UserID != "" {
		return s
	}

	claims, ok := parseClaims(s.Token)
	if !ok {
		return s
	}

	for _, key := range userIDClaims {
		if v, ok := claims[key].(string); ok && v != "" {
			s.UserID = v
			return s
		}
	}

	return s
}

func parseClaims(token string) (jwt.MapClaims, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, false
	}
	return claims, true
}
