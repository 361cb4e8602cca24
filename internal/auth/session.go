package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// SessionCookieName is the cookie carrying the raw session token.
const SessionCookieName = "session_token"

// GenerateSessionToken generates a cryptographically secure random token
func GenerateSessionToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// HashToken returns the value stored in sessions.token_hash.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// SessionPolicy decides how long sessions live.
type SessionPolicy struct {
	TTL         time.Duration // plain login, browser-session cookie
	RememberTTL time.Duration // "remember me", persistent cookie
}

// Expiry returns the server-side expiry of a session created at now.
func (p SessionPolicy) Expiry(now time.Time, remember bool) time.Time {
	if remember {
		return now.Add(p.RememberTTL)
	}
	return now.Add(p.TTL)
}

// CookieMaxAge is the cookie lifetime in seconds; 0 makes a browser-session cookie.
func (p SessionPolicy) CookieMaxAge(remember bool) int {
	if remember {
		return int(p.RememberTTL.Seconds())
	}
	return 0
}
