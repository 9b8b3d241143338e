package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// sessionTokenBytes is the entropy of a session token (256 bits).
const sessionTokenBytes = 32

const unknownLocationPart = "unknown"

// GenerateSessionToken returns a new random session token, hex encoded.
func GenerateSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// SessionLocation builds the location fingerprint used to group sessions of one device.
// It is not a security boundary.
func SessionLocation(ip, clientID string) string {
	if ip == "" {
		ip = unknownLocationPart
	}
	if clientID == "" {
		clientID = unknownLocationPart
	}
	return ip + ":" + clientID
}

// tokenPrefix shortens a token for logs.
func tokenPrefix(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8]
}
