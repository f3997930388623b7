// internal/auth/auth.go
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Corphon/LocalVoice/internal/models"
)

// TokenConfig holds the configuration for token generation
type TokenConfig struct {
	Secret     []byte
	Expiration time.Duration
	// Now defaults to time.Now; tests pin it.
	Now func() time.Time
}

func (c *TokenConfig) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Token represents an authentication token
type Token struct {
	UserID    string `json:"user_id"`
	ExpiresAt int64  `json:"expires_at"`
	IssuedAt  int64  `json:"issued_at"`
}

// GenerateToken creates a new authentication token
func GenerateToken(userID string, config *TokenConfig) (string, error) {
	if len(config.Secret) == 0 {
		return "", fmt.Errorf("secret key is required")
	}
	if userID == "" || strings.Contains(userID, "|") {
		return "", fmt.Errorf("invalid user id %q", userID)
	}

	now := config.now()
	payload := fmt.Sprintf("%s|%d|%d", userID, now.Add(config.Expiration).Unix(), now.Unix())

	encodedPayload := base64.URLEncoding.EncodeToString([]byte(payload))
	encodedSignature := base64.URLEncoding.EncodeToString(sign([]byte(payload), config.Secret))

	return encodedPayload + "." + encodedSignature, nil
}

// ParseToken parses and validates a token
func ParseToken(tokenString string, config *TokenConfig) (*Token, error) {
	if len(config.Secret) == 0 {
		return nil, fmt.Errorf("secret key is required")
	}

	parts := strings.Split(tokenString, ".")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid token format")
	}

	payloadBytes, err := base64.URLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid token payload: %w", err)
	}

	signatureBytes, err := base64.URLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid token signature: %w", err)
	}

	if !hmac.Equal(signatureBytes, sign(payloadBytes, config.Secret)) {
		return nil, fmt.Errorf("invalid token signature")
	}

	payloadParts := strings.Split(string(payloadBytes), "|")
	if len(payloadParts) != 3 || payloadParts[0] == "" {
		return nil, fmt.Errorf("invalid payload format")
	}

	expiresAt, err := strconv.ParseInt(payloadParts[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid expiry: %w", err)
	}
	issuedAt, err := strconv.ParseInt(payloadParts[2], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid issue time: %w", err)
	}

	if config.now().Unix() > expiresAt {
		return nil, fmt.Errorf("token has expired")
	}

	return &Token{
		UserID:    payloadParts[0],
		ExpiresAt: expiresAt,
		IssuedAt:  issuedAt,
	}, nil
}

func sign(payload, secret []byte) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write(payload)
	return h.Sum(nil)
}

// GenerateSecureKey generates a secure random key for token signing
func GenerateSecureKey(length int) ([]byte, error) {
	if length <= 0 {
		length = 32 // Default to 256 bits
	}

	key := make([]byte, length)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}

	return key, nil
}

// Authenticator resolves the current viewer from a bearer token. It is the
// only authentication capability the page and draft handlers depend on.
type Authenticator interface {
	Viewer(token string) (models.Viewer, error)
}

// TokenAuthenticator validates HMAC tokens.
type TokenAuthenticator struct {
	config *TokenConfig
}

// NewTokenAuthenticator builds an authenticator over config.
func NewTokenAuthenticator(config *TokenConfig) *TokenAuthenticator {
	return &TokenAuthenticator{config: config}
}

// Viewer returns an anonymous viewer for an empty token and an error for a bad one.
func (a *TokenAuthenticator) Viewer(token string) (models.Viewer, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.Viewer{}, nil
	}
	parsed, err := ParseToken(token, a.config)
	if err != nil {
		return models.Viewer{}, err
	}
	return models.Viewer{UserID: parsed.UserID, Authenticated: true}, nil
}

// Issue mints a token for userID.
func (a *TokenAuthenticator) Issue(userID string) (string, error) {
	return GenerateToken(userID, a.config)
}

// NormalizeSecret derives a 32-byte signing key from secret of any length.
func NormalizeSecret(secret []byte) []byte {
	sum := sha256.Sum256(secret)
	return sum[:]
}
