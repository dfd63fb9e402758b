// Package auth signs provider requests with HMAC-SHA256 keyed headers.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Credentials holds the API key and shared secret for signing requests.
type Credentials struct {
	APIKey string
	secret []byte
}

// NewCredentials creates signing credentials. Both values are required;
// providers that need no auth carry nil credentials instead.
func NewCredentials(apiKey, secret string) (*Credentials, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if secret == "" {
		return nil, fmt.Errorf("API secret is required")
	}
	return &Credentials{APIKey: apiKey, secret: []byte(secret)}, nil
}

// SignRequest generates authentication headers for one API request.
// Message format: timestamp_ms + method + path
func (c *Credentials) SignRequest(method, path string) map[string]string {
	timestampMs := time.Now().UnixMilli()

	return map[string]string{
		"X-API-KEY":       c.APIKey,
		"X-API-TIMESTAMP": fmt.Sprintf("%d", timestampMs),
		"X-API-SIGNATURE": c.sign(timestampMs, method, path),
	}
}

// sign computes the hex HMAC-SHA256 of the canonical message.
func (c *Credentials) sign(timestampMs int64, method, path string) string {
	message := fmt.Sprintf("%d%s%s", timestampMs, method, path)

	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}
