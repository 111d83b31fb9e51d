// Package auth signs the form tokens that guard widget actions.
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
)

const (
	// DefaultTokenMaxAge bounds how long a rendered subscribe button stays
	// clickable without a refresh.
	DefaultTokenMaxAge = 30 * time.Minute

	// Tokens stamped slightly in the future are tolerated for clock skew
	// between replicas sharing a secret.
	maxClockSkew = time.Minute
)

// CSRFManager issues and checks tokens bound to a widget instance and action.
// Replicas that share a secret accept each other's tokens.
type CSRFManager struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewCSRFManager creates a manager with the given secret. A zero maxAge
// selects DefaultTokenMaxAge.
func NewCSRFManager(secret []byte, maxAge time.Duration) *CSRFManager {
	if maxAge <= 0 {
		maxAge = DefaultTokenMaxAge
	}
	return &CSRFManager{secret: secret, maxAge: maxAge, now: time.Now}
}

// NewCSRFManagerWithRandomSecret is for single-replica deployments; tokens do
// not survive a restart.
func NewCSRFManagerWithRandomSecret(maxAge time.Duration) (*CSRFManager, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate CSRF secret: %w", err)
	}
	return NewCSRFManager(secret, maxAge), nil
}

// Token returns "timestamp.signature" for instanceID and action.
func (m *CSRFManager) Token(instanceID, action string) string {
	ts := m.now().Unix()
	return strconv.FormatInt(ts, 10) + "." + m.sign(instanceID, action, ts)
}

// Valid checks a token produced by Token for the same instance and action.
func (m *CSRFManager) Valid(instanceID, action, token string) bool {
	tsPart, sig, ok := strings.Cut(token, ".")
	if !ok || sig == "" {
		return false
	}
	ts, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return false
	}

	age := m.now().Sub(time.Unix(ts, 0))
	if age > m.maxAge || age < -maxClockSkew {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(m.sign(instanceID, action, ts)))
}

func (m *CSRFManager) sign(instanceID, action string, ts int64) string {
	h := hmac.New(sha256.New, m.secret)
	fmt.Fprintf(h, "%s\x00%s\x00%d", action, instanceID, ts)
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
