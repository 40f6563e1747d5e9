// Package webhook authenticates inbound payment-gateway callbacks.
//
// The gateway signs each delivery with HMAC-SHA256 over the exact
// request body bytes using a shared secret. Verification must run over
// the raw bytes as received, before any JSON parsing: re-serializing a
// parsed payload is not guaranteed to reproduce the byte stream the
// sender signed (key order, spacing, escaping) and silently breaks
// authentication.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
)

// Signature header names accepted from the gateway. The lowercase
// variant is checked first, matching the gateway's documented priority.
const (
	SignatureHeader       = "x-chapa-signature"
	SignatureHeaderLegacy = "Chapa-Signature"
)

var (
	// ErrMissingSignature indicates no signature header was present.
	ErrMissingSignature = errors.New("webhook signature header not found")
	// ErrInvalidSignature indicates the signature did not match the body.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Verifier checks gateway deliveries against the shared webhook secret.
type Verifier struct {
	secret []byte
}

// NewVerifier constructs a Verifier for the given shared secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify authenticates body against the signature header. body must be
// the untouched request bytes; callers parse only after Verify returns
// nil. The comparison is constant-time.
func (v *Verifier) Verify(header http.Header, body []byte) error {
	signature := strings.TrimSpace(header.Get(SignatureHeader))
	if signature == "" {
		signature = strings.TrimSpace(header.Get(SignatureHeaderLegacy))
	}
	if signature == "" {
		return ErrMissingSignature
	}

	if !hmac.Equal([]byte(v.Sign(body)), []byte(strings.ToLower(signature))) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign computes the hex-encoded HMAC-SHA256 digest the gateway would
// attach for body.
func (v *Verifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
