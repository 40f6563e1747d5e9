package webhook_test

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MaezenDigital/Enemamar-backend/internal/webhook"
)

const testSecret = "whsec_test"

func signedHeader(name string, verifier *webhook.Verifier, body []byte) http.Header {
	header := http.Header{}
	header.Set(name, verifier.Sign(body))
	return header
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	verifier := webhook.NewVerifier(testSecret)
	body := []byte(`{"trx_ref":"TX1","status":"success","reference":"REF1"}`)

	require.NoError(t, verifier.Verify(signedHeader("x-chapa-signature", verifier, body), body))
	require.NoError(t, verifier.Verify(signedHeader("Chapa-Signature", verifier, body), body))
}

func TestVerifyMissingHeader(t *testing.T) {
	verifier := webhook.NewVerifier(testSecret)
	body := []byte(`{"trx_ref":"TX1","status":"success","reference":"REF1"}`)

	err := verifier.Verify(http.Header{}, body)
	require.ErrorIs(t, err, webhook.ErrMissingSignature)
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	verifier := webhook.NewVerifier(testSecret)
	body := []byte(`{"trx_ref":"TX1","status":"success","reference":"REF1"}`)
	header := signedHeader("x-chapa-signature", verifier, body)

	tampered := make([]byte, len(body))
	copy(tampered, body)
	tampered[15] ^= 0x01

	err := verifier.Verify(header, tampered)
	require.ErrorIs(t, err, webhook.ErrInvalidSignature)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	body := []byte(`{"trx_ref":"TX1","status":"success","reference":"REF1"}`)
	header := signedHeader("x-chapa-signature", webhook.NewVerifier("other-secret"), body)

	err := webhook.NewVerifier(testSecret).Verify(header, body)
	require.ErrorIs(t, err, webhook.ErrInvalidSignature)
}

// A signature computed over a re-encoded byte form of the same logical
// JSON must not validate against the bytes actually received.
func TestVerifyIsBoundToRawBytes(t *testing.T) {
	verifier := webhook.NewVerifier(testSecret)

	received := []byte(`{"trx_ref": "TX1", "status": "success", "reference": "REF1"}`)

	var parsed map[string]string
	require.NoError(t, json.Unmarshal(received, &parsed))
	reencoded, err := json.Marshal(parsed)
	require.NoError(t, err)
	require.NotEqual(t, received, reencoded)

	header := signedHeader("x-chapa-signature", verifier, reencoded)
	require.ErrorIs(t, verifier.Verify(header, received), webhook.ErrInvalidSignature)

	// The sender signed what it sent; verifying over those exact bytes succeeds.
	header = signedHeader("x-chapa-signature", verifier, received)
	require.NoError(t, verifier.Verify(header, received))
}

func TestVerifyAcceptsUppercaseHexDigest(t *testing.T) {
	verifier := webhook.NewVerifier(testSecret)
	body := []byte(`{"trx_ref":"TX1","status":"success","reference":"REF1"}`)

	header := http.Header{}
	header.Set("Chapa-Signature", "  "+strings.ToUpper(verifier.Sign(body))+"  ")
	require.NoError(t, verifier.Verify(header, body))
}
