package crypto

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/alanyoungcy/coinonebot/internal/domain"
)

// Header names used by Coinone private endpoints.
const (
	HeaderPayload   = "X-COINONE-PAYLOAD"
	HeaderSignature = "X-COINONE-SIGNATURE"
)

// PayloadAuth holds the credentials for Coinone V2 private requests.
type PayloadAuth struct {
	AccessToken string
	Secret      string
}

// SignedRequest is a signed private request ready to send.
type SignedRequest struct {
	Body    []byte            // JSON payload, also sent as the request body
	Headers map[string]string // content type, payload and signature headers
}

// Sign adds access_token and a fresh UUIDv4 nonce to fields, then signs the
// base64 JSON payload with HMAC-SHA512.
func (a *PayloadAuth) Sign(fields map[string]any) (SignedRequest, error) {
	return a.SignWithNonce(fields, uuid.NewString())
}

// SignWithNonce is like Sign but lets the caller supply the nonce (useful
// for deterministic testing).
func (a *PayloadAuth) SignWithNonce(fields map[string]any, nonce string) (SignedRequest, error) {
	if a.AccessToken == "" || a.Secret == "" {
		return SignedRequest{}, fmt.Errorf("crypto: missing credentials: %w", domain.ErrSigningFailed)
	}

	payload := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		payload[k] = v
	}
	payload["access_token"] = a.AccessToken
	payload["nonce"] = nonce

	body, err := json.Marshal(payload)
	if err != nil {
		return SignedRequest{}, fmt.Errorf("crypto: marshal payload: %w: %v", domain.ErrSigningFailed, err)
	}

	encoded := base64.StdEncoding.EncodeToString(body)
	return SignedRequest{
		Body: body,
		Headers: map[string]string{
			"Content-Type":  "application/json",
			HeaderPayload:   encoded,
			HeaderSignature: hmacSHA512Hex([]byte(a.Secret), encoded),
		},
	}, nil
}

// hmacSHA512Hex computes HMAC-SHA512 of message using key and returns the
// lowercase hex digest.
func hmacSHA512Hex(key []byte, message string) string {
	mac := hmac.New(sha512.New, key)
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// String returns a redacted representation suitable for logging.
func (a *PayloadAuth) String() string {
	redact := func(s string) string {
		if len(s) <= 4 {
			return "****"
		}
		return s[:4] + "****"
	}
	return fmt.Sprintf("PayloadAuth{token=%s, secret=%s}", redact(a.AccessToken), redact(a.Secret))
}
