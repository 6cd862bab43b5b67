package sms

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// SignatureTolerance is how far a webhook timestamp may drift from now.
const SignatureTolerance = 5 * time.Minute

var (
	ErrMissingSignature = errors.New("missing webhook signature headers")
	ErrStaleTimestamp   = errors.New("webhook timestamp outside tolerance")
	ErrBadSignature     = errors.New("webhook signature mismatch")
)

// VerifyWebhook checks a standard-webhooks signature: base64 HMAC-SHA256 over "id.timestamp.body",
// keyed with the secret (optionally "v1,whsec_" or "whsec_" prefixed base64).
func VerifyWebhook(secret string, header http.Header, body []byte, now time.Time) error {
	id := header.Get("webhook-id")
	ts := header.Get("webhook-timestamp")
	sigs := header.Get("webhook-signature")
	if id == "" || ts == "" || sigs == "" {
		return ErrMissingSignature
	}

	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrStaleTimestamp
	}
	sent := time.Unix(sec, 0)
	if now.Sub(sent) > SignatureTolerance || sent.Sub(now) > SignatureTolerance {
		return ErrStaleTimestamp
	}

	expected := Sign(secret, id, sent, body)
	for _, candidate := range strings.Fields(sigs) {
		version, sig, ok := strings.Cut(candidate, ",")
		if !ok || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return ErrBadSignature
}

// Sign returns the v1 signature of a webhook payload, without the "v1," prefix.
func Sign(secret, id string, ts time.Time, body []byte) string {
	mac := hmac.New(sha256.New, secretKey(secret))
	mac.Write([]byte(id + "." + strconv.FormatInt(ts.Unix(), 10) + "."))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func secretKey(secret string) []byte {
	s := strings.TrimPrefix(secret, "v1,")
	s = strings.TrimPrefix(s, "whsec_")
	if key, err := base64.StdEncoding.DecodeString(s); err == nil {
		return key
	}
	return []byte(s)
}
