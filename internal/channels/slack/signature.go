package slack

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	signatureVersion = "v0"

	// MaxTimestampSkew bounds how far a request timestamp may drift from now.
	MaxTimestampSkew = 300 * time.Second
)

var (
	ErrMissingSignature = errors.New("slack: missing signature headers")
	ErrStaleTimestamp   = errors.New("slack: request timestamp outside allowed window")
	ErrBadSignature     = errors.New("slack: signature mismatch")
)

// Sign computes "v0=" + hex(HMAC-SHA256(secret, "v0:<timestamp>:<body>")).
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signatureVersion + ":" + timestamp + ":"))
	mac.Write(body)
	return signatureVersion + "=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the X-Slack-Signature header for body. A timestamp
// exactly MaxTimestampSkew away is still accepted.
func VerifySignature(secret, timestamp string, body []byte, signature string, now time.Time) error {
	timestamp = strings.TrimSpace(timestamp)
	if timestamp == "" || signature == "" {
		return ErrMissingSignature
	}
	sec, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrStaleTimestamp
	}
	skew := now.Sub(time.Unix(sec, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > MaxTimestampSkew {
		return ErrStaleTimestamp
	}

	expected := Sign(secret, timestamp, body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrBadSignature
	}
	return nil
}
