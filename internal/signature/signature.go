package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"
)

const (
	HeaderTimestamp = "X-Timestamp"
	HeaderSignature = "X-Signature"
)

var (
	ErrMissing   = errors.New("missing signature headers")
	ErrTimestamp = errors.New("invalid timestamp")
	ErrExpired   = errors.New("signature expired")
	ErrMismatch  = errors.New("invalid signature")
)

// Sign returns hex(HMAC-SHA256(body + "." + ts)).
func Sign(secret string, body []byte, ts string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	mac.Write([]byte("." + ts))
	return hex.EncodeToString(mac.Sum(nil))
}

// Headers signs body at now and returns the timestamp and signature values.
func Headers(secret string, body []byte, now time.Time) (ts, sig string) {
	ts = strconv.FormatInt(now.Unix(), 10)
	return ts, Sign(secret, body, ts)
}

// Verify checks a signed request. maxAge <= 0 disables the age check.
func Verify(secret string, body []byte, ts, sig string, maxAge time.Duration, now time.Time) error {
	if ts == "" || sig == "" {
		return ErrMissing
	}
	tsInt, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrTimestamp
	}
	if maxAge > 0 && now.Unix()-tsInt > int64(maxAge/time.Second) {
		return ErrExpired
	}
	expected := Sign(secret, body, ts)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrMismatch
	}
	return nil
}
