package signature

import (
	"errors"
	"strconv"
	"testing"
	"time"
)

func TestVerifyRoundTrip(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	body := []byte(`{"transactionId":"tx1"}`)

	ts, sig := Headers("secret", body, now)
	if err := Verify("secret", body, ts, sig, 5*time.Minute, now.Add(time.Minute)); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
}

func TestVerifyFailures(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	body := []byte(`{}`)
	ts, sig := Headers("secret", body, now)

	cases := []struct {
		name   string
		secret string
		body   []byte
		ts     string
		sig    string
		at     time.Time
		want   error
	}{
		{"missing", "secret", body, "", sig, now, ErrMissing},
		{"bad timestamp", "secret", body, "abc", sig, now, ErrTimestamp},
		{"expired", "secret", body, ts, sig, now.Add(10 * time.Minute), ErrExpired},
		{"tampered body", "secret", []byte(`{"a":1}`), ts, sig, now, ErrMismatch},
		{"wrong secret", "other", body, ts, sig, now, ErrMismatch},
	}
	for _, tc := range cases {
		err := Verify(tc.secret, tc.body, tc.ts, tc.sig, 5*time.Minute, tc.at)
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestVerifyNoMaxAge(t *testing.T) {
	old := time.Unix(1_000_000_000, 0)
	ts := strconv.FormatInt(old.Unix(), 10)
	sig := Sign("s", nil, ts)
	if err := Verify("s", nil, ts, sig, 0, time.Now()); err != nil {
		t.Fatalf("age check should be disabled: %v", err)
	}
}
