package token

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"
)

var testSecret = []byte("test-secret-0123456789abcdef")

func newTestSigner(t *testing.T, now func() time.Time) *Signer {
	t.Helper()
	opts := []Option{}
	if now != nil {
		opts = append(opts, WithClock(now))
	}
	s, err := NewSigner(Config{Secret: testSecret, TTL: DefaultTTL}, opts...)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	return s
}

func TestNewSigner_ConfigErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  Config
		want error
	}{
		{name: "missing", cfg: Config{}, want: ErrSecretMissing},
		{name: "short", cfg: Config{Secret: []byte("short")}, want: ErrSecretTooShort},
		{name: "negative ttl", cfg: Config{Secret: testSecret, TTL: -time.Second}, want: ErrInvalidTTL},
	}
	for _, tc := range cases {
		_, err := NewSigner(tc.cfg)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: err=%v want=%v", tc.name, err, tc.want)
		}
	}
}

func TestSignVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestSigner(t, nil)

	cases := []struct{ gid, code string }{
		{gid: "01HZX3J5Q8G7N2W4E6R8T0Y2U4", code: "AB2C"},
		{gid: "g", code: "ZZZZ"},
		{gid: "guest with spaces", code: "K9M3"},
	}
	for _, tc := range cases {
		tok, err := s.Sign(tc.gid, tc.code)
		if err != nil {
			t.Fatalf("Sign(%q,%q): %v", tc.gid, tc.code, err)
		}
		if strings.Count(tok, ".") != 1 {
			t.Fatalf("token must contain exactly one separator: %q", tok)
		}
		p, err := s.Verify(tok)
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if p.GuestID != tc.gid || p.Code != tc.code {
			t.Fatalf("payload=%+v want gid=%q code=%q", p, tc.gid, tc.code)
		}
	}
}

func TestSign_WireFormat(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0).UTC()
	s := newTestSigner(t, func() time.Time { return now })

	tok, err := s.Sign("gid-1", "AB2C")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	data, sig, _ := strings.Cut(tok, ".")

	raw, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		t.Fatalf("payload not base64url: %v", err)
	}
	want := `{"gid":"gid-1","code":"AB2C","exp":1700086400}`
	if string(raw) != want {
		t.Fatalf("payload=%s want=%s", raw, want)
	}

	mac, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		t.Fatalf("signature not base64url: %v", err)
	}
	if len(mac) != 32 {
		t.Fatalf("signature len=%d want=32", len(mac))
	}
}

func TestVerify_TamperAnySingleCharacter(t *testing.T) {
	t.Parallel()

	s := newTestSigner(t, nil)
	tok, err := s.Sign("01HZX3J5Q8G7N2W4E6R8T0Y2U4", "AB2C")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	for i := 0; i < len(tok); i++ {
		repl := byte('A')
		if tok[i] == 'A' {
			repl = 'B'
		}
		tampered := tok[:i] + string(repl) + tok[i+1:]
		if _, err := s.Verify(tampered); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("flip at %d accepted: err=%v", i, err)
		}
	}
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	s := newTestSigner(t, nil)
	tok, err := s.SignWithTTL("gid", "AB2C", -1*time.Second)
	if err != nil {
		t.Fatalf("SignWithTTL: %v", err)
	}
	_, err = s.Verify(tok)
	if !errors.Is(err, ErrInvalidToken) || !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("err=%v want invalid+expired", err)
	}
}

func TestVerify_ExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0).UTC()
	s := newTestSigner(t, func() time.Time { return now })
	tok, err := s.Sign("gid", "AB2C")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	now = now.Add(DefaultTTL)
	if _, err := s.Verify(tok); err != nil {
		t.Fatalf("token must still verify at exp: %v", err)
	}
	now = now.Add(time.Second)
	if _, err := s.Verify(tok); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("err=%v want=%v", err, ErrExpiredToken)
	}
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	s := newTestSigner(t, nil)
	good, err := s.Sign("gid", "AB2C")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	data, sig, _ := strings.Cut(good, ".")

	cases := []string{
		"",
		"nodot",
		"." + sig,
		data + ".",
		data + "." + sig + ".extra",
		"!!!." + sig,
		data + ".***",
	}
	for _, tc := range cases {
		if _, err := s.Verify(tc); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Verify(%q) err=%v want=%v", tc, err, ErrInvalidToken)
		}
	}
}

func TestVerify_OtherSecretRejected(t *testing.T) {
	t.Parallel()

	a := newTestSigner(t, nil)
	b, err := NewSigner(Config{Secret: []byte("another-secret-0123456789")})
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	tok, err := a.Sign("gid", "AB2C")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := b.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("foreign token accepted: %v", err)
	}
}
