package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"wedding/cmd/identity"
	"wedding/cmd/internal/notify"
	"wedding/cmd/internal/report"
	"wedding/cmd/security/password"
)

func setCLIEnv(t *testing.T) {
	t.Helper()
	t.Setenv("WEDDING_INVITE_TOKEN_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("WEDDING_DATABASE_URL", "")
	t.Setenv("WEDDING_SQLITE_PATH", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("WEDDING_PUBLIC_BASE_URL", "https://wedding.example")
}

func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestAddGuestThenExport(t *testing.T) {
	setCLIEnv(t)

	out, stderr, err := runCLI(t, "", "add-guest", "-name", "Jane Doe", "-phone", "08031234567", "-max", "2")
	if err != nil {
		t.Fatalf("add-guest: %v (stderr=%s)", err, stderr)
	}
	fields := strings.Split(strings.TrimSpace(out), "\t")
	if len(fields) != 4 || fields[0] != "Jane Doe" || fields[2] != "2" {
		t.Fatalf("add-guest output=%q", out)
	}
	code := fields[1]
	if want := "https://wedding.example/invite/jane-doe?code=" + code + "&n=2"; fields[3] != want {
		t.Fatalf("link=%q want=%q", fields[3], want)
	}

	out, _, err = runCLI(t, "", "check-invite", "-slug", "jane-doe", "-code", strings.ToLower(code), "-n", "5")
	if err != nil {
		t.Fatalf("check-invite: %v", err)
	}
	if !strings.Contains(out, "allowed=2") || !strings.Contains(out, "/rsvp?token=") {
		t.Fatalf("check-invite output=%q", out)
	}

	out, _, err = runCLI(t, "", "export")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	recs, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(recs) != 2 || recs[1][3] != code || recs[1][5] != report.NoResponse {
		t.Fatalf("csv=%q", recs)
	}

	out, _, err = runCLI(t, "", "summary")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	var sum report.Summary
	if err := json.Unmarshal([]byte(out), &sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if sum.TotalGuests != 1 || sum.TotalCodes != 1 || sum.NotResponded != 1 {
		t.Fatalf("summary=%+v", sum)
	}
}

func TestAddGuest_InvalidPhone(t *testing.T) {
	setCLIEnv(t)

	if _, _, err := runCLI(t, "", "add-guest", "-name", "Jane Doe", "-phone", "12345"); err == nil {
		t.Fatalf("expected invalid phone error")
	}
}

func TestHashPassword(t *testing.T) {
	t.Setenv("WEDDING_ARGON2_MEMORY_KIB", "8192")
	t.Setenv("WEDDING_ARGON2_ITERATIONS", "1")
	t.Setenv("WEDDING_ARGON2_PARALLELISM", "1")

	out, _, err := runCLI(t, "a long admin password\n", "hash-password")
	if err != nil {
		t.Fatalf("hash-password: %v", err)
	}
	hash := strings.TrimSpace(out)
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("hash=%q", hash)
	}

	cfg, err := password.FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	ok, err := cfg.Verify(hash, "a long admin password")
	if err != nil || !ok {
		t.Fatalf("Verify=%v,%v want=true", ok, err)
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	t.Parallel()

	_, stderr, err := runCLI(t, "", "frobnicate")
	if err == nil || !strings.Contains(stderr, "usage: weddingctl") {
		t.Fatalf("err=%v stderr=%q", err, stderr)
	}
	if _, _, err := runCLI(t, ""); err == nil {
		t.Fatalf("expected error without a command")
	}
}

func TestSendTestSMS(t *testing.T) {
	type gatewayCall struct {
		Auth    string
		To      string `json:"to"`
		Message string `json:"message"`
	}
	calls := make(chan gatewayCall, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var c gatewayCall
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			t.Errorf("decode: %v", err)
		}
		c.Auth = r.Header.Get("Authorization")
		calls <- c
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	t.Setenv("WEDDING_SMS_API_URL", srv.URL)
	t.Setenv("WEDDING_SMS_API_KEY", "sms-key")

	out, stderr, err := runCLI(t, "", "send-test-sms", "-phone", "0803 123 4567", "-message", "hello")
	if err != nil {
		t.Fatalf("send-test-sms: %v (stderr=%s)", err, stderr)
	}
	got := <-calls
	if got.To != "+2348031234567" || got.Message != "hello" {
		t.Fatalf("gateway got=%+v want to=+2348031234567 message=hello", got)
	}
	if got.Auth != "Bearer sms-key" {
		t.Fatalf("authorization=%q want=%q", got.Auth, "Bearer sms-key")
	}
	if !strings.Contains(out, "+2348031234567") {
		t.Fatalf("output=%q", out)
	}
}

func TestSendTestSMS_Rejects(t *testing.T) {
	cases := []struct {
		name  string
		url   string
		phone string
		want  error
	}{
		{name: "invalid phone", url: "http://127.0.0.1:1", phone: "12345", want: identity.ErrInvalidPhone},
		{name: "gateway not configured", url: "", phone: "08031234567", want: notify.ErrSMSNotConfigured},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("WEDDING_SMS_API_URL", tc.url)
			t.Setenv("WEDDING_SMS_API_KEY", "sms-key")

			_, _, err := runCLI(t, "", "send-test-sms", "-phone", tc.phone)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err=%v want=%v", err, tc.want)
			}
		})
	}
}
