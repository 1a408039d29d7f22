package app

import "testing"

func TestRuntimeBaseURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "explicit localhost", in: "127.0.0.1:3000", want: "http://127.0.0.1:3000"},
		{name: "bind all v4", in: "0.0.0.0:3000", want: "http://127.0.0.1:3000"},
		{name: "bind all v6", in: "[::]:9090", want: "http://127.0.0.1:9090"},
		{name: "port only", in: ":8080", want: "http://127.0.0.1:8080"},
		{name: "ipv6 host", in: "[2001:db8::1]:9090", want: "http://[2001:db8::1]:9090"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := runtimeBaseURL(tc.in)
			if got != tc.want {
				t.Fatalf("runtimeBaseURL(%q)=%q want=%q", tc.in, got, tc.want)
			}
		})
	}
}

func TestWebSocketURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{in: "http://127.0.0.1:3000", want: "ws://127.0.0.1:3000"},
		{in: "https://wedding.example.com", want: "wss://wedding.example.com"},
		{in: "wss://wedding.example.com", want: "wss://wedding.example.com"},
		{in: "127.0.0.1:3000", want: "ws://127.0.0.1:3000"},
	}

	for _, tc := range cases {
		got := WebSocketURL(tc.in)
		if got != tc.want {
			t.Fatalf("WebSocketURL(%q)=%q want=%q", tc.in, got, tc.want)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("WEDDING_HTTP_ADDR", "0.0.0.0:4000")
	t.Setenv("WEDDING_PUBLIC_BASE_URL", "")
	t.Setenv("WEDDING_DB_MAX_CONNS", "-3")
	t.Setenv("WEDDING_HTTP_READ_TIMEOUT", "nonsense")
	t.Setenv("WEDDING_FEED_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("WEDDING_DEV_MODE", "false")

	cfg := LoadConfig()
	if cfg.PublicBaseURL != "http://127.0.0.1:4000" {
		t.Fatalf("base=%q", cfg.PublicBaseURL)
	}
	if cfg.DBMaxConns != 10 {
		t.Fatalf("max conns=%d want=10", cfg.DBMaxConns)
	}
	if cfg.ReadTimeout.String() != "15s" {
		t.Fatalf("read timeout=%v", cfg.ReadTimeout)
	}
	if len(cfg.FeedAllowedOrigins) != 2 || cfg.FeedAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("origins=%q", cfg.FeedAllowedOrigins)
	}
	if cfg.DevMode {
		t.Fatalf("dev mode should be off")
	}
	if cfg.CoupleNames != "Desmond & Sophie" || cfg.DBSchema != "wedding" {
		t.Fatalf("defaults=%+v", cfg)
	}
}
