// Package main provides a CI-friendly smoke test for the admin live feed.
//
// Against a running server it:
//   - logs in as admin and keeps the session cookie
//   - opens the feed with the expected subprotocol and Origin
//   - issues an invite and waits for wedding.invite.created
//   - resolves the invite, submits an RSVP and waits for wedding.rsvp.submitted
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
)

const (
	feedSubprotocol = "wedding.feed.v1"
	maxReadBytes    = 64 << 10

	typeInviteCreated = "wedding.invite.created"
	typeRSVPSubmitted = "wedding.rsvp.submitted"
)

type envelope struct {
	V       int             `json:"v"`
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	TS      time.Time       `json:"ts"`
	Payload json.RawMessage `json:"payload"`
}

type feedClient struct {
	conn  *websocket.Conn
	inbox chan envelope
	errCh chan error
}

func main() {
	var (
		base     = flag.String("base", "http://127.0.0.1:3000", "server base URL")
		origin   = flag.String("origin", "", "Origin header for the feed handshake (default: -base)")
		password = flag.String("password", os.Getenv("WEDDING_ADMIN_PASSWORD"), "admin password")
		phone    = flag.String("phone", "08031234567", "phone used for the smoke guest and RSVP")
		timeout  = flag.Duration("timeout", 7*time.Second, "per-step timeout")
		verbose  = flag.Bool("v", false, "verbose output")
	)
	flag.Parse()

	baseURL, err := validateBaseURL(*base)
	if err != nil {
		fatalf("invalid -base: %v", err)
	}
	if *origin == "" {
		*origin = baseURL.Scheme + "://" + baseURL.Host
	}
	if *password == "" {
		fatalf("admin password required (-password or WEDDING_ADMIN_PASSWORD)")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		fatalf("cookiejar: %v", err)
	}
	// No client Timeout: the WebSocket dial rejects it; steps use contexts instead.
	client := &http.Client{Jar: jar}
	root := context.Background()

	mustPostJSON(root, client, baseURL.String()+"/admin/login", map[string]string{"password": *password}, http.StatusOK, nil, *timeout)

	feed := mustConnect(root, client, wsURL(baseURL)+"/admin/feed", *origin, *timeout)
	defer func() { _ = feed.conn.Close(websocket.StatusNormalClosure, "bye") }()
	if *verbose {
		fmt.Printf("connected: origin=%q\n", *origin)
	}

	name := fmt.Sprintf("Feed Smoke %d", time.Now().UnixNano())
	var created struct {
		Code string `json:"code"`
		Link string `json:"link"`
	}
	mustPostJSON(root, client, baseURL.String()+"/admin/guests", map[string]any{
		"full_name":     name,
		"phone":         *phone,
		"max_attendees": 2,
	}, http.StatusCreated, &created, *timeout)

	ev := feed.mustReadUntil(root, typeInviteCreated, *timeout)
	var inv struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(ev.Payload, &inv); err != nil || inv.Code != created.Code {
		fatalf("invite.created payload mismatch: got=%s want code=%s", ev.Payload, created.Code)
	}
	if *verbose {
		fmt.Printf("invite.created: code=%s id=%s\n", inv.Code, ev.ID)
	}

	link, err := url.Parse(created.Link)
	if err != nil {
		fatalf("bad invite link %q: %v", created.Link, err)
	}
	var resolved struct {
		Token string `json:"token"`
	}
	mustGetJSON(root, client, baseURL.String()+link.RequestURI(), http.StatusOK, &resolved, *timeout)

	mustPostJSON(root, client, baseURL.String()+"/rsvp", map[string]any{
		"token":     resolved.Token,
		"status":    "ATTENDING",
		"attendees": 2,
		"phone":     *phone,
		"note":      "feed smoke",
	}, http.StatusCreated, nil, *timeout)

	ev = feed.mustReadUntil(root, typeRSVPSubmitted, *timeout)
	var sub struct {
		Code   string `json:"code"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(ev.Payload, &sub); err != nil || sub.Code != created.Code || sub.Status != "ATTENDING" {
		fatalf("rsvp.submitted payload mismatch: got=%s", ev.Payload)
	}

	fmt.Printf("OK: guest=%q code=%s\n", name, created.Code)
}

func validateBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return nil, errors.New("missing host")
	}
	return u, nil
}

func wsURL(base *url.URL) string {
	u := *base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	return u.String()
}

func mustConnect(parent context.Context, client *http.Client, target, origin string, stepTimeout time.Duration) *feedClient {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	h := http.Header{}
	h.Set("Origin", origin)

	conn, resp, err := websocket.Dial(ctx, target, &websocket.DialOptions{
		HTTPClient:   client,
		HTTPHeader:   h,
		Subprotocols: []string{feedSubprotocol},
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		fatalf("connect feed: %v", err)
	}
	if got := conn.Subprotocol(); got != feedSubprotocol {
		fatalf("subprotocol mismatch: got=%q want=%q", got, feedSubprotocol)
	}
	conn.SetReadLimit(maxReadBytes)

	c := &feedClient{
		conn:  conn,
		inbox: make(chan envelope, 64),
		errCh: make(chan error, 1),
	}
	c.startReadLoop()
	return c
}

func (c *feedClient) startReadLoop() {
	go func() {
		defer close(c.inbox)
		for {
			mt, data, err := c.conn.Read(context.Background())
			if err != nil {
				c.fail(err)
				return
			}
			if mt != websocket.MessageText {
				c.fail(fmt.Errorf("unexpected message type: %v", mt))
				return
			}
			var env envelope
			if err := json.Unmarshal(data, &env); err != nil {
				c.fail(fmt.Errorf("bad json: %w", err))
				return
			}
			if env.V != 1 || env.Type == "" || env.ID == "" {
				c.fail(fmt.Errorf("bad envelope: %s", data))
				return
			}
			select {
			case c.inbox <- env:
			default:
				c.fail(errors.New("inbox overflow: consumer too slow"))
				return
			}
		}
	}()
}

func (c *feedClient) fail(err error) {
	select {
	case c.errCh <- err:
	default:
	}
}

// mustReadUntil skips envelopes of other types, which other admins may trigger.
func (c *feedClient) mustReadUntil(parent context.Context, wantType string, stepTimeout time.Duration) envelope {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			fatalf("timeout waiting for %q: %v", wantType, ctx.Err())
		case err := <-c.errCh:
			fatalf("feed error while waiting for %q: %v", wantType, err)
		case env, ok := <-c.inbox:
			if !ok {
				fatalf("feed closed while waiting for %q", wantType)
			}
			if env.Type == wantType {
				return env
			}
		}
	}
}

func mustPostJSON(parent context.Context, client *http.Client, target string, body any, wantStatus int, dst any, stepTimeout time.Duration) {
	b, err := json.Marshal(body)
	if err != nil {
		fatalf("marshal: %v", err)
	}
	mustDo(parent, client, http.MethodPost, target, bytes.NewReader(b), wantStatus, dst, stepTimeout)
}

func mustGetJSON(parent context.Context, client *http.Client, target string, wantStatus int, dst any, stepTimeout time.Duration) {
	mustDo(parent, client, http.MethodGet, target, nil, wantStatus, dst, stepTimeout)
}

func mustDo(parent context.Context, client *http.Client, method, target string, body io.Reader, wantStatus int, dst any, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		fatalf("%s %s: %v", method, target, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := client.Do(req)
	if err != nil {
		fatalf("%s %s: %v", method, target, err)
	}
	defer func() { _ = res.Body.Close() }()

	raw, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if res.StatusCode != wantStatus {
		fatalf("%s %s: status=%d want=%d body=%s", method, target, res.StatusCode, wantStatus, raw)
	}
	if dst != nil {
		if err := json.Unmarshal(raw, dst); err != nil {
			fatalf("%s %s: decode: %v", method, target, err)
		}
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
