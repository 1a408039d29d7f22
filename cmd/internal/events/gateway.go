package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"

	"wedding/cmd/identity"
)

// FeedSubprotocol is the only subprotocol the feed negotiates.
const FeedSubprotocol = "wedding.feed.v1"

const (
	feedMinSendQueue  = 32
	feedMaxPingFails  = 3
	feedCloseGrace    = 1 * time.Second
	feedMaxFrameBytes = 4 << 10
)

// FeedConfig controls the admin feed socket.
type FeedConfig struct {
	// OriginRequired rejects upgrades without an Origin header.
	OriginRequired bool
	// AllowedOrigins lists full origins ("https://host:port") or bare hosts. "*" allows any.
	AllowedOrigins []string

	SendQueue        int
	WriteTimeout     time.Duration
	HeartbeatEvery   time.Duration
	HeartbeatTimeout time.Duration
}

// DefaultFeedConfig is localhost-only.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		OriginRequired:   true,
		AllowedOrigins:   []string{"http://localhost", "http://127.0.0.1"},
		SendQueue:        256,
		WriteTimeout:     5 * time.Second,
		HeartbeatEvery:   25 * time.Second,
		HeartbeatTimeout: 5 * time.Second,
	}
}

// FeedGateway streams Hub events to admin browsers over WebSocket. The feed is one-way:
// an inbound data frame closes the connection. Authentication is the caller's job.
type FeedGateway struct {
	log *slog.Logger
	hub *Hub
	cfg FeedConfig

	originPatterns []string
}

// NewFeedGateway constructs a gateway; zero config fields take DefaultFeedConfig values.
func NewFeedGateway(log *slog.Logger, hub *Hub, cfg FeedConfig) *FeedGateway {
	if log == nil {
		log = slog.Default()
	}
	if hub == nil {
		hub = NewHub(log)
	}
	def := DefaultFeedConfig()
	if cfg.SendQueue < feedMinSendQueue {
		cfg.SendQueue = def.SendQueue
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.HeartbeatEvery <= 0 {
		cfg.HeartbeatEvery = def.HeartbeatEvery
	}
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = def.HeartbeatTimeout
	}
	return &FeedGateway{
		log:            log,
		hub:            hub,
		cfg:            cfg,
		originPatterns: originPatterns(cfg.AllowedOrigins),
	}
}

func (g *FeedGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := g.enforceOrigin(r); err != nil {
		g.log.Info("feed.reject.origin", "err", err, "origin", r.Header.Get("Origin"), "remote", r.RemoteAddr)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{FeedSubprotocol},
		OriginPatterns: g.originPatterns,
	})
	if err != nil {
		g.log.Error("feed.accept.fail", "err", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()
	conn.SetReadLimit(feedMaxFrameBytes)

	id, err := identity.NewULID(time.Now().UTC())
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "id")
		return
	}
	client := NewClient(id, g.cfg.SendQueue)
	if err := g.hub.Subscribe(client); err != nil {
		_ = conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	defer g.hub.Unsubscribe(client.ID)

	// CloseRead answers pings and close frames; its context ends when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)
		g.heartbeat(ctx, conn, client)
	}()

	for {
		select {
		case <-ctx.Done():
			client.Close()
			<-heartbeatDone
			return
		case <-client.Done():
			_ = conn.Close(websocket.StatusGoingAway, "server closing")
			select {
			case <-heartbeatDone:
			case <-time.After(feedCloseGrace):
			}
			return
		case env := <-client.Send:
			if err := writeEnvelope(ctx, conn, env, g.cfg.WriteTimeout); err != nil {
				g.log.Info("feed.write.fail", "client_id", client.ID, "close_status", websocket.CloseStatus(err), "err", err)
				client.Close()
				<-heartbeatDone
				return
			}
		}
	}
}

func (g *FeedGateway) heartbeat(ctx context.Context, conn *websocket.Conn, client *Client) {
	t := time.NewTicker(g.cfg.HeartbeatEvery)
	defer t.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-client.Done():
			return
		case <-t.C:
			hbCtx, cancel := context.WithTimeout(ctx, g.cfg.HeartbeatTimeout)
			err := conn.Ping(hbCtx)
			cancel()
			if err != nil {
				failures++
				g.log.Info("feed.ping.fail", "client_id", client.ID, "failures", failures, "err", err)
				if failures >= feedMaxPingFails {
					client.Close()
					return
				}
				continue
			}
			failures = 0
		}
	}
}

func writeEnvelope(parent context.Context, conn *websocket.Conn, env Envelope, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, b)
}

// ---- origin policy ----

func (g *FeedGateway) enforceOrigin(r *http.Request) error {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		if g.cfg.OriginRequired {
			return errors.New("missing origin")
		}
		return nil
	}
	if len(g.cfg.AllowedOrigins) == 0 {
		return errors.New("origin not allowed (no allowlist)")
	}

	host := originHost(origin)
	for _, a := range g.cfg.AllowedOrigins {
		a = strings.TrimSpace(a)
		switch {
		case a == "":
			continue
		case a == "*":
			return nil
		case origin == a:
			return nil
		case host != "" && host == originHost(a):
			return nil
		}
	}
	return fmt.Errorf("origin not allowed: %s", origin)
}

func originHost(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return ""
		}
		s = strings.TrimSpace(u.Host)
		if s == "" {
			return ""
		}
	}
	if h, _, err := net.SplitHostPort(s); err == nil {
		return strings.ToLower(h)
	}
	return strings.ToLower(s)
}

// originPatterns turns the allowlist into websocket.Accept host patterns so both
// checks agree.
func originPatterns(allowed []string) []string {
	seen := make(map[string]struct{}, len(allowed))
	var out []string
	for _, a := range allowed {
		if strings.TrimSpace(a) == "*" {
			return []string{"*"}
		}
		h := originHost(a)
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h, h+":*")
	}
	return out
}
