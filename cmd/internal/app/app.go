// Package app wires the wedding server runtime: config, logging, storage, HTTP routes
// and the admin live feed.
package app

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"wedding/cmd/internal/api"
	"wedding/cmd/internal/events"
	"wedding/cmd/internal/invite"
	"wedding/cmd/internal/metrics"
	"wedding/cmd/internal/notify"
	"wedding/cmd/internal/rsvp"
	"wedding/cmd/security/password"
	"wedding/cmd/security/token"
)

// App owns the server's resources: store, event publishers and the HTTP handler tree.
type App struct {
	cfg Config
	log Logger

	storage *Storage

	hub       *events.Hub
	publisher events.Publisher
	metrics   *metrics.Recorder
	api       *api.Handler

	handler http.Handler
}

// New constructs a fully wired App. Feature configuration (token secret, admin auth,
// notifications, password cost) is read from the environment here so a bad value fails
// startup.
func New(ctx context.Context, cfg Config, log Logger) (_ *App, err error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	tokCfg, err := token.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	webCfg, err := api.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	webCfg.BaseURL = cfg.PublicBaseURL
	if err := ValidateSecurityConfig(cfg, tokCfg, webCfg); err != nil {
		return nil, err
	}
	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}
	notifyCfg, err := notify.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	signer, err := token.NewSigner(tokCfg)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log, metrics: metrics.New()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.storage, err = OpenStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	store := a.storage.Store

	a.hub = events.NewHub(log)
	fanout := events.Fanout{a.hub}
	if cfg.NATSURL != "" {
		nc, err := events.NewNATSPublisher(cfg.NATSURL, log)
		if err != nil {
			a.publisher = fanout
			return nil, err
		}
		fanout = append(fanout, nc)
	}
	a.publisher = fanout

	notifier := notify.New(notifyCfg, &http.Client{Timeout: notifyCfg.SMSTimeout}, log)

	invites, err := invite.NewService(store, signer,
		invite.WithLogger(log),
		invite.WithPublisher(a.publisher),
		invite.WithMetrics(a.metrics),
	)
	if err != nil {
		return nil, err
	}
	rsvps, err := rsvp.NewService(store, signer,
		rsvp.WithLogger(log),
		rsvp.WithNotifier(notifier),
		rsvp.WithPublisher(a.publisher),
		rsvp.WithMetrics(a.metrics),
		rsvp.WithCouple(cfg.CoupleNames),
	)
	if err != nil {
		return nil, err
	}

	feed := events.NewFeedGateway(log, a.hub, a.feedConfig())
	a.api, err = api.NewHandler(log, webCfg, store, invites, rsvps,
		api.WithFeed(feed),
		api.WithPasswordConfig(pwCfg),
	)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	a.registerHTTP(mux)
	a.handler = WithRequestID(WithRequestLogging(WithRecover(WithSecurityHeaders(mux), log), log))
	return a, nil
}

// Handler is the complete middleware-wrapped route tree.
func (a *App) Handler() http.Handler { return a.handler }

// Run starts the HTTP server and blocks until ctx is cancelled or the server fails.
// Resources are released before it returns.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "base_url", a.cfg.PublicBaseURL, "store", a.storage.Kind)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
	defer cancel()

	// Feed sockets are hijacked and ignored by Shutdown; closing the hub ends them.
	_ = a.hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}
	a.log.Info("server.stopped")
	return nil
}

// Close releases publishers and storage. It is safe to call more than once.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("events.close.fail", "err", err)
		}
		a.publisher = nil
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.log.Warn("store.close.fail", "err", err)
		}
		a.storage = nil
	}
}

// feedConfig allows the configured origins, or else the public base URL's origin.
func (a *App) feedConfig() events.FeedConfig {
	fc := events.DefaultFeedConfig()
	fc.SendQueue = a.cfg.FeedSendQueue
	switch {
	case len(a.cfg.FeedAllowedOrigins) > 0:
		fc.AllowedOrigins = a.cfg.FeedAllowedOrigins
	default:
		if u, err := url.Parse(a.cfg.PublicBaseURL); err == nil && u.Host != "" {
			fc.AllowedOrigins = append(fc.AllowedOrigins, u.Scheme+"://"+u.Host)
		}
	}
	return fc
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
