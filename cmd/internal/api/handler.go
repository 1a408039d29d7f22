// Package api is the HTTP surface: guest invite and RSVP routes plus the admin console API.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"wedding/cmd/identity"
	"wedding/cmd/internal/guestbook"
	"wedding/cmd/internal/invite"
	"wedding/cmd/internal/report"
	"wedding/cmd/internal/rsvp"
	"wedding/cmd/security/password"
)

// Handler wires HTTP routes to the invite and RSVP services.
type Handler struct {
	log *slog.Logger
	cfg Config

	invites *invite.Service
	rsvps   *rsvp.Service
	store   guestbook.Store

	passwords password.Config
	feed      http.Handler
	now       func() time.Time
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handler)

// WithFeed mounts the admin live feed at GET /admin/feed.
func WithFeed(feed http.Handler) HandlerOption {
	return func(h *Handler) {
		if feed != nil {
			h.feed = feed
		}
	}
}

// WithPasswordConfig sets the argon2id limits used to verify the admin hash.
func WithPasswordConfig(cfg password.Config) HandlerOption {
	return func(h *Handler) { h.passwords = cfg }
}

// WithClock overrides time.Now for session issue and validation.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHandler validates the admin configuration and constructs a Handler.
func NewHandler(log *slog.Logger, cfg Config, store guestbook.Store, invites *invite.Service, rsvps *rsvp.Service, opts ...HandlerOption) (*Handler, error) {
	if store == nil || invites == nil || rsvps == nil {
		return nil, errors.New("api: store and services are required")
	}
	if log == nil {
		log = slog.Default()
	}
	cfg.normalize()
	if err := cfg.Admin.Validate(); err != nil {
		return nil, err
	}

	h := &Handler{
		log:       log,
		cfg:       cfg,
		invites:   invites,
		rsvps:     rsvps,
		store:     store,
		passwords: password.DefaultConfig(),
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// Register wires guest and admin routes onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("GET /invite/{slug}", h.handleResolve)
	mux.HandleFunc("GET /rsvp", h.handleRSVPOpen)
	mux.HandleFunc("POST /rsvp", h.handleRSVPSubmit)

	mux.HandleFunc("POST /admin/login", h.handleLogin)
	mux.HandleFunc("POST /admin/logout", h.handleLogout)
	mux.HandleFunc("POST /admin/guests", h.requireAdmin(h.handleCreateGuest))
	mux.HandleFunc("GET /admin/guests", h.requireAdmin(h.handleListGuests))
	mux.HandleFunc("GET /admin/export.csv", h.requireAdmin(h.handleExport))
	if h.feed != nil {
		mux.HandleFunc("GET /admin/feed", h.requireAdmin(h.feed.ServeHTTP))
	}
}

// ---- guest ----

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	requested, _ := strconv.Atoi(q.Get("n"))

	res, err := h.invites.Resolve(r.Context(), invite.ResolveInput{
		Slug:      r.PathValue("slug"),
		Code:      q.Get("code"),
		Requested: requested,
	})
	switch {
	case err == nil:
	case errors.Is(err, invite.ErrInvalidCode):
		writeError(w, http.StatusBadRequest, "invalid_code", "invite code is malformed")
		return
	case errors.Is(err, invite.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "invite not found")
		return
	case errors.Is(err, invite.ErrAlreadyUsed):
		writeError(w, http.StatusConflict, "already_used", "this invite has already been used")
		return
	default:
		h.internalError(w, r, "invite.resolve", err)
		return
	}

	writeJSON(w, http.StatusOK, resolveResponse{
		GuestName: res.Guest.FullName,
		Allowed:   res.Allowed,
		RSVPLink:  res.RSVPLink,
		Token:     res.Token,
	})
}

func (h *Handler) handleRSVPOpen(w http.ResponseWriter, r *http.Request) {
	rc, err := h.rsvps.Open(r.Context(), r.URL.Query().Get("token"))
	switch {
	case err == nil:
	case errors.Is(err, rsvp.ErrInvalidLink):
		writeError(w, http.StatusNotFound, "invalid_link", "this RSVP link is invalid or has expired")
		return
	default:
		h.internalError(w, r, "rsvp.open", err)
		return
	}
	writeJSON(w, http.StatusOK, rsvpContextResponse{
		GuestName:    rc.Guest.FullName,
		MaxAttendees: rc.Invite.MaxAttendees,
		Used:         rc.Used,
	})
}

func (h *Handler) handleRSVPSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body is not valid JSON")
		return
	}

	res, err := h.rsvps.Submit(r.Context(), rsvp.SubmitInput{
		Token:     req.Token,
		Status:    req.Status,
		Attendees: req.Attendees,
		Phone:     req.Phone,
		Note:      req.Note,
	})
	switch {
	case err == nil:
	case errors.Is(err, rsvp.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "invalid_status", "status must be ATTENDING, NOT_ATTENDING or UNDECIDED")
		return
	case errors.Is(err, rsvp.ErrInvalidPhone):
		writeError(w, http.StatusUnprocessableEntity, "invalid_phone", "phone number is not valid")
		return
	case errors.Is(err, rsvp.ErrInvalidLink):
		writeError(w, http.StatusNotFound, "invalid_link", "this RSVP link is invalid or has expired")
		return
	case errors.Is(err, rsvp.ErrAlreadySubmitted):
		writeError(w, http.StatusConflict, "already_submitted", "an RSVP has already been submitted for this invite")
		return
	case errors.Is(err, rsvp.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid RSVP")
		return
	default:
		h.internalError(w, r, "rsvp.submit", err)
		return
	}

	writeJSON(w, http.StatusCreated, submitResponse{
		Status:    res.Response.Status,
		Attendees: res.Response.Attendees,
		Message:   res.Message,
	})
}

// ---- admin ----

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body is not valid JSON")
		return
	}

	ok, err := h.checkPassword(req.Password)
	if err != nil {
		h.internalError(w, r, "admin.login", err)
		return
	}
	if !ok {
		h.log.WarnContext(r.Context(), "admin.login.fail")
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid password")
		return
	}

	tok, exp, err := h.issueSession(h.now().UTC())
	if err != nil {
		h.internalError(w, r, "admin.login", err)
		return
	}
	h.setSessionCookie(w, tok, exp)
	h.log.InfoContext(r.Context(), "admin.login")
	writeJSON(w, http.StatusOK, loginResponse{ExpiresAt: exp})
}

func (h *Handler) handleLogout(w http.ResponseWriter, _ *http.Request) {
	h.expireSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCreateGuest(w http.ResponseWriter, r *http.Request) {
	var req createGuestRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body is not valid JSON")
		return
	}

	created, err := h.invites.CreateGuestInvite(r.Context(), invite.CreateInput{
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        req.Phone,
		MaxAttendees: req.MaxAttendees,
	})
	switch {
	case err == nil:
	case errors.Is(err, invite.ErrInvalidPhone):
		writeError(w, http.StatusUnprocessableEntity, "invalid_phone", "phone number is not valid")
		return
	case identity.IsInvalidInput(err):
		writeError(w, http.StatusBadRequest, "invalid_input", "full name and phone are required")
		return
	case errors.Is(err, invite.ErrCodeSpaceExhausted):
		writeError(w, http.StatusServiceUnavailable, "code_space_exhausted", "could not allocate a unique invite code")
		return
	default:
		h.internalError(w, r, "admin.guest.create", err)
		return
	}

	writeJSON(w, http.StatusCreated, createGuestResponse{
		Guest:        toGuestResponse(created.Guest),
		Code:         created.Invite.Code,
		MaxAttendees: created.Invite.MaxAttendees,
		Link:         h.cfg.BaseURL + created.Link,
	})
}

func (h *Handler) handleListGuests(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListInvites(r.Context())
	if err != nil {
		h.internalError(w, r, "admin.guest.list", err)
		return
	}
	out := listGuestsResponse{
		Summary: report.Summarize(rows),
		Invites: make([]inviteRowResponse, 0, len(rows)),
	}
	for _, row := range rows {
		out.Invites = append(out.Invites, toInviteRowResponse(row, h.cfg.BaseURL))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListInvites(r.Context())
	if err != nil {
		h.internalError(w, r, "admin.export", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.ExportFilename(h.now())+`"`)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	if err := report.WriteCSV(w, rows, h.cfg.BaseURL); err != nil {
		h.log.ErrorContext(r.Context(), "admin.export.fail", "err", err)
	}
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.log.ErrorContext(r.Context(), op+".fail", "err", err)
	writeError(w, http.StatusInternalServerError, "internal", "something went wrong")
}
