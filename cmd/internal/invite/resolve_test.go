package invite

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"wedding/cmd/identity"
	"wedding/cmd/internal/guestbook"
	"wedding/cmd/security/token"
)

func TestResolve_ScenarioA(t *testing.T) {
	t.Parallel()

	store := guestbook.NewMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	created, err := svc.CreateGuestInvite(ctx, CreateInput{FullName: "Jane Doe", Phone: "08031234567", MaxAttendees: 2})
	if err != nil {
		t.Fatalf("CreateGuestInvite: %v", err)
	}
	if created.Guest.NameSlug != "jane-doe" {
		t.Fatalf("slug=%q want=jane-doe", created.Guest.NameSlug)
	}
	code := created.Invite.Code

	res, err := svc.Resolve(ctx, ResolveInput{Slug: "jane-doe", Code: code, Requested: 2})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Allowed != 2 || res.Guest.ID != created.Guest.ID {
		t.Fatalf("resolution=%+v", res)
	}
	if !strings.HasPrefix(res.RSVPLink, "/rsvp?token=") || res.Token == "" {
		t.Fatalf("rsvp link=%q token=%q", res.RSVPLink, res.Token)
	}

	p, err := newTestSigner(t).Verify(res.Token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.GuestID != created.Guest.ID || p.Code != code {
		t.Fatalf("payload=%+v", p)
	}

	if _, err := svc.Resolve(ctx, ResolveInput{Slug: "john-doe", Code: code, Requested: 1}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("wrong slug err=%v want=ErrNotFound", err)
	}
}

func TestResolve_SlugAndCodeAreNormalized(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, guestbook.NewMemoryStore())
	ctx := context.Background()
	created, err := svc.CreateGuestInvite(ctx, CreateInput{FullName: "Jane Doe", Phone: "08031234567", MaxAttendees: 2})
	if err != nil {
		t.Fatalf("CreateGuestInvite: %v", err)
	}

	res, err := svc.Resolve(ctx, ResolveInput{
		Slug:      "Jane Doe",
		Code:      " " + strings.ToLower(created.Invite.Code) + " ",
		Requested: 1,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Invite.Code != created.Invite.Code {
		t.Fatalf("code=%q want=%q", res.Invite.Code, created.Invite.Code)
	}

	// The router decodes the path once; a still-escaped slug must not bind.
	if _, err := svc.Resolve(ctx, ResolveInput{Slug: "jane%2Ddoe", Code: created.Invite.Code}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("escaped slug err=%v want=ErrNotFound", err)
	}
}

func TestResolve_ClampsRequested(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, guestbook.NewMemoryStore())
	ctx := context.Background()
	created, err := svc.CreateGuestInvite(ctx, CreateInput{FullName: "Clamp Guest", Phone: "08031234567", MaxAttendees: 3})
	if err != nil {
		t.Fatalf("CreateGuestInvite: %v", err)
	}

	cases := []struct{ n, want int }{
		{n: 0, want: 1},
		{n: 999, want: 3},
		{n: -5, want: 1},
	}
	for _, tc := range cases {
		res, err := svc.Resolve(ctx, ResolveInput{Slug: "clamp-guest", Code: created.Invite.Code, Requested: tc.n})
		if err != nil {
			t.Fatalf("Resolve(n=%d): %v", tc.n, err)
		}
		if res.Allowed != tc.want {
			t.Fatalf("allowed(n=%d)=%d want=%d", tc.n, res.Allowed, tc.want)
		}
	}
}

func TestResolve_Errors(t *testing.T) {
	t.Parallel()

	store := guestbook.NewMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()
	created, err := svc.CreateGuestInvite(ctx, CreateInput{FullName: "Used Guest", Phone: "08031234567", MaxAttendees: 1})
	if err != nil {
		t.Fatalf("CreateGuestInvite: %v", err)
	}

	if _, err := svc.Resolve(ctx, ResolveInput{Slug: "used-guest", Code: "AB!"}); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("malformed err=%v want=ErrInvalidCode", err)
	}
	if _, err := svc.Resolve(ctx, ResolveInput{Slug: "used-guest", Code: "ZZZZ"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown err=%v want=ErrNotFound", err)
	}

	respID := mustULID(t)
	if _, err := store.SubmitResponse(ctx, guestbook.SubmitRecord{
		ResponseID: respID,
		GuestID:    created.Guest.ID,
		CodeID:     created.Invite.ID,
		Phone:      "+2348031234567",
		Status:     guestbook.StatusAttending,
		Attendees:  1,
	}); err != nil {
		t.Fatalf("SubmitResponse: %v", err)
	}

	if _, err := svc.Resolve(ctx, ResolveInput{Slug: "used-guest", Code: created.Invite.Code}); !errors.Is(err, ErrAlreadyUsed) {
		t.Fatalf("used err=%v want=ErrAlreadyUsed", err)
	}
}

// ownerlessStore answers every lookup with an invite that has no owning guest.
type ownerlessStore struct {
	guestbook.Store
}

func (ownerlessStore) FindInviteByCode(_ context.Context, code string) (guestbook.InviteCode, *guestbook.Guest, error) {
	return guestbook.InviteCode{ID: "orphan", Code: code, MaxAttendees: 2}, nil, nil
}

func TestResolve_UnownedCodeIsNotFound(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, ownerlessStore{Store: guestbook.NewMemoryStore()})

	cases := []string{"jane-doe", ""}
	for _, slug := range cases {
		_, err := svc.Resolve(context.Background(), ResolveInput{Slug: slug, Code: "ABCD", Requested: 1})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("slug=%q err=%v want=ErrNotFound", slug, err)
		}
	}
}

func TestResolve_TokenUsesSignerTTL(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	signer, err := token.NewSigner(token.Config{Secret: []byte(testSecret)}, token.WithClock(func() time.Time { return fixed }))
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	svc, err := NewService(guestbook.NewMemoryStore(), signer)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ctx := context.Background()
	created, err := svc.CreateGuestInvite(ctx, CreateInput{FullName: "Ttl Guest", Phone: "08031234567"})
	if err != nil {
		t.Fatalf("CreateGuestInvite: %v", err)
	}
	res, err := svc.Resolve(ctx, ResolveInput{Slug: "ttl-guest", Code: created.Invite.Code, Requested: 1})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	p, err := signer.Verify(res.Token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if want := fixed.Add(token.DefaultTTL); !p.ExpiresAt().Equal(want) {
		t.Fatalf("exp=%v want=%v", p.ExpiresAt(), want)
	}
}

func mustULID(t *testing.T) string {
	t.Helper()
	id, err := identity.NewULID(time.Now().UTC())
	if err != nil {
		t.Fatalf("ulid: %v", err)
	}
	return id
}
