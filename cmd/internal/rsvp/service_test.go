package rsvp

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"wedding/cmd/internal/guestbook"
	"wedding/cmd/internal/invite"
	"wedding/cmd/internal/notify"
	"wedding/cmd/security/token"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fixture struct {
	store   *guestbook.MemoryStore
	signer  *token.Signer
	invites *invite.Service
	svc     *Service
	sent    *recordingNotifier
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()

	signer, err := token.NewSigner(token.Config{Secret: []byte(testSecret), TTL: time.Hour})
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	store := guestbook.NewMemoryStore()
	invites, err := invite.NewService(store, signer)
	if err != nil {
		t.Fatalf("invite.NewService: %v", err)
	}
	sent := &recordingNotifier{}
	svc, err := NewService(store, signer, append([]Option{WithNotifier(sent)}, opts...)...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return fixture{store: store, signer: signer, invites: invites, svc: svc, sent: sent}
}

// resolved creates a guest invite and resolves it, returning the capability token.
func (f fixture) resolved(t *testing.T, name string, max int) (invite.Created, string) {
	t.Helper()
	ctx := context.Background()
	created, err := f.invites.CreateGuestInvite(ctx, invite.CreateInput{
		FullName:     name,
		Email:        "guest@example.com",
		Phone:        "08031234567",
		MaxAttendees: max,
	})
	if err != nil {
		t.Fatalf("CreateGuestInvite: %v", err)
	}
	res, err := f.invites.Resolve(ctx, invite.ResolveInput{Slug: created.Guest.NameSlug, Code: created.Invite.Code, Requested: max})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return created, res.Token
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, m notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
	return r.err
}

func TestSubmit_ScenarioB(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	created, tok := f.resolved(t, "Jane Doe", 2)

	res, err := f.svc.Submit(ctx, SubmitInput{
		Token:     tok,
		Status:    "ATTENDING",
		Attendees: 2,
		Phone:     "0803 765 4321",
		Note:      "  can't wait ",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Response.Status != guestbook.StatusAttending || res.Response.Attendees != 2 {
		t.Fatalf("response=%+v", res.Response)
	}
	if !strings.Contains(res.Message, "thrilled") {
		t.Fatalf("message=%q", res.Message)
	}

	inv, owner, err := f.store.FindInviteByCode(ctx, created.Invite.Code)
	if err != nil {
		t.Fatalf("FindInviteByCode: %v", err)
	}
	if inv.Available() {
		t.Fatalf("invite should be used")
	}
	if owner.Phone == nil || *owner.Phone != "+2348037654321" {
		t.Fatalf("phone=%v want=+2348037654321", owner.Phone)
	}
	if owner.Note == nil || *owner.Note != "can't wait" {
		t.Fatalf("note=%v", owner.Note)
	}

	_, err = f.svc.Submit(ctx, SubmitInput{Token: tok, Status: "NOT_ATTENDING", Attendees: 1, Phone: "08031234567"})
	if !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("resubmit err=%v want=ErrAlreadySubmitted", err)
	}

	rows, err := f.store.ListInvites(ctx)
	if err != nil {
		t.Fatalf("ListInvites: %v", err)
	}
	if len(rows) != 1 || rows[0].Response == nil || rows[0].Response.Status != guestbook.StatusAttending {
		t.Fatalf("rows=%+v want the first response only", rows)
	}
}

func TestSubmit_ScenarioC(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	created, tok := f.resolved(t, "Phone Guest", 2)

	_, err := f.svc.Submit(ctx, SubmitInput{Token: tok, Status: "ATTENDING", Attendees: 1, Phone: "12345"})
	if !errors.Is(err, ErrInvalidPhone) {
		t.Fatalf("err=%v want=ErrInvalidPhone", err)
	}

	rc, err := f.svc.Open(ctx, tok)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if rc.Used {
		t.Fatalf("invite consumed by a rejected submit")
	}
	exists, _ := f.store.ResponseExists(ctx, created.Invite.ID)
	if exists {
		t.Fatalf("response written by a rejected submit")
	}
	if len(f.sent.msgs) != 0 {
		t.Fatalf("notified on a rejected submit")
	}

	if _, err := f.svc.Submit(ctx, SubmitInput{Token: tok, Status: "ATTENDING", Attendees: 1, Phone: "+2348031234567"}); err != nil {
		t.Fatalf("corrected submit: %v", err)
	}
}

func TestSubmit_ClampsAttendees(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want int }{
		{in: 0, want: 1},
		{in: 999, want: 3},
		{in: -5, want: 1},
	}
	for _, tc := range cases {
		f := newFixture(t)
		_, tok := f.resolved(t, "Clamp Guest", 3)
		res, err := f.svc.Submit(context.Background(), SubmitInput{Token: tok, Status: "maybe", Attendees: tc.in, Phone: "08031234567"})
		if err != nil {
			t.Fatalf("Submit(%d): %v", tc.in, err)
		}
		if res.Response.Attendees != tc.want {
			t.Fatalf("attendees(%d)=%d want=%d", tc.in, res.Response.Attendees, tc.want)
		}
		if res.Response.Status != guestbook.StatusUndecided {
			t.Fatalf("status=%s want=UNDECIDED", res.Response.Status)
		}
	}
}

// countingStore fails the test if the service touches storage.
type countingStore struct {
	guestbook.Store
	calls atomic.Int32
}

func (c *countingStore) GetGuest(ctx context.Context, id string) (guestbook.Guest, error) {
	c.calls.Add(1)
	return c.Store.GetGuest(ctx, id)
}

func (c *countingStore) FindInviteByCode(ctx context.Context, code string) (guestbook.InviteCode, *guestbook.Guest, error) {
	c.calls.Add(1)
	return c.Store.FindInviteByCode(ctx, code)
}

func TestSubmit_InvalidStatusBeforeStoreAccess(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, tok := f.resolved(t, "Status Guest", 1)
	cs := &countingStore{Store: f.store}
	svc, err := NewService(cs, f.signer)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.Submit(context.Background(), SubmitInput{Token: tok, Status: "PERHAPS", Attendees: 1, Phone: "08031234567"})
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("err=%v want=ErrInvalidStatus", err)
	}
	if n := cs.calls.Load(); n != 0 {
		t.Fatalf("store calls=%d want=0", n)
	}
}

func TestOpen_InvalidLinks(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	created, tok := f.resolved(t, "Link Guest", 1)
	other, _ := f.resolved(t, "Other Guest", 1)

	expired, err := f.signer.SignWithTTL(created.Guest.ID, created.Invite.Code, -time.Second)
	if err != nil {
		t.Fatalf("SignWithTTL: %v", err)
	}
	foreign, err := f.signer.Sign(other.Guest.ID, created.Invite.Code)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	unknownGuest, _ := f.signer.Sign("01HZZZZZZZZZZZZZZZZZZZZZZZ", created.Invite.Code)
	unknownCode, _ := f.signer.Sign(created.Guest.ID, "ZZZZ")
	tampered := tok[:len(tok)-1] + flip(tok[len(tok)-1])

	cases := []struct {
		name string
		tok  string
	}{
		{name: "empty", tok: ""},
		{name: "garbage", tok: "not-a-token"},
		{name: "tampered", tok: tampered},
		{name: "expired", tok: expired},
		{name: "foreign guest", tok: foreign},
		{name: "unknown guest", tok: unknownGuest},
		{name: "unknown code", tok: unknownCode},
	}
	for _, tc := range cases {
		if _, err := f.svc.Open(ctx, tc.tok); !errors.Is(err, ErrInvalidLink) {
			t.Fatalf("%s: err=%v want=ErrInvalidLink", tc.name, err)
		}
		_, err := f.svc.Submit(ctx, SubmitInput{Token: tc.tok, Status: "YES", Attendees: 1, Phone: "08031234567"})
		if !errors.Is(err, ErrInvalidLink) {
			t.Fatalf("%s submit: err=%v want=ErrInvalidLink", tc.name, err)
		}
	}
}

func TestSubmit_ConcurrentSameToken(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, tok := f.resolved(t, "Race Guest", 2)

	const n = 16
	var (
		wg       sync.WaitGroup
		ok       atomic.Int32
		rejected atomic.Int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Submit(context.Background(), SubmitInput{Token: tok, Status: "YES", Attendees: 1, Phone: "08031234567"})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrAlreadySubmitted):
				rejected.Add(1)
			default:
				t.Errorf("unexpected err: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok.Load() != 1 || rejected.Load() != n-1 {
		t.Fatalf("ok=%d rejected=%d want=1/%d", ok.Load(), rejected.Load(), n-1)
	}
}

func TestSubmit_NotifiesGuest(t *testing.T) {
	t.Parallel()

	f := newFixture(t, WithCouple("Ada & Tobi"))
	_, tok := f.resolved(t, "Notify Guest", 1)

	res, err := f.svc.Submit(context.Background(), SubmitInput{Token: tok, Status: "NO", Attendees: 1, Phone: "08031234567"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(f.sent.msgs) != 1 {
		t.Fatalf("notifications=%d want=1", len(f.sent.msgs))
	}
	m := f.sent.msgs[0]
	if m.ToPhone != "+2348031234567" || m.ToEmail != "guest@example.com" || m.ToName != "Notify Guest" {
		t.Fatalf("message=%+v", m)
	}
	if m.Body != res.Message || !strings.HasSuffix(m.Body, "Ada & Tobi") {
		t.Fatalf("body=%q", m.Body)
	}
}

func TestSubmit_NotifyFailureDoesNotFailSubmit(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.sent.err = errors.New("gateway down")
	_, tok := f.resolved(t, "Offline Guest", 1)

	if _, err := f.svc.Submit(context.Background(), SubmitInput{Token: tok, Status: "YES", Attendees: 1, Phone: "08031234567"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
}

func flip(c byte) string {
	if c == 'A' {
		return "B"
	}
	return "A"
}
