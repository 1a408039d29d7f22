package guestbook

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"wedding/cmd/identity"
)

// insertUnownedFunc seeds an invite code row with no owning guest. Store has no
// operation that creates one, so each backend writes it directly.
type insertUnownedFunc func(t *testing.T, s Store, code string)

// runStoreContract exercises the invariants every Store implementation must hold.
func runStoreContract(t *testing.T, open func(t *testing.T) Store, insertUnowned insertUnownedFunc) {
	t.Helper()

	t.Run("create and find", func(t *testing.T) {
		s := open(t)
		ctx := testCtx(t)

		email := "amaka@example.com"
		g, inv := mustCreate(t, s, "Amaka Obi", "amaka-obi", "ABCD", 2, &email)
		if g.NameSlug != "amaka-obi" || inv.GuestID != g.ID {
			t.Fatalf("guest=%+v invite=%+v", g, inv)
		}

		got, owner, err := s.FindInviteByCode(ctx, "ABCD")
		if err != nil {
			t.Fatalf("FindInviteByCode: %v", err)
		}
		if got.ID != inv.ID || got.MaxAttendees != 2 || got.UsedAt != nil {
			t.Fatalf("invite=%+v want id=%s max=2 unused", got, inv.ID)
		}
		if owner == nil || owner.ID != g.ID || owner.Email == nil || *owner.Email != email {
			t.Fatalf("owner=%+v want guest %s", owner, g.ID)
		}

		ok, err := s.CodeExists(ctx, "ABCD")
		if err != nil || !ok {
			t.Fatalf("CodeExists(ABCD)=%v,%v want=true", ok, err)
		}
		ok, err = s.CodeExists(ctx, "ZZZZ")
		if err != nil || ok {
			t.Fatalf("CodeExists(ZZZZ)=%v,%v want=false", ok, err)
		}
	})

	t.Run("unknown code is not found", func(t *testing.T) {
		s := open(t)
		_, _, err := s.FindInviteByCode(testCtx(t), "NOPE")
		if !errors.Is(err, ErrNotFound) || !identity.IsNotFound(err) {
			t.Fatalf("err=%v want=ErrNotFound", err)
		}
	})

	t.Run("unowned code has no owner", func(t *testing.T) {
		s := open(t)
		ctx := testCtx(t)
		insertUnowned(t, s, "ORPH")

		inv, owner, err := s.FindInviteByCode(ctx, "ORPH")
		if err != nil {
			t.Fatalf("FindInviteByCode: %v", err)
		}
		if owner != nil || inv.GuestID != "" || inv.Code != "ORPH" {
			t.Fatalf("invite=%+v owner=%+v want unowned ORPH", inv, owner)
		}
		if !inv.Available() {
			t.Fatalf("unowned invite should still be available")
		}
		rows, err := s.ListInvites(ctx)
		if err != nil {
			t.Fatalf("ListInvites: %v", err)
		}
		if len(rows) != 0 {
			t.Fatalf("rows=%d want=0 for unowned codes", len(rows))
		}
	})

	t.Run("same slug reuses guest", func(t *testing.T) {
		s := open(t)
		g1, _ := mustCreate(t, s, "Tunde Bello", "tunde-bello", "AAAA", 1, nil)
		g2, inv2 := mustCreate(t, s, "Tunde  Bello", "tunde-bello", "BBBB", 3, nil)
		if g1.ID != g2.ID {
			t.Fatalf("guest ids differ: %s vs %s", g1.ID, g2.ID)
		}
		if inv2.GuestID != g1.ID {
			t.Fatalf("invite owner=%s want=%s", inv2.GuestID, g1.ID)
		}
		rows, err := s.ListInvites(testCtx(t))
		if err != nil {
			t.Fatalf("ListInvites: %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("rows=%d want=2", len(rows))
		}
	})

	t.Run("duplicate code rejected", func(t *testing.T) {
		s := open(t)
		mustCreate(t, s, "Ada One", "ada-one", "CODE", 1, nil)
		_, _, err := s.CreateGuestInvite(testCtx(t), record(t, "Ada Two", "ada-two", "CODE", 1, nil))
		if !errors.Is(err, ErrCodeTaken) {
			t.Fatalf("err=%v want=ErrCodeTaken", err)
		}
	})

	t.Run("submit consumes code atomically", func(t *testing.T) {
		s := open(t)
		ctx := testCtx(t)
		g, inv := mustCreate(t, s, "Chidi Eze", "chidi-eze", "CHDE", 4, nil)

		note := "see you there"
		resp, err := s.SubmitResponse(ctx, submit(t, g.ID, inv.ID, StatusAttending, 3, &note))
		if err != nil {
			t.Fatalf("SubmitResponse: %v", err)
		}
		if resp.Status != StatusAttending || resp.Attendees != 3 || resp.CodeID != inv.ID {
			t.Fatalf("resp=%+v", resp)
		}

		got, owner, err := s.FindInviteByCode(ctx, "CHDE")
		if err != nil {
			t.Fatalf("FindInviteByCode: %v", err)
		}
		if got.Available() {
			t.Fatalf("invite still available after submit")
		}
		if owner.Phone == nil || *owner.Phone != "+2348012345678" {
			t.Fatalf("phone=%v want=+2348012345678", owner.Phone)
		}
		if owner.Note == nil || *owner.Note != note {
			t.Fatalf("note=%v want=%q", owner.Note, note)
		}
		exists, err := s.ResponseExists(ctx, inv.ID)
		if err != nil || !exists {
			t.Fatalf("ResponseExists=%v,%v want=true", exists, err)
		}

		rows, err := s.ListInvites(ctx)
		if err != nil {
			t.Fatalf("ListInvites: %v", err)
		}
		if len(rows) != 1 || rows[0].Response == nil || rows[0].Response.Attendees != 3 {
			t.Fatalf("rows=%+v want one row with response", rows)
		}
	})

	t.Run("second submit rejected without mutation", func(t *testing.T) {
		s := open(t)
		ctx := testCtx(t)
		g, inv := mustCreate(t, s, "Ngozi Ade", "ngozi-ade", "NGAD", 2, nil)

		if _, err := s.SubmitResponse(ctx, submit(t, g.ID, inv.ID, StatusNotAttending, 1, nil)); err != nil {
			t.Fatalf("first submit: %v", err)
		}

		second := submit(t, g.ID, inv.ID, StatusAttending, 2, nil)
		second.Phone = "+2348099999999"
		_, err := s.SubmitResponse(ctx, second)
		if !errors.Is(err, ErrAlreadySubmitted) {
			t.Fatalf("err=%v want=ErrAlreadySubmitted", err)
		}

		owner, err := s.GetGuest(ctx, g.ID)
		if err != nil {
			t.Fatalf("GetGuest: %v", err)
		}
		if owner.Phone == nil || *owner.Phone != "+2348012345678" {
			t.Fatalf("phone=%v overwritten by rejected submit", owner.Phone)
		}
		rows, _ := s.ListInvites(ctx)
		if rows[0].Response.Status != StatusNotAttending {
			t.Fatalf("status=%s want=%s", rows[0].Response.Status, StatusNotAttending)
		}
	})

	t.Run("submit for foreign guest is not found", func(t *testing.T) {
		s := open(t)
		_, inv := mustCreate(t, s, "Femi A", "femi-a", "FEMA", 1, nil)
		other, _ := mustCreate(t, s, "Kemi B", "kemi-b", "KEMB", 1, nil)

		_, err := s.SubmitResponse(testCtx(t), submit(t, other.ID, inv.ID, StatusAttending, 1, nil))
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("err=%v want=ErrNotFound", err)
		}
	})

	t.Run("concurrent submits produce exactly one response", func(t *testing.T) {
		s := open(t)
		ctx := testCtx(t)
		g, inv := mustCreate(t, s, "Race Guest", "race-guest", "RACE", 2, nil)

		const n = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			rejected  int
		)
		recs := make([]SubmitRecord, n)
		for i := range recs {
			recs[i] = submit(t, g.ID, inv.ID, StatusAttending, 1, nil)
		}
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(rec SubmitRecord) {
				defer wg.Done()
				_, err := s.SubmitResponse(ctx, rec)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case errors.Is(err, ErrAlreadySubmitted):
					rejected++
				default:
					t.Errorf("unexpected err: %v", err)
				}
			}(recs[i])
		}
		wg.Wait()

		if successes != 1 || rejected != n-1 {
			t.Fatalf("successes=%d rejected=%d want=1/%d", successes, rejected, n-1)
		}
	})

	t.Run("list ordering", func(t *testing.T) {
		s := open(t)
		mustCreate(t, s, "Zainab Yusuf", "zainab-yusuf", "ZZZ2", 1, nil)
		mustCreate(t, s, "Bola Ige", "bola-ige", "BBB2", 1, nil)
		mustCreate(t, s, "Musa Sani", "musa-sani", "MMM2", 1, nil)

		rows, err := s.ListInvites(testCtx(t))
		if err != nil {
			t.Fatalf("ListInvites: %v", err)
		}
		var names []string
		for _, r := range rows {
			names = append(names, r.Guest.FullName)
		}
		want := []string{"Bola Ige", "Musa Sani", "Zainab Yusuf"}
		if len(names) != len(want) {
			t.Fatalf("names=%v want=%v", names, want)
		}
		for i := range want {
			if names[i] != want[i] {
				t.Fatalf("names=%v want=%v", names, want)
			}
		}
	})

	t.Run("invalid input rejected", func(t *testing.T) {
		s := open(t)
		rec := record(t, "X", "x", "XXXX", 0, nil)
		if _, _, err := s.CreateGuestInvite(testCtx(t), rec); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("err=%v want=ErrInvalidInput", err)
		}
	})
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func mustID(t *testing.T) string {
	t.Helper()
	id, err := identity.NewULID(time.Now().UTC())
	if err != nil {
		t.Fatalf("ulid: %v", err)
	}
	return id
}

func record(t *testing.T, name, slug, code string, max int, email *string) GuestInviteRecord {
	t.Helper()
	return GuestInviteRecord{
		GuestID:      mustID(t),
		FullName:     name,
		NameSlug:     slug,
		Email:        email,
		InviteID:     mustID(t),
		Code:         code,
		MaxAttendees: max,
		Now:          time.Now().UTC(),
	}
}

func mustCreate(t *testing.T, s Store, name, slug, code string, max int, email *string) (Guest, InviteCode) {
	t.Helper()
	g, inv, err := s.CreateGuestInvite(testCtx(t), record(t, name, slug, code, max, email))
	if err != nil {
		t.Fatalf("CreateGuestInvite(%s): %v", code, err)
	}
	return g, inv
}

func submit(t *testing.T, guestID, codeID string, st Status, n int, note *string) SubmitRecord {
	t.Helper()
	return SubmitRecord{
		ResponseID: mustID(t),
		GuestID:    guestID,
		CodeID:     codeID,
		Phone:      "+2348012345678",
		Note:       note,
		Status:     st,
		Attendees:  n,
		Now:        time.Now().UTC(),
	}
}
