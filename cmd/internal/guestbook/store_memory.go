package guestbook

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is a process-local Store for development and tests.
type MemoryStore struct {
	mu sync.Mutex

	guests    map[string]Guest  // by id
	bySlug    map[string]string // name_slug -> guest id
	invites   map[string]InviteCode
	byCode    map[string]string   // code -> invite id
	responses map[string]Response // by code id
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		guests:    make(map[string]Guest),
		bySlug:    make(map[string]string),
		invites:   make(map[string]InviteCode),
		byCode:    make(map[string]string),
		responses: make(map[string]Response),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) CodeExists(ctx context.Context, code string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byCode[strings.TrimSpace(code)]
	return ok, nil
}

func (s *MemoryStore) CreateGuestInvite(ctx context.Context, in GuestInviteRecord) (Guest, InviteCode, error) {
	const op = "guestbook.CreateGuestInvite"

	if err := ctx.Err(); err != nil {
		return Guest{}, InviteCode{}, err
	}
	if err := in.validate(); err != nil {
		return Guest{}, InviteCode{}, err
	}
	now := nowOr(in.Now)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byCode[in.Code]; taken {
		return Guest{}, InviteCode{}, fmt.Errorf("%s: %w", op, ErrCodeTaken)
	}

	var g Guest
	if id, ok := s.bySlug[in.NameSlug]; ok {
		g = s.guests[id]
		g.FullName = in.FullName
		g.Email = cloneString(in.Email)
		g.Phone = cloneString(in.Phone)
		g.UpdatedAt = now
	} else {
		g = Guest{
			ID:        in.GuestID,
			FullName:  in.FullName,
			NameSlug:  in.NameSlug,
			Email:     cloneString(in.Email),
			Phone:     cloneString(in.Phone),
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.bySlug[g.NameSlug] = g.ID
	}
	s.guests[g.ID] = g

	inv := InviteCode{
		ID:           in.InviteID,
		Code:         in.Code,
		MaxAttendees: in.MaxAttendees,
		GuestID:      g.ID,
		CreatedAt:    now,
	}
	s.invites[inv.ID] = inv
	s.byCode[inv.Code] = inv.ID

	return cloneGuest(g), inv, nil
}

func (s *MemoryStore) FindInviteByCode(ctx context.Context, code string) (InviteCode, *Guest, error) {
	if err := ctx.Err(); err != nil {
		return InviteCode{}, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byCode[strings.TrimSpace(code)]
	if !ok {
		return InviteCode{}, nil, ErrNotFound
	}
	inv := cloneInvite(s.invites[id])
	g, ok := s.guests[inv.GuestID]
	if !ok {
		return inv, nil, nil
	}
	gc := cloneGuest(g)
	return inv, &gc, nil
}

func (s *MemoryStore) GetGuest(ctx context.Context, id string) (Guest, error) {
	if err := ctx.Err(); err != nil {
		return Guest{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.guests[strings.TrimSpace(id)]
	if !ok {
		return Guest{}, ErrNotFound
	}
	return cloneGuest(g), nil
}

func (s *MemoryStore) ResponseExists(ctx context.Context, codeID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.responses[strings.TrimSpace(codeID)]
	return ok, nil
}

// SubmitResponse checks every precondition before mutating, so a failure leaves no trace.
func (s *MemoryStore) SubmitResponse(ctx context.Context, in SubmitRecord) (Response, error) {
	const op = "guestbook.SubmitResponse"

	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	if err := in.validate(); err != nil {
		return Response{}, err
	}
	now := nowOr(in.Now)

	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invites[in.CodeID]
	if !ok || inv.GuestID != in.GuestID {
		return Response{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	g, ok := s.guests[in.GuestID]
	if !ok {
		return Response{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if _, exists := s.responses[in.CodeID]; exists || !inv.Available() {
		return Response{}, fmt.Errorf("%s: %w", op, ErrAlreadySubmitted)
	}

	phone := in.Phone
	g.Phone = &phone
	g.Note = cloneString(in.Note)
	g.UpdatedAt = now
	s.guests[g.ID] = g

	resp := Response{
		ID:          in.ResponseID,
		GuestID:     in.GuestID,
		CodeID:      in.CodeID,
		Status:      in.Status,
		Attendees:   in.Attendees,
		Note:        cloneString(in.Note),
		RespondedAt: now,
	}
	s.responses[in.CodeID] = resp

	used := now
	inv.UsedAt = &used
	s.invites[inv.ID] = inv

	return resp, nil
}

func (s *MemoryStore) ListInvites(ctx context.Context) ([]InviteRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]InviteRow, 0, len(s.invites))
	for _, inv := range s.invites {
		g, ok := s.guests[inv.GuestID]
		if !ok {
			continue
		}
		row := InviteRow{Guest: cloneGuest(g), Invite: cloneInvite(inv)}
		if r, ok := s.responses[inv.ID]; ok {
			r.Note = cloneString(r.Note)
			row.Response = &r
		}
		out = append(out, row)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Guest.FullName != b.Guest.FullName {
			return a.Guest.FullName < b.Guest.FullName
		}
		if !a.Invite.CreatedAt.Equal(b.Invite.CreatedAt) {
			return a.Invite.CreatedAt.Before(b.Invite.CreatedAt)
		}
		return a.Invite.Code < b.Invite.Code
	})
	return out, nil
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneGuest(g Guest) Guest {
	g.Email = cloneString(g.Email)
	g.Phone = cloneString(g.Phone)
	g.Note = cloneString(g.Note)
	return g
}

func cloneInvite(c InviteCode) InviteCode {
	if c.UsedAt != nil {
		t := *c.UsedAt
		c.UsedAt = &t
	}
	return c
}

var _ Store = (*MemoryStore)(nil)
