package guestbook

import (
	"time"

	"github.com/jackc/pgx/v5"
)

const guestColumns = `id, full_name, name_slug, email, phone, note, created_at, updated_at`

func scanGuest(row pgx.Row) (Guest, error) {
	var g Guest
	err := row.Scan(&g.ID, &g.FullName, &g.NameSlug, &g.Email, &g.Phone, &g.Note, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

// nullableGuest is the LEFT JOIN side of an invite lookup.
type nullableGuest struct {
	ID        *string
	FullName  *string
	NameSlug  *string
	Email     *string
	Phone     *string
	Note      *string
	CreatedAt *time.Time
	UpdatedAt *time.Time
}

func (n nullableGuest) guest() *Guest {
	if n.ID == nil {
		return nil
	}
	g := &Guest{
		ID:    *n.ID,
		Email: n.Email,
		Phone: n.Phone,
		Note:  n.Note,
	}
	if n.FullName != nil {
		g.FullName = *n.FullName
	}
	if n.NameSlug != nil {
		g.NameSlug = *n.NameSlug
	}
	if n.CreatedAt != nil {
		g.CreatedAt = n.CreatedAt.UTC()
	}
	if n.UpdatedAt != nil {
		g.UpdatedAt = n.UpdatedAt.UTC()
	}
	return g
}

type nullableResponse struct {
	ID          *string
	Status      *string
	Attendees   *int
	Note        *string
	RespondedAt *time.Time
}

func (n nullableResponse) response(guestID, codeID string) *Response {
	if n.ID == nil {
		return nil
	}
	r := &Response{
		ID:      *n.ID,
		GuestID: guestID,
		CodeID:  codeID,
		Note:    n.Note,
	}
	if n.Status != nil {
		r.Status = Status(*n.Status)
	}
	if n.Attendees != nil {
		r.Attendees = *n.Attendees
	}
	if n.RespondedAt != nil {
		r.RespondedAt = n.RespondedAt.UTC()
	}
	return r
}
