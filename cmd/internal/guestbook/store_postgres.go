package guestbook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists the guest book in PostgreSQL.
// The pool is owned by the caller; Close is a no-op.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// StoreOption configures PostgresStore.
type StoreOption func(*PostgresStore) error

// WithSchema sets the DB schema used by the store (default: "wedding").
func WithSchema(schema string) StoreOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return ErrInvalidInput
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...StoreOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, schema: "wedding"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, ErrInvalidInput
	}
	return st, nil
}

// Close implements Store.
func (s *PostgresStore) Close() error { return nil }

// Migrate creates the schema, tables and unique indexes if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return ErrInvalidInput
	}
	_, err := s.pool.Exec(ctx, postgresSchemaSQL(s.schema))
	if err != nil {
		return fmt.Errorf("guestbook.Migrate: %w", err)
	}
	return nil
}

// CodeExists reports whether an invite code is already issued.
func (s *PostgresStore) CodeExists(ctx context.Context, code string) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+s.t("invite_codes")+` WHERE code = $1)`,
		strings.TrimSpace(code),
	).Scan(&exists)
	return exists, err
}

// CreateGuestInvite upserts the guest by slug and inserts the invite code in one transaction.
func (s *PostgresStore) CreateGuestInvite(ctx context.Context, in GuestInviteRecord) (Guest, InviteCode, error) {
	const op = "guestbook.CreateGuestInvite"

	if err := s.ready(ctx); err != nil {
		return Guest{}, InviteCode{}, err
	}
	if err := in.validate(); err != nil {
		return Guest{}, InviteCode{}, err
	}
	now := nowOr(in.Now)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return Guest{}, InviteCode{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	g, err := scanGuest(tx.QueryRow(ctx,
		`INSERT INTO `+s.t("guests")+` (id, full_name, name_slug, email, phone, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)
		 ON CONFLICT (name_slug) DO UPDATE
		    SET full_name = EXCLUDED.full_name,
		        email = EXCLUDED.email,
		        phone = EXCLUDED.phone,
		        updated_at = EXCLUDED.updated_at
		 RETURNING `+guestColumns,
		in.GuestID, in.FullName, in.NameSlug, in.Email, in.Phone, now,
	))
	if err != nil {
		return Guest{}, InviteCode{}, fmt.Errorf("%s: upsert guest: %w", op, err)
	}

	inv := InviteCode{
		ID:           in.InviteID,
		Code:         in.Code,
		MaxAttendees: in.MaxAttendees,
		GuestID:      g.ID,
		CreatedAt:    now,
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO `+s.t("invite_codes")+` (id, code, max_attendees, guest_id, used_at, created_at)
		 VALUES ($1, $2, $3, $4, NULL, $5)`,
		inv.ID, inv.Code, inv.MaxAttendees, inv.GuestID, inv.CreatedAt,
	)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok && field == "code" {
			return Guest{}, InviteCode{}, fmt.Errorf("%s: %w", op, ErrCodeTaken)
		}
		return Guest{}, InviteCode{}, fmt.Errorf("%s: insert code: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Guest{}, InviteCode{}, err
	}
	return g, inv, nil
}

// FindInviteByCode loads an invite and its owner.
func (s *PostgresStore) FindInviteByCode(ctx context.Context, code string) (InviteCode, *Guest, error) {
	if err := s.ready(ctx); err != nil {
		return InviteCode{}, nil, err
	}

	var (
		inv     InviteCode
		guestID *string
		g       nullableGuest
	)
	err := s.pool.QueryRow(ctx,
		`SELECT c.id, c.code, c.max_attendees, c.guest_id, c.used_at, c.created_at,
		        g.id, g.full_name, g.name_slug, g.email, g.phone, g.note, g.created_at, g.updated_at
		   FROM `+s.t("invite_codes")+` c
		   LEFT JOIN `+s.t("guests")+` g ON g.id = c.guest_id
		  WHERE c.code = $1`,
		strings.TrimSpace(code),
	).Scan(
		&inv.ID, &inv.Code, &inv.MaxAttendees, &guestID, &inv.UsedAt, &inv.CreatedAt,
		&g.ID, &g.FullName, &g.NameSlug, &g.Email, &g.Phone, &g.Note, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return InviteCode{}, nil, ErrNotFound
		}
		return InviteCode{}, nil, err
	}
	// An unowned code scans as a NULL guest and answers with no owner.
	if guestID != nil {
		inv.GuestID = *guestID
	}
	return inv, g.guest(), nil
}

// GetGuest loads a guest by id.
func (s *PostgresStore) GetGuest(ctx context.Context, id string) (Guest, error) {
	if err := s.ready(ctx); err != nil {
		return Guest{}, err
	}
	g, err := scanGuest(s.pool.QueryRow(ctx,
		`SELECT `+guestColumns+` FROM `+s.t("guests")+` WHERE id = $1`,
		strings.TrimSpace(id),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Guest{}, ErrNotFound
		}
		return Guest{}, err
	}
	return g, nil
}

// ResponseExists reports whether a response is recorded for the invite code id.
func (s *PostgresStore) ResponseExists(ctx context.Context, codeID string) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+s.t("rsvp_responses")+` WHERE code_id = $1)`,
		strings.TrimSpace(codeID),
	).Scan(&exists)
	return exists, err
}

// SubmitResponse records the RSVP and consumes the invite code in one transaction.
//
// The invite row is locked first so concurrent submissions for one code queue up; the
// loser then sees used_at set. The unique index on rsvp_responses.code_id backs this up.
func (s *PostgresStore) SubmitResponse(ctx context.Context, in SubmitRecord) (Response, error) {
	const op = "guestbook.SubmitResponse"

	if err := s.ready(ctx); err != nil {
		return Response{}, err
	}
	if err := in.validate(); err != nil {
		return Response{}, err
	}
	now := nowOr(in.Now)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return Response{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var usedAt *time.Time
	err = tx.QueryRow(ctx,
		`SELECT used_at FROM `+s.t("invite_codes")+`
		  WHERE id = $1 AND guest_id = $2
		  FOR UPDATE`,
		in.CodeID, in.GuestID,
	).Scan(&usedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Response{}, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return Response{}, err
	}
	if usedAt != nil {
		return Response{}, fmt.Errorf("%s: %w", op, ErrAlreadySubmitted)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE `+s.t("guests")+` SET phone = $2, note = $3, updated_at = $4 WHERE id = $1`,
		in.GuestID, in.Phone, in.Note, now,
	)
	if err != nil {
		return Response{}, err
	}
	if tag.RowsAffected() != 1 {
		return Response{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	resp := Response{
		ID:          in.ResponseID,
		GuestID:     in.GuestID,
		CodeID:      in.CodeID,
		Status:      in.Status,
		Attendees:   in.Attendees,
		Note:        in.Note,
		RespondedAt: now,
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO `+s.t("rsvp_responses")+` (id, guest_id, code_id, status, attendees, note, responded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		resp.ID, resp.GuestID, resp.CodeID, string(resp.Status), resp.Attendees, resp.Note, resp.RespondedAt,
	)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok && field == "code_id" {
			return Response{}, fmt.Errorf("%s: %w", op, ErrAlreadySubmitted)
		}
		return Response{}, err
	}

	tag, err = tx.Exec(ctx,
		`UPDATE `+s.t("invite_codes")+` SET used_at = $2 WHERE id = $1 AND used_at IS NULL`,
		in.CodeID, now,
	)
	if err != nil {
		return Response{}, err
	}
	if tag.RowsAffected() != 1 {
		return Response{}, fmt.Errorf("%s: %w", op, ErrAlreadySubmitted)
	}

	if err := tx.Commit(ctx); err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok && field == "code_id" {
			return Response{}, fmt.Errorf("%s: %w", op, ErrAlreadySubmitted)
		}
		return Response{}, err
	}
	return resp, nil
}

// ListInvites returns every invite code with its owner and response.
func (s *PostgresStore) ListInvites(ctx context.Context) ([]InviteRow, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT g.id, g.full_name, g.name_slug, g.email, g.phone, g.note, g.created_at, g.updated_at,
		        c.id, c.code, c.max_attendees, c.guest_id, c.used_at, c.created_at,
		        r.id, r.status, r.attendees, r.note, r.responded_at
		   FROM `+s.t("invite_codes")+` c
		   JOIN `+s.t("guests")+` g ON g.id = c.guest_id
		   LEFT JOIN `+s.t("rsvp_responses")+` r ON r.code_id = c.id
		  ORDER BY g.full_name ASC, c.created_at ASC, c.code ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []InviteRow
	for rows.Next() {
		var (
			row InviteRow
			r   nullableResponse
		)
		if err := rows.Scan(
			&row.Guest.ID, &row.Guest.FullName, &row.Guest.NameSlug, &row.Guest.Email, &row.Guest.Phone, &row.Guest.Note, &row.Guest.CreatedAt, &row.Guest.UpdatedAt,
			&row.Invite.ID, &row.Invite.Code, &row.Invite.MaxAttendees, &row.Invite.GuestID, &row.Invite.UsedAt, &row.Invite.CreatedAt,
			&r.ID, &r.Status, &r.Attendees, &r.Note, &r.RespondedAt,
		); err != nil {
			return nil, err
		}
		row.Response = r.response(row.Guest.ID, row.Invite.ID)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ready(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return ErrInvalidInput
	}
	return ctx.Err()
}

func (s *PostgresStore) t(table string) string {
	return pgIdent(s.schema, table)
}

func pgIdent(schema, table string) string {
	return pgx.Identifier{schema, table}.Sanitize()
}

// pgClassifyUniqueViolation maps a 23505 error to the logical field it protects.
func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	switch c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName)); {
	case c == "uq_invite_codes_code":
		return "code", true
	case c == "uq_rsvp_responses_code_id":
		return "code_id", true
	case c == "uq_guests_name_slug":
		return "name_slug", true
	case strings.Contains(c, "code_id"):
		return "code_id", true
	case strings.Contains(c, "code"):
		return "code", true
	default:
		return "unique", true
	}
}

var _ Store = (*PostgresStore)(nil)
