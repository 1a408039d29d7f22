package guestbook

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// SQLiteStore persists the guest book in a single SQLite file. Times are stored as
// unix milliseconds.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies embedded migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("guestbook.OpenSQLite: path is required: %w", ErrInvalidInput)
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer keeps SubmitResponse serialized without BEGIN IMMEDIATE juggling.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applySQLiteMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the SQLite handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the database handle for readiness probes.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) CodeExists(ctx context.Context, code string) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM invite_codes WHERE code = ?`, strings.TrimSpace(code),
	).Scan(&n)
	return n > 0, err
}

func (s *SQLiteStore) CreateGuestInvite(ctx context.Context, in GuestInviteRecord) (Guest, InviteCode, error) {
	const op = "guestbook.CreateGuestInvite"

	if err := s.ready(ctx); err != nil {
		return Guest{}, InviteCode{}, err
	}
	if err := in.validate(); err != nil {
		return Guest{}, InviteCode{}, err
	}
	now := nowOr(in.Now)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Guest{}, InviteCode{}, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO guests (id, full_name, name_slug, email, phone, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (name_slug) DO UPDATE
		    SET full_name = excluded.full_name,
		        email = excluded.email,
		        phone = excluded.phone,
		        updated_at = excluded.updated_at`,
		in.GuestID, in.FullName, in.NameSlug, in.Email, in.Phone, toMillis(now), toMillis(now),
	)
	if err != nil {
		return Guest{}, InviteCode{}, fmt.Errorf("%s: upsert guest: %w", op, err)
	}

	g, err := scanSQLiteGuest(tx.QueryRowContext(ctx,
		`SELECT `+guestColumns+` FROM guests WHERE name_slug = ?`, in.NameSlug,
	))
	if err != nil {
		return Guest{}, InviteCode{}, fmt.Errorf("%s: reload guest: %w", op, err)
	}

	inv := InviteCode{
		ID:           in.InviteID,
		Code:         in.Code,
		MaxAttendees: in.MaxAttendees,
		GuestID:      g.ID,
		CreatedAt:    fromMillis(toMillis(now)),
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO invite_codes (id, code, max_attendees, guest_id, used_at, created_at)
		 VALUES (?, ?, ?, ?, NULL, ?)`,
		inv.ID, inv.Code, inv.MaxAttendees, inv.GuestID, toMillis(inv.CreatedAt),
	)
	if err != nil {
		if sqliteUniqueViolation(err, "invite_codes.code") {
			return Guest{}, InviteCode{}, fmt.Errorf("%s: %w", op, ErrCodeTaken)
		}
		return Guest{}, InviteCode{}, fmt.Errorf("%s: insert code: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return Guest{}, InviteCode{}, err
	}
	return g, inv, nil
}

func (s *SQLiteStore) FindInviteByCode(ctx context.Context, code string) (InviteCode, *Guest, error) {
	if err := s.ready(ctx); err != nil {
		return InviteCode{}, nil, err
	}

	var (
		inv               InviteCode
		guestID           sql.NullString
		usedAt            sql.NullInt64
		createdAt         int64
		gID, gName, gSlug sql.NullString
		gEmail, gPhone    sql.NullString
		gNote             sql.NullString
		gCreated, gUpd    sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT c.id, c.code, c.max_attendees, c.guest_id, c.used_at, c.created_at,
		        g.id, g.full_name, g.name_slug, g.email, g.phone, g.note, g.created_at, g.updated_at
		   FROM invite_codes c
		   LEFT JOIN guests g ON g.id = c.guest_id
		  WHERE c.code = ?`,
		strings.TrimSpace(code),
	).Scan(
		&inv.ID, &inv.Code, &inv.MaxAttendees, &guestID, &usedAt, &createdAt,
		&gID, &gName, &gSlug, &gEmail, &gPhone, &gNote, &gCreated, &gUpd,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return InviteCode{}, nil, ErrNotFound
		}
		return InviteCode{}, nil, err
	}
	inv.GuestID = guestID.String
	inv.UsedAt = millisPtr(usedAt)
	inv.CreatedAt = fromMillis(createdAt)

	if !gID.Valid {
		return inv, nil, nil
	}
	return inv, &Guest{
		ID:        gID.String,
		FullName:  gName.String,
		NameSlug:  gSlug.String,
		Email:     stringPtr(gEmail),
		Phone:     stringPtr(gPhone),
		Note:      stringPtr(gNote),
		CreatedAt: fromMillis(gCreated.Int64),
		UpdatedAt: fromMillis(gUpd.Int64),
	}, nil
}

func (s *SQLiteStore) GetGuest(ctx context.Context, id string) (Guest, error) {
	if err := s.ready(ctx); err != nil {
		return Guest{}, err
	}
	g, err := scanSQLiteGuest(s.db.QueryRowContext(ctx,
		`SELECT `+guestColumns+` FROM guests WHERE id = ?`, strings.TrimSpace(id),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Guest{}, ErrNotFound
		}
		return Guest{}, err
	}
	return g, nil
}

func (s *SQLiteStore) ResponseExists(ctx context.Context, codeID string) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM rsvp_responses WHERE code_id = ?`, strings.TrimSpace(codeID),
	).Scan(&n)
	return n > 0, err
}

func (s *SQLiteStore) SubmitResponse(ctx context.Context, in SubmitRecord) (Response, error) {
	const op = "guestbook.SubmitResponse"

	if err := s.ready(ctx); err != nil {
		return Response{}, err
	}
	if err := in.validate(); err != nil {
		return Response{}, err
	}
	now := fromMillis(toMillis(nowOr(in.Now)))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Response{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var usedAt sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT used_at FROM invite_codes WHERE id = ? AND guest_id = ?`,
		in.CodeID, in.GuestID,
	).Scan(&usedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Response{}, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return Response{}, err
	}
	if usedAt.Valid {
		return Response{}, fmt.Errorf("%s: %w", op, ErrAlreadySubmitted)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE guests SET phone = ?, note = ?, updated_at = ? WHERE id = ?`,
		in.Phone, in.Note, toMillis(now), in.GuestID,
	)
	if err != nil {
		return Response{}, err
	}
	if n, _ := res.RowsAffected(); n != 1 {
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
	_, err = tx.ExecContext(ctx,
		`INSERT INTO rsvp_responses (id, guest_id, code_id, status, attendees, note, responded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		resp.ID, resp.GuestID, resp.CodeID, string(resp.Status), resp.Attendees, resp.Note, toMillis(now),
	)
	if err != nil {
		if sqliteUniqueViolation(err, "rsvp_responses.code_id") {
			return Response{}, fmt.Errorf("%s: %w", op, ErrAlreadySubmitted)
		}
		return Response{}, err
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE invite_codes SET used_at = ? WHERE id = ? AND used_at IS NULL`,
		toMillis(now), in.CodeID,
	)
	if err != nil {
		return Response{}, err
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return Response{}, fmt.Errorf("%s: %w", op, ErrAlreadySubmitted)
	}

	if err := tx.Commit(); err != nil {
		return Response{}, err
	}
	return resp, nil
}

func (s *SQLiteStore) ListInvites(ctx context.Context) ([]InviteRow, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT g.id, g.full_name, g.name_slug, g.email, g.phone, g.note, g.created_at, g.updated_at,
		        c.id, c.code, c.max_attendees, c.used_at, c.created_at,
		        r.id, r.status, r.attendees, r.note, r.responded_at
		   FROM invite_codes c
		   JOIN guests g ON g.id = c.guest_id
		   LEFT JOIN rsvp_responses r ON r.code_id = c.id
		  ORDER BY g.full_name ASC, c.created_at ASC, c.code ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []InviteRow
	for rows.Next() {
		var (
			row                      InviteRow
			gEmail, gPhone, gNote    sql.NullString
			gCreated, gUpdated       int64
			usedAt                   sql.NullInt64
			cCreated                 int64
			rID, rStatus, rNote      sql.NullString
			rAttendees, rRespondedAt sql.NullInt64
		)
		if err := rows.Scan(
			&row.Guest.ID, &row.Guest.FullName, &row.Guest.NameSlug, &gEmail, &gPhone, &gNote, &gCreated, &gUpdated,
			&row.Invite.ID, &row.Invite.Code, &row.Invite.MaxAttendees, &usedAt, &cCreated,
			&rID, &rStatus, &rAttendees, &rNote, &rRespondedAt,
		); err != nil {
			return nil, err
		}
		row.Guest.Email = stringPtr(gEmail)
		row.Guest.Phone = stringPtr(gPhone)
		row.Guest.Note = stringPtr(gNote)
		row.Guest.CreatedAt = fromMillis(gCreated)
		row.Guest.UpdatedAt = fromMillis(gUpdated)
		row.Invite.GuestID = row.Guest.ID
		row.Invite.UsedAt = millisPtr(usedAt)
		row.Invite.CreatedAt = fromMillis(cCreated)
		if rID.Valid {
			row.Response = &Response{
				ID:          rID.String,
				GuestID:     row.Guest.ID,
				CodeID:      row.Invite.ID,
				Status:      Status(rStatus.String),
				Attendees:   int(rAttendees.Int64),
				Note:        stringPtr(rNote),
				RespondedAt: fromMillis(rRespondedAt.Int64),
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ready(ctx context.Context) error {
	if s == nil || s.db == nil {
		return ErrInvalidInput
	}
	return ctx.Err()
}

func scanSQLiteGuest(row *sql.Row) (Guest, error) {
	var (
		g                    Guest
		email, phone, note   sql.NullString
		createdAt, updatedAt int64
	)
	if err := row.Scan(&g.ID, &g.FullName, &g.NameSlug, &email, &phone, &note, &createdAt, &updatedAt); err != nil {
		return Guest{}, err
	}
	g.Email = stringPtr(email)
	g.Phone = stringPtr(phone)
	g.Note = stringPtr(note)
	g.CreatedAt = fromMillis(createdAt)
	g.UpdatedAt = fromMillis(updatedAt)
	return g, nil
}

// sqliteUniqueViolation reports whether err is a unique-constraint failure on target
// ("table.column").
func sqliteUniqueViolation(err error, target string) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return strings.Contains(sqliteErr.Error(), target)
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") && strings.Contains(msg, target)
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

func millisPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

var _ Store = (*SQLiteStore)(nil)
