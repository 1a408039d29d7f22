package guestbook

import (
	"strings"

	"github.com/jackc/pgx/v5"
)

// postgresSchemaSQL renders the idempotent DDL for one schema. Constraint names are
// load-bearing: pgClassifyUniqueViolation matches on them.
func postgresSchemaSQL(schema string) string {
	q := func(table string) string { return pgIdent(schema, table) }
	r := strings.NewReplacer(
		"{{schema}}", pgx.Identifier{schema}.Sanitize(),
		"{{guests}}", q("guests"),
		"{{invite_codes}}", q("invite_codes"),
		"{{rsvp_responses}}", q("rsvp_responses"),
	)
	return r.Replace(postgresDDL)
}

const postgresDDL = `
CREATE SCHEMA IF NOT EXISTS {{schema}};

CREATE TABLE IF NOT EXISTS {{guests}} (
	id          text PRIMARY KEY,
	full_name   text NOT NULL,
	name_slug   text NOT NULL,
	email       text NULL,
	phone       text NULL,
	note        text NULL,
	created_at  timestamptz NOT NULL,
	updated_at  timestamptz NOT NULL,
	CONSTRAINT uq_guests_name_slug UNIQUE (name_slug)
);

CREATE TABLE IF NOT EXISTS {{invite_codes}} (
	id             text PRIMARY KEY,
	code           text NOT NULL,
	max_attendees  integer NOT NULL CHECK (max_attendees >= 1),
	guest_id       text NULL REFERENCES {{guests}} (id) ON DELETE CASCADE,
	used_at        timestamptz NULL,
	created_at     timestamptz NOT NULL,
	CONSTRAINT uq_invite_codes_code UNIQUE (code)
);

CREATE INDEX IF NOT EXISTS ix_invite_codes_guest_id ON {{invite_codes}} (guest_id);

CREATE TABLE IF NOT EXISTS {{rsvp_responses}} (
	id            text PRIMARY KEY,
	guest_id      text NOT NULL REFERENCES {{guests}} (id) ON DELETE CASCADE,
	code_id       text NOT NULL REFERENCES {{invite_codes}} (id) ON DELETE CASCADE,
	status        text NOT NULL CHECK (status IN ('ATTENDING', 'NOT_ATTENDING', 'UNDECIDED')),
	attendees     integer NOT NULL CHECK (attendees >= 1),
	note          text NULL,
	responded_at  timestamptz NOT NULL,
	CONSTRAINT uq_rsvp_responses_code_id UNIQUE (code_id)
);
`
