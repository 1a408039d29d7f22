// Package guestbook persists guests, their invite codes and RSVP responses.
//
// Three Store implementations share one contract: PostgresStore (production),
// SQLiteStore (single-host deployments) and MemoryStore (dev and tests). All of them
// enforce the same invariants: unique name slug, globally unique invite code, at most one
// response per code, and an all-or-nothing SubmitResponse.
package guestbook
