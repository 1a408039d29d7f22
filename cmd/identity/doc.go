// Package identity holds the guest identity primitives shared by the invite and RSVP flows.
//
// It covers name-slug derivation, phone canonicalization, ULID ids and the typed
// operation errors the stores and services return. Everything here is pure and safe for
// concurrent use.
package identity
