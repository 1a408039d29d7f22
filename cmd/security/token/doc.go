// Package token issues and verifies invite capability tokens.
//
// A capability token binds a guest id to an invite code for a bounded time and authorizes
// the RSVP step without a guest login.
//
// Wire format:
//
//	base64url(JSON{"gid","code","exp"}) "." base64url(HMAC-SHA256(secret, first part))
//
// Encoding is unpadded base64url; exp is epoch seconds. Verification recomputes the MAC
// over the encoded payload exactly as received and compares in constant time, so any
// change to either part invalidates the token.
//
// Environment:
//   - WEDDING_INVITE_TOKEN_SECRET: signing secret (required, >= 16 bytes).
//   - WEDDING_INVITE_TOKEN_TTL: token lifetime (default 24h).
package token
