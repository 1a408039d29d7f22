// Package password hashes and verifies the admin password with Argon2id.
//
// Hashes use the PHC string layout:
//
//	$argon2id$v=19$m=<KiB>,t=<iterations>,p=<lanes>$<salt b64>$<key b64>
//
// Operators produce a hash once (weddingctl hash-password) and configure it as
// WEDDING_ADMIN_PASSWORD_HASH. Stored hashes are untrusted input during Verify: their
// parameters must stay within twice the configured cost.
package password
