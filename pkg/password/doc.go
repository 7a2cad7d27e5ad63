// Package password hashes and verifies passwords with Argon2id.
//
// Hashes use the PHC string format
//
//	$argon2id$v=19$m=<KiB>,t=<iterations>,p=<lanes>$<salt>$<key>
//
// and are keyed with a server-wide pepper that never appears in the hash:
// the Argon2id input is HMAC-SHA256(pepper, password). Verify treats the
// stored hash as untrusted input and fails closed on anything it cannot parse.
package password
