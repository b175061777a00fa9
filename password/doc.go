// Package password hashes and verifies secrets with argon2id.
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// The same hasher protects account passwords and recovery codes. Verify never
// returns an error: malformed input is treated as a mismatch. [Argon2.NeedsUpgrade]
// lets the engine re-hash a password after a successful login when the stored
// parameters are weaker than the configured ones.
//
// Policy (length, character classes) lives in package policy, not here.
package password
