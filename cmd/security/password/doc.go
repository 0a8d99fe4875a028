// Package password hashes and verifies account passwords.
//
// New hashes use the configured algorithm (Argon2id by default, bcrypt as an
// alternative). Verification is driven by the prefix of the stored hash, so
// both encodings remain verifiable after a configuration change.
//
// Hash strings are treated as untrusted input: malformed values never match
// and parameters far above the configured cost are refused.
package password
