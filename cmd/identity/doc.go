// Package identity owns Marquee's user records.
//
// It defines the User type, the Store persistence boundary and its
// Postgres and in-memory implementations. Password hashing lives in
// security/password and token handling in security/token; this package
// only stores the encoded hash it is given.
package identity
