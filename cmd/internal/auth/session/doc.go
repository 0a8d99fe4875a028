// Package session decides whether a request carries a live session.
//
// A bearer token is live when its signature verifies, it has not passed its
// expiry, and it does not appear in the revocation list. The Gate combines
// those checks with a user lookup and attaches the resolved identity to the
// request context. Revocation is append-only: once a token is revoked it
// never becomes valid again.
//
// Tokens travel either in the Authorization header or in a cookie; the
// transport is chosen once per deployment (MARQUEE_AUTH_TRANSPORT).
package session
