// Package token issues and decodes signed, time-bound bearer tokens.
//
// Tokens are HS256 JWTs carrying the subject id, issue time and expiry.
// Decoding checks the signature and expiry only; revocation is layered on
// top by the session package so the codec stays a pure primitive.
//
// Environment:
//   - MARQUEE_TOKEN_SIGNING_KEY: HMAC secret, loaded once at startup.
//     Rotating it invalidates every outstanding token.
package token
