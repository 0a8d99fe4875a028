// Package authflow implements Marquee's account lifecycle: register, login,
// logout, password change and admin seeding.
//
// Flows are transport-agnostic. They combine the credential store, the
// password hasher, the token codec and the revocation list, and report
// outcomes as sentinel errors the HTTP layer maps onto status codes.
package authflow
