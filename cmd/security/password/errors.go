package password

import "errors"

// Policy errors are safe to report to the user; the others are not.
var (
	ErrPasswordBlank    = errors.New("password: blank")
	ErrPasswordTooShort = errors.New("password: too short")
	ErrPasswordTooLong  = errors.New("password: too long")
	ErrWeakPassword     = errors.New("password: too weak")

	ErrInvalidHash          = errors.New("password: invalid hash")
	ErrUnsupportedAlgorithm = errors.New("password: unsupported algorithm")
)
