package authflow

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation: input rejected before any store access.
	ErrValidation = errors.New("validation failure")

	// ErrAlreadyRegistered: the email exists and the password matches its hash.
	ErrAlreadyRegistered = errors.New("already registered")

	// ErrEmailTaken: the email exists with a different password.
	ErrEmailTaken = errors.New("email taken")

	// ErrNoSuchUser: no identity has this email.
	ErrNoSuchUser = errors.New("no such user")

	// ErrWrongPassword: the identity exists but the password does not match.
	ErrWrongPassword = errors.New("wrong password")

	// ErrRevokeFailed: logout could not record the revocation.
	ErrRevokeFailed = errors.New("revoke failed")

	// ErrStorage: a store call or its transaction failed.
	ErrStorage = errors.New("storage failure")
)

// ValidationError names the rejected field. It unwraps to ErrValidation and the cause.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", ErrValidation, e.Field)
	}
	return fmt.Sprintf("%v: %s: %v", ErrValidation, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrValidation}
	}
	return []error{ErrValidation, e.Err}
}

// StorageError wraps a failed store operation. It unwraps to ErrStorage and the cause.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrStorage, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

func invalidField(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

func storage(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
