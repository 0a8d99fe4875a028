// Package httpjson holds the JSON request and response helpers shared by the
// HTTP handlers. Every error body has the shape {"error":{"code","message"}}.
package httpjson

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

var (
	// ErrEmptyBody is returned by Decode when the request has no body.
	ErrEmptyBody = errors.New("httpjson: empty body")
	// ErrTrailingData is returned by Decode when more input follows the JSON value.
	ErrTrailingData = errors.New("httpjson: extra data after JSON value")
)

// ErrorBody is the machine-readable code and the user-facing message.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the envelope of every error response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Write encodes v as the response body. Responses are never cached: they
// may carry tokens or identity data.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes an ErrorResponse.
func Error(w http.ResponseWriter, status int, code, msg string) {
	Write(w, status, ErrorResponse{Error: ErrorBody{Code: code, Message: msg}})
}

// Decode reads exactly one JSON value of at most maxBytes into dst.
// Unknown fields are rejected.
func Decode(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return ErrEmptyBody
	}
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return ErrTrailingData
	}
	return nil
}

// IsTooLarge reports whether err came from exceeding the Decode size limit.
func IsTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

// BadBody renders a Decode failure: 413 for an oversized body, otherwise
// 400 invalid_json.
func BadBody(w http.ResponseWriter, err error) {
	if IsTooLarge(err) {
		Error(w, http.StatusRequestEntityTooLarge, "request_too_large", "request body too large")
		return
	}
	Error(w, http.StatusBadRequest, "invalid_json", "invalid request body")
}
