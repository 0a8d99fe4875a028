package httpjson

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Email string `json:"email"`
}

func TestDecode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		body    string
		max     int64
		wantErr error
		large   bool
		ok      bool
	}{
		{name: "valid", body: `{"email":"a@x.com"}`, max: 1024, ok: true},
		{name: "empty", body: ``, max: 1024, wantErr: ErrEmptyBody},
		{name: "trailing", body: `{"email":"a@x.com"} {}`, max: 1024, wantErr: ErrTrailingData},
		{name: "unknown field", body: `{"email":"a@x.com","admin":true}`, max: 1024},
		{name: "too large", body: `{"email":"` + strings.Repeat("a", 64) + `"}`, max: 16, large: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tc.body))

			var p payload
			err := Decode(rr, req, tc.max, &p)
			switch {
			case tc.ok:
				require.NoError(t, err)
				assert.Equal(t, "a@x.com", p.Email)
			case tc.wantErr != nil:
				require.ErrorIs(t, err, tc.wantErr)
			default:
				require.Error(t, err)
			}
			assert.Equal(t, tc.large, IsTooLarge(err))
		})
	}
}

func TestError(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	Error(rr, http.StatusConflict, "email_taken", "Email is already registered.")

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var er ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&er))
	assert.Equal(t, "email_taken", er.Error.Code)
	assert.Equal(t, "Email is already registered.", er.Error.Message)
}

func TestBadBody(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	BadBody(rr, &http.MaxBytesError{Limit: 16})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)

	rr = httptest.NewRecorder()
	BadBody(rr, ErrTrailingData)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
