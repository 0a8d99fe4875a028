package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCodec(t *testing.T, key string) (*Codec, *fakeClock) {
	t.Helper()
	clk := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c, err := NewCodec([]byte(key), WithClock(clk.Now))
	require.NoError(t, err)
	return c, clk
}

func TestCodec_IssueAndDecode(t *testing.T) {
	c, _ := newTestCodec(t, "0123456789abcdef0123456789abcdef")

	tok, err := c.Issue(42, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(tok, "."))

	id, err := c.Decode(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestCodec_ExpiredAfterTTL(t *testing.T) {
	c, clk := newTestCodec(t, "0123456789abcdef0123456789abcdef")

	tok, err := c.Issue(7, 5*time.Second)
	require.NoError(t, err)

	clk.Advance(4 * time.Second)
	_, err = c.Decode(tok)
	require.NoError(t, err)

	clk.Advance(2 * time.Second)
	_, err = c.Decode(tok)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestCodec_WrongKeyIsMalformed(t *testing.T) {
	issuer, _ := newTestCodec(t, "0123456789abcdef0123456789abcdef")
	verifier, _ := newTestCodec(t, "fedcba9876543210fedcba9876543210")

	tok, err := issuer.Issue(1, time.Hour)
	require.NoError(t, err)

	_, err = verifier.Decode(tok)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestCodec_ExpiredWithBadSignatureIsMalformed(t *testing.T) {
	issuer, clk := newTestCodec(t, "0123456789abcdef0123456789abcdef")
	verifier, err := NewCodec([]byte("fedcba9876543210fedcba9876543210"), WithClock(clk.Now))
	require.NoError(t, err)

	tok, err := issuer.Issue(1, time.Second)
	require.NoError(t, err)
	clk.Advance(time.Minute)

	_, err = verifier.Decode(tok)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestCodec_TamperedPayloadIsMalformed(t *testing.T) {
	c, _ := newTestCodec(t, "0123456789abcdef0123456789abcdef")
	other, err := c.Issue(2, time.Hour)
	require.NoError(t, err)
	tok, err := c.Issue(1, time.Hour)
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	otherParts := strings.Split(other, ".")
	forged := parts[0] + "." + otherParts[1] + "." + parts[2]

	_, err = c.Decode(forged)
	assert.ErrorIs(t, err, ErrMalformed)
}

// reencodings returns the strings that differ from tok only in the unused
// low bits of its last character.
func reencodings(t *testing.T, tok string) []string {
	t.Helper()
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

	last := strings.IndexByte(alphabet, tok[len(tok)-1])
	require.GreaterOrEqual(t, last, 0)

	var out []string
	for bits := 1; bits <= 3; bits++ {
		out = append(out, tok[:len(tok)-1]+string(alphabet[last^bits]))
	}
	return out
}

func TestCodec_NonCanonicalSignatureIsMalformed(t *testing.T) {
	c, _ := newTestCodec(t, "0123456789abcdef0123456789abcdef")

	tok, err := c.Issue(9, time.Hour)
	require.NoError(t, err)
	// A 32-byte HS256 signature leaves two unused bits in its last character.
	require.Len(t, strings.Split(tok, ".")[2], 43)

	for _, alt := range reencodings(t, tok) {
		_, err := c.Decode(alt)
		assert.ErrorIs(t, err, ErrMalformed, alt)
	}

	id, err := c.Decode(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)
}

func TestCodec_RejectsOtherAlgorithms(t *testing.T) {
	key := "0123456789abcdef0123456789abcdef"
	c, clk := newTestCodec(t, key)

	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "1",
		IssuedAt:  jwt.NewNumericDate(clk.Now()),
		ExpiresAt: jwt.NewNumericDate(clk.Now().Add(time.Hour)),
	}}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = c.Decode(none)
	assert.ErrorIs(t, err, ErrMalformed)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(key))
	require.NoError(t, err)
	_, err = c.Decode(hs512)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestCodec_InvalidSubjectIsMalformed(t *testing.T) {
	key := "0123456789abcdef0123456789abcdef"
	c, clk := newTestCodec(t, key)

	for _, sub := range []string{"", "abc", "0", "-3"} {
		claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(clk.Now()),
			ExpiresAt: jwt.NewNumericDate(clk.Now().Add(time.Hour)),
		}}
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
		require.NoError(t, err)

		_, err = c.Decode(tok)
		assert.ErrorIs(t, err, ErrMalformed, "sub=%q", sub)
	}
}

func TestCodec_MissingExpIsMalformed(t *testing.T) {
	key := "0123456789abcdef0123456789abcdef"
	c, _ := newTestCodec(t, key)

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1"}).SignedString([]byte(key))
	require.NoError(t, err)

	_, err = c.Decode(tok)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestCodec_GarbageIsMalformed(t *testing.T) {
	c, _ := newTestCodec(t, "0123456789abcdef0123456789abcdef")

	for _, in := range []string{"", "abc", "a.b.c", "Bearer x", strings.Repeat("x", 4096)} {
		_, err := c.Decode(in)
		assert.ErrorIs(t, err, ErrMalformed, "input=%q", in)
	}
}

func TestCodec_TokensAreUniqueWithinASecond(t *testing.T) {
	c, _ := newTestCodec(t, "0123456789abcdef0123456789abcdef")

	a, err := c.Issue(9, time.Hour)
	require.NoError(t, err)
	b, err := c.Issue(9, time.Hour)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestCodec_Guards(t *testing.T) {
	_, err := NewCodec(nil)
	assert.ErrorIs(t, err, ErrSigningKeyMissing)

	c, _ := newTestCodec(t, "0123456789abcdef0123456789abcdef")
	_, err = c.Issue(1, 0)
	assert.ErrorIs(t, err, ErrInvalidTTL)
}
