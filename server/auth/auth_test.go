package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrincipalSet(t *testing.T) {
	set := NewPrincipalSet(3, 1, 3, 2)

	assert.True(t, set.Contains(1))
	assert.True(t, set.Contains(3))
	assert.False(t, set.Contains(4))
	assert.Equal(t, 3, set.Len())
	assert.Equal(t, []int64{1, 2, 3}, set.IDs())

	var empty *PrincipalSet
	assert.False(t, empty.Contains(1))
	assert.Zero(t, empty.Len())
	assert.Nil(t, empty.IDs())
}

func newTestAuthenticator(t *testing.T, now time.Time) *Authenticator {
	t.Helper()
	a, err := NewAuthenticator("s3cret", NewPrincipalSet(42))
	require.NoError(t, err)
	a.now = func() time.Time { return now }
	return a
}

func TestAuthenticator_RoundTrip(t *testing.T) {
	now := time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)
	a := newTestAuthenticator(t, now)

	token, err := a.IssueToken(42, time.Hour)
	require.NoError(t, err)

	id, err := a.Authenticate("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	id, err = a.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestAuthenticator_Rejections(t *testing.T) {
	now := time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)
	a := newTestAuthenticator(t, now)

	stranger, err := a.IssueToken(7, time.Hour)
	require.NoError(t, err)
	_, err = a.Authenticate("Bearer " + stranger)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = a.Authenticate("")
	assert.ErrorIs(t, err, ErrMissingToken)
	_, err = a.Authenticate("Basic abc")
	assert.ErrorIs(t, err, ErrMissingToken)
	_, err = a.Authenticate("Bearer not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := a.IssueToken(42, time.Minute)
	require.NoError(t, err)
	a.now = func() time.Time { return now.Add(time.Hour) }
	_, err = a.VerifyToken(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewAuthenticator("different", NewPrincipalSet(42))
	require.NoError(t, err)
	forged, err := other.IssueToken(42, time.Hour)
	require.NoError(t, err)
	_, err = a.VerifyToken(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticator_RejectsOtherAlgorithms(t *testing.T) {
	a := newTestAuthenticator(t, time.Now())

	claims := jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = a.VerifyToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewAuthenticator_RequiresSecret(t *testing.T) {
	_, err := NewAuthenticator("", NewPrincipalSet())
	assert.Error(t, err)
}
