package auth

import (
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const (
	// Issuer is the "iss" claim of API tokens.
	Issuer = "meetbot"
	// DefaultTokenTTL is the lifetime of a token when none is given.
	DefaultTokenTTL = 30 * 24 * time.Hour

	bearerPrefix = "Bearer "
)

var (
	// ErrMissingToken means no bearer token was presented.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken means the token failed verification.
	ErrInvalidToken = errors.New("invalid token")
	// ErrForbidden means the token is valid but its principal is not authorized.
	ErrForbidden = errors.New("principal not authorized")
)

// Authenticator issues and verifies HS256 bearer tokens for the HTTP API.
type Authenticator struct {
	secret     []byte
	principals *PrincipalSet
	now        func() time.Time
}

// NewAuthenticator creates an authenticator signing with secret.
func NewAuthenticator(secret string, principals *PrincipalSet) (*Authenticator, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &Authenticator{
		secret:     []byte(secret),
		principals: principals,
		now:        time.Now,
	}, nil
}

// Principals returns the authorized set.
func (a *Authenticator) Principals() *PrincipalSet {
	return a.principals
}

// IssueToken signs a token whose subject is principalID.
func (a *Authenticator) IssueToken(principalID int64, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := a.now()
	claims := jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   strconv.FormatInt(principalID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return token, nil
}

// Authenticate verifies an "Authorization: Bearer <token>" header value and
// returns the principal ID it carries.
func (a *Authenticator) Authenticate(header string) (int64, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return 0, ErrMissingToken
	}
	return a.VerifyToken(strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)))
}

// VerifyToken verifies a raw token string.
func (a *Authenticator) VerifyToken(raw string) (int64, error) {
	if raw == "" {
		return 0, ErrMissingToken
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return 0, errors.Wrap(ErrInvalidToken, err.Error())
	}

	principalID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, errors.Wrap(ErrInvalidToken, "subject is not a principal id")
	}
	if !a.principals.Contains(principalID) {
		return 0, ErrForbidden
	}
	return principalID, nil
}
