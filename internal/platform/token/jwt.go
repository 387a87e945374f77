// Package token mints and verifies the signed, typed bearer tokens used
// across the auth workflows. Tokens are self-contained: validity is a
// function of signature, expiry, and type only, with no server-side
// revocation list. Logout is client-side token discard.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pixshare/pixshare-api/internal/domain"
)

type Type string

const (
	TypeAccess            Type = "ACCESS"
	TypeRefresh           Type = "REFRESH"
	TypeResetPassword     Type = "RESET_PASSWORD"
	TypeEmailVerification Type = "EMAIL_VERIFICATION"
)

// ErrInvalid is the uniform verification failure. Expired, wrong-type, and
// bad-signature tokens are indistinguishable to callers.
var ErrInvalid = errors.New("invalid token")

type Claims struct {
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	TokenType Type   `json:"type"`
	jwt.RegisteredClaims
}

// UserID returns the subject user's external id.
func (c *Claims) UserID() string {
	return c.Subject
}

type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewIssuer(secret string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (i *Issuer) sign(user *domain.User, t Type, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:     user.Email,
		Role:      user.Role,
		TokenType: t,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ExternalID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Audience:  []string{"pixshare-api"},
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(i.secret)
}

// IssuePair mints the access/refresh token pair for a login.
func (i *Issuer) IssuePair(user *domain.User) (access, refresh string, err error) {
	access, err = i.sign(user, TypeAccess, i.accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = i.sign(user, TypeRefresh, i.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// IssuePurpose mints a purpose-bound token (e.g. password-reset
// continuation). Verification checks the purpose, so a token minted for
// one workflow cannot be replayed against another.
func (i *Issuer) IssuePurpose(user *domain.User, t Type, ttl time.Duration) (string, error) {
	return i.sign(user, t, ttl)
}

// Verify validates signature, expiry, and that the embedded type matches
// expected. Every failure mode collapses into ErrInvalid.
func (i *Issuer) Verify(tokenString string, expected Type) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, ErrInvalid
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrInvalid
	}
	if claims.TokenType != expected {
		return nil, ErrInvalid
	}
	return claims, nil
}
