package services

import (
	"crypto/subtle"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AdminAuth verifies the shared admin credential and issues short-lived
// session tokens so the admin page does not have to hold the raw secret.
// There is no ambient authorization state: the credential is an explicit
// parameter of every check.
type AdminAuth struct {
	secret     string // plaintext comparison, constant time
	secretHash []byte // bcrypt hash; preferred when configured
	signingKey []byte
	sessionTTL time.Duration
	now        func() time.Time
}

func NewAdminAuth(secret, secretHash string, signingKey []byte) *AdminAuth {
	return &AdminAuth{
		secret:     secret,
		secretHash: []byte(secretHash),
		signingKey: signingKey,
		sessionTTL: 2 * time.Hour,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// VerifyCredential checks the submitted shared secret. It fails closed:
// an unconfigured server rejects everything.
func (a *AdminAuth) VerifyCredential(secret string) error {
	if secret == "" {
		return NewUnauthorizedError("missing admin credential")
	}
	if len(a.secretHash) > 0 {
		if err := bcrypt.CompareHashAndPassword(a.secretHash, []byte(secret)); err != nil {
			return NewUnauthorizedError("wrong admin credential")
		}
		return nil
	}
	if a.secret == "" {
		return NewUnauthorizedError("admin credential not configured")
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(a.secret)) != 1 {
		return NewUnauthorizedError("wrong admin credential")
	}
	return nil
}

// IssueSession returns a signed short-lived admin session token.
func (a *AdminAuth) IssueSession() (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.sessionTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.signingKey)
}

// VerifySession validates an admin session token issued by IssueSession.
func (a *AdminAuth) VerifySession(token string) error {
	t, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return a.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return NewUnauthorizedError("invalid admin session")
	}
	claims, ok := t.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject != "admin" {
		return NewUnauthorizedError("invalid admin session")
	}
	return nil
}
