package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// TokenIssuer signs and validates the two token kinds the storefront
// uses: long-lived single-claim verification tokens mailed to new
// accounts, and short-lived session tokens returned on login. The
// signing secret is injected at construction and never read from the
// environment here.
type TokenIssuer struct {
	secret          []byte
	verificationTTL time.Duration
	sessionTTL      time.Duration
	now             func() time.Time
}

type VerificationClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type SessionClaims struct {
	Name    string `json:"name"`
	IsAdmin bool   `json:"admin"`
	jwt.RegisteredClaims
}

func NewTokenIssuer(secret string, verificationTTL, sessionTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:          []byte(secret),
		verificationTTL: verificationTTL,
		sessionTTL:      sessionTTL,
		now:             time.Now,
	}
}

// WithClock overrides the issuer clock. Test hook.
func (t *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	clone := *t
	clone.now = now
	return &clone
}

func (t *TokenIssuer) IssueVerification(email string) (string, error) {
	now := t.now().UTC()
	// jwt timestamps have second precision, so the jti is what keeps a
	// reissued token distinct from one minted in the same second. The
	// stored-token comparison in ConsumeVerificationToken relies on that
	// to kill superseded links.
	claims := VerificationClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.verificationTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// VerifyVerification returns the email claim embedded in a verification
// token, or ErrInvalidToken on a bad signature or expiry.
func (t *TokenIssuer) VerifyVerification(raw string) (string, error) {
	claims := &VerificationClaims{}
	if err := t.parse(raw, claims); err != nil {
		return "", err
	}
	if claims.Email == "" {
		return "", ErrInvalidToken
	}
	return claims.Email, nil
}

func (t *TokenIssuer) IssueSession(userID uint, name string, isAdmin bool) (string, error) {
	now := t.now().UTC()
	claims := SessionClaims{
		Name:    name,
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.sessionTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// VerifySession validates a session token. A token without a subject is
// not a session token (verification tokens carry only an email claim),
// so it is rejected even when the signature checks out.
func (t *TokenIssuer) VerifySession(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := t.parse(raw, claims); err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (t *TokenIssuer) parse(raw string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(raw, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return t.now() }))
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
