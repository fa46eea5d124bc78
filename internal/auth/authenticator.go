package auth

import (
	"fmt"
	"time"

	"github.com/nerrad567/afkloop/internal/infrastructure/config"
)

// OperatorSubject is the token subject for the single operator account.
const OperatorSubject = "operator"

// Authenticator exchanges the operator password for tokens and verifies them.
type Authenticator struct {
	secret       string
	passwordHash string
	ttl          time.Duration
	now          func() time.Time
}

// NewAuthenticator builds an authenticator from the security section.
func NewAuthenticator(cfg config.SecurityConfig) *Authenticator {
	return &Authenticator{
		secret:       cfg.JWT.Secret,
		passwordHash: cfg.OperatorPasswordHash,
		ttl:          time.Duration(cfg.JWT.AccessTokenTTL) * time.Minute,
		now:          time.Now,
	}
}

// Login checks password and issues an operator token.
//
// Returns:
//   - string: Signed token
//   - time.Time: Expiry
//   - error: ErrIssuanceDisabled, ErrInvalidCredentials, or a hash/signing error
func (a *Authenticator) Login(password string) (string, time.Time, error) {
	if a.passwordHash == "" || a.secret == "" {
		return "", time.Time{}, ErrIssuanceDisabled
	}
	ok, err := VerifyPassword(password, a.passwordHash)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("verifying operator password: %w", err)
	}
	if !ok {
		return "", time.Time{}, ErrInvalidCredentials
	}
	return IssueToken(OperatorSubject, RoleOperator, a.secret, a.ttl, a.now())
}

// Issue signs a token without a password check. Used by the CLI, which
// already has the secret.
func (a *Authenticator) Issue(role Role, ttl time.Duration) (string, time.Time, error) {
	if a.secret == "" {
		return "", time.Time{}, ErrIssuanceDisabled
	}
	if _, ok := ParseRole(string(role)); !ok {
		return "", time.Time{}, fmt.Errorf("unknown role %q", role)
	}
	if ttl <= 0 {
		ttl = a.ttl
	}
	return IssueToken(OperatorSubject, role, a.secret, ttl, a.now())
}

// Verify parses a bearer token.
func (a *Authenticator) Verify(token string) (*Claims, error) {
	if a.secret == "" {
		return nil, ErrTokenInvalid
	}
	return ParseToken(token, a.secret)
}
