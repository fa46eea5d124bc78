package auth

import "errors"

var (
	// ErrInvalidCredentials is returned for a wrong password.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrIssuanceDisabled is returned when no operator password hash is configured.
	ErrIssuanceDisabled = errors.New("auth: token issuance disabled")

	// ErrTokenInvalid is returned for a token that fails parsing or validation.
	ErrTokenInvalid = errors.New("auth: invalid token")

	// ErrInvalidHash is returned for a malformed PHC string.
	ErrInvalidHash = errors.New("auth: invalid password hash")
)
