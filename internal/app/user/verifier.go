package user

import (
	"github.com/beech80/clipt-final--sub000/internal/pkg/auth/jwt"
	"github.com/beech80/clipt-final--sub000/internal/pkg/errs"
)

// Verifier maps a bearer credential to an Identity. It is the chat engine's
// view of the external identity service.
//
// A missing credential is not the verifier's concern: connection admission
// turns an absent credential into a guest identity before verification.
// Verify is only called when a credential is present, and a credential that
// cannot be verified is a hard failure.
type Verifier interface {
	Verify(credential string) (Identity, *errs.CustomError)
}

// TokenVerifier verifies signed identity tokens issued by the account service.
type TokenVerifier struct {
	secret string
}

// NewTokenVerifier returns a Verifier checking HS256 signatures with the shared secret.
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: secret}
}

// Verify parses and validates the credential and snapshots its claims into an Identity.
func (v *TokenVerifier) Verify(credential string) (Identity, *errs.CustomError) {
	payload, err := jwt.ParseToken(credential, v.secret)
	if err != nil {
		return Identity{}, errs.NewError(errs.ErrAuthenticationFailed)
	}

	displayName := payload.DisplayName
	if displayName == "" {
		displayName = payload.Username
	}

	return Identity{
		ID:          payload.ID,
		Username:    payload.Username,
		DisplayName: displayName,
		Tier:        ParseTier(payload.Tier),
		IsModerator: payload.IsModerator,
		IsAdmin:     payload.IsAdmin,
		Color:       payload.Color,
	}, nil
}
