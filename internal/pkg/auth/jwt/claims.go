package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the JWT claims issued by the platform's account service and
// consumed by the chat engine. The chat engine only verifies; it never issues
// tokens in production (GenerateToken exists for tooling and tests).
type Payload struct {
	// StandardClaims embeds the JWT standard fields such as Exp (Expiration),
	// Iat (Issued At), and Iss (Issuer), used for token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// ID is the persistent user id of the token holder.
	ID string `json:"id"`

	// Username is the unique login name, used as the moderation target handle.
	Username string `json:"username"`

	// DisplayName is the name rendered in chat.
	DisplayName string `json:"display_name"`

	// Tier is the subscription tier string ("free", "basic", "premium", "annual").
	Tier string `json:"tier"`

	// IsModerator marks a platform-level moderator.
	IsModerator bool `json:"is_moderator"`

	// IsAdmin marks a platform administrator.
	IsAdmin bool `json:"is_admin"`

	// Color is the chosen display color for the user's name, if any.
	Color string `json:"color,omitempty"`
}
