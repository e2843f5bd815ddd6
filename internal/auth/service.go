package auth

import (
	"github.com/paperdesk/paperchat-server/internal/store"
)

// Verifier validates bearer credentials. The REST middleware and the
// WebSocket handshake both go through the same instance so a credential is
// judged identically on either surface.
type Verifier struct {
	jwtConfig *JWTConfig
}

// NewVerifier creates a verifier around the shared JWT configuration.
func NewVerifier(jwtConfig *JWTConfig) *Verifier {
	return &Verifier{jwtConfig: jwtConfig}
}

// ValidateToken validates a token string and returns its claims.
func (v *Verifier) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(v.jwtConfig, tokenString)
}

// MintToken issues a token with the verifier's configuration. Exposed for the
// gentoken command and tests.
func (v *Verifier) MintToken(userID int64, name string, role store.Role) (string, error) {
	return GenerateToken(v.jwtConfig, userID, name, role)
}
