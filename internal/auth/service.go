package auth

import (
	"fmt"

	"gamechat/internal/utils"
)

// Service mints and validates guest identities. The chat core treats
// authentication as an external collaborator; this service is the minimal
// stateless shim standing in for it. Identities live entirely in the token,
// nothing is stored server-side.
type Service struct {
	jwtConfig *JWTConfig
}

// NewService creates an authentication service.
func NewService(jwtConfig *JWTConfig) *Service {
	return &Service{jwtConfig: jwtConfig}
}

// Identity is a resolved, authenticated identity for one connection.
type Identity struct {
	UserID      string
	DisplayName string
	IsGuest     bool
}

// CreateGuest mints a fresh guest identity and a token carrying it.
func (s *Service) CreateGuest() (Identity, string, error) {
	id := Identity{
		UserID:      utils.NewID(),
		DisplayName: "guest-" + utils.ShortID(),
		IsGuest:     true,
	}

	token, err := GenerateToken(s.jwtConfig, id.UserID, id.DisplayName, true)
	if err != nil {
		return Identity{}, "", fmt.Errorf("generate token: %w", err)
	}
	return id, token, nil
}

// ValidateToken resolves a token into an identity.
func (s *Service) ValidateToken(tokenString string) (Identity, error) {
	claims, err := ValidateToken(s.jwtConfig, tokenString)
	if err != nil {
		return Identity{}, err
	}
	return Identity{
		UserID:      claims.UserID,
		DisplayName: claims.DisplayName,
		IsGuest:     claims.IsGuest,
	}, nil
}
