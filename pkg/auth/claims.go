package auth

import (
	"github.com/entregave/dispatch-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	OperatorID string
	Name       string
	Role       enums.ActorRole
	JTI        string
}

// AccessTokenClaims represents the typed JWT issued to panel operators.
type AccessTokenClaims struct {
	OperatorID string          `json:"operator_id"`
	Name       string          `json:"name,omitempty"`
	Role       enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
