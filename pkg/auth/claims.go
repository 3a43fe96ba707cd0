package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin is the only role the service accepts. Admin tokens are minted by
// the operator tooling, never by this service's HTTP surface.
const RoleAdmin = "admin"

// AdminClaims is the typed JWT carried by admin requests.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}
