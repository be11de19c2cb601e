package auth

import "github.com/golang-jwt/jwt/v5"

// Role is the caller class carried in a bearer token.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
	RoleSystem   Role = "system"
)

// PaymentProviderActor is the subject used by the external payment subsystem.
const PaymentProviderActor = "system-payment-provider"

// Claims is the token payload.
type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// Actor is the authenticated caller of a request.
type Actor struct {
	ID   string
	Role Role
}
