package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims, JWT access token'ın payload'ı.
//
// models paketinde tanımlanır çünkü birden fazla katman (services, ws,
// middleware) kullanır — her katman models'e bağımlı olabilir, bu sayede
// circular dependency oluşmaz.
type TokenClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}
