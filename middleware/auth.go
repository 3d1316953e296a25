// Package middleware, HTTP request pipeline'ına eklenen ara katmanları barındırır.
//
// Her request handler'a ulaşmadan önce zincirden geçer: Auth → Handler.
// Middleware func(next http.Handler) http.Handler imzasındadır; hata varsa
// next çağrılmaz, request zincirde durur.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/denizyurt/takas/handlers"
	"github.com/denizyurt/takas/pkg"
	"github.com/denizyurt/takas/repository"
	"github.com/denizyurt/takas/services"
)

// AuthMiddleware, JWT token doğrulama middleware'ı.
type AuthMiddleware struct {
	authService services.AuthService
	userRepo    repository.UserRepository
}

// NewAuthMiddleware, constructor.
func NewAuthMiddleware(authService services.AuthService, userRepo repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		userRepo:    userRepo,
	}
}

// Require, JWT token zorunlu kılan middleware.
// Header formatı: Authorization: Bearer <token>
//
// Token geçerliyse kullanıcı DB'den yüklenir (token geçerli ama kullanıcı
// silinmiş olabilir) ve context'e konur; handler'lar UserContextKey ile okur.
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "authorization header required")
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "invalid authorization format, use: Bearer <token>")
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := m.authService.ValidateAccessToken(tokenString)
		if err != nil {
			pkg.Error(w, err)
			return
		}

		user, err := m.userRepo.GetByID(r.Context(), claims.UserID)
		if err != nil {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found")
			return
		}

		// Password hash context'te taşınmamalı
		user.PasswordHash = ""

		ctx := context.WithValue(r.Context(), handlers.UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
