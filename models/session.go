package models

import "time"

// Session, JWT refresh token oturumunu temsil eder.
//
// Refresh token'lar DB'de tutulur: çalınan token revoke edilebilir,
// logout'ta sadece ilgili oturum silinir, her refresh'te rotate edilir.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	RefreshToken string    `json:"-"` // API'ye gönderilmez
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}
