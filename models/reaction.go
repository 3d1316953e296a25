package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Reaction, bir kullanıcının bir mesaja bıraktığı tek emoji'yi temsil eder.
// (message, user, emoji) üçlüsü UNIQUE'tir: aynı emoji ikinci kez eklenemez,
// toggle semantiği bunun üzerine kuruludur.
type Reaction struct {
	ID        string    `json:"id"`
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

// ReactionGroup, bir mesajın tek emoji altındaki toplu görünümü.
// UserIDs sayesinde client "ben de basmışım" durumunu işaretleyebilir.
type ReactionGroup struct {
	Emoji   string   `json:"emoji"`
	Count   int      `json:"count"`
	UserIDs []string `json:"user_ids"`
}

// ToggleReactionRequest, reaksiyon ekleme/kaldırma isteği.
type ToggleReactionRequest struct {
	Emoji string `json:"emoji"`
}

// Validate, emoji alanını kontrol eder. Tek bir emoji bekleniyor;
// birleşik (ZWJ) emoji'ler birkaç rune tutabildiği için sınır gevşek.
func (r *ToggleReactionRequest) Validate() error {
	r.Emoji = strings.TrimSpace(r.Emoji)
	if r.Emoji == "" {
		return fmt.Errorf("emoji is required")
	}
	if utf8.RuneCountInString(r.Emoji) > 16 {
		return fmt.Errorf("invalid emoji")
	}
	return nil
}
