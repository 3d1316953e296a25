package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxMessageLength, bir mesaj gövdesinin karakter (rune) üst sınırı.
const MaxMessageLength = 2000

// Attachment türleri. Şimdilik sadece görsel destekleniyor.
const (
	AttachmentTypeImage = "image"
)

// Message, bir konuşma mesajını temsil eder.
//
// SenderID nil ise bu bir sistem mesajıdır ("teslim onaylandı" gibi);
// sistem mesajları düzenlenemez, silinemez, reaksiyon alamaz.
// DeletedAt dolu ise mesaj tombstone'dur: satır ve sırası korunur,
// içerik response'a yazılmadan önce Sanitize ile temizlenir.
type Message struct {
	ID             string     `json:"id"`
	ThreadID       string     `json:"thread_id"`
	SenderID       *string    `json:"sender_id"`
	Body           *string    `json:"body"`
	CreatedAt      time.Time  `json:"created_at"`
	EditedAt       *time.Time `json:"edited_at"`
	DeletedAt      *time.Time `json:"deleted_at"`
	ReplyToID      *string    `json:"reply_to_id"`
	AttachmentType *string    `json:"attachment_type"`
	AttachmentURL  *string    `json:"attachment_url"`

	// ClientKey, optimistic gönderimin correlation anahtarı. Gönderen client
	// bununla kendi geçici mesajını sunucu kopyasıyla eşleştirir.
	ClientKey *string `json:"client_key,omitempty"`

	// JOIN / ek sorgu ile doldurulan alanlar.
	Sender    *User           `json:"sender,omitempty"`
	Reactions []ReactionGroup `json:"reactions,omitempty"`
}

// IsSystem, mesajın sistem mesajı olup olmadığını döner.
func (m *Message) IsSystem() bool {
	return m.SenderID == nil
}

// IsDeleted, mesajın tombstone olup olmadığını döner.
func (m *Message) IsDeleted() bool {
	return m.DeletedAt != nil
}

// Sanitize, silinmiş mesajın içeriğini response'tan temizler.
// Satır yerinde kalır (sıralama ve reply referansları bozulmasın diye),
// ama body, ek ve reaksiyonlar gizlenir.
func (m *Message) Sanitize() {
	if !m.IsDeleted() {
		return
	}
	m.Body = nil
	m.AttachmentType = nil
	m.AttachmentURL = nil
	m.Reactions = nil
}

// CreateMessageRequest, mesaj gönderme isteği.
type CreateMessageRequest struct {
	Body           string  `json:"body"`
	ClientKey      string  `json:"client_key"`
	ReplyToID      *string `json:"reply_to_id"`
	AttachmentType string  `json:"attachment_type"`
	AttachmentURL  string  `json:"attachment_url"`
}

// Validate, mesaj isteğini kontrol eder:
//   - ClientKey: zorunlu, max 64 karakter (optimistic eşleştirme için)
//   - Body veya ek: en az biri dolu olmalı
//   - Body: max 2000 karakter
func (r *CreateMessageRequest) Validate() error {
	r.ClientKey = strings.TrimSpace(r.ClientKey)
	if r.ClientKey == "" {
		return fmt.Errorf("client_key is required")
	}
	if len(r.ClientKey) > 64 {
		return fmt.Errorf("client_key must be at most 64 characters")
	}

	r.Body = strings.TrimSpace(r.Body)
	r.AttachmentURL = strings.TrimSpace(r.AttachmentURL)

	if r.Body == "" && r.AttachmentURL == "" {
		return fmt.Errorf("message must have a body or an attachment")
	}
	if utf8.RuneCountInString(r.Body) > MaxMessageLength {
		return fmt.Errorf("message must be at most %d characters", MaxMessageLength)
	}

	if r.AttachmentURL != "" && r.AttachmentType != AttachmentTypeImage {
		return fmt.Errorf("unsupported attachment type")
	}

	return nil
}

// UpdateMessageRequest, mesaj düzenleme isteği.
type UpdateMessageRequest struct {
	Body string `json:"body"`
}

// Validate, düzenleme isteğini kontrol eder. Düzenlemede ek değiştirilemez,
// bu yüzden body boş olamaz.
func (r *UpdateMessageRequest) Validate() error {
	r.Body = strings.TrimSpace(r.Body)
	if r.Body == "" {
		return fmt.Errorf("body is required")
	}
	if utf8.RuneCountInString(r.Body) > MaxMessageLength {
		return fmt.Errorf("message must be at most %d characters", MaxMessageLength)
	}
	return nil
}

// MessagePage, sayfalı geçmiş response'u. Messages kronolojik (eski → yeni)
// sıralıdır; HasMore true ise daha eski sayfa vardır.
type MessagePage struct {
	Messages []Message `json:"messages"`
	HasMore  bool      `json:"has_more"`
}
