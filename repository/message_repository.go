package repository

import (
	"context"
	"time"

	"github.com/denizyurt/takas/models"
)

// MessageRepository, mesaj veritabanı işlemleri için interface.
//
// Create, client_key çakışmasında ErrAlreadyExists döner — service bu durumda
// mevcut mesajı GetByClientKey ile bulup aynısını döner (idempotent retry).
//
// List, before'dan ESKİ mesajları created_at DESC sıralı döner; kronolojik
// sıraya çevirme service katmanının işidir. limit+1 mesaj istenip fazlası
// kırpılarak has_more hesaplanır.
//
// SoftDelete satırı silmez, deleted_at set eder: sıra ve reply referansları
// korunur, içerik response'a yazılırken gizlenir.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id string) (*models.Message, error)
	GetByClientKey(ctx context.Context, clientKey string) (*models.Message, error)
	List(ctx context.Context, threadID string, before time.Time, limit int) ([]models.Message, error)
	UpdateBody(ctx context.Context, id, body string) (*time.Time, error)
	SoftDelete(ctx context.Context, id string) (*time.Time, error)
}
