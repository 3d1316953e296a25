package repository

import (
	"context"
	"time"

	"github.com/denizyurt/takas/models"
)

// UnseenInfo, bir konuşmadaki okunmamış mesaj sayısı.
type UnseenInfo struct {
	ThreadID    string `json:"thread_id"`
	UnseenCount int    `json:"unseen_count"`
}

// ReceiptRepository, okuma watermark'ı veritabanı işlemleri için interface.
//
// Upsert watermark'ı sadece ileri taşır; geriye atılan işaretler yok sayılır.
// UnseenCounts, kullanıcının tüm konuşmalarındaki okunmamış sayılarını döner.
type ReceiptRepository interface {
	Upsert(ctx context.Context, threadID, userID string, lastSeenAt time.Time) error
	GetForThread(ctx context.Context, threadID string) ([]models.Receipt, error)
	UnseenCounts(ctx context.Context, userID string) ([]UnseenInfo, error)
}
