package repository

import (
	"context"
	"time"

	"github.com/denizyurt/takas/models"
)

// InterestRepository, takas isteği veritabanı işlemleri için interface.
//
// UpdateStatus koşulludur: sadece beklenen mevcut status'ten geçiş yapar.
// Bu, teslim onayının exactly-once çalışmasını DB seviyesinde garanti eder
// (iki eşzamanlı onaydan yalnızca biri satırı günceller).
type InterestRepository interface {
	Create(ctx context.Context, interest *models.Interest) error
	GetByID(ctx context.Context, id string) (*models.Interest, error)
	ListForOwner(ctx context.Context, ownerID string) ([]models.Interest, error)
	ListBySender(ctx context.Context, senderID string) ([]models.Interest, error)
	UpdateStatus(ctx context.Context, id, fromStatus, toStatus string, confirmedAt *time.Time) error
}
