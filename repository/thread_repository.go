package repository

import (
	"context"
	"time"

	"github.com/denizyurt/takas/models"
)

// ThreadRepository, konuşma veritabanı işlemleri için interface.
//
// TouchLastMessage, her yeni mesajda thread'in last_message_at'ini ileri
// taşır; konuşma listesi bu alana göre sıralanır.
type ThreadRepository interface {
	Create(ctx context.Context, thread *models.Thread) error
	GetByID(ctx context.Context, id string) (*models.Thread, error)
	GetByInterestID(ctx context.Context, interestID string) (*models.Thread, error)
	ListForUser(ctx context.Context, userID string) ([]models.ThreadListItem, error)
	TouchLastMessage(ctx context.Context, id string, at time.Time) error
}
