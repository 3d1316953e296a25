package repository

import (
	"context"

	"github.com/denizyurt/takas/models"
)

// ListingRepository, ilan veritabanı işlemleri için interface.
type ListingRepository interface {
	Create(ctx context.Context, listing *models.Listing) error
	GetByID(ctx context.Context, id string) (*models.Listing, error)
	List(ctx context.Context, limit int) ([]models.Listing, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Listing, error)
	Delete(ctx context.Context, id string) error
}
