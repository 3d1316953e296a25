package services

import (
	"context"
	"fmt"

	"github.com/denizyurt/takas/models"
	"github.com/denizyurt/takas/pkg"
	"github.com/denizyurt/takas/repository"
)

// ListingService, ilan işlemleri için interface.
//
// İlanlar bu uygulamada konuşmaların çapasıdır: her thread bir ilana
// bağlanır. CRUD bilerek minimal tutulmuştur.
type ListingService interface {
	Create(ctx context.Context, ownerID string, req *models.CreateListingRequest) (*models.Listing, error)
	GetByID(ctx context.Context, id string) (*models.Listing, error)
	List(ctx context.Context) ([]models.Listing, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Listing, error)
	Delete(ctx context.Context, userID, id string) error
}

type listingService struct {
	listingRepo repository.ListingRepository
}

// NewListingService, constructor.
func NewListingService(listingRepo repository.ListingRepository) ListingService {
	return &listingService{listingRepo: listingRepo}
}

// Create, yeni ilan oluşturur.
func (s *listingService) Create(ctx context.Context, ownerID string, req *models.CreateListingRequest) (*models.Listing, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	var description *string
	if req.Description != "" {
		description = &req.Description
	}

	var photoURL *string
	if req.PhotoURL != "" {
		photoURL = &req.PhotoURL
	}

	listing := &models.Listing{
		OwnerID:     ownerID,
		Title:       req.Title,
		Description: description,
		PhotoURL:    photoURL,
	}

	if err := s.listingRepo.Create(ctx, listing); err != nil {
		return nil, err
	}
	return s.listingRepo.GetByID(ctx, listing.ID)
}

// GetByID, ilan detayını döner.
func (s *listingService) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	return s.listingRepo.GetByID(ctx, id)
}

// List, keşfet sayfası için en yeni ilanları döner.
func (s *listingService) List(ctx context.Context) ([]models.Listing, error) {
	return s.listingRepo.List(ctx, 100)
}

// ListByOwner, kullanıcının kendi ilanlarını döner.
func (s *listingService) ListByOwner(ctx context.Context, ownerID string) ([]models.Listing, error) {
	return s.listingRepo.ListByOwner(ctx, ownerID)
}

// Delete, ilanı siler. Sadece sahibi silebilir.
// Bağlı konuşmalar silinmez — listing_id'leri NULL'a düşer.
func (s *listingService) Delete(ctx context.Context, userID, id string) error {
	listing, err := s.listingRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if listing.OwnerID != userID {
		return fmt.Errorf("%w: only the owner can delete a listing", pkg.ErrForbidden)
	}

	return s.listingRepo.Delete(ctx, id)
}
