package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/denizyurt/takas/database"
	"github.com/denizyurt/takas/models"
	"github.com/denizyurt/takas/pkg"
)

// sqliteListingRepo, ListingRepository interface'inin SQLite implementasyonu.
type sqliteListingRepo struct {
	db database.TxQuerier
}

// NewSQLiteListingRepo, constructor — interface döner.
func NewSQLiteListingRepo(db database.TxQuerier) ListingRepository {
	return &sqliteListingRepo{db: db}
}

// Create, yeni bir ilan oluşturur.
func (r *sqliteListingRepo) Create(ctx context.Context, listing *models.Listing) error {
	listing.ID = uuid.NewString()
	listing.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO listings (id, owner_id, title, description, photo_url, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		listing.ID, listing.OwnerID, listing.Title, listing.Description, listing.PhotoURL, listing.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}
	return nil
}

// GetByID, ID ile ilanı döner (sahibi ile birlikte).
func (r *sqliteListingRepo) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT l.id, l.owner_id, l.title, l.description, l.photo_url, l.created_at,
			u.id, u.username, u.display_name, u.avatar_url, u.created_at
		FROM listings l
		JOIN users u ON u.id = l.owner_id
		WHERE l.id = ?`, id)

	listing, err := scanListing(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: listing not found", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return listing, nil
}

// List, en yeni ilanları döner (keşfet sayfası).
func (r *sqliteListingRepo) List(ctx context.Context, limit int) ([]models.Listing, error) {
	return r.list(ctx, `
		SELECT l.id, l.owner_id, l.title, l.description, l.photo_url, l.created_at,
			u.id, u.username, u.display_name, u.avatar_url, u.created_at
		FROM listings l
		JOIN users u ON u.id = l.owner_id
		ORDER BY l.created_at DESC LIMIT ?`, limit)
}

// ListByOwner, bir kullanıcının ilanlarını döner.
func (r *sqliteListingRepo) ListByOwner(ctx context.Context, ownerID string) ([]models.Listing, error) {
	return r.list(ctx, `
		SELECT l.id, l.owner_id, l.title, l.description, l.photo_url, l.created_at,
			u.id, u.username, u.display_name, u.avatar_url, u.created_at
		FROM listings l
		JOIN users u ON u.id = l.owner_id
		WHERE l.owner_id = ?
		ORDER BY l.created_at DESC`, ownerID)
}

func (r *sqliteListingRepo) list(ctx context.Context, query string, args ...any) ([]models.Listing, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, *listing)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listings: %w", err)
	}

	if listings == nil {
		listings = []models.Listing{}
	}
	return listings, nil
}

// Delete, bir ilanı siler. Bağlı thread'lerin listing_id'si NULL'a düşer
// (konuşmalar kaybolmaz), interest'ler cascade ile silinir.
func (r *sqliteListingRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM listings WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: listing not found", pkg.ErrNotFound)
	}
	return nil
}

// scanner, *sql.Row ve *sql.Rows'un ortak Scan imzası.
type scanner interface {
	Scan(dest ...any) error
}

func scanListing(s scanner) (*models.Listing, error) {
	var listing models.Listing
	var owner models.User
	var description, photoURL sql.NullString
	var ownerDisplayName, ownerAvatarURL sql.NullString

	err := s.Scan(
		&listing.ID, &listing.OwnerID, &listing.Title, &description, &photoURL, &listing.CreatedAt,
		&owner.ID, &owner.Username, &ownerDisplayName, &ownerAvatarURL, &owner.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		listing.Description = &description.String
	}
	if photoURL.Valid {
		listing.PhotoURL = &photoURL.String
	}
	if ownerDisplayName.Valid {
		owner.DisplayName = &ownerDisplayName.String
	}
	if ownerAvatarURL.Valid {
		owner.AvatarURL = &ownerAvatarURL.String
	}

	listing.Owner = &owner
	return &listing, nil
}
