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

// sqliteInterestRepo, InterestRepository interface'inin SQLite implementasyonu.
type sqliteInterestRepo struct {
	db database.TxQuerier
}

// NewSQLiteInterestRepo, constructor — interface döner.
func NewSQLiteInterestRepo(db database.TxQuerier) InterestRepository {
	return &sqliteInterestRepo{db: db}
}

// Create, yeni bir takas isteği oluşturur. Aynı kullanıcı aynı ilana
// ikinci kez istek gönderemez (UNIQUE constraint → ErrAlreadyExists).
func (r *sqliteInterestRepo) Create(ctx context.Context, interest *models.Interest) error {
	interest.ID = uuid.NewString()
	interest.Status = models.InterestStatusPending
	interest.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO interests (id, listing_id, sender_id, status, created_at) VALUES (?, ?, ?, ?, ?)",
		interest.ID, interest.ListingID, interest.SenderID, interest.Status, interest.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: interest already sent for this listing", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create interest: %w", err)
	}
	return nil
}

// GetByID, ID ile takas isteğini döner.
func (r *sqliteInterestRepo) GetByID(ctx context.Context, id string) (*models.Interest, error) {
	var in models.Interest
	var confirmedAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		"SELECT id, listing_id, sender_id, status, created_at, confirmed_at FROM interests WHERE id = ?",
		id,
	).Scan(&in.ID, &in.ListingID, &in.SenderID, &in.Status, &in.CreatedAt, &confirmedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: interest not found", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get interest: %w", err)
	}

	if confirmedAt.Valid {
		in.ConfirmedAt = &confirmedAt.Time
	}
	return &in, nil
}

// ListForOwner, ilan sahibine gelen istekleri döner (gönderen + ilan bilgisiyle).
func (r *sqliteInterestRepo) ListForOwner(ctx context.Context, ownerID string) ([]models.Interest, error) {
	return r.list(ctx, `
		SELECT i.id, i.listing_id, i.sender_id, i.status, i.created_at, i.confirmed_at,
			u.id, u.username, u.display_name, u.avatar_url,
			l.id, l.owner_id, l.title
		FROM interests i
		JOIN listings l ON l.id = i.listing_id
		JOIN users u ON u.id = i.sender_id
		WHERE l.owner_id = ?
		ORDER BY i.created_at DESC`, ownerID)
}

// ListBySender, kullanıcının gönderdiği istekleri döner.
func (r *sqliteInterestRepo) ListBySender(ctx context.Context, senderID string) ([]models.Interest, error) {
	return r.list(ctx, `
		SELECT i.id, i.listing_id, i.sender_id, i.status, i.created_at, i.confirmed_at,
			u.id, u.username, u.display_name, u.avatar_url,
			l.id, l.owner_id, l.title
		FROM interests i
		JOIN listings l ON l.id = i.listing_id
		JOIN users u ON u.id = i.sender_id
		WHERE i.sender_id = ?
		ORDER BY i.created_at DESC`, senderID)
}

func (r *sqliteInterestRepo) list(ctx context.Context, query string, args ...any) ([]models.Interest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list interests: %w", err)
	}
	defer rows.Close()

	var interests []models.Interest
	for rows.Next() {
		var in models.Interest
		var sender models.User
		var listing models.Listing
		var confirmedAt sql.NullTime
		var displayName, avatarURL sql.NullString

		if err := rows.Scan(
			&in.ID, &in.ListingID, &in.SenderID, &in.Status, &in.CreatedAt, &confirmedAt,
			&sender.ID, &sender.Username, &displayName, &avatarURL,
			&listing.ID, &listing.OwnerID, &listing.Title,
		); err != nil {
			return nil, fmt.Errorf("failed to scan interest: %w", err)
		}

		if confirmedAt.Valid {
			in.ConfirmedAt = &confirmedAt.Time
		}
		if displayName.Valid {
			sender.DisplayName = &displayName.String
		}
		if avatarURL.Valid {
			sender.AvatarURL = &avatarURL.String
		}

		in.Sender = &sender
		in.Listing = &listing
		interests = append(interests, in)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating interests: %w", err)
	}

	if interests == nil {
		interests = []models.Interest{}
	}
	return interests, nil
}

// UpdateStatus, isteğin status'ünü koşullu günceller.
// Satır beklenen fromStatus'te değilse hiçbir şey değişmez ve ErrConflict döner;
// eşzamanlı iki teslim onayından yalnızca biri başarılı olur.
func (r *sqliteInterestRepo) UpdateStatus(ctx context.Context, id, fromStatus, toStatus string, confirmedAt *time.Time) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE interests SET status = ?, confirmed_at = COALESCE(?, confirmed_at) WHERE id = ? AND status = ?",
		toStatus, confirmedAt, id, fromStatus,
	)
	if err != nil {
		return fmt.Errorf("failed to update interest status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: interest is not in %q state", pkg.ErrConflict, fromStatus)
	}
	return nil
}
