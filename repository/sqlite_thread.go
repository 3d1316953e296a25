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

// sqliteThreadRepo, ThreadRepository interface'inin SQLite implementasyonu.
type sqliteThreadRepo struct {
	db database.TxQuerier
}

// NewSQLiteThreadRepo, constructor — interface döner.
func NewSQLiteThreadRepo(db database.TxQuerier) ThreadRepository {
	return &sqliteThreadRepo{db: db}
}

// Create, yeni bir konuşma oluşturur. Aynı (listing, sender) çifti için
// ikinci thread UNIQUE constraint'e takılır → ErrAlreadyExists.
func (r *sqliteThreadRepo) Create(ctx context.Context, thread *models.Thread) error {
	thread.ID = uuid.NewString()
	thread.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO threads (id, listing_id, interest_id, owner_id, sender_id, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		thread.ID, thread.ListingID, thread.InterestID, thread.OwnerID, thread.SenderID, thread.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: thread already exists for this listing and sender", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create thread: %w", err)
	}
	return nil
}

// GetByID, ID ile konuşmayı döner.
func (r *sqliteThreadRepo) GetByID(ctx context.Context, id string) (*models.Thread, error) {
	return r.getBy(ctx, "id = ?", id)
}

// GetByInterestID, takas isteğine bağlı konuşmayı döner.
func (r *sqliteThreadRepo) GetByInterestID(ctx context.Context, interestID string) (*models.Thread, error) {
	return r.getBy(ctx, "interest_id = ?", interestID)
}

func (r *sqliteThreadRepo) getBy(ctx context.Context, where string, arg any) (*models.Thread, error) {
	var t models.Thread
	var listingID sql.NullString
	var lastMessageAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		"SELECT id, listing_id, interest_id, owner_id, sender_id, created_at, last_message_at FROM threads WHERE "+where,
		arg,
	).Scan(&t.ID, &listingID, &t.InterestID, &t.OwnerID, &t.SenderID, &t.CreatedAt, &lastMessageAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: thread not found", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}

	if listingID.Valid {
		t.ListingID = &listingID.String
	}
	if lastMessageAt.Valid {
		t.LastMessageAt = &lastMessageAt.Time
	}
	return &t, nil
}

// ListForUser, kullanıcının konuşma listesini döner: karşı taraf, ilan
// özeti, istek durumu ve son mesaj önizlemesi tek sorguda JOIN'lenir.
// Okunmamış sayıları ReceiptRepository.UnseenCounts'tan gelir, service
// katmanında birleştirilir.
//
// Sıralama: en son mesaj alan konuşma üstte (hiç mesaj yoksa açılış zamanı).
func (r *sqliteThreadRepo) ListForUser(ctx context.Context, userID string) ([]models.ThreadListItem, error) {
	query := `
		SELECT t.id, t.listing_id, t.interest_id, t.owner_id, t.sender_id, t.created_at, t.last_message_at,
			i.status,
			u.id, u.username, u.display_name, u.avatar_url,
			l.id, l.owner_id, l.title, l.photo_url,
			m.id, m.sender_id, m.body, m.created_at, m.deleted_at
		FROM threads t
		JOIN interests i ON i.id = t.interest_id
		JOIN users u ON u.id = CASE
			WHEN t.owner_id = ? THEN t.sender_id
			ELSE t.owner_id
		END
		LEFT JOIN listings l ON l.id = t.listing_id
		LEFT JOIN messages m ON m.id = (
			SELECT id FROM messages WHERE thread_id = t.id ORDER BY created_at DESC LIMIT 1
		)
		WHERE t.owner_id = ? OR t.sender_id = ?
		ORDER BY COALESCE(t.last_message_at, t.created_at) DESC`

	rows, err := r.db.QueryContext(ctx, query, userID, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	defer rows.Close()

	var items []models.ThreadListItem
	for rows.Next() {
		var item models.ThreadListItem
		var other models.User
		var listingID, otherDisplayName, otherAvatarURL sql.NullString
		var lastMessageAt sql.NullTime
		var lID, lOwnerID, lTitle, lPhotoURL sql.NullString
		var mID, mSenderID, mBody sql.NullString
		var mCreatedAt, mDeletedAt sql.NullTime

		if err := rows.Scan(
			&item.ID, &listingID, &item.InterestID, &item.OwnerID, &item.SenderID, &item.CreatedAt, &lastMessageAt,
			&item.InterestStatus,
			&other.ID, &other.Username, &otherDisplayName, &otherAvatarURL,
			&lID, &lOwnerID, &lTitle, &lPhotoURL,
			&mID, &mSenderID, &mBody, &mCreatedAt, &mDeletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}

		if listingID.Valid {
			item.ListingID = &listingID.String
		}
		if lastMessageAt.Valid {
			item.LastMessageAt = &lastMessageAt.Time
		}
		if otherDisplayName.Valid {
			other.DisplayName = &otherDisplayName.String
		}
		if otherAvatarURL.Valid {
			other.AvatarURL = &otherAvatarURL.String
		}
		item.OtherUser = &other

		if lID.Valid {
			listing := models.Listing{ID: lID.String, OwnerID: lOwnerID.String, Title: lTitle.String}
			if lPhotoURL.Valid {
				listing.PhotoURL = &lPhotoURL.String
			}
			item.Listing = &listing
		}

		if mID.Valid {
			msg := models.Message{ID: mID.String, ThreadID: item.ID, CreatedAt: mCreatedAt.Time}
			if mSenderID.Valid {
				msg.SenderID = &mSenderID.String
			}
			if mBody.Valid {
				msg.Body = &mBody.String
			}
			if mDeletedAt.Valid {
				msg.DeletedAt = &mDeletedAt.Time
			}
			msg.Sanitize()
			item.LastMessage = &msg
		}

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating threads: %w", err)
	}

	if items == nil {
		items = []models.ThreadListItem{}
	}
	return items, nil
}

// TouchLastMessage, thread'in last_message_at'ini günceller.
// MAX ile korunur: geciken bir yazma zamanı geriye çekemez.
func (r *sqliteThreadRepo) TouchLastMessage(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE threads SET last_message_at = MAX(COALESCE(last_message_at, ''), ?) WHERE id = ?",
		at.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to touch thread: %w", err)
	}
	return nil
}
