package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/denizyurt/takas/database"
	"github.com/denizyurt/takas/models"
)

// sqliteReactionRepo, ReactionRepository interface'inin SQLite implementasyonu.
type sqliteReactionRepo struct {
	db database.TxQuerier
}

// NewSQLiteReactionRepo, constructor — interface döner.
func NewSQLiteReactionRepo(db database.TxQuerier) ReactionRepository {
	return &sqliteReactionRepo{db: db}
}

// Toggle, reaksiyonu ekler veya kaldırır.
//
// INSERT OR IGNORE + rowsAffected hilesi:
// rowsAffected == 1 → eklendi (reaksiyon yoktu).
// rowsAffected == 0 → UNIQUE constraint nedeniyle eklenmedi → zaten var → DELETE.
// Race condition riski yoktur çünkü UNIQUE constraint DB seviyesinde korunur.
func (r *sqliteReactionRepo) Toggle(ctx context.Context, messageID, userID, emoji string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO reactions (id, message_id, user_id, emoji, created_at) VALUES (?, ?, ?, ?, ?)",
		uuid.NewString(), messageID, userID, emoji, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to toggle reaction: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 1 {
		return true, nil
	}

	// INSERT başarısız (UNIQUE constraint) — reaksiyon zaten var, sil
	_, err = r.db.ExecContext(ctx,
		"DELETE FROM reactions WHERE message_id = ? AND user_id = ? AND emoji = ?",
		messageID, userID, emoji,
	)
	if err != nil {
		return false, fmt.Errorf("failed to remove reaction: %w", err)
	}
	return false, nil
}

// GroupsByMessage, bir mesajın emoji bazlı toplu reaksiyon görünümünü döner.
func (r *sqliteReactionRepo) GroupsByMessage(ctx context.Context, messageID string) ([]models.ReactionGroup, error) {
	byMessage, err := r.GroupsByMessageIDs(ctx, []string{messageID})
	if err != nil {
		return nil, err
	}

	groups := byMessage[messageID]
	if groups == nil {
		groups = []models.ReactionGroup{}
	}
	return groups, nil
}

// GroupsByMessageIDs, bir mesaj grubunun reaksiyonlarını tek sorguda döner.
// Sayfa yüklerken mesaj başına ayrı sorgu (N+1) yerine IN (...) kullanılır.
// Gruplar ilk reaksiyonun zamanına göre sıralıdır; toggle ile kaybolup geri
// gelen emoji listede sona düşer, bu kabul edilir.
func (r *sqliteReactionRepo) GroupsByMessageIDs(ctx context.Context, messageIDs []string) (map[string][]models.ReactionGroup, error) {
	result := make(map[string][]models.ReactionGroup)
	if len(messageIDs) == 0 {
		return result, nil
	}

	placeholders := strings.Repeat("?,", len(messageIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, len(messageIDs))
	for i, id := range messageIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT message_id, user_id, emoji
		FROM reactions
		WHERE message_id IN (`+placeholders+`)
		ORDER BY message_id, created_at`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get reactions: %w", err)
	}
	defer rows.Close()

	// emoji sıralamasını korumak için map değil slice üzerinde biriktir
	groupIndex := make(map[string]map[string]int) // messageID → emoji → index
	for rows.Next() {
		var messageID, userID, emoji string
		if err := rows.Scan(&messageID, &userID, &emoji); err != nil {
			return nil, fmt.Errorf("failed to scan reaction: %w", err)
		}

		if groupIndex[messageID] == nil {
			groupIndex[messageID] = make(map[string]int)
		}

		idx, ok := groupIndex[messageID][emoji]
		if !ok {
			result[messageID] = append(result[messageID], models.ReactionGroup{Emoji: emoji})
			idx = len(result[messageID]) - 1
			groupIndex[messageID][emoji] = idx
		}

		group := &result[messageID][idx]
		group.Count++
		group.UserIDs = append(group.UserIDs, userID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reactions: %w", err)
	}
	return result, nil
}
