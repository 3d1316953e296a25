package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/denizyurt/takas/database"
	"github.com/denizyurt/takas/models"
)

// sqliteReceiptRepo, ReceiptRepository interface'inin SQLite implementasyonu.
type sqliteReceiptRepo struct {
	db database.TxQuerier
}

// NewSQLiteReceiptRepo, constructor — interface döner.
func NewSQLiteReceiptRepo(db database.TxQuerier) ReceiptRepository {
	return &sqliteReceiptRepo{db: db}
}

// Upsert, watermark'ı günceller (yoksa oluşturur).
//
// ON CONFLICT'te MAX kullanılır: geç gelen veya kasıtlı geriye atılmış bir
// işaret mevcut watermark'ı geri çekemez, monotonluk DB seviyesinde korunur.
func (r *sqliteReceiptRepo) Upsert(ctx context.Context, threadID, userID string, lastSeenAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO receipts (thread_id, user_id, last_seen_at) VALUES (?, ?, ?)
		ON CONFLICT (thread_id, user_id)
		DO UPDATE SET last_seen_at = MAX(last_seen_at, excluded.last_seen_at)`,
		threadID, userID, lastSeenAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert receipt: %w", err)
	}
	return nil
}

// GetForThread, bir konuşmanın tüm watermark'larını döner (iki taraf için
// en fazla iki satır). Karşı tarafın "gördü" rozetini client bundan hesaplar.
func (r *sqliteReceiptRepo) GetForThread(ctx context.Context, threadID string) ([]models.Receipt, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT thread_id, user_id, last_seen_at FROM receipts WHERE thread_id = ?",
		threadID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get receipts: %w", err)
	}
	defer rows.Close()

	var receipts []models.Receipt
	for rows.Next() {
		var rc models.Receipt
		if err := rows.Scan(&rc.ThreadID, &rc.UserID, &rc.LastSeenAt); err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipts = append(receipts, rc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating receipts: %w", err)
	}

	if receipts == nil {
		receipts = []models.Receipt{}
	}
	return receipts, nil
}

// UnseenCounts, kullanıcının tüm konuşmalarındaki okunmamış mesaj sayılarını döner.
//
// Sayılan mesajlar: karşı tarafın gönderdiği (sistem mesajları hariç),
// silinmemiş ve watermark'tan yeni mesajlar. Watermark hiç yoksa her şey
// okunmamıştır (COALESCE '' — her timestamp'ten küçük karşılaştırılır).
func (r *sqliteReceiptRepo) UnseenCounts(ctx context.Context, userID string) ([]UnseenInfo, error) {
	query := `
		SELECT t.id, COUNT(m.id)
		FROM threads t
		JOIN messages m ON m.thread_id = t.id
		WHERE (t.owner_id = ? OR t.sender_id = ?)
			AND m.sender_id IS NOT NULL AND m.sender_id != ?
			AND m.deleted_at IS NULL
			AND m.created_at > COALESCE(
				(SELECT last_seen_at FROM receipts rc WHERE rc.thread_id = t.id AND rc.user_id = ?), '')
		GROUP BY t.id`

	rows, err := r.db.QueryContext(ctx, query, userID, userID, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get unseen counts: %w", err)
	}
	defer rows.Close()

	var counts []UnseenInfo
	for rows.Next() {
		var info UnseenInfo
		if err := rows.Scan(&info.ThreadID, &info.UnseenCount); err != nil {
			return nil, fmt.Errorf("failed to scan unseen count: %w", err)
		}
		counts = append(counts, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unseen counts: %w", err)
	}

	if counts == nil {
		counts = []UnseenInfo{}
	}
	return counts, nil
}
