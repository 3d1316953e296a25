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

// sqliteMessageRepo, MessageRepository interface'inin SQLite implementasyonu.
type sqliteMessageRepo struct {
	db database.TxQuerier
}

// NewSQLiteMessageRepo, constructor — interface döner.
func NewSQLiteMessageRepo(db database.TxQuerier) MessageRepository {
	return &sqliteMessageRepo{db: db}
}

const messageColumns = `m.id, m.thread_id, m.sender_id, m.body, m.created_at,
	m.edited_at, m.deleted_at, m.reply_to_id, m.attachment_type, m.attachment_url, m.client_key,
	u.id, u.username, u.display_name, u.avatar_url`

// Create, yeni bir mesaj oluşturur. ID ve created_at burada set edilir.
//
// Aynı client_key ile ikinci INSERT, UNIQUE constraint'e takılır ve
// ErrAlreadyExists döner — yeniden gönderilen bir istek DB'ye ikinci satır
// yazamaz, service mevcut satırı bulup döner.
func (r *sqliteMessageRepo) Create(ctx context.Context, msg *models.Message) error {
	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, thread_id, sender_id, body, created_at, reply_to_id, attachment_type, attachment_url, client_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ThreadID, msg.SenderID, msg.Body, msg.CreatedAt,
		msg.ReplyToID, msg.AttachmentType, msg.AttachmentURL, msg.ClientKey,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: message with this client_key already exists", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// GetByID, tek bir mesajı döner (gönderen bilgisiyle).
func (r *sqliteMessageRepo) GetByID(ctx context.Context, id string) (*models.Message, error) {
	return r.getBy(ctx, "m.id = ?", id)
}

// GetByClientKey, client_key ile mesajı döner. Idempotent retry yolunda
// kullanılır: aynı gönderim tekrar geldiğinde mevcut satır bulunur.
func (r *sqliteMessageRepo) GetByClientKey(ctx context.Context, clientKey string) (*models.Message, error) {
	return r.getBy(ctx, "m.client_key = ?", clientKey)
}

func (r *sqliteMessageRepo) getBy(ctx context.Context, where string, arg any) (*models.Message, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages m
		LEFT JOIN users u ON u.id = m.sender_id
		WHERE `+where, arg)

	msg, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: message not found", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return msg, nil
}

// List, before'dan eski en fazla limit mesajı created_at DESC sıralı döner.
// created_at eşitliğinde id ikinci sıralama anahtarıdır; aynı ana düşen iki
// mesaj her sayfalamada aynı sırada gelir.
func (r *sqliteMessageRepo) List(ctx context.Context, threadID string, before time.Time, limit int) ([]models.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages m
		LEFT JOIN users u ON u.id = m.sender_id
		WHERE m.thread_id = ? AND m.created_at < ?
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT ?`,
		threadID, before.UTC(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, *msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	if messages == nil {
		messages = []models.Message{}
	}
	return messages, nil
}

// UpdateBody, mesaj gövdesini değiştirir ve edited_at'i set eder.
// Tombstone'lar güncellenemez (deleted_at IS NULL şartı).
func (r *sqliteMessageRepo) UpdateBody(ctx context.Context, id, body string) (*time.Time, error) {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		"UPDATE messages SET body = ?, edited_at = ? WHERE id = ? AND deleted_at IS NULL",
		body, now, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update message: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: message not found", pkg.ErrNotFound)
	}
	return &now, nil
}

// SoftDelete, mesajı tombstone'a çevirir. İkinci silme no-op değildir,
// ErrNotFound döner (satır zaten deleted_at IS NULL şartını geçemez).
func (r *sqliteMessageRepo) SoftDelete(ctx context.Context, id string) (*time.Time, error) {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		"UPDATE messages SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL",
		now, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to delete message: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: message not found", pkg.ErrNotFound)
	}
	return &now, nil
}

// scanMessage, messageColumns sırasıyla bir mesaj satırını okur.
// Sistem mesajlarında sender_id NULL olduğundan user kolonları da NULL gelir.
func scanMessage(s scanner) (*models.Message, error) {
	var msg models.Message
	var senderID, body, replyToID, attachmentType, attachmentURL, clientKey sql.NullString
	var editedAt, deletedAt sql.NullTime
	var uID, uUsername, uDisplayName, uAvatarURL sql.NullString

	err := s.Scan(
		&msg.ID, &msg.ThreadID, &senderID, &body, &msg.CreatedAt,
		&editedAt, &deletedAt, &replyToID, &attachmentType, &attachmentURL, &clientKey,
		&uID, &uUsername, &uDisplayName, &uAvatarURL,
	)
	if err != nil {
		return nil, err
	}

	if senderID.Valid {
		msg.SenderID = &senderID.String
	}
	if body.Valid {
		msg.Body = &body.String
	}
	if editedAt.Valid {
		msg.EditedAt = &editedAt.Time
	}
	if deletedAt.Valid {
		msg.DeletedAt = &deletedAt.Time
	}
	if replyToID.Valid {
		msg.ReplyToID = &replyToID.String
	}
	if attachmentType.Valid {
		msg.AttachmentType = &attachmentType.String
	}
	if attachmentURL.Valid {
		msg.AttachmentURL = &attachmentURL.String
	}
	if clientKey.Valid {
		msg.ClientKey = &clientKey.String
	}

	if uID.Valid {
		sender := models.User{ID: uID.String, Username: uUsername.String}
		if uDisplayName.Valid {
			sender.DisplayName = &uDisplayName.String
		}
		if uAvatarURL.Valid {
			sender.AvatarURL = &uAvatarURL.String
		}
		msg.Sender = &sender
	}

	return &msg, nil
}
