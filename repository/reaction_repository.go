package repository

import (
	"context"

	"github.com/denizyurt/takas/models"
)

// ReactionRepository, reaksiyon veritabanı işlemleri için interface.
//
// Toggle: varsa kaldırır, yoksa ekler; added sonucu hangisinin olduğunu söyler.
// GroupsByMessage: tek mesajın emoji bazlı toplu görünümü.
// GroupsByMessageIDs: bir mesaj sayfası için tek sorguda toplu görünüm.
type ReactionRepository interface {
	Toggle(ctx context.Context, messageID, userID, emoji string) (added bool, err error)
	GroupsByMessage(ctx context.Context, messageID string) ([]models.ReactionGroup, error)
	GroupsByMessageIDs(ctx context.Context, messageIDs []string) (map[string][]models.ReactionGroup, error)
}
