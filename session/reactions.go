package session

import (
	"context"
	"fmt"
	"log"

	"github.com/denizyurt/takas/models"
	"github.com/denizyurt/takas/pkg"
)

// Reaksiyon toplama — mesaj başına emoji sayacı ve viewer'ın kendi
// reaksiyon seti. İki kaynaktan beslenir: yerel optimistic toggle ve
// feed'in reaction_update event'i (tam özet, üzerine yazılır).
//
// Geri alma (rollback) yolu bilinçli olarak yok: remote toggle
// başarısız olursa yerel durum bir SONRAKİ reaction_update'e kadar
// yanlış kalabilir — eventual consistency. Karar DESIGN.md'de.

// ToggleReaction, reaksiyonu optimistic olarak çevirir ve remote
// toggle'ı gönderir. Başarıda sunucunun döndürdüğü tam özet yerel
// tahmini ezer. Gate kilidi reaksiyonları KAPSAMAZ.
func (s *Session) ToggleReaction(ctx context.Context, messageID, emoji string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("%w: session closed", pkg.ErrBadRequest)
	}

	item, ok := s.store.Get(messageID)
	switch {
	case !ok:
		s.mu.Unlock()
		return fmt.Errorf("%w: message not found", pkg.ErrNotFound)
	case item.IsLocal():
		s.mu.Unlock()
		return fmt.Errorf("%w: message is not persisted yet", pkg.ErrBadRequest)
	case item.IsSystem() || item.IsDeleted():
		s.mu.Unlock()
		return fmt.Errorf("%w: message cannot receive reactions", pkg.ErrBadRequest)
	}

	s.store.SetReactions(messageID, toggleOwn(item.Reactions, emoji, s.me))
	s.mu.Unlock()

	groups, err := s.api.ToggleReaction(ctx, messageID, emoji)
	if err != nil {
		log.Printf("[session] reaction toggle failed for message %s: %v", messageID, err)
		return fmt.Errorf("toggle reaction: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.store.SetReactions(messageID, groups)
	}
	return nil
}

// OwnReactions, viewer'ın verilen mesajdaki kendi emoji setini döner.
func (s *Session) OwnReactions(messageID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.store.Get(messageID)
	if !ok {
		return nil
	}
	var own []string
	for _, g := range item.Reactions {
		for _, uid := range g.UserIDs {
			if uid == s.me {
				own = append(own, g.Emoji)
				break
			}
		}
	}
	return own
}

// toggleOwn, özet üzerinde viewer'ın üyeliğini çevirir: emoji'de
// viewer varsa çıkarılır (sayı düşer), yoksa eklenir. Sayısı sıfıra
// inen grup listeden atılır — görünür sette sıfır sayaç olmaz.
func toggleOwn(groups []models.ReactionGroup, emoji, userID string) []models.ReactionGroup {
	out := make([]models.ReactionGroup, 0, len(groups)+1)
	found := false

	for _, g := range groups {
		if g.Emoji != emoji {
			out = append(out, g)
			continue
		}
		found = true

		users := make([]string, 0, len(g.UserIDs))
		had := false
		for _, uid := range g.UserIDs {
			if uid == userID {
				had = true
				continue
			}
			users = append(users, uid)
		}
		if !had {
			users = append(users, userID)
		}
		if len(users) == 0 {
			continue
		}
		out = append(out, models.ReactionGroup{
			Emoji:   g.Emoji,
			Count:   len(users),
			UserIDs: users,
		})
	}

	if !found {
		out = append(out, models.ReactionGroup{
			Emoji:   emoji,
			Count:   1,
			UserIDs: []string{userID},
		})
	}
	return out
}
