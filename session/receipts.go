package session

import (
	"context"
	"fmt"
	"time"

	"github.com/denizyurt/takas/pkg"
)

// Okuma watermark'ları — katılımcı başına tek "buraya kadar gördüm"
// timestamp'i. Mesaj başına okundu satırı yoktur: watermark'tan eski
// her mesaj görülmüş sayılır. Watermark monotoniktir, geri gitmez.

// MarkSeen, viewer'ın watermark'ını "şimdi"ye ilerletir.
//
// Gate kilitliyken SESSİZ no-op: hata dönmez, watermark değişmez —
// konuşmayı henüz açmamış taraf "gördü" kredisi alamaz. Sunucu da aynı
// kuralı uygular (marked=false).
func (s *Session) MarkSeen(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("%w: session closed", pkg.ErrBadRequest)
	}
	if s.view.Locked {
		s.mu.Unlock()
		return nil
	}
	at := s.clock.Now()
	s.mu.Unlock()

	marked, err := s.api.MarkSeen(ctx, s.threadID, at)
	if err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if marked && !s.closed {
		s.applyWatermark(s.me, at)
	}
	return nil
}

// UnseenCount, viewer için okunmamış mesaj sayısını döner: KARŞI TARAFIN
// yazdığı, tombstone olmayan ve viewer'ın watermark'ından KESİN yeni
// mesajlar. Sistem mesajları sayılmaz — rozet karşı taraftan gelen içeriği
// gösterir; sunucunun konuşma listesi sayacı da aynı kuralı uygular.
func (s *Session) UnseenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	watermark := s.receipts[s.me]
	count := 0
	for _, it := range s.store.Snapshot() {
		if it.SenderID == nil || *it.SenderID == s.me {
			continue
		}
		if it.IsDeleted() || it.IsLocal() {
			continue
		}
		if it.CreatedAt.After(watermark) {
			count++
		}
	}
	return count
}

// SeenByOther, viewer'ın EN SON kendi mesajının karşı tarafça görülüp
// görülmediğini döner: karşı tarafın watermark'ı ≥ o mesajın created_at'i.
func (s *Session) SeenByOther() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	other := s.view.OtherParticipant(s.me)
	watermark, ok := s.receipts[other]
	if !ok {
		return false
	}

	items := s.store.Snapshot()
	for i := len(items) - 1; i >= 0; i-- {
		it := items[i]
		if it.IsLocal() || it.SenderID == nil || *it.SenderID != s.me {
			continue
		}
		return !watermark.Before(it.CreatedAt)
	}
	return false
}

// Watermark, verilen kullanıcının bilinen son watermark'ını döner.
func (s *Session) Watermark(userID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.receipts[userID]
	return t, ok
}

// applyWatermark, watermark'ı monotonik olarak ilerletir — geriye atılan
// değerler yok sayılır. Çağıran mutex'i tutar.
func (s *Session) applyWatermark(userID string, at time.Time) {
	if current, ok := s.receipts[userID]; ok && !at.After(current) {
		return
	}
	s.receipts[userID] = at
}

// loadReceipts, konuşmanın mevcut watermark'larını sunucudan çeker.
func (s *Session) loadReceipts(ctx context.Context) error {
	receipts, err := s.api.Receipts(ctx, s.threadID)
	if err != nil {
		return fmt.Errorf("load receipts: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	for _, r := range receipts {
		s.applyWatermark(r.UserID, r.LastSeenAt)
	}
	return nil
}
