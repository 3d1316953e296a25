package session

import (
	"context"
	"fmt"

	"github.com/denizyurt/takas/models"
	"github.com/denizyurt/takas/pkg"
)

// Composer gate — iki durumlu state machine: LOCKED / UNLOCKED.
//
// Viewer, takas isteğini gönderen tarafsa ve isteği accepted durumunda
// bekliyorsa composer kilitlidir: mesaj gönderemez, düzenleyemez, ek
// yükleyemez, watermark ilerletemez. Geçmişi okumak ve reaksiyon
// bırakmak serbesttir. Teslim onayı (ConfirmPickup) kilidi açar.
//
// Kilit durumu türetilmiştir, saklanmaz: sunucu ThreadView.Locked ile
// hesaplar, session başarılı onaydan sonra yerelde günceller.

// Locked, composer'ın kilitli olup olmadığını döner.
func (s *Session) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Locked
}

// ConfirmPickup, LOCKED → UNLOCKED geçişini tetikler: harici takas
// kaydını confirmed durumuna geçiren RPC'yi çağırır.
//
// RPC, geçiş başına tam olarak bir kez gider — eşzamanlı ikinci çağrı
// conflict ile reddedilir, sunucu da status koşullu güncelleme ile aynı
// garantiyi verir. Başarıda kilit açılır; sistem mesajı feed üzerinden
// gelir ve timeline'a normal yoldan merge edilir. Hatada kilit kapalı
// kalır ve hata çağırana döner.
func (s *Session) ConfirmPickup(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("%w: session closed", pkg.ErrBadRequest)
	}
	if !s.view.Locked {
		s.mu.Unlock()
		return fmt.Errorf("%w: conversation is already unlocked", pkg.ErrConflict)
	}
	if s.confirming {
		s.mu.Unlock()
		return fmt.Errorf("%w: confirmation already in progress", pkg.ErrConflict)
	}
	s.confirming = true
	interestID := s.view.InterestID
	s.mu.Unlock()

	err := s.api.ConfirmPickup(ctx, interestID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirming = false
	if s.closed {
		return nil
	}
	if err != nil {
		return fmt.Errorf("confirm pickup: %w", err)
	}

	s.view.Locked = false
	s.view.InterestStatus = models.InterestStatusConfirmed
	return nil
}
