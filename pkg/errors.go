// Package pkg, katmanlar arasında paylaşılan küçük yardımcıları barındırır.
// Bu dosya domain-level error tanımlarını içerir.
//
// Error'lar sabit değerler olarak tanımlanır; karşılaştırma string yerine
// errors.Is ile yapılır:
//
//	if errors.Is(err, pkg.ErrNotFound) { ... }
//
// Service katmanı bu sabitleri fmt.Errorf("%w: detay") ile sarar,
// handler katmanı mapErrorToStatus ile HTTP status'a çevirir.
package pkg

import "errors"

// Domain-level error'lar.
//
// Kabaca eşleşme:
//   - ErrNotFound      → kayıt (thread/mesaj/ilan) yok veya eşzamanlı silinmiş
//   - ErrUnauthorized  → kimlik doğrulanamadı
//   - ErrForbidden     → üye değil veya teslim onayı henüz verilmemiş (kilitli)
//   - ErrAlreadyExists → unique çakışması (aynı client_key ile tekrar gönderim dahil)
//   - ErrConflict      → durum geçişi çakışması (teslim onayı zaten verilmiş)
//   - ErrBadRequest    → validation hatası
//   - ErrInternal      → beklenmeyen durum
var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrAlreadyExists = errors.New("already exists")
	ErrConflict      = errors.New("conflict")
	ErrBadRequest    = errors.New("bad request")
	ErrInternal      = errors.New("internal error")
)
