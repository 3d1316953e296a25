// Package session, tek bir açık konuşmanın client tarafı motorudur.
//
// Sunucu otoriter kaynaktır; session ise optimistic yerel görünüm ile
// sunucudan gelen event akışını tek bir tutarlı timeline'da birleştirir.
// Her açık konuşma için bir Session oluşturulur, konuşmadan çıkınca
// Close ile deterministik olarak kapatılır — abonelik sızıntısı olmaz.
//
// Bağımlılıklar somut tipler yerine interface olarak enjekte edilir
// (Identity, API, Feed, Clock) — testlerde fake ile değiştirilebilir,
// transport'a bağımlılık yoktur. Gerçek HTTP+WebSocket implementasyonu
// için bkz. Client (client.go).
package session

import (
	"context"
	"time"

	"github.com/denizyurt/takas/models"
)

// Identity, mevcut kullanıcının kimliğini sağlar.
//
// Ambient/global auth state yerine açıkça enjekte edilir — session'ın
// "ben kimim" sorusunun tek cevap kaynağı budur.
type Identity interface {
	CurrentUserID() string
}

// StaticIdentity, sabit kullanıcı ID'si üzerinden Identity implementasyonu.
// Login yanıtındaki user.id ile kurulur.
type StaticIdentity string

// CurrentUserID, sabit ID'yi döner.
func (s StaticIdentity) CurrentUserID() string { return string(s) }

// API, sunucunun HTTP yüzü: kalıcılaştırma ve sorgu operasyonları.
// Her çağrı asenkron ağ isteğidir; context iptal edilebilir.
type API interface {
	// ResolveThread, konuşmanın metadata'sını ve viewer'ın gate durumunu yükler.
	ResolveThread(ctx context.Context, threadID string) (*models.ThreadView, error)

	// LoadPage, before'dan KESİN ESKİ mesajları döner (before sıfırsa en
	// yeni sayfa). Messages kronolojik (eski → yeni) sıralıdır.
	LoadPage(ctx context.Context, threadID string, before time.Time, limit int) (*models.MessagePage, error)

	// SendMessage, mesajı kalıcılaştırır. Aynı client_key ile tekrar
	// çağrılırsa sunucu mevcut kaydı döner (idempotent retry).
	SendMessage(ctx context.Context, threadID string, req *models.CreateMessageRequest) (*models.Message, error)

	EditMessage(ctx context.Context, messageID string, req *models.UpdateMessageRequest) (*models.Message, error)
	DeleteMessage(ctx context.Context, messageID string) (*models.Message, error)

	// ToggleReaction, reaksiyonu ekler/kaldırır ve mesajın güncel
	// reaksiyon özetinin tamamını döner.
	ToggleReaction(ctx context.Context, messageID, emoji string) ([]models.ReactionGroup, error)

	// MarkSeen, viewer'ın watermark'ını ilerletir. marked=false, gate
	// kilidi nedeniyle sunucunun isteği sessizce yok saydığı anlamına gelir.
	MarkSeen(ctx context.Context, threadID string, at time.Time) (marked bool, err error)

	// Receipts, konuşmadaki tüm watermark'ları döner.
	Receipts(ctx context.Context, threadID string) ([]models.Receipt, error)

	// ConfirmPickup, harici takas kaydını confirmed durumuna geçirir.
	// Gate geçişi başına tam olarak bir kez çağrılır.
	ConfirmPickup(ctx context.Context, interestID string) error
}

// Handle, aktif bir feed aboneliğini temsil eder.
//
// Subscribe'ın döndürdüğü explicit handle — typing yayını ve kapatma
// bu handle üzerinden yapılır, "doğru kanalı" string eşleştirmeyle
// aramak gerekmez.
type Handle interface {
	// Typing, viewer'ın yazma durumunu kanala yayınlar.
	Typing(typing bool) error
	// Close, aboneliği kapatır. Idempotent.
	Close() error
}

// Feed, sunucunun push event akışı. Subscribe, verilen konuşmanın
// event'lerini handler'a iletmeye başlar; handler ayrı bir goroutine'den
// çağrılabilir — Session kendi dispatch'ini mutex ile korur.
type Feed interface {
	Subscribe(threadID string, handler func(Event)) (Handle, error)
}

// Timer, Clock.AfterFunc'un döndürdüğü durdurulabilir zamanlayıcı.
type Timer interface {
	Stop() bool
	Reset(d time.Duration) bool
}

// Clock, zaman bağımlılığını soyutlar: geçici mesaj timestamp'leri ve
// typing debounce bunu kullanır. Testler sahte clock enjekte eder.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// realClock, stdlib time üzerine Clock implementasyonu.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// NewRealClock, production Clock'u döner.
func NewRealClock() Clock { return realClock{} }

// ─── Feed event'leri ───
//
// Push akışından gelen payload'lar boundary'de doğrulanıp bu tagged
// union'a çevrilir; Reconciler'a tipi belirsiz veri girmez.

// EventKind, feed event türü.
type EventKind string

const (
	EventMessageInserted EventKind = "message_insert"
	EventMessageUpdated  EventKind = "message_update"
	EventReactionChanged EventKind = "reaction_update"
	EventReceiptChanged  EventKind = "receipt_update"
	EventTyping          EventKind = "typing"
)

// ReactionChange, bir mesajın reaksiyon özetinin yeni hali.
// Delta değil tam özet — üzerine yazılır, birleştirme yapılmaz.
type ReactionChange struct {
	ThreadID  string
	MessageID string
	Groups    []models.ReactionGroup
}

// TypingChange, karşı tarafın yazma durumu değişikliği.
type TypingChange struct {
	ThreadID string
	UserID   string
	Typing   bool
}

// Event, feed'den gelen tek bir doğrulanmış event.
// Kind hangi alanın dolu olduğunu belirler.
type Event struct {
	Kind     EventKind
	Message  *models.Message // message_insert / message_update
	Reaction *ReactionChange // reaction_update
	Receipt  *models.Receipt // receipt_update
	Typing   *TypingChange   // typing
}

// threadID, event'in ait olduğu konuşmayı döner (stale guard için).
func (e Event) threadID() string {
	switch e.Kind {
	case EventMessageInserted, EventMessageUpdated:
		if e.Message != nil {
			return e.Message.ThreadID
		}
	case EventReactionChanged:
		if e.Reaction != nil {
			return e.Reaction.ThreadID
		}
	case EventReceiptChanged:
		if e.Receipt != nil {
			return e.Receipt.ThreadID
		}
	case EventTyping:
		if e.Typing != nil {
			return e.Typing.ThreadID
		}
	}
	return ""
}
