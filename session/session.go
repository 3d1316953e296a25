package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/denizyurt/takas/models"
	"github.com/denizyurt/takas/pkg"
)

// PageSize, geçmiş yüklemesinin sayfa boyutu.
const PageSize = 30

// DefaultTypingIdle, typing:false yayınından önce beklenen sessizlik süresi.
const DefaultTypingIdle = 900 * time.Millisecond

// Attachment, gönderilecek mesajın eki (önceden upload edilmiş olmalı).
type Attachment struct {
	Type string
	URL  string
}

// Deps, Session'ın enjekte edilen bağımlılıkları.
type Deps struct {
	Identity Identity
	API      API
	Feed     Feed

	// Clock nil ise gerçek saat kullanılır.
	Clock Clock

	// TypingIdle 0 ise DefaultTypingIdle kullanılır. Testler kısaltır.
	TypingIdle time.Duration
}

// Session, tek bir açık konuşmanın sahibi: mesaj store'u, optimistic
// gönderim, reconciler, reaksiyonlar, watermark'lar, typing ve composer
// gate tek bir nesnede toplanır. Konuşma başına bir instance oluşturulur,
// kapatılınca Close çağrılır.
//
// Tüm mutasyonlar tek mutex'in altından geçer: feed handler'ı, API
// yanıtları ve timer callback'leri hangi goroutine'den gelirse gelsin
// store asla tutarsız ara durumda görünmez. Ağ çağrıları mutex
// TUTULMADAN yapılır.
type Session struct {
	api        API
	clock      Clock
	typingIdle time.Duration

	threadID string
	me       string

	mu         sync.Mutex
	store      *Store
	view       *models.ThreadView
	hasMore    bool
	confirming bool
	closed     bool

	handle Handle

	// receipts: userID → watermark. Karşı tarafın "gördü" rozeti ve
	// viewer'ın unseen sayısı buradan türetilir.
	receipts map[string]time.Time

	// typers: şu anda yazmakta olan DİĞER kullanıcılar.
	typers map[string]bool

	typingActive bool
	typingTimer  Timer
}

// New, verilen konuşma için bir Session kurar:
//
//  1. Thread metadata'sı ve viewer'ın gate durumu çözülür.
//  2. Feed aboneliği açılır — geçmiş yüklenmeden ÖNCE, araya event
//     kaçmasın diye (çakışan mesajlar dedup ile elenir).
//  3. İlk geçmiş sayfası ve watermark'lar yüklenir.
//
// Thread çözümleme veya abonelik hatası kurulumu iptal eder; geçmiş ve
// watermark hataları ise konuşma seviyesinde loglanır, session yine döner
// (LoadOlder ile tekrar denenebilir).
func New(ctx context.Context, deps Deps, threadID string) (*Session, error) {
	if deps.Identity == nil || deps.API == nil || deps.Feed == nil {
		return nil, fmt.Errorf("%w: session requires identity, api and feed", pkg.ErrBadRequest)
	}

	clock := deps.Clock
	if clock == nil {
		clock = NewRealClock()
	}
	idle := deps.TypingIdle
	if idle <= 0 {
		idle = DefaultTypingIdle
	}

	view, err := deps.API.ResolveThread(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("resolve thread: %w", err)
	}

	s := &Session{
		api:        deps.API,
		clock:      clock,
		typingIdle: idle,
		threadID:   threadID,
		me:         deps.Identity.CurrentUserID(),
		store:      NewStore(),
		view:       view,
		hasMore:    true,
		receipts:   make(map[string]time.Time),
		typers:     make(map[string]bool),
	}

	handle, err := deps.Feed.Subscribe(threadID, s.dispatch)
	if err != nil {
		return nil, fmt.Errorf("subscribe feed: %w", err)
	}
	s.handle = handle

	if err := s.LoadOlder(ctx); err != nil {
		log.Printf("[session] initial history load failed for thread %s: %v", threadID, err)
	}
	if err := s.loadReceipts(ctx); err != nil {
		log.Printf("[session] receipt load failed for thread %s: %v", threadID, err)
	}

	return s, nil
}

// Close, session'ı kapatır: feed aboneliği bırakılır, aktif typing
// sinyali geri çekilir, sonradan gelen event ve yanıtlar yok sayılır.
// Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	wasTyping := s.typingActive
	s.typingActive = false
	if s.typingTimer != nil {
		s.typingTimer.Stop()
		s.typingTimer = nil
	}
	handle := s.handle
	s.mu.Unlock()

	if wasTyping {
		if err := handle.Typing(false); err != nil {
			log.Printf("[session] failed to clear typing on close: %v", err)
		}
	}
	return handle.Close()
}

// Messages, timeline'ın anlık kopyasını döner (eski → yeni).
func (s *Session) Messages() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Snapshot()
}

// View, thread metadata'sının kopyasını döner.
func (s *Session) View() models.ThreadView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.view
}

// HasMore, daha eski geçmiş sayfası olup olmadığını döner.
func (s *Session) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// LoadOlder, mevcut en eski mesajdan geriye doğru bir sayfa yükler.
// Hata, yüklenmiş mesajları ASLA silmez — store olduğu gibi kalır.
// Eski sayfa yüklemek mevcut mesajları yeniden sıralamaz ve çoğaltmaz
// (ID bazlı dedup).
func (s *Session) LoadOlder(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("%w: session closed", pkg.ErrBadRequest)
	}
	// En eski SUNUCU mesajı cursor olur; geçici entry'lerin yerel
	// timestamp'i cursor olamaz.
	var before time.Time
	for _, it := range s.store.Snapshot() {
		if !it.IsLocal() {
			before = it.CreatedAt
			break
		}
	}
	s.mu.Unlock()

	page, err := s.api.LoadPage(ctx, s.threadID, before, PageSize)
	if err != nil {
		return fmt.Errorf("load page: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	for _, msg := range page.Messages {
		s.store.Merge(msg)
	}
	s.hasMore = page.HasMore
	return nil
}

// Send, optimistic gönderim hattı:
//
//  1. Correlation anahtarı üret, "local-" prefix'li geçici mesajı
//     HEMEN store'a koy (optimistic UI).
//  2. Kalıcılaştırma isteğini client_key ile gönder.
//  3. Başarıda geçici entry sunucu kopyasıyla değiştirilir; feed
//     echo'su daha önce geldiyse bu adım no-op'tur.
//  4. Hatada entry failed işaretlenir — içerik kaybolmaz, Retry ile
//     yeniden gönderilebilir.
//
// Gate kilitliyken istek store'a DOKUNMADAN reddedilir.
func (s *Session) Send(ctx context.Context, body string, attachment *Attachment, replyToID *string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("%w: session closed", pkg.ErrBadRequest)
	}
	if s.view.Locked {
		s.mu.Unlock()
		return fmt.Errorf("%w: confirm the pickup before sending", pkg.ErrForbidden)
	}

	clientKey := uuid.NewString()
	s.insertProvisional(clientKey, body, attachment, replyToID)
	s.mu.Unlock()

	return s.persist(ctx, clientKey, body, attachment, replyToID)
}

// Retry, failed bir entry'yi TAZE client_key ve taze geçici entry ile
// yeniden gönderir; eski failed entry, yenisi kuyruğa girdikten sonra
// kaldırılır. Correlation anahtarları asla yeniden kullanılmaz.
func (s *Session) Retry(ctx context.Context, clientKey string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("%w: session closed", pkg.ErrBadRequest)
	}

	idx := s.store.indexByClientKey(clientKey)
	if idx < 0 || !s.store.items[idx].Failed {
		s.mu.Unlock()
		return fmt.Errorf("%w: no failed message with that key", pkg.ErrNotFound)
	}
	old := s.store.items[idx]

	body := ""
	if old.Body != nil {
		body = *old.Body
	}
	var attachment *Attachment
	if old.AttachmentURL != nil && old.AttachmentType != nil {
		attachment = &Attachment{Type: *old.AttachmentType, URL: *old.AttachmentURL}
	}

	freshKey := uuid.NewString()
	s.insertProvisional(freshKey, body, attachment, old.ReplyToID)
	s.store.Remove(clientKey)
	s.mu.Unlock()

	return s.persist(ctx, freshKey, body, attachment, old.ReplyToID)
}

// insertProvisional, geçici mesajı store'a koyar. Çağıran mutex'i tutar.
func (s *Session) insertProvisional(clientKey, body string, attachment *Attachment, replyToID *string) {
	me := s.me
	item := Item{
		Message: models.Message{
			ID:        LocalIDPrefix + uuid.NewString(),
			ThreadID:  s.threadID,
			SenderID:  &me,
			CreatedAt: s.clock.Now(),
			ReplyToID: replyToID,
			ClientKey: &clientKey,
		},
		Pending: true,
	}
	if body != "" {
		b := body
		item.Body = &b
	}
	if attachment != nil {
		t, u := attachment.Type, attachment.URL
		item.AttachmentType = &t
		item.AttachmentURL = &u
	}
	s.store.Insert(item)
}

// persist, kalıcılaştırma isteğini gönderir ve sonucu store'a işler.
// Mutex tutulmadan çağrılır.
func (s *Session) persist(ctx context.Context, clientKey, body string, attachment *Attachment, replyToID *string) error {
	req := &models.CreateMessageRequest{
		Body:      body,
		ClientKey: clientKey,
		ReplyToID: replyToID,
	}
	if attachment != nil {
		req.AttachmentType = attachment.Type
		req.AttachmentURL = attachment.URL
	}

	msg, err := s.api.SendMessage(ctx, s.threadID, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		// Stale guard: kapanmış session'ın sonucu çöpe gider.
		return nil
	}
	if err != nil {
		s.store.MarkFailed(clientKey)
		return fmt.Errorf("send message: %w", err)
	}
	s.store.Replace(clientKey, *msg)
	return nil
}

// Edit, mesaj düzenlemeyi optimistic uygular; sunucu reddederse eski
// hale geri alır (rollback) ve hatayı döner.
func (s *Session) Edit(ctx context.Context, messageID, body string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("%w: session closed", pkg.ErrBadRequest)
	}
	if s.view.Locked {
		s.mu.Unlock()
		return fmt.Errorf("%w: confirm the pickup before editing", pkg.ErrForbidden)
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
		return fmt.Errorf("%w: message cannot be edited", pkg.ErrBadRequest)
	case item.SenderID == nil || *item.SenderID != s.me:
		s.mu.Unlock()
		return fmt.Errorf("%w: only the author can edit a message", pkg.ErrForbidden)
	}

	prev := item.Message
	optimistic := item.Message
	b := body
	now := s.clock.Now()
	optimistic.Body = &b
	optimistic.EditedAt = &now
	s.store.Patch(messageID, optimistic)
	s.mu.Unlock()

	msg, err := s.api.EditMessage(ctx, messageID, &models.UpdateMessageRequest{Body: body})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if err != nil {
		s.store.Patch(messageID, prev)
		return fmt.Errorf("edit message: %w", err)
	}
	s.store.Patch(messageID, *msg)
	return nil
}

// Delete, soft delete'i optimistic uygular: entry tombstone'a döner ama
// satır ve sırası korunur. Sunucu reddederse geri alınır.
// Gate kilidi düzenleme gibi silmeyi de kapsar.
func (s *Session) Delete(ctx context.Context, messageID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("%w: session closed", pkg.ErrBadRequest)
	}
	if s.view.Locked {
		s.mu.Unlock()
		return fmt.Errorf("%w: confirm the pickup before deleting", pkg.ErrForbidden)
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
		return fmt.Errorf("%w: message cannot be deleted", pkg.ErrBadRequest)
	case item.SenderID == nil || *item.SenderID != s.me:
		s.mu.Unlock()
		return fmt.Errorf("%w: only the author can delete a message", pkg.ErrForbidden)
	}

	prev := item.Message
	optimistic := item.Message
	now := s.clock.Now()
	optimistic.DeletedAt = &now
	optimistic.Sanitize()
	s.store.Patch(messageID, optimistic)
	s.mu.Unlock()

	msg, err := s.api.DeleteMessage(ctx, messageID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if err != nil {
		s.store.Patch(messageID, prev)
		return fmt.Errorf("delete message: %w", err)
	}
	s.store.Patch(messageID, *msg)
	return nil
}

// dispatch, feed'den gelen her event'in tek giriş noktası — Reconciler.
// Mutex'in altında çalışır; başka bir konuşmanın ya da kapanmış
// session'ın event'leri burada elenir (stale guard).
func (s *Session) dispatch(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || ev.threadID() != s.threadID {
		return
	}

	switch ev.Kind {
	case EventMessageInserted:
		if ev.Message == nil {
			return
		}
		// Merge: client_key collapse → ID dedup → insert + resort.
		// Kendi gönderimimizin echo'su da, karşı tarafın mesajı da
		// aynı yoldan geçer.
		s.store.Merge(*ev.Message)
	case EventMessageUpdated:
		if ev.Message == nil {
			return
		}
		s.store.Patch(ev.Message.ID, *ev.Message)
	case EventReactionChanged:
		if ev.Reaction == nil {
			return
		}
		// Tam özet üzerine yazılır — diff birleştirme yok. Optimistic
		// yerel toggle'lar da böylece eninde sonunda düzeltilir.
		s.store.SetReactions(ev.Reaction.MessageID, ev.Reaction.Groups)
	case EventReceiptChanged:
		if ev.Receipt == nil {
			return
		}
		s.applyWatermark(ev.Receipt.UserID, ev.Receipt.LastSeenAt)
	case EventTyping:
		if ev.Typing == nil || ev.Typing.UserID == s.me {
			return
		}
		if ev.Typing.Typing {
			s.typers[ev.Typing.UserID] = true
		} else {
			delete(s.typers, ev.Typing.UserID)
		}
	}
}

// OthersTyping, karşı tarafın şu anda yazıp yazmadığını döner.
func (s *Session) OthersTyping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.typers) > 0
}
