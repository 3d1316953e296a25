package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
	"unicode/utf8"

	"github.com/denizyurt/takas/models"
	"github.com/denizyurt/takas/pkg"
	"github.com/denizyurt/takas/pkg/mail"
	"github.com/denizyurt/takas/repository"
	"github.com/denizyurt/takas/ws"
)

// Sayfalama limitleri.
const (
	DefaultPageSize = 30
	MaxPageSize     = 100
)

// MessageService, mesaj işlemleri için interface.
//
// Send idempotenttir: aynı client_key ile tekrar gelen istek yeni satır
// yazmaz, mevcut mesajı döner. Bu, client'ın timeout sonrası retry'ının
// çift mesaj üretmemesini sağlar.
type MessageService interface {
	// Send'in ikinci dönüşü created: false ise aynı client_key ile daha önce
	// kalıcılaşmış mesaj dönmüştür (duplicate collapse).
	Send(ctx context.Context, userID, threadID string, req *models.CreateMessageRequest) (*models.Message, bool, error)
	ListPage(ctx context.Context, userID, threadID string, before time.Time, limit int) (*models.MessagePage, error)
	Edit(ctx context.Context, userID, messageID string, req *models.UpdateMessageRequest) (*models.Message, error)
	Delete(ctx context.Context, userID, messageID string) (*models.Message, error)
}

type messageService struct {
	messageRepo  repository.MessageRepository
	threadRepo   repository.ThreadRepository
	interestRepo repository.InterestRepository
	reactionRepo repository.ReactionRepository
	userRepo     repository.UserRepository
	hub          ws.EventPublisher
	mailer       mail.Sender
}

// NewMessageService, constructor.
func NewMessageService(
	messageRepo repository.MessageRepository,
	threadRepo repository.ThreadRepository,
	interestRepo repository.InterestRepository,
	reactionRepo repository.ReactionRepository,
	userRepo repository.UserRepository,
	hub ws.EventPublisher,
	mailer mail.Sender,
) MessageService {
	return &messageService{
		messageRepo:  messageRepo,
		threadRepo:   threadRepo,
		interestRepo: interestRepo,
		reactionRepo: reactionRepo,
		userRepo:     userRepo,
		hub:          hub,
		mailer:       mailer,
	}
}

// guardParticipant, thread'i yükler ve kullanıcının tarafı olduğunu doğrular.
func (s *messageService) guardParticipant(ctx context.Context, userID, threadID string) (*models.Thread, error) {
	thread, err := s.threadRepo.GetByID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if !thread.HasParticipant(userID) {
		return nil, fmt.Errorf("%w: not a participant of this thread", pkg.ErrForbidden)
	}
	return thread, nil
}

// guardGate, composer kilidini kontrol eder. Kilitliyken gönderme, düzenleme
// ve ek yükleme reddedilir; geçmişi okumak serbesttir.
func (s *messageService) guardGate(ctx context.Context, thread *models.Thread, userID string) error {
	interest, err := s.interestRepo.GetByID(ctx, thread.InterestID)
	if err != nil {
		return err
	}
	if composerLocked(thread, interest.Status, userID) {
		return fmt.Errorf("%w: confirm the pickup before sending messages", pkg.ErrForbidden)
	}
	return nil
}

// Send, yeni mesaj gönderir ve thread'e broadcast eder.
//
// client_key çakışması hata değildir: aynı gönderimin tekrarı demektir.
// Mevcut mesaj döner ve broadcast TEKRARLANMAZ — ilk kayıt zaten
// duyurulmuştur, ikinci duyuru client'larda çift mesaj oluştururdu.
func (s *messageService) Send(ctx context.Context, userID, threadID string, req *models.CreateMessageRequest) (*models.Message, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	thread, err := s.guardParticipant(ctx, userID, threadID)
	if err != nil {
		return nil, false, err
	}
	if err := s.guardGate(ctx, thread, userID); err != nil {
		return nil, false, err
	}

	// reply_to hedefi bu thread'de olmalı
	if req.ReplyToID != nil {
		target, err := s.messageRepo.GetByID(ctx, *req.ReplyToID)
		if err != nil {
			return nil, false, err
		}
		if target.ThreadID != threadID {
			return nil, false, fmt.Errorf("%w: reply target is not in this thread", pkg.ErrBadRequest)
		}
	}

	var body *string
	if req.Body != "" {
		body = &req.Body
	}

	var attachmentType, attachmentURL *string
	if req.AttachmentURL != "" {
		attachmentType = &req.AttachmentType
		attachmentURL = &req.AttachmentURL
	}

	msg := &models.Message{
		ThreadID:       threadID,
		SenderID:       &userID,
		Body:           body,
		ReplyToID:      req.ReplyToID,
		AttachmentType: attachmentType,
		AttachmentURL:  attachmentURL,
		ClientKey:      &req.ClientKey,
	}

	if err := s.messageRepo.Create(ctx, msg); err != nil {
		if errors.Is(err, pkg.ErrAlreadyExists) {
			existing, dupErr := s.resolveDuplicate(ctx, userID, threadID, req.ClientKey)
			return existing, false, dupErr
		}
		return nil, false, err
	}

	if err := s.threadRepo.TouchLastMessage(ctx, threadID, msg.CreatedAt); err != nil {
		log.Printf("[message] failed to touch thread %s: %v", threadID, err)
	}

	// Broadcast için gönderen bilgisini doldur
	if sender, err := s.userRepo.GetByID(ctx, userID); err == nil {
		sender.PasswordHash = ""
		msg.Sender = sender
	}

	s.hub.BroadcastToThread(threadID, ws.Event{Op: ws.OpMessageInsert, Data: msg})

	s.notifyIfOffline(thread, msg)

	return msg, true, nil
}

// resolveDuplicate, client_key çakışmasında mevcut mesajı döner.
// Anahtar başka kullanıcıya veya başka thread'e aitse bu bir retry değil
// gerçek bir çakışmadır → ErrAlreadyExists.
func (s *messageService) resolveDuplicate(ctx context.Context, userID, threadID, clientKey string) (*models.Message, error) {
	existing, err := s.messageRepo.GetByClientKey(ctx, clientKey)
	if err != nil {
		return nil, err
	}

	if existing.SenderID == nil || *existing.SenderID != userID || existing.ThreadID != threadID {
		return nil, fmt.Errorf("%w: client_key already in use", pkg.ErrAlreadyExists)
	}

	log.Printf("[message] duplicate send collapsed: client_key=%s message=%s", clientKey, existing.ID)
	return existing, nil
}

// notifyIfOffline, karşı taraf bağlı değilse mail bildirimi gönderir.
// Gönderim arka planda yapılır — mesaj yolu mail sağlayıcısını beklemez.
func (s *messageService) notifyIfOffline(thread *models.Thread, msg *models.Message) {
	if msg.SenderID == nil {
		return
	}

	otherID := thread.OtherParticipant(*msg.SenderID)
	if s.hub.IsUserOnline(otherID) {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		other, err := s.userRepo.GetByID(ctx, otherID)
		if err != nil || other.Email == nil {
			return
		}

		fromName := ""
		if msg.Sender != nil {
			fromName = msg.Sender.Username
			if msg.Sender.DisplayName != nil {
				fromName = *msg.Sender.DisplayName
			}
		}

		preview := ""
		if msg.Body != nil {
			preview = truncateRunes(*msg.Body, 120)
		} else if msg.AttachmentURL != nil {
			preview = "📷 Fotoğraf"
		}

		if err := s.mailer.SendOfflineMessage(ctx, *other.Email, fromName, thread.ID, preview); err != nil {
			log.Printf("[message] offline notification failed for user %s: %v", otherID, err)
		}
	}()
}

// ListPage, before'dan eski mesajları kronolojik sırada döner.
//
// limit+1 hilesi: istenen sayfadan bir fazlası sorgulanır; fazlalık
// geldiyse has_more=true olur ve fazlalık kırpılır. Repo DESC döner,
// burada ters çevrilir (eski → yeni).
func (s *messageService) ListPage(ctx context.Context, userID, threadID string, before time.Time, limit int) (*models.MessagePage, error) {
	if _, err := s.guardParticipant(ctx, userID, threadID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if before.IsZero() {
		before = time.Now().UTC().Add(time.Second)
	}

	messages, err := s.messageRepo.List(ctx, threadID, before, limit+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}

	// DESC → ASC
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	// Reaksiyonları tek sorguda doldur (N+1 önlemi)
	ids := make([]string, 0, len(messages))
	for _, m := range messages {
		if !m.IsDeleted() {
			ids = append(ids, m.ID)
		}
	}

	groups, err := s.reactionRepo.GroupsByMessageIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	for i := range messages {
		messages[i].Reactions = groups[messages[i].ID]
		messages[i].Sanitize()
	}

	return &models.MessagePage{Messages: messages, HasMore: hasMore}, nil
}

// Edit, mesaj gövdesini değiştirir.
// Sadece gönderen düzenleyebilir; sistem mesajları ve tombstone'lar düzenlenemez.
// Gate kilidi düzenlemeyi de kapsar.
func (s *messageService) Edit(ctx context.Context, userID, messageID string, req *models.UpdateMessageRequest) (*models.Message, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	if msg.IsSystem() || msg.SenderID == nil || *msg.SenderID != userID {
		return nil, fmt.Errorf("%w: only the author can edit a message", pkg.ErrForbidden)
	}
	if msg.IsDeleted() {
		return nil, fmt.Errorf("%w: message is deleted", pkg.ErrNotFound)
	}

	thread, err := s.guardParticipant(ctx, userID, msg.ThreadID)
	if err != nil {
		return nil, err
	}
	if err := s.guardGate(ctx, thread, userID); err != nil {
		return nil, err
	}

	editedAt, err := s.messageRepo.UpdateBody(ctx, messageID, req.Body)
	if err != nil {
		return nil, err
	}

	msg.Body = &req.Body
	msg.EditedAt = editedAt

	s.hub.BroadcastToThread(msg.ThreadID, ws.Event{Op: ws.OpMessageUpdate, Data: msg})
	return msg, nil
}

// Delete, mesajı tombstone'a çevirir. Satır ve sıra korunur, içerik gizlenir.
// Broadcast edilen mesaj sanitize edilmiştir — silinen içerik feed'e sızmaz.
// Gate kilidi düzenleme gibi silmeyi de kapsar.
func (s *messageService) Delete(ctx context.Context, userID, messageID string) (*models.Message, error) {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	if msg.IsSystem() || msg.SenderID == nil || *msg.SenderID != userID {
		return nil, fmt.Errorf("%w: only the author can delete a message", pkg.ErrForbidden)
	}

	thread, err := s.guardParticipant(ctx, userID, msg.ThreadID)
	if err != nil {
		return nil, err
	}
	if err := s.guardGate(ctx, thread, userID); err != nil {
		return nil, err
	}

	deletedAt, err := s.messageRepo.SoftDelete(ctx, messageID)
	if err != nil {
		return nil, err
	}

	msg.DeletedAt = deletedAt
	msg.Sanitize()

	s.hub.BroadcastToThread(msg.ThreadID, ws.Event{Op: ws.OpMessageUpdate, Data: msg})
	return msg, nil
}

// truncateRunes, metni rune sınırında kısaltır (UTF-8 güvenli).
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "…"
}
