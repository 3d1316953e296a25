package services

import (
	"context"
	"fmt"

	"github.com/denizyurt/takas/models"
	"github.com/denizyurt/takas/pkg"
	"github.com/denizyurt/takas/repository"
	"github.com/denizyurt/takas/ws"
)

// ReactionService, reaksiyon işlemleri için interface.
//
// Toggle sonrası delta değil, mesajın reaksiyon özetinin TAMAMI broadcast
// edilir. Client'lar birleştirme yapmaz, gelen özeti olduğu gibi yazar —
// kaçan bir ara event kalıcı tutarsızlık bırakamaz, bir sonraki özet düzeltir.
type ReactionService interface {
	Toggle(ctx context.Context, userID, messageID string, req *models.ToggleReactionRequest) ([]models.ReactionGroup, error)
}

type reactionService struct {
	reactionRepo repository.ReactionRepository
	messageRepo  repository.MessageRepository
	threadRepo   repository.ThreadRepository
	hub          ws.EventPublisher
}

// NewReactionService, constructor.
func NewReactionService(
	reactionRepo repository.ReactionRepository,
	messageRepo repository.MessageRepository,
	threadRepo repository.ThreadRepository,
	hub ws.EventPublisher,
) ReactionService {
	return &reactionService{
		reactionRepo: reactionRepo,
		messageRepo:  messageRepo,
		threadRepo:   threadRepo,
		hub:          hub,
	}
}

// Toggle, reaksiyonu ekler/kaldırır ve güncel özeti döner + broadcast eder.
// Gate kilidi reaksiyonları KAPSAMAZ — kilitli taraf geçmişi okuyabildiği
// gibi reaksiyon da bırakabilir.
func (s *reactionService) Toggle(ctx context.Context, userID, messageID string, req *models.ToggleReactionRequest) ([]models.ReactionGroup, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	if msg.IsSystem() {
		return nil, fmt.Errorf("%w: system messages cannot receive reactions", pkg.ErrBadRequest)
	}
	if msg.IsDeleted() {
		return nil, fmt.Errorf("%w: message is deleted", pkg.ErrNotFound)
	}

	thread, err := s.threadRepo.GetByID(ctx, msg.ThreadID)
	if err != nil {
		return nil, err
	}
	if !thread.HasParticipant(userID) {
		return nil, fmt.Errorf("%w: not a participant of this thread", pkg.ErrForbidden)
	}

	if _, err := s.reactionRepo.Toggle(ctx, messageID, userID, req.Emoji); err != nil {
		return nil, err
	}

	groups, err := s.reactionRepo.GroupsByMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastToThread(msg.ThreadID, ws.Event{
		Op: ws.OpReactionUpdate,
		Data: ws.ReactionUpdateData{
			ThreadID:  msg.ThreadID,
			MessageID: messageID,
			Groups:    groups,
		},
	})

	return groups, nil
}
