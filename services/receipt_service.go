package services

import (
	"context"
	"fmt"
	"time"

	"github.com/denizyurt/takas/models"
	"github.com/denizyurt/takas/pkg"
	"github.com/denizyurt/takas/repository"
	"github.com/denizyurt/takas/ws"
)

// MarkSeenResult, watermark isteğinin sonucu.
// Marked=false → gate kilidi nedeniyle sessiz no-op (hata değil).
type MarkSeenResult struct {
	Marked     bool      `json:"marked"`
	LastSeenAt time.Time `json:"last_seen_at,omitempty"`
}

// ReceiptService, okuma watermark'ı işlemleri için interface.
type ReceiptService interface {
	MarkSeen(ctx context.Context, userID, threadID string, req *models.MarkSeenRequest) (*MarkSeenResult, error)
	GetForThread(ctx context.Context, userID, threadID string) ([]models.Receipt, error)
}

type receiptService struct {
	receiptRepo  repository.ReceiptRepository
	threadRepo   repository.ThreadRepository
	interestRepo repository.InterestRepository
	hub          ws.EventPublisher
}

// NewReceiptService, constructor.
func NewReceiptService(
	receiptRepo repository.ReceiptRepository,
	threadRepo repository.ThreadRepository,
	interestRepo repository.InterestRepository,
	hub ws.EventPublisher,
) ReceiptService {
	return &receiptService{
		receiptRepo:  receiptRepo,
		threadRepo:   threadRepo,
		interestRepo: interestRepo,
		hub:          hub,
	}
}

// MarkSeen, "buraya kadar gördüm" watermark'ını ilerletir ve broadcast eder.
//
// Gate kilitliyken sessiz no-op: 200 döner ama marked=false, watermark
// değişmez, broadcast yapılmaz. Kilitli taraf geçmişi okuyabilir ama
// "gördü" bilgisi karşıya sızmaz.
//
// Watermark monotoniktir: geriye atılan işaret Upsert'te yok sayılır.
func (s *receiptService) MarkSeen(ctx context.Context, userID, threadID string, req *models.MarkSeenRequest) (*MarkSeenResult, error) {
	thread, err := s.threadRepo.GetByID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if !thread.HasParticipant(userID) {
		return nil, fmt.Errorf("%w: not a participant of this thread", pkg.ErrForbidden)
	}

	interest, err := s.interestRepo.GetByID(ctx, thread.InterestID)
	if err != nil {
		return nil, err
	}
	if composerLocked(thread, interest.Status, userID) {
		return &MarkSeenResult{Marked: false}, nil
	}

	// Watermark "şimdi"den ileri taşınamaz — gelecek tarihli bir istek
	// görmediği mesajlar için kredi alamaz, şimdiye sabitlenir.
	at := req.LastSeenAt
	now := time.Now()
	if at.IsZero() || at.After(now) {
		at = now
	}
	at = at.UTC()

	if err := s.receiptRepo.Upsert(ctx, threadID, userID, at); err != nil {
		return nil, err
	}

	s.hub.BroadcastToThread(threadID, ws.Event{
		Op: ws.OpReceiptUpdate,
		Data: ws.ReceiptUpdateData{
			ThreadID:   threadID,
			UserID:     userID,
			LastSeenAt: at,
		},
	})

	return &MarkSeenResult{Marked: true, LastSeenAt: at}, nil
}

// GetForThread, konuşmanın watermark'larını döner (seen rozeti için).
func (s *receiptService) GetForThread(ctx context.Context, userID, threadID string) ([]models.Receipt, error) {
	thread, err := s.threadRepo.GetByID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if !thread.HasParticipant(userID) {
		return nil, fmt.Errorf("%w: not a participant of this thread", pkg.ErrForbidden)
	}

	return s.receiptRepo.GetForThread(ctx, threadID)
}
