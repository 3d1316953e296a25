package services

import (
	"context"
	"fmt"
	"time"

	"github.com/denizyurt/takas/models"
	"github.com/denizyurt/takas/pkg"
	"github.com/denizyurt/takas/pkg/cache"
	"github.com/denizyurt/takas/repository"
)

// ThreadService, konuşma işlemleri için interface.
//
// Resolve, bir konuşmayı görüntüleyen kullanıcı için bağlamıyla döner:
// karşı taraf, ilan, istek durumu ve composer kilidi (gate).
type ThreadService interface {
	Resolve(ctx context.Context, userID, threadID string) (*models.ThreadView, error)
	List(ctx context.Context, userID string) ([]models.ThreadListItem, error)
	IsParticipant(ctx context.Context, userID, threadID string) bool
}

type threadService struct {
	threadRepo   repository.ThreadRepository
	interestRepo repository.InterestRepository
	listingRepo  repository.ListingRepository
	userRepo     repository.UserRepository
	receiptRepo  repository.ReceiptRepository

	// membershipCache: (threadID:userID) → üyelik sonucu. Her ws subscribe
	// ve typing relay'inde DB'ye gitmemek için kısa TTL ile tutulur.
	// Üyelik thread yaşamı boyunca değişmez; TTL sadece silinen thread'lerin
	// cache'te uzun süre "üye" görünmemesi için.
	membershipCache *cache.TTLCache[string, bool]
}

// NewThreadService, constructor.
func NewThreadService(
	threadRepo repository.ThreadRepository,
	interestRepo repository.InterestRepository,
	listingRepo repository.ListingRepository,
	userRepo repository.UserRepository,
	receiptRepo repository.ReceiptRepository,
) ThreadService {
	return &threadService{
		threadRepo:      threadRepo,
		interestRepo:    interestRepo,
		listingRepo:     listingRepo,
		userRepo:        userRepo,
		receiptRepo:     receiptRepo,
		membershipCache: cache.New[string, bool](30*time.Second, 5*time.Minute),
	}
}

// composerLocked, gate kuralı: istek accepted durumundayken isteği gönderen
// taraf (alıcı) mesaj yazamaz; teslim onayı (confirmed) kilidi açar.
// İlan sahibi hiçbir zaman kilitlenmez.
func composerLocked(t *models.Thread, interestStatus, viewerID string) bool {
	return viewerID == t.SenderID && interestStatus == models.InterestStatusAccepted
}

// Resolve, konuşma detayını görüntüleyen kullanıcının bakış açısından döner.
// Üye olmayan kullanıcı için ErrForbidden.
func (s *threadService) Resolve(ctx context.Context, userID, threadID string) (*models.ThreadView, error) {
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

	other, err := s.userRepo.GetByID(ctx, thread.OtherParticipant(userID))
	if err != nil {
		return nil, err
	}
	other.PasswordHash = ""

	view := &models.ThreadView{
		Thread:         *thread,
		OtherUser:      other,
		InterestStatus: interest.Status,
		Locked:         composerLocked(thread, interest.Status, userID),
	}

	// İlan silinmiş olabilir — view yine döner, listing nil kalır.
	if thread.ListingID != nil {
		listing, err := s.listingRepo.GetByID(ctx, *thread.ListingID)
		if err == nil {
			view.Listing = listing
		}
	}

	return view, nil
}

// List, kullanıcının konuşma listesini okunmamış sayılarıyla döner.
func (s *threadService) List(ctx context.Context, userID string) ([]models.ThreadListItem, error) {
	items, err := s.threadRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	counts, err := s.receiptRepo.UnseenCounts(ctx, userID)
	if err != nil {
		return nil, err
	}

	byThread := make(map[string]int, len(counts))
	for _, c := range counts {
		byThread[c.ThreadID] = c.UnseenCount
	}

	for i := range items {
		items[i].Locked = composerLocked(&items[i].Thread, items[i].InterestStatus, userID)
		items[i].UnseenCount = byThread[items[i].ID]
	}

	return items, nil
}

// IsParticipant, üyelik kontrolü. WS hub'ın subscribe callback'i buradan
// beslenir; sonuç kısa süreli cache'lenir.
func (s *threadService) IsParticipant(ctx context.Context, userID, threadID string) bool {
	key := threadID + ":" + userID
	if ok, found := s.membershipCache.Get(key); found {
		return ok
	}

	thread, err := s.threadRepo.GetByID(ctx, threadID)
	if err != nil {
		return false
	}

	ok := thread.HasParticipant(userID)
	s.membershipCache.Set(key, ok)
	return ok
}
