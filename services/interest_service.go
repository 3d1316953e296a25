package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/denizyurt/takas/database"
	"github.com/denizyurt/takas/models"
	"github.com/denizyurt/takas/pkg"
	"github.com/denizyurt/takas/repository"
	"github.com/denizyurt/takas/ws"
)

// InterestService, takas isteği işlemleri için interface.
//
// Akış: alıcı istek gönderir (pending) → ilan sahibi kabul eder (accepted,
// konuşma açılır ama alıcının composer'ı kilitli) → alıcı eşyayı teslim
// alınca onaylar (confirmed, kilit açılır).
type InterestService interface {
	Create(ctx context.Context, senderID, listingID string) (*models.Interest, error)
	ListIncoming(ctx context.Context, ownerID string) ([]models.Interest, error)
	ListSent(ctx context.Context, senderID string) ([]models.Interest, error)
	Accept(ctx context.Context, userID, interestID string) (*models.Thread, error)
	ConfirmPickup(ctx context.Context, userID, interestID string) (*models.Interest, error)
}

type interestService struct {
	db           *sql.DB
	interestRepo repository.InterestRepository
	listingRepo  repository.ListingRepository
	threadRepo   repository.ThreadRepository
	hub          ws.EventPublisher
}

// NewInterestService, constructor.
//
// db ayrıca alınır: ConfirmPickup, status geçişi ile sistem mesajını tek
// transaction'da yazmak için tx-scoped repo'lar kurar.
func NewInterestService(
	db *sql.DB,
	interestRepo repository.InterestRepository,
	listingRepo repository.ListingRepository,
	threadRepo repository.ThreadRepository,
	hub ws.EventPublisher,
) InterestService {
	return &interestService{
		db:           db,
		interestRepo: interestRepo,
		listingRepo:  listingRepo,
		threadRepo:   threadRepo,
		hub:          hub,
	}
}

// Create, bir ilana takas isteği gönderir.
func (s *interestService) Create(ctx context.Context, senderID, listingID string) (*models.Interest, error) {
	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}

	if listing.OwnerID == senderID {
		return nil, fmt.Errorf("%w: cannot send an interest to your own listing", pkg.ErrBadRequest)
	}

	interest := &models.Interest{
		ListingID: listingID,
		SenderID:  senderID,
	}

	if err := s.interestRepo.Create(ctx, interest); err != nil {
		return nil, err // aynı ilana ikinci istek → ErrAlreadyExists
	}
	return interest, nil
}

// ListIncoming, ilan sahibine gelen istekleri döner.
func (s *interestService) ListIncoming(ctx context.Context, ownerID string) ([]models.Interest, error) {
	return s.interestRepo.ListForOwner(ctx, ownerID)
}

// ListSent, kullanıcının gönderdiği istekleri döner.
func (s *interestService) ListSent(ctx context.Context, senderID string) ([]models.Interest, error) {
	return s.interestRepo.ListBySender(ctx, senderID)
}

// Accept, isteği kabul eder ve konuşmayı açar. Sadece ilan sahibi kabul
// edebilir; pending dışındaki bir istek kabul edilemez (conflict).
//
// Status geçişi ile thread oluşturma tek transaction'da yapılır —
// "accepted ama konuşması yok" ara durumu kalıcılaşamaz.
func (s *interestService) Accept(ctx context.Context, userID, interestID string) (*models.Thread, error) {
	interest, err := s.interestRepo.GetByID(ctx, interestID)
	if err != nil {
		return nil, err
	}

	listing, err := s.listingRepo.GetByID(ctx, interest.ListingID)
	if err != nil {
		return nil, err
	}

	if listing.OwnerID != userID {
		return nil, fmt.Errorf("%w: only the listing owner can accept an interest", pkg.ErrForbidden)
	}

	var thread *models.Thread
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		txInterests := repository.NewSQLiteInterestRepo(tx)
		txThreads := repository.NewSQLiteThreadRepo(tx)

		if err := txInterests.UpdateStatus(ctx, interestID,
			models.InterestStatusPending, models.InterestStatusAccepted, nil); err != nil {
			return err
		}

		thread = &models.Thread{
			ListingID:  &interest.ListingID,
			InterestID: interest.ID,
			OwnerID:    listing.OwnerID,
			SenderID:   interest.SenderID,
		}
		return txThreads.Create(ctx, thread)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[interest] accepted: interest=%s thread=%s", interestID, thread.ID)
	return thread, nil
}

// ConfirmPickup, teslim onayı verir ve alıcının composer kilidini açar.
//
// Sadece isteği gönderen (alıcı) onaylayabilir. Exactly-once: koşullu
// UPDATE yalnızca accepted → confirmed geçişine izin verir; ikinci onay
// denemesi ErrConflict alır, ikinci sistem mesajı yazılamaz.
//
// Status geçişi + sistem mesajı tek transaction'dadır: onay verilmiş ama
// sistem mesajı yazılmamış (veya tersi) bir durum oluşamaz.
func (s *interestService) ConfirmPickup(ctx context.Context, userID, interestID string) (*models.Interest, error) {
	interest, err := s.interestRepo.GetByID(ctx, interestID)
	if err != nil {
		return nil, err
	}

	if interest.SenderID != userID {
		return nil, fmt.Errorf("%w: only the interest sender can confirm pickup", pkg.ErrForbidden)
	}

	thread, err := s.threadRepo.GetByInterestID(ctx, interestID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var systemMsg *models.Message
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		txInterests := repository.NewSQLiteInterestRepo(tx)
		txMessages := repository.NewSQLiteMessageRepo(tx)
		txThreads := repository.NewSQLiteThreadRepo(tx)

		if err := txInterests.UpdateStatus(ctx, interestID,
			models.InterestStatusAccepted, models.InterestStatusConfirmed, &now); err != nil {
			return err
		}

		// Sistem mesajı: sender_id NULL, client_key NULL.
		body := "Teslim onaylandı. Artık serbestçe mesajlaşabilirsiniz."
		systemMsg = &models.Message{
			ThreadID: thread.ID,
			Body:     &body,
		}
		if err := txMessages.Create(ctx, systemMsg); err != nil {
			return err
		}

		return txThreads.TouchLastMessage(ctx, thread.ID, systemMsg.CreatedAt)
	})
	if err != nil {
		return nil, err
	}

	interest.Status = models.InterestStatusConfirmed
	interest.ConfirmedAt = &now

	// Sistem mesajı feed'den akar — kilidi açılan taraf da, karşı taraf da
	// message_insert olarak görür.
	s.hub.BroadcastToThread(thread.ID, ws.Event{Op: ws.OpMessageInsert, Data: systemMsg})

	log.Printf("[interest] pickup confirmed: interest=%s thread=%s", interestID, thread.ID)
	return interest, nil
}
