package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/denizyurt/takas/models"
	"github.com/denizyurt/takas/repository"
	"github.com/denizyurt/takas/ws"
)

// fakeReceiptRepo, Upsert'e gelen watermark'ı kaydeder.
type fakeReceiptRepo struct {
	upsertedAt time.Time
}

func (f *fakeReceiptRepo) Upsert(ctx context.Context, threadID, userID string, lastSeenAt time.Time) error {
	f.upsertedAt = lastSeenAt
	return nil
}

func (f *fakeReceiptRepo) GetForThread(context.Context, string) ([]models.Receipt, error) {
	return nil, nil
}

func (f *fakeReceiptRepo) UnseenCounts(context.Context, string) ([]repository.UnseenInfo, error) {
	return nil, nil
}

type fakeThreadRepo struct {
	thread *models.Thread
}

func (f *fakeThreadRepo) Create(context.Context, *models.Thread) error { return nil }

func (f *fakeThreadRepo) GetByID(context.Context, string) (*models.Thread, error) {
	return f.thread, nil
}

func (f *fakeThreadRepo) GetByInterestID(context.Context, string) (*models.Thread, error) {
	return f.thread, nil
}

func (f *fakeThreadRepo) ListForUser(context.Context, string) ([]models.ThreadListItem, error) {
	return nil, nil
}

func (f *fakeThreadRepo) TouchLastMessage(context.Context, string, time.Time) error { return nil }

type fakeInterestRepo struct {
	interest *models.Interest
}

func (f *fakeInterestRepo) Create(context.Context, *models.Interest) error { return nil }

func (f *fakeInterestRepo) GetByID(context.Context, string) (*models.Interest, error) {
	return f.interest, nil
}

func (f *fakeInterestRepo) ListForOwner(context.Context, string) ([]models.Interest, error) {
	return nil, nil
}

func (f *fakeInterestRepo) ListBySender(context.Context, string) ([]models.Interest, error) {
	return nil, nil
}

func (f *fakeInterestRepo) UpdateStatus(context.Context, string, string, string, *time.Time) error {
	return nil
}

type fakeHub struct{}

func (fakeHub) BroadcastToThread(string, ws.Event)               {}
func (fakeHub) BroadcastToThreadExcept(string, string, ws.Event) {}
func (fakeHub) BroadcastToUser(string, ws.Event)                 {}
func (fakeHub) IsUserOnline(string) bool                         { return true }

func newReceiptTestService(receipts *fakeReceiptRepo) ReceiptService {
	thread := &models.Thread{ID: "t1", InterestID: "i1", OwnerID: "owner", SenderID: "buyer"}
	interest := &models.Interest{ID: "i1", Status: models.InterestStatusConfirmed}
	return NewReceiptService(receipts, &fakeThreadRepo{thread: thread},
		&fakeInterestRepo{interest: interest}, fakeHub{})
}

func TestMarkSeenClampsFutureWatermark(t *testing.T) {
	receipts := &fakeReceiptRepo{}
	svc := newReceiptTestService(receipts)

	// Gelecek tarihli istek şimdiye sabitlenir — client kendine
	// "görmediği mesajları gördü" kredisi yazamaz.
	future := time.Now().Add(48 * time.Hour)
	res, err := svc.MarkSeen(context.Background(), "owner", "t1",
		&models.MarkSeenRequest{LastSeenAt: future})
	require.NoError(t, err)
	require.True(t, res.Marked)
	require.False(t, res.LastSeenAt.After(time.Now()), "watermark must not land in the future")
	require.True(t, receipts.upsertedAt.Equal(res.LastSeenAt))
}

func TestMarkSeenKeepsPastWatermark(t *testing.T) {
	receipts := &fakeReceiptRepo{}
	svc := newReceiptTestService(receipts)

	past := time.Now().Add(-time.Hour).UTC()
	res, err := svc.MarkSeen(context.Background(), "owner", "t1",
		&models.MarkSeenRequest{LastSeenAt: past})
	require.NoError(t, err)
	require.True(t, res.Marked)
	require.True(t, res.LastSeenAt.Equal(past))
}
