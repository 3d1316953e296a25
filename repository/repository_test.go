package repository

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/denizyurt/takas/database"
	"github.com/denizyurt/takas/models"
	"github.com/denizyurt/takas/pkg"
)

// testDB, t.TempDir altında gerçek bir SQLite dosyası açar ve embedded
// migration'ları uygular.
func testDB(t *testing.T) *sql.DB {
	t.Helper()
	migrationsFS, err := fs.Sub(database.EmbeddedMigrations, "migrations")
	require.NoError(t, err)

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"), migrationsFS)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db.Conn
}

// fixture, mesajlaşma testlerinin ihtiyaç duyduğu zinciri kurar:
// iki kullanıcı, bir ilan, accepted bir istek ve thread.
type fixture struct {
	owner  *models.User
	sender *models.User
	thread *models.Thread
}

func newFixture(t *testing.T, db *sql.DB) *fixture {
	t.Helper()
	ctx := context.Background()
	users := NewSQLiteUserRepo(db)
	listings := NewSQLiteListingRepo(db)
	interests := NewSQLiteInterestRepo(db)
	threads := NewSQLiteThreadRepo(db)

	owner := &models.User{Username: "sahibi", PasswordHash: "x"}
	require.NoError(t, users.Create(ctx, owner))
	sender := &models.User{Username: "istekli", PasswordHash: "x"}
	require.NoError(t, users.Create(ctx, sender))

	listing := &models.Listing{OwnerID: owner.ID, Title: "Eski bisiklet"}
	require.NoError(t, listings.Create(ctx, listing))

	interest := &models.Interest{ListingID: listing.ID, SenderID: sender.ID}
	require.NoError(t, interests.Create(ctx, interest))
	require.NoError(t, interests.UpdateStatus(ctx, interest.ID,
		models.InterestStatusPending, models.InterestStatusAccepted, nil))

	thread := &models.Thread{
		ListingID:  &listing.ID,
		InterestID: interest.ID,
		OwnerID:    owner.ID,
		SenderID:   sender.ID,
	}
	require.NoError(t, threads.Create(ctx, thread))

	return &fixture{owner: owner, sender: sender, thread: thread}
}

// sendMessage, fixture thread'ine bir kullanıcı mesajı yazar.
func sendMessage(t *testing.T, db *sql.DB, f *fixture, senderID, body, clientKey string) *models.Message {
	t.Helper()
	msg := &models.Message{
		ThreadID:  f.thread.ID,
		SenderID:  &senderID,
		Body:      &body,
		ClientKey: &clientKey,
	}
	require.NoError(t, NewSQLiteMessageRepo(db).Create(context.Background(), msg))
	return msg
}

func TestUserRepoDuplicateUsername(t *testing.T) {
	db := testDB(t)
	users := NewSQLiteUserRepo(db)
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, &models.User{Username: "deniz", PasswordHash: "x"}))
	err := users.Create(ctx, &models.User{Username: "deniz", PasswordHash: "y"})
	require.ErrorIs(t, err, pkg.ErrAlreadyExists)
}

func TestInterestConditionalStatusUpdate(t *testing.T) {
	db := testDB(t)
	f := newFixture(t, db)
	interests := NewSQLiteInterestRepo(db)
	ctx := context.Background()

	interest, err := interests.GetByID(ctx, f.thread.InterestID)
	require.NoError(t, err)
	require.Equal(t, models.InterestStatusAccepted, interest.Status)

	// accepted → confirmed bir kez geçer...
	now := time.Now().UTC()
	require.NoError(t, interests.UpdateStatus(ctx, interest.ID,
		models.InterestStatusAccepted, models.InterestStatusConfirmed, &now))

	// ...ikinci deneme koşulu tutturamaz → conflict.
	err = interests.UpdateStatus(ctx, interest.ID,
		models.InterestStatusAccepted, models.InterestStatusConfirmed, &now)
	require.ErrorIs(t, err, pkg.ErrConflict)

	confirmed, err := interests.GetByID(ctx, interest.ID)
	require.NoError(t, err)
	require.Equal(t, models.InterestStatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)
}

func TestMessageDuplicateClientKey(t *testing.T) {
	db := testDB(t)
	f := newFixture(t, db)
	messages := NewSQLiteMessageRepo(db)
	ctx := context.Background()

	first := sendMessage(t, db, f, f.sender.ID, "merhaba", "ck-1")

	// Aynı client_key ile ikinci INSERT reddedilir...
	body := "merhaba"
	dup := &models.Message{
		ThreadID:  f.thread.ID,
		SenderID:  &f.sender.ID,
		Body:      &body,
		ClientKey: first.ClientKey,
	}
	require.ErrorIs(t, messages.Create(ctx, dup), pkg.ErrAlreadyExists)

	// ...ve mevcut kayıt client_key ile bulunabilir.
	existing, err := messages.GetByClientKey(ctx, "ck-1")
	require.NoError(t, err)
	require.Equal(t, first.ID, existing.ID)
}

func TestMessageListPagination(t *testing.T) {
	db := testDB(t)
	f := newFixture(t, db)
	messages := NewSQLiteMessageRepo(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		sendMessage(t, db, f, f.sender.ID, "mesaj", "ck-"+string(rune('a'+i)))
		time.Sleep(2 * time.Millisecond) // created_at'ler ayrışsın
	}

	// limit+1 istenir: 3 mesaj dönerse has_more kesindir.
	page, err := messages.List(ctx, f.thread.ID, time.Now().UTC().Add(time.Second), 3)
	require.NoError(t, err)
	require.Len(t, page, 3)

	// DESC sıra: en yeni önce.
	require.True(t, page[0].CreatedAt.After(page[1].CreatedAt) || page[0].CreatedAt.Equal(page[1].CreatedAt))

	// Cursor: en eski dönenin created_at'i — strictly-less-than, çakışma yok.
	older, err := messages.List(ctx, f.thread.ID, page[2].CreatedAt, 10)
	require.NoError(t, err)
	require.Len(t, older, 2)
	for _, m := range older {
		require.True(t, m.CreatedAt.Before(page[2].CreatedAt))
	}
}

func TestMessageSoftDelete(t *testing.T) {
	db := testDB(t)
	f := newFixture(t, db)
	messages := NewSQLiteMessageRepo(db)
	ctx := context.Background()

	msg := sendMessage(t, db, f, f.sender.ID, "silinecek", "ck-del")

	deletedAt, err := messages.SoftDelete(ctx, msg.ID)
	require.NoError(t, err)
	require.NotNil(t, deletedAt)

	// Satır durur, deleted_at doludur; ikinci silme not found'dur.
	got, err := messages.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DeletedAt)

	_, err = messages.SoftDelete(ctx, msg.ID)
	require.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestReactionToggle(t *testing.T) {
	db := testDB(t)
	f := newFixture(t, db)
	reactions := NewSQLiteReactionRepo(db)
	ctx := context.Background()

	msg := sendMessage(t, db, f, f.sender.ID, "reaksiyon dene", "ck-r")

	added, err := reactions.Toggle(ctx, msg.ID, f.owner.ID, "👍")
	require.NoError(t, err)
	require.True(t, added)

	added, err = reactions.Toggle(ctx, msg.ID, f.sender.ID, "❤️")
	require.NoError(t, err)
	require.True(t, added)

	groups, err := reactions.GroupsByMessage(ctx, msg.ID)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	for _, g := range groups {
		require.Equal(t, 1, g.Count)
		require.Len(t, g.UserIDs, 1)
	}

	// İkinci toggle kaldırır.
	added, err = reactions.Toggle(ctx, msg.ID, f.owner.ID, "👍")
	require.NoError(t, err)
	require.False(t, added)

	groups, err = reactions.GroupsByMessage(ctx, msg.ID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, "❤️", groups[0].Emoji)
}

func TestReceiptWatermarkMonotonic(t *testing.T) {
	db := testDB(t)
	f := newFixture(t, db)
	receipts := NewSQLiteReceiptRepo(db)
	ctx := context.Background()

	later := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	earlier := later.Add(-time.Hour)

	require.NoError(t, receipts.Upsert(ctx, f.thread.ID, f.owner.ID, later))
	// Geriye atılan işaret sessizce yok sayılır.
	require.NoError(t, receipts.Upsert(ctx, f.thread.ID, f.owner.ID, earlier))

	got, err := receipts.GetForThread(ctx, f.thread.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.True(t, got[0].LastSeenAt.Equal(later), "watermark must stay at the later timestamp")
}

func TestReceiptUnseenCounts(t *testing.T) {
	db := testDB(t)
	f := newFixture(t, db)
	receipts := NewSQLiteReceiptRepo(db)
	ctx := context.Background()

	// Karşı taraftan üç mesaj; owner ikincisine kadar gördü.
	m1 := sendMessage(t, db, f, f.sender.ID, "bir", "ck-1")
	time.Sleep(2 * time.Millisecond)
	m2 := sendMessage(t, db, f, f.sender.ID, "iki", "ck-2")
	time.Sleep(2 * time.Millisecond)
	sendMessage(t, db, f, f.sender.ID, "üç", "ck-3")

	require.NoError(t, receipts.Upsert(ctx, f.thread.ID, f.owner.ID, m2.CreatedAt))

	// Watermark'tan yeni bir sistem mesajı (sender_id NULL) rozete girmez.
	sysBody := "teslim onaylandı"
	require.NoError(t, NewSQLiteMessageRepo(db).Create(ctx, &models.Message{
		ThreadID: f.thread.ID,
		Body:     &sysBody,
	}))

	counts, err := receipts.UnseenCounts(ctx, f.owner.ID)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	require.Equal(t, f.thread.ID, counts[0].ThreadID)
	require.Equal(t, 1, counts[0].UnseenCount)

	// Watermark'ı olmayan taraf için her karşı mesaj okunmamış —
	// ama kendi mesajları asla sayılmaz.
	counts, err = receipts.UnseenCounts(ctx, f.sender.ID)
	require.NoError(t, err)
	require.Empty(t, counts)

	_ = m1
}

func TestThreadUniquePerListingAndSender(t *testing.T) {
	db := testDB(t)
	f := newFixture(t, db)
	threads := NewSQLiteThreadRepo(db)
	ctx := context.Background()

	dup := &models.Thread{
		ListingID:  f.thread.ListingID,
		InterestID: f.thread.InterestID,
		OwnerID:    f.thread.OwnerID,
		SenderID:   f.thread.SenderID,
	}
	require.ErrorIs(t, threads.Create(ctx, dup), pkg.ErrAlreadyExists)
}

func TestThreadListForUser(t *testing.T) {
	db := testDB(t)
	f := newFixture(t, db)
	threads := NewSQLiteThreadRepo(db)
	ctx := context.Background()

	msg := sendMessage(t, db, f, f.sender.ID, "son mesaj", "ck-last")
	require.NoError(t, threads.TouchLastMessage(ctx, f.thread.ID, msg.CreatedAt))

	items, err := threads.ListForUser(ctx, f.owner.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, f.thread.ID, items[0].ID)
	require.NotNil(t, items[0].OtherUser)
	require.Equal(t, f.sender.ID, items[0].OtherUser.ID)
	require.NotNil(t, items[0].LastMessage)
	require.Equal(t, "son mesaj", *items[0].LastMessage.Body)
}
