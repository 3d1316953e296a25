package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/denizyurt/takas/models"
)

// otherMsg, karşı tarafın (user-b) mesajı.
func otherMsg(id string, createdAt time.Time) models.Message {
	sender := "user-b"
	body := "mesaj"
	return models.Message{
		ID:        id,
		ThreadID:  "thread-1",
		SenderID:  &sender,
		Body:      &body,
		CreatedAt: createdAt,
	}
}

func TestUnseenCount(t *testing.T) {
	// Watermark T=100: 90'daki mesaj görülmüş, 110'daki görülmemiş sayılır.
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	t90 := base.Add(90 * time.Second)
	t110 := base.Add(110 * time.Second)
	watermark := base.Add(100 * time.Second)

	api := &fakeAPI{view: testView(false)}
	api.loadPageFn = func(before time.Time, limit int) (*models.MessagePage, error) {
		return &models.MessagePage{Messages: []models.Message{
			otherMsg("m-old", t90),
			otherMsg("m-new", t110),
		}}, nil
	}
	env := newTestSession(t, api)

	env.feed.emit(Event{Kind: EventReceiptChanged, Receipt: &models.Receipt{
		ThreadID:   "thread-1",
		UserID:     "user-a",
		LastSeenAt: watermark,
	}})

	require.Equal(t, 1, env.session.UnseenCount())
}

func TestUnseenCountSkipsOwnAndDeleted(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	deleted := base.Add(time.Hour)

	tombstone := otherMsg("m-del", base.Add(2*time.Second))
	tombstone.DeletedAt = &deleted
	tombstone.Body = nil

	api := &fakeAPI{view: testView(false)}
	api.loadPageFn = func(before time.Time, limit int) (*models.MessagePage, error) {
		return &models.MessagePage{Messages: []models.Message{
			serverMsg("m-mine", base.Add(1*time.Second), "benim"), // user-a
			tombstone,
			otherMsg("m-other", base.Add(3*time.Second)),
		}}, nil
	}
	env := newTestSession(t, api)

	// Watermark yok: karşı tarafın tombstone olmayan tek mesajı sayılır.
	require.Equal(t, 1, env.session.UnseenCount())
}

func TestUnseenCountSkipsSystemMessages(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	watermark := base.Add(100 * time.Second)

	sysBody := "teslim onaylandı"
	sys := models.Message{
		ID:        "m-sys",
		ThreadID:  "thread-1",
		Body:      &sysBody,
		CreatedAt: base.Add(110 * time.Second),
	}

	api := &fakeAPI{view: testView(false)}
	api.loadPageFn = func(before time.Time, limit int) (*models.MessagePage, error) {
		return &models.MessagePage{Messages: []models.Message{sys}}, nil
	}
	env := newTestSession(t, api)

	env.feed.emit(Event{Kind: EventReceiptChanged, Receipt: &models.Receipt{
		ThreadID:   "thread-1",
		UserID:     "user-a",
		LastSeenAt: watermark,
	}})

	// Sistem mesajı watermark'tan yeni olsa da rozete girmez.
	require.Equal(t, 0, env.session.UnseenCount())
}

func TestSeenByOther(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	api := &fakeAPI{view: testView(false)}
	api.loadPageFn = func(before time.Time, limit int) (*models.MessagePage, error) {
		return &models.MessagePage{Messages: []models.Message{
			serverMsg("m-mine", base.Add(10*time.Second), "gördün mü"),
		}}, nil
	}
	env := newTestSession(t, api)

	require.False(t, env.session.SeenByOther(), "no watermark from the other side yet")

	// Karşı tarafın watermark'ı mesajdan ÖNCE → henüz görmedi.
	env.feed.emit(Event{Kind: EventReceiptChanged, Receipt: &models.Receipt{
		ThreadID:   "thread-1",
		UserID:     "user-b",
		LastSeenAt: base.Add(5 * time.Second),
	}})
	require.False(t, env.session.SeenByOther())

	// Watermark mesajın created_at'ine eşit veya sonra → gördü.
	env.feed.emit(Event{Kind: EventReceiptChanged, Receipt: &models.Receipt{
		ThreadID:   "thread-1",
		UserID:     "user-b",
		LastSeenAt: base.Add(10 * time.Second),
	}})
	require.True(t, env.session.SeenByOther())
}

func TestWatermarkMonotonic(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	env := newTestSession(t, &fakeAPI{view: testView(false)})

	env.feed.emit(Event{Kind: EventReceiptChanged, Receipt: &models.Receipt{
		ThreadID: "thread-1", UserID: "user-b", LastSeenAt: base.Add(time.Hour),
	}})
	// Geriye atılan işaret yok sayılır.
	env.feed.emit(Event{Kind: EventReceiptChanged, Receipt: &models.Receipt{
		ThreadID: "thread-1", UserID: "user-b", LastSeenAt: base,
	}})

	got, ok := env.session.Watermark("user-b")
	require.True(t, ok)
	require.Equal(t, base.Add(time.Hour), got)
}

func TestMarkSeenLockedIsSilentNoop(t *testing.T) {
	api := &fakeAPI{view: testView(true)}
	called := false
	api.markSeenFn = func(time.Time) (bool, error) {
		called = true
		return true, nil
	}
	env := newTestSession(t, api)

	require.NoError(t, env.session.MarkSeen(context.Background()))
	require.False(t, called, "locked viewer must not reach the server")
	_, ok := env.session.Watermark("user-a")
	require.False(t, ok)
}

func TestMarkSeenAdvancesOwnWatermark(t *testing.T) {
	env := newTestSession(t, &fakeAPI{view: testView(false)})

	require.NoError(t, env.session.MarkSeen(context.Background()))

	got, ok := env.session.Watermark("user-a")
	require.True(t, ok)
	require.Equal(t, env.clock.Now(), got)
}
