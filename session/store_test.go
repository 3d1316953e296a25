package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/denizyurt/takas/models"
)

func serverMsg(id string, createdAt time.Time, body string) models.Message {
	sender := "user-a"
	b := body
	return models.Message{
		ID:        id,
		ThreadID:  "thread-1",
		SenderID:  &sender,
		Body:      &b,
		CreatedAt: createdAt,
	}
}

func TestStoreOrderingInvariant(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore()

	// Karışık sırada ekle — snapshot her zaman artan kronolojik olmalı.
	s.Merge(serverMsg("m3", base.Add(3*time.Second), "üç"))
	s.Merge(serverMsg("m1", base.Add(1*time.Second), "bir"))
	s.Merge(serverMsg("m2", base.Add(2*time.Second), "iki"))

	items := s.Snapshot()
	require.Len(t, items, 3)
	for i := 1; i < len(items); i++ {
		require.False(t, items[i].CreatedAt.Before(items[i-1].CreatedAt),
			"messages[%d] is older than messages[%d]", i, i-1)
	}
	require.Equal(t, "m1", items[0].ID)
	require.Equal(t, "m3", items[2].ID)
}

func TestStoreMergeIdempotent(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore()

	msg := serverMsg("m1", base, "merhaba")
	require.True(t, s.Merge(msg))
	require.False(t, s.Merge(msg), "second merge of the same id must be a no-op")

	items := s.Snapshot()
	require.Len(t, items, 1)
	require.Equal(t, "merhaba", *items[0].Body)
}

func TestStoreCorrelationCollapse(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore()

	key := "ck-123"
	sender := "user-a"
	body := "selam"
	s.Insert(Item{
		Message: models.Message{
			ID:        LocalIDPrefix + "abc",
			ThreadID:  "thread-1",
			SenderID:  &sender,
			Body:      &body,
			CreatedAt: base,
			ClientKey: &key,
		},
		Pending: true,
	})

	confirmed := serverMsg("srv-1", base.Add(50*time.Millisecond), "selam")
	confirmed.ClientKey = &key
	s.Merge(confirmed)

	// Geçici entry ve sunucu kopyası tek entry'ye çökmeli.
	items := s.Snapshot()
	require.Len(t, items, 1)
	require.Equal(t, "srv-1", items[0].ID)
	require.False(t, items[0].Pending)

	// Direkt yanıt echo'dan SONRA gelirse no-op.
	require.False(t, s.Replace(key, confirmed))
	require.Len(t, s.Snapshot(), 1)
}

func TestStorePaginationNoDuplicates(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore()

	// Yeni sayfa önce gelir (m4..m6), sonra eski sayfa (m1..m4 — m4 çakışık).
	for i := 4; i <= 6; i++ {
		s.Merge(serverMsg(msgID(i), base.Add(time.Duration(i)*time.Second), "x"))
	}
	for i := 1; i <= 4; i++ {
		s.Merge(serverMsg(msgID(i), base.Add(time.Duration(i)*time.Second), "x"))
	}

	items := s.Snapshot()
	require.Len(t, items, 6)
	seen := make(map[string]bool)
	for i, it := range items {
		require.False(t, seen[it.ID], "duplicate id %s", it.ID)
		seen[it.ID] = true
		if i > 0 {
			require.False(t, it.CreatedAt.Before(items[i-1].CreatedAt))
		}
	}
}

func msgID(i int) string {
	return "m" + string(rune('0'+i))
}

func TestStorePatchPreservesLocalFields(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore()

	s.Merge(serverMsg("m1", base, "orijinal"))
	s.SetReactions("m1", []models.ReactionGroup{{Emoji: "👍", Count: 1, UserIDs: []string{"user-b"}}})

	// Edit payload'ı reaksiyon taşımaz — mevcut özet korunmalı.
	edited := serverMsg("m1", base, "düzenlendi")
	now := base.Add(time.Minute)
	edited.EditedAt = &now
	require.True(t, s.Patch("m1", edited))

	item, ok := s.Get("m1")
	require.True(t, ok)
	require.Equal(t, "düzenlendi", *item.Body)
	require.NotNil(t, item.EditedAt)
	require.Len(t, item.Reactions, 1)
}

func TestStoreMarkFailedAndRemove(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore()

	key := "ck-fail"
	sender := "user-a"
	body := "gidemedi"
	s.Insert(Item{
		Message: models.Message{
			ID:        LocalIDPrefix + "x",
			SenderID:  &sender,
			Body:      &body,
			CreatedAt: base,
			ClientKey: &key,
		},
		Pending: true,
	})

	require.True(t, s.MarkFailed(key))
	item, ok := s.Get(LocalIDPrefix + "x")
	require.True(t, ok)
	require.True(t, item.Failed)
	require.False(t, item.Pending)
	require.Equal(t, "gidemedi", *item.Body, "failed content must stay visible")

	require.True(t, s.Remove(key))
	require.Equal(t, 0, s.Len())
}
