package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/denizyurt/takas/models"
	"github.com/denizyurt/takas/pkg"
)

func reactionTestAPI() *fakeAPI {
	api := &fakeAPI{view: testView(false)}
	api.loadPageFn = func(before time.Time, limit int) (*models.MessagePage, error) {
		return &models.MessagePage{Messages: []models.Message{
			serverMsg("m1", time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC), "merhaba"),
		}}, nil
	}
	return api
}

func TestReactionAggregationTwoUsers(t *testing.T) {
	env := newTestSession(t, reactionTestAPI())

	// İki katılımcı aynı mesaja farklı emoji bırakır; feed tam özeti yollar.
	env.feed.emit(Event{Kind: EventReactionChanged, Reaction: &ReactionChange{
		ThreadID:  "thread-1",
		MessageID: "m1",
		Groups: []models.ReactionGroup{
			{Emoji: "👍", Count: 1, UserIDs: []string{"user-a"}},
			{Emoji: "❤️", Count: 1, UserIDs: []string{"user-b"}},
		},
	}})

	item, ok := env.session.store.Get("m1")
	require.True(t, ok)
	require.Len(t, item.Reactions, 2)
	require.Equal(t, 1, item.Reactions[0].Count)
	require.Equal(t, 1, item.Reactions[1].Count)

	// Her kullanıcının kendi seti yalnızca kendi emoji'sini içerir.
	require.Equal(t, []string{"👍"}, env.session.OwnReactions("m1"))
}

func TestToggleReactionOptimistic(t *testing.T) {
	api := reactionTestAPI()
	api.toggleFn = func(messageID, emoji string) ([]models.ReactionGroup, error) {
		return []models.ReactionGroup{{Emoji: emoji, Count: 1, UserIDs: []string{"user-a"}}}, nil
	}
	env := newTestSession(t, api)

	require.NoError(t, env.session.ToggleReaction(context.Background(), "m1", "👍"))
	require.Equal(t, []string{"👍"}, env.session.OwnReactions("m1"))

	// İkinci toggle kaldırır; sıfır sayaçlı grup görünür sette kalmaz.
	api.toggleFn = func(string, string) ([]models.ReactionGroup, error) {
		return nil, nil
	}
	require.NoError(t, env.session.ToggleReaction(context.Background(), "m1", "👍"))
	item, _ := env.session.store.Get("m1")
	require.Empty(t, item.Reactions)
}

func TestToggleReactionNoRollbackOnFailure(t *testing.T) {
	api := reactionTestAPI()
	api.toggleFn = func(string, string) ([]models.ReactionGroup, error) {
		return nil, fmt.Errorf("%w: network down", pkg.ErrInternal)
	}
	env := newTestSession(t, api)

	err := env.session.ToggleReaction(context.Background(), "m1", "👍")
	require.Error(t, err)

	// Geri alma yok: optimistic durum kalır, bir sonraki reaction_update
	// düzeltene kadar (eventual consistency).
	require.Equal(t, []string{"👍"}, env.session.OwnReactions("m1"))

	env.feed.emit(Event{Kind: EventReactionChanged, Reaction: &ReactionChange{
		ThreadID:  "thread-1",
		MessageID: "m1",
		Groups:    nil,
	}})
	require.Empty(t, env.session.OwnReactions("m1"))
}

func TestToggleReactionOnTombstoneRejected(t *testing.T) {
	api := reactionTestAPI()
	deleted := time.Date(2026, 8, 1, 11, 30, 0, 0, time.UTC)
	api.loadPageFn = func(before time.Time, limit int) (*models.MessagePage, error) {
		msg := serverMsg("m1", time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC), "silinmiş")
		msg.DeletedAt = &deleted
		msg.Body = nil
		return &models.MessagePage{Messages: []models.Message{msg}}, nil
	}
	env := newTestSession(t, api)

	err := env.session.ToggleReaction(context.Background(), "m1", "👍")
	require.ErrorIs(t, err, pkg.ErrBadRequest)
}

func TestToggleOwnHelper(t *testing.T) {
	groups := []models.ReactionGroup{
		{Emoji: "👍", Count: 2, UserIDs: []string{"user-b", "user-c"}},
	}

	// Ekleme: mevcut gruba katılır.
	out := toggleOwn(groups, "👍", "user-a")
	require.Len(t, out, 1)
	require.Equal(t, 3, out[0].Count)

	// Çıkarma: tek kişilik grup tamamen düşer.
	out = toggleOwn([]models.ReactionGroup{
		{Emoji: "❤️", Count: 1, UserIDs: []string{"user-a"}},
	}, "❤️", "user-a")
	require.Empty(t, out)

	// Yeni emoji: yeni grup açılır.
	out = toggleOwn(groups, "😀", "user-a")
	require.Len(t, out, 2)
	require.Equal(t, "😀", out[1].Emoji)
	require.Equal(t, 1, out[1].Count)
}
