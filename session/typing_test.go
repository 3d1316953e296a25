package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTypingDebounce(t *testing.T) {
	env := newTestSession(t, &fakeAPI{view: testView(false)})

	// Bir tuş vuruşu serisi: kaç vuruş olursa olsun tek typing:true.
	env.session.NotifyTyping()
	env.clock.Advance(100 * time.Millisecond)
	env.session.NotifyTyping()
	env.clock.Advance(100 * time.Millisecond)
	env.session.NotifyTyping()

	require.Equal(t, []bool{true}, env.feed.handle.typingLog())

	// Son vuruştan 900ms sonra typing:false gider.
	env.clock.Advance(DefaultTypingIdle)
	require.Equal(t, []bool{true, false}, env.feed.handle.typingLog())

	// Yeni seri yeni typing:true başlatır.
	env.session.NotifyTyping()
	require.Equal(t, []bool{true, false, true}, env.feed.handle.typingLog())
}

func TestTypingSuppressedWhileLocked(t *testing.T) {
	env := newTestSession(t, &fakeAPI{view: testView(true)})

	env.session.NotifyTyping()
	require.Empty(t, env.feed.handle.typingLog())
}

func TestTypingClearedOnClose(t *testing.T) {
	env := newTestSession(t, &fakeAPI{view: testView(false)})

	env.session.NotifyTyping()
	require.NoError(t, env.session.Close())

	// Kapanışta aktif typing geri çekilir ve abonelik kapanır.
	require.Equal(t, []bool{true, false}, env.feed.handle.typingLog())
	require.True(t, env.feed.handle.closed)

	// Kapalı session'da tuş vuruşu yayın üretmez.
	env.session.NotifyTyping()
	require.Equal(t, []bool{true, false}, env.feed.handle.typingLog())
}

func TestOthersTypingFromFeed(t *testing.T) {
	env := newTestSession(t, &fakeAPI{view: testView(false)})

	require.False(t, env.session.OthersTyping())

	env.feed.emit(Event{Kind: EventTyping, Typing: &TypingChange{
		ThreadID: "thread-1", UserID: "user-b", Typing: true,
	}})
	require.True(t, env.session.OthersTyping())

	// Kendi typing relay'imiz gösterge yakmaz.
	env.feed.emit(Event{Kind: EventTyping, Typing: &TypingChange{
		ThreadID: "thread-1", UserID: "user-a", Typing: true,
	}})

	env.feed.emit(Event{Kind: EventTyping, Typing: &TypingChange{
		ThreadID: "thread-1", UserID: "user-b", Typing: false,
	}})
	require.False(t, env.session.OthersTyping())
}
