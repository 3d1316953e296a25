package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/denizyurt/takas/models"
	"github.com/denizyurt/takas/pkg"
)

// ─── Test fake'leri ───

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock    *fakeClock
	deadline time.Time
	fn       func()
	stopped  bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, deadline: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

// Advance, saati ilerletir ve süresi dolan timer'ları tetikler.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.deadline.After(c.now) {
			t.stopped = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func (t *fakeTimer) Reset(d time.Duration) bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped
	t.stopped = false
	t.deadline = t.clock.now.Add(d)
	return was
}

type fakeHandle struct {
	mu      sync.Mutex
	typings []bool
	closed  bool
}

func (h *fakeHandle) Typing(typing bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.typings = append(h.typings, typing)
	return nil
}

func (h *fakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

func (h *fakeHandle) typingLog() []bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]bool, len(h.typings))
	copy(out, h.typings)
	return out
}

type fakeFeed struct {
	mu      sync.Mutex
	handler func(Event)
	handle  *fakeHandle
}

func (f *fakeFeed) Subscribe(threadID string, handler func(Event)) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
	f.handle = &fakeHandle{}
	return f.handle, nil
}

// emit, sunucudan event gelmiş gibi handler'ı çağırır.
func (f *fakeFeed) emit(ev Event) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

// fakeAPI, her operasyonu override edilebilir fonksiyonlarla taklit eder.
// nil bırakılan operasyonlar zararsız varsayılanlar döner.
type fakeAPI struct {
	mu   sync.Mutex
	view models.ThreadView
	sent []*models.CreateMessageRequest

	loadPageFn func(before time.Time, limit int) (*models.MessagePage, error)
	sendFn     func(req *models.CreateMessageRequest) (*models.Message, error)
	editFn     func(messageID string, req *models.UpdateMessageRequest) (*models.Message, error)
	deleteFn   func(messageID string) (*models.Message, error)
	toggleFn   func(messageID, emoji string) ([]models.ReactionGroup, error)
	markSeenFn func(at time.Time) (bool, error)
	confirmFn  func(interestID string) error
}

func (a *fakeAPI) ResolveThread(_ context.Context, _ string) (*models.ThreadView, error) {
	view := a.view
	return &view, nil
}

func (a *fakeAPI) LoadPage(_ context.Context, _ string, before time.Time, limit int) (*models.MessagePage, error) {
	if a.loadPageFn != nil {
		return a.loadPageFn(before, limit)
	}
	return &models.MessagePage{}, nil
}

func (a *fakeAPI) SendMessage(_ context.Context, _ string, req *models.CreateMessageRequest) (*models.Message, error) {
	a.mu.Lock()
	a.sent = append(a.sent, req)
	a.mu.Unlock()
	if a.sendFn != nil {
		return a.sendFn(req)
	}
	return confirmMessage(req, "srv-1", time.Date(2026, 8, 1, 12, 0, 1, 0, time.UTC)), nil
}

func (a *fakeAPI) EditMessage(_ context.Context, messageID string, req *models.UpdateMessageRequest) (*models.Message, error) {
	if a.editFn != nil {
		return a.editFn(messageID, req)
	}
	return nil, fmt.Errorf("%w: edit not configured", pkg.ErrInternal)
}

func (a *fakeAPI) DeleteMessage(_ context.Context, messageID string) (*models.Message, error) {
	if a.deleteFn != nil {
		return a.deleteFn(messageID)
	}
	return nil, fmt.Errorf("%w: delete not configured", pkg.ErrInternal)
}

func (a *fakeAPI) ToggleReaction(_ context.Context, messageID, emoji string) ([]models.ReactionGroup, error) {
	if a.toggleFn != nil {
		return a.toggleFn(messageID, emoji)
	}
	return nil, fmt.Errorf("%w: toggle not configured", pkg.ErrInternal)
}

func (a *fakeAPI) MarkSeen(_ context.Context, _ string, at time.Time) (bool, error) {
	if a.markSeenFn != nil {
		return a.markSeenFn(at)
	}
	return true, nil
}

func (a *fakeAPI) Receipts(_ context.Context, _ string) ([]models.Receipt, error) {
	return nil, nil
}

func (a *fakeAPI) ConfirmPickup(_ context.Context, interestID string) error {
	if a.confirmFn != nil {
		return a.confirmFn(interestID)
	}
	return nil
}

func (a *fakeAPI) sentRequests() []*models.CreateMessageRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*models.CreateMessageRequest, len(a.sent))
	copy(out, a.sent)
	return out
}

// confirmMessage, gönderim isteğinin sunucu onaylı kopyasını üretir.
func confirmMessage(req *models.CreateMessageRequest, id string, at time.Time) *models.Message {
	sender := "user-a"
	key := req.ClientKey
	msg := &models.Message{
		ID:        id,
		ThreadID:  "thread-1",
		SenderID:  &sender,
		CreatedAt: at,
		ReplyToID: req.ReplyToID,
		ClientKey: &key,
	}
	if req.Body != "" {
		b := req.Body
		msg.Body = &b
	}
	return msg
}

// testView, user-a'nın sender (istek gönderen) olduğu bir konuşma.
func testView(locked bool) models.ThreadView {
	status := models.InterestStatusConfirmed
	if locked {
		status = models.InterestStatusAccepted
	}
	return models.ThreadView{
		Thread: models.Thread{
			ID:         "thread-1",
			InterestID: "interest-1",
			OwnerID:    "user-b",
			SenderID:   "user-a",
		},
		InterestStatus: status,
		Locked:         locked,
	}
}

type testEnv struct {
	session *Session
	api     *fakeAPI
	feed    *fakeFeed
	clock   *fakeClock
}

func newTestSession(t *testing.T, api *fakeAPI) *testEnv {
	t.Helper()
	feed := &fakeFeed{}
	clock := newFakeClock()
	sess, err := New(context.Background(), Deps{
		Identity: StaticIdentity("user-a"),
		API:      api,
		Feed:     feed,
		Clock:    clock,
	}, "thread-1")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })
	return &testEnv{session: sess, api: api, feed: feed, clock: clock}
}

// ─── Optimistic gönderim ───

func TestSendOptimisticSuccess(t *testing.T) {
	env := newTestSession(t, &fakeAPI{view: testView(false)})

	err := env.session.Send(context.Background(), "hello", nil, nil)
	require.NoError(t, err)

	items := env.session.Messages()
	require.Len(t, items, 1)
	require.Equal(t, "srv-1", items[0].ID, "provisional entry must be superseded by the server copy")
	require.Equal(t, "hello", *items[0].Body)
	require.False(t, items[0].Pending)
	require.False(t, items[0].Failed)
}

func TestSendEchoBeforeResponse(t *testing.T) {
	api := &fakeAPI{view: testView(false)}
	feedRef := &fakeFeed{}

	// Echo, HTTP yanıtından ÖNCE feed'den düşer — direkt yanıt no-op olmalı.
	api.sendFn = func(req *models.CreateMessageRequest) (*models.Message, error) {
		msg := confirmMessage(req, "srv-echo", time.Date(2026, 8, 1, 12, 0, 1, 0, time.UTC))
		feedRef.emit(Event{Kind: EventMessageInserted, Message: msg})
		return msg, nil
	}

	clock := newFakeClock()
	sess, err := New(context.Background(), Deps{
		Identity: StaticIdentity("user-a"),
		API:      api,
		Feed:     feedRef,
		Clock:    clock,
	}, "thread-1")
	require.NoError(t, err)
	defer sess.Close()

	require.NoError(t, sess.Send(context.Background(), "hello", nil, nil))

	items := sess.Messages()
	require.Len(t, items, 1, "echo + direct response must collapse to one entry")
	require.Equal(t, "srv-echo", items[0].ID)
}

func TestSendFailureThenRetry(t *testing.T) {
	api := &fakeAPI{view: testView(false)}
	failing := true
	api.sendFn = func(req *models.CreateMessageRequest) (*models.Message, error) {
		if failing {
			return nil, fmt.Errorf("%w: connection refused", pkg.ErrInternal)
		}
		return confirmMessage(req, "srv-retry", time.Date(2026, 8, 1, 12, 0, 2, 0, time.UTC)), nil
	}
	env := newTestSession(t, api)

	err := env.session.Send(context.Background(), "hello", nil, nil)
	require.Error(t, err)

	// İçerik kaybolmaz: failed entry görünür ve retry edilebilir kalır.
	items := env.session.Messages()
	require.Len(t, items, 1)
	require.True(t, items[0].Failed)
	require.Equal(t, "hello", *items[0].Body)
	failedKey := *items[0].ClientKey

	failing = false
	require.NoError(t, env.session.Retry(context.Background(), failedKey))

	items = env.session.Messages()
	require.Len(t, items, 1, "failed entry must be removed once the retry is enqueued")
	require.Equal(t, "srv-retry", items[0].ID)
	require.Equal(t, "hello", *items[0].Body)

	// Correlation anahtarı asla yeniden kullanılmaz.
	sent := env.api.sentRequests()
	require.Len(t, sent, 2)
	require.NotEqual(t, sent[0].ClientKey, sent[1].ClientKey)
}

func TestSendRejectedWhileLocked(t *testing.T) {
	env := newTestSession(t, &fakeAPI{view: testView(true)})

	err := env.session.Send(context.Background(), "hello", nil, nil)
	require.ErrorIs(t, err, pkg.ErrForbidden)
	require.Empty(t, env.session.Messages(), "a rejected send must not touch the store")
	require.Empty(t, env.api.sentRequests())
}

// ─── Gate ───

func TestConfirmPickupUnlocks(t *testing.T) {
	api := &fakeAPI{view: testView(true)}
	calls := 0
	api.confirmFn = func(interestID string) error {
		calls++
		require.Equal(t, "interest-1", interestID)
		return nil
	}
	env := newTestSession(t, api)

	require.True(t, env.session.Locked())
	require.NoError(t, env.session.ConfirmPickup(context.Background()))
	require.False(t, env.session.Locked())
	require.Equal(t, 1, calls)

	// Sistem mesajı feed üzerinden gelir ve timeline'a eklenir.
	body := "Teslim onaylandı. Artık serbestçe mesajlaşabilirsiniz."
	env.feed.emit(Event{Kind: EventMessageInserted, Message: &models.Message{
		ID:        "srv-sys",
		ThreadID:  "thread-1",
		Body:      &body,
		CreatedAt: time.Date(2026, 8, 1, 12, 0, 5, 0, time.UTC),
	}})
	items := env.session.Messages()
	require.Len(t, items, 1)
	require.True(t, items[0].IsSystem())

	// İkinci onay conflict'tir — RPC tekrar gitmez.
	err := env.session.ConfirmPickup(context.Background())
	require.ErrorIs(t, err, pkg.ErrConflict)
	require.Equal(t, 1, calls)
}

func TestConfirmPickupFailureStaysLocked(t *testing.T) {
	api := &fakeAPI{view: testView(true)}
	api.confirmFn = func(string) error {
		return fmt.Errorf("%w: interest is not in accepted state", pkg.ErrConflict)
	}
	env := newTestSession(t, api)

	err := env.session.ConfirmPickup(context.Background())
	require.Error(t, err)
	require.True(t, env.session.Locked(), "gate must stay locked on confirmation failure")
}

// ─── Reconciler ───

func TestDispatchDiscardsOtherThreads(t *testing.T) {
	env := newTestSession(t, &fakeAPI{view: testView(false)})

	body := "yabancı"
	env.feed.emit(Event{Kind: EventMessageInserted, Message: &models.Message{
		ID:        "srv-other",
		ThreadID:  "thread-OTHER",
		Body:      &body,
		CreatedAt: time.Now().UTC(),
	}})

	require.Empty(t, env.session.Messages(), "events for other threads must be discarded")
}

func TestDispatchAfterCloseDiscarded(t *testing.T) {
	env := newTestSession(t, &fakeAPI{view: testView(false)})
	require.NoError(t, env.session.Close())
	require.True(t, env.feed.handle.closed)

	body := "geç kalan"
	env.feed.emit(Event{Kind: EventMessageInserted, Message: &models.Message{
		ID:        "srv-late",
		ThreadID:  "thread-1",
		Body:      &body,
		CreatedAt: time.Now().UTC(),
	}})
	require.Empty(t, env.session.Messages())
}

// ─── Edit / Delete ───

func TestEditOptimisticRollback(t *testing.T) {
	api := &fakeAPI{view: testView(false)}
	api.loadPageFn = func(before time.Time, limit int) (*models.MessagePage, error) {
		return &models.MessagePage{Messages: []models.Message{
			serverMsg("m1", time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC), "orijinal"),
		}}, nil
	}
	api.editFn = func(string, *models.UpdateMessageRequest) (*models.Message, error) {
		return nil, fmt.Errorf("%w: timeout", pkg.ErrInternal)
	}
	env := newTestSession(t, api)

	err := env.session.Edit(context.Background(), "m1", "değişti")
	require.Error(t, err)

	item, ok := env.session.store.Get("m1")
	require.True(t, ok)
	require.Equal(t, "orijinal", *item.Body, "failed edit must roll back to the pre-mutation state")
	require.Nil(t, item.EditedAt)
}

func TestDeleteProducesTombstone(t *testing.T) {
	created := time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC)
	api := &fakeAPI{view: testView(false)}
	api.loadPageFn = func(before time.Time, limit int) (*models.MessagePage, error) {
		return &models.MessagePage{Messages: []models.Message{
			serverMsg("m1", created, "silinecek"),
			serverMsg("m2", created.Add(time.Minute), "kalacak"),
		}}, nil
	}
	api.deleteFn = func(messageID string) (*models.Message, error) {
		sender := "user-a"
		now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
		return &models.Message{
			ID:        messageID,
			ThreadID:  "thread-1",
			SenderID:  &sender,
			CreatedAt: created,
			DeletedAt: &now,
		}, nil
	}
	env := newTestSession(t, api)

	require.NoError(t, env.session.Delete(context.Background(), "m1"))

	items := env.session.Messages()
	require.Len(t, items, 2, "tombstone keeps its row and position")
	require.Equal(t, "m1", items[0].ID)
	require.True(t, items[0].IsDeleted())
	require.Nil(t, items[0].Body)
	require.Equal(t, "kalacak", *items[1].Body)
}

func TestDeleteRejectedWhileLocked(t *testing.T) {
	api := &fakeAPI{view: testView(true)}
	api.loadPageFn = func(before time.Time, limit int) (*models.MessagePage, error) {
		return &models.MessagePage{Messages: []models.Message{
			serverMsg("m1", time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC), "kalır"),
		}}, nil
	}
	env := newTestSession(t, api)

	// Kilit, gönderme gibi silmeyi de kapsar — store'a dokunulmaz.
	err := env.session.Delete(context.Background(), "m1")
	require.ErrorIs(t, err, pkg.ErrForbidden)

	item, ok := env.session.store.Get("m1")
	require.True(t, ok)
	require.False(t, item.IsDeleted())
}

// ─── Geçmiş yükleme ───

func TestLoadOlderPagination(t *testing.T) {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	newer := []models.Message{
		serverMsg("m4", base.Add(4*time.Minute), "dört"),
		serverMsg("m5", base.Add(5*time.Minute), "beş"),
	}
	older := []models.Message{
		serverMsg("m1", base.Add(1*time.Minute), "bir"),
		serverMsg("m2", base.Add(2*time.Minute), "iki"),
	}

	api := &fakeAPI{view: testView(false)}
	api.loadPageFn = func(before time.Time, limit int) (*models.MessagePage, error) {
		if before.IsZero() {
			return &models.MessagePage{Messages: newer, HasMore: true}, nil
		}
		// İkinci sayfa cursor'ı mevcut en eski mesaj olmalı.
		require.Equal(t, newer[0].CreatedAt, before)
		return &models.MessagePage{Messages: older, HasMore: false}, nil
	}
	env := newTestSession(t, api)

	require.True(t, env.session.HasMore())
	require.NoError(t, env.session.LoadOlder(context.Background()))
	require.False(t, env.session.HasMore())

	items := env.session.Messages()
	require.Len(t, items, 4)
	require.Equal(t, "m1", items[0].ID)
	require.Equal(t, "m5", items[3].ID)
}

func TestLoadOlderErrorKeepsMessages(t *testing.T) {
	api := &fakeAPI{view: testView(false)}
	failing := false
	api.loadPageFn = func(before time.Time, limit int) (*models.MessagePage, error) {
		if failing {
			return nil, fmt.Errorf("%w: network down", pkg.ErrInternal)
		}
		return &models.MessagePage{Messages: []models.Message{
			serverMsg("m1", time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC), "bir"),
		}, HasMore: true}, nil
	}
	env := newTestSession(t, api)
	require.Len(t, env.session.Messages(), 1)

	failing = true
	err := env.session.LoadOlder(context.Background())
	require.Error(t, err)
	require.Len(t, env.session.Messages(), 1, "a failed page load must not clear loaded messages")
}
