// Package cache — generic in-memory TTL cache.
//
// Websocket katmanı her subscribe ve typing olayında "bu kullanıcı bu
// konuşmanın tarafı mı?" kontrolü yapar; her seferinde DB'ye gitmek yerine
// sonuç kısa süreliğine burada tutulur. Entry'ler TTL dolunca okunamaz olur,
// fiziksel silme periyodik cleanup ile yapılır.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache, thread-safe generic TTL cache.
//
//	c := cache.New[string, bool](30*time.Second, 5*time.Minute)
//	c.Set("thread:user", true)
//	ok, found := c.Get("thread:user")
type TTLCache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]entry[V]
	ttl     time.Duration

	stopCleanup chan struct{}
}

// New, cache'i oluşturur ve periyodik temizleme goroutine'ini başlatır.
// cleanupInterval, map'ten fiziksel silme sıklığıdır; ttl'den büyük olabilir
// çünkü Get zaten süresi dolan entry'yi döndürmez.
func New[K comparable, V any](ttl, cleanupInterval time.Duration) *TTLCache[K, V] {
	c := &TTLCache[K, V]{
		entries:     make(map[K]entry[V]),
		ttl:         ttl,
		stopCleanup: make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.evictExpired()
			case <-c.stopCleanup:
				return
			}
		}
	}()

	return c
}

// Get, değeri okur. Key yoksa veya süresi dolmuşsa (zero value, false) döner.
// Süresi dolan entry burada silinmez — Get'in RLock ile hızlı kalması için.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set, değeri TTL ile yazar.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Delete, tek bir key'i siler. Üyelik değiştiğinde (ilan silindi vb.)
// ilgili entry invalidate edilir.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// Close, temizleme goroutine'ini durdurur.
func (c *TTLCache[K, V]) Close() {
	close(c.stopCleanup)
}

func (c *TTLCache[K, V]) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}
