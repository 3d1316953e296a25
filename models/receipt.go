package models

import "time"

// Receipt, bir katılımcının bir konuşmadaki okuma watermark'ı.
//
// Mesaj başına "okundu" satırı tutmak yerine tek bir zaman damgası tutulur:
// last_seen_at'ten eski her mesaj görülmüş sayılır. Watermark sadece ileri
// gider; geriye atılan işaretler yok sayılır.
type Receipt struct {
	ThreadID   string    `json:"thread_id"`
	UserID     string    `json:"user_id"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// MarkSeenRequest, "buraya kadar gördüm" isteği.
type MarkSeenRequest struct {
	LastSeenAt time.Time `json:"last_seen_at"`
}
