package models

import "time"

// Interest status akışı: pending → accepted → confirmed.
// accepted aşamasında konuşma açılır ama istek sahibi için composer kilitlidir;
// confirmed (teslim onayı) kilidi kaldırır.
const (
	InterestStatusPending   = "pending"
	InterestStatusAccepted  = "accepted"
	InterestStatusConfirmed = "confirmed"
)

// Interest, bir kullanıcının bir ilana gösterdiği takas isteğini temsil eder.
type Interest struct {
	ID          string     `json:"id"`
	ListingID   string     `json:"listing_id"`
	SenderID    string     `json:"sender_id"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ConfirmedAt *time.Time `json:"confirmed_at"`

	// JOIN ile doldurulan alanlar; ilan sahibinin gelen istek listesinde gösterilir.
	Sender  *User    `json:"sender,omitempty"`
	Listing *Listing `json:"listing,omitempty"`
}
