package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Listing, takasa çıkarılan bir eşyayı temsil eder.
type Listing struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	PhotoURL    *string   `json:"photo_url"`
	CreatedAt   time.Time `json:"created_at"`

	// Owner, JOIN ile doldurulur; liste response'larında gösterilir.
	Owner *User `json:"owner,omitempty"`
}

// CreateListingRequest, yeni ilan isteği.
type CreateListingRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	PhotoURL    string `json:"photo_url"`
}

// Validate, ilan isteğini kontrol eder.
func (r *CreateListingRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	titleLen := utf8.RuneCountInString(r.Title)
	if titleLen < 1 || titleLen > 100 {
		return fmt.Errorf("title must be between 1 and 100 characters")
	}

	r.Description = strings.TrimSpace(r.Description)
	if utf8.RuneCountInString(r.Description) > 1000 {
		return fmt.Errorf("description must be at most 1000 characters")
	}

	return nil
}
