package journal

import (
	"errors"
	"time"
)

var ErrEntryNotFound = errors.New("journal entry not found")

// Entry is a free-form training journal note, kept separate from the
// structured activity log.
type Entry struct {
	ID        int       `json:"id"`
	UserID    int       `json:"userId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
