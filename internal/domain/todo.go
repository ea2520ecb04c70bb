package domain

import (
	"time"

	"gorm.io/gorm"
)

const (
	StatusPending = "pending"
	StatusDone    = "done"
)

// ValidStatus reports whether s is one of the two recognized todo states.
func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusDone
}

type Todo struct {
	gorm.Model
	UserID  uint   `gorm:"not null;index"`
	Title   string `gorm:"size:255;not null"`
	Note    string `gorm:"type:text"`
	Status  string `gorm:"size:10;not null;default:pending"`
	DueDate *time.Time
	// Cover is the storage path of the uploaded cover image, e.g.
	// "covers/xyz.png". The public URL is derived on read, never stored.
	Cover string
}
