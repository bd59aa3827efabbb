package models

import "time"

// CommunityCounterID is the primary key of the only community counter row.
const CommunityCounterID = 1

// CommunityCounter is the shared recruitment tally, created lazily on first write.
type CommunityCounter struct {
	ID         uint       `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Total      int64      `gorm:"not null;default:0" json:"total"`
	LastPostAt *time.Time `json:"last_post_at,omitempty"`
	Timestamps
}
