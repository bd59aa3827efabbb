package models

import "time"

// ChannelPost records one announcement made to the shared channel. Append-only.
// Either message id is nil when that part failed to send.
type ChannelPost struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PostedAt       time.Time `gorm:"not null;index" json:"posted_at"`
	Tier           int64     `gorm:"not null;index" json:"tier"`
	ImageMessageID *int      `json:"image_message_id,omitempty"`
	FileMessageID  *int      `json:"file_message_id,omitempty"`
	CommunityCount int64     `gorm:"not null" json:"community_count"`
	Forced         bool      `gorm:"not null;default:false" json:"forced"`
}
