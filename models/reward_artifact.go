package models

import "time"

// MediaKind tells how an artifact is delivered.
type MediaKind string

const (
	MediaImage MediaKind = "image" // sent as a captioned photo preview
	MediaFile  MediaKind = "file"  // sent as a captioned document download
)

// RewardArtifact is one piece of gated content unlocked at Tier.
// At most one artifact exists per (tier, kind).
type RewardArtifact struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Tier       int64     `gorm:"not null;uniqueIndex:idx_artifact_tier_kind" json:"tier"`
	Kind       MediaKind `gorm:"not null;size:16;uniqueIndex:idx_artifact_tier_kind" json:"kind"`
	ContentRef string    `gorm:"not null;type:text" json:"content_ref"` // Telegram file_id
	Name       string    `gorm:"not null" json:"name"`
	Ordinal    int       `gorm:"not null;default:0" json:"ordinal"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}
