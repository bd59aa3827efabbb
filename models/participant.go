package models

import "time"

// Participant is one Telegram user known to the bot.
// ID is the Telegram user id; ReferredBy points at the recruiting participant.
type Participant struct {
	ID            int64  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Username      string `gorm:"index" json:"username"`
	DisplayName   string `json:"display_name"`
	ReferralToken string `gorm:"uniqueIndex;not null" json:"referral_token"` // immutable once issued
	ReferredBy    *int64 `gorm:"index" json:"referred_by,omitempty"`

	Referrals   int64 `gorm:"not null;default:0" json:"referrals"`    // credited recruits
	Credit      int64 `gorm:"not null;default:0" json:"credit"`       // cumulative reward credit
	HighestTier int64 `gorm:"not null;default:0" json:"highest_tier"` // last tier delivered

	IsMember            bool `gorm:"not null;default:false" json:"is_member"`
	ReferralCredited    bool `gorm:"not null;default:false;index" json:"referral_credited"` // one-way
	OnboardingDelivered bool `gorm:"not null;default:false" json:"onboarding_delivered"`
	Blocked             bool `gorm:"not null;default:false" json:"blocked"`

	MembershipCheckedAt *time.Time `json:"membership_checked_at,omitempty"`

	Timestamps
}

// PendingReferral reports whether the participant has a recruiter still waiting for credit.
func (p *Participant) PendingReferral() bool {
	return p.ReferredBy != nil && !p.ReferralCredited
}

// Name returns the best human label for the participant.
func (p *Participant) Name() string {
	if p.Username != "" {
		return "@" + p.Username
	}
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return "user"
}
