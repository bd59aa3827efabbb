package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"channel-unlock-bot/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerService owns participant records. Counters only move through
// single-statement increments; flags only flip through conditional updates.
type LedgerService struct {
	DB *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{DB: db}
}

func newReferralToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Register creates the participant on first interaction, linking the recruiter
// named by referralToken when one is given. Existing participants only get
// their names refreshed; a recruiter link is never added after creation.
func (s *LedgerService) Register(ctx context.Context, id int64, username, displayName, referralToken string) (*models.Participant, bool, error) {
	existing, err := s.Get(ctx, id)
	if err == nil {
		if existing.Username != username || existing.DisplayName != displayName {
			err := s.DB.WithContext(ctx).Model(existing).
				Updates(map[string]interface{}{"username": username, "display_name": displayName}).Error
			if err != nil {
				return nil, false, err
			}
			existing.Username, existing.DisplayName = username, displayName
		}
		return existing, false, nil
	}
	if !errors.Is(err, ErrParticipantNotFound) {
		return nil, false, err
	}

	p := models.Participant{
		ID:            id,
		Username:      username,
		DisplayName:   displayName,
		ReferralToken: newReferralToken(),
	}

	if referralToken != "" {
		recruiter, err := s.GetByReferralToken(ctx, referralToken)
		switch {
		case err == nil && recruiter.ID != id:
			p.ReferredBy = &recruiter.ID
		case err != nil && !errors.Is(err, ErrParticipantNotFound):
			return nil, false, err
		}
	}

	res := s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&p)
	if res.Error != nil {
		return nil, false, fmt.Errorf("create participant %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost a creation race; the other insert wins.
		existing, err := s.Get(ctx, id)
		return existing, false, err
	}
	return &p, true, nil
}

func (s *LedgerService) Get(ctx context.Context, id int64) (*models.Participant, error) {
	var p models.Participant
	if err := s.DB.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *LedgerService) GetByReferralToken(ctx context.Context, token string) (*models.Participant, error) {
	var p models.Participant
	if err := s.DB.WithContext(ctx).First(&p, "referral_token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Lookup resolves an admin-supplied reference: a numeric id or an @username.
func (s *LedgerService) Lookup(ctx context.Context, ref string) (*models.Participant, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return s.Get(ctx, id)
	}

	var p models.Participant
	err := s.DB.WithContext(ctx).
		Where("LOWER(username) = ?", strings.ToLower(strings.TrimPrefix(ref, "@"))).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ClaimReferralCredit flips ReferralCredited from false to true. Only one
// caller ever gets true for a given participant.
func (s *LedgerService) ClaimReferralCredit(ctx context.Context, id int64) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&models.Participant{}).
		Where("id = ? AND referral_credited = ?", id, false).
		Update("referral_credited", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ClaimOnboarding flips OnboardingDelivered from false to true.
func (s *LedgerService) ClaimOnboarding(ctx context.Context, id int64) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&models.Participant{}).
		Where("id = ? AND onboarding_delivered = ?", id, false).
		Update("onboarding_delivered", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// AddReferrals atomically increments the recruiter's counter and credit and
// returns the updated record.
func (s *LedgerService) AddReferrals(ctx context.Context, id, n int64) (*models.Participant, error) {
	res := s.DB.WithContext(ctx).Model(&models.Participant{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"referrals": gorm.Expr("referrals + ?", n),
			"credit":    gorm.Expr("credit + ?", n),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrParticipantNotFound
	}
	return s.Get(ctx, id)
}

// AdvanceTier moves the delivery watermark up to tier. It reports false when
// the watermark is already at or past tier.
func (s *LedgerService) AdvanceTier(ctx context.Context, id, tier int64) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&models.Participant{}).
		Where("id = ? AND highest_tier < ?", id, tier).
		Update("highest_tier", tier)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *LedgerService) SetMembership(ctx context.Context, id int64, member bool, checkedAt time.Time) error {
	res := s.DB.WithContext(ctx).Model(&models.Participant{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_member": member, "membership_checked_at": checkedAt})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

func (s *LedgerService) SetBlocked(ctx context.Context, id int64, blocked bool) error {
	res := s.DB.WithContext(ctx).Model(&models.Participant{}).
		Where("id = ?", id).
		Update("blocked", blocked)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

// SetReferrals overrides the individual counter. The delivery watermark is
// left alone, so already delivered tiers are not sent again.
func (s *LedgerService) SetReferrals(ctx context.Context, id, n int64) error {
	if n < 0 {
		return fmt.Errorf("referral count must not be negative, got %d", n)
	}
	res := s.DB.WithContext(ctx).Model(&models.Participant{}).
		Where("id = ?", id).
		Update("referrals", n)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

// PendingReferrals lists participants whose recruitment is still uncredited.
func (s *LedgerService) PendingReferrals(ctx context.Context) ([]models.Participant, error) {
	var out []models.Participant
	err := s.DB.WithContext(ctx).
		Where("referred_by IS NOT NULL AND referral_credited = ?", false).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

// Recipients returns ids of everyone who has not blocked the bot.
func (s *LedgerService) Recipients(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.DB.WithContext(ctx).Model(&models.Participant{}).
		Where("blocked = ?", false).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (s *LedgerService) TopRecruiters(ctx context.Context, limit int) ([]models.Participant, error) {
	var out []models.Participant
	err := s.DB.WithContext(ctx).
		Where("referrals > 0").
		Order("referrals DESC, created_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (s *LedgerService) Count(ctx context.Context) (total, credited int64, err error) {
	if err = s.DB.WithContext(ctx).Model(&models.Participant{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err = s.DB.WithContext(ctx).Model(&models.Participant{}).
		Where("referral_credited = ?", true).
		Count(&credited).Error
	return total, credited, err
}
