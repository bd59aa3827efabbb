package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"channel-unlock-bot/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MilestoneDispatcher turns counter values into reward deliveries and
// channel announcements.
type MilestoneDispatcher struct {
	DB        *gorm.DB
	Ledger    *LedgerService
	Community *CommunityService
	Catalog   *CatalogService
	Messenger Messenger
	ChannelID string
	BotLink   func() string

	Individual WatermarkStrategy
	Shared     ModulusStrategy

	now func() time.Time
}

func NewMilestoneDispatcher(
	db *gorm.DB,
	ledger *LedgerService,
	community *CommunityService,
	catalog *CatalogService,
	messenger Messenger,
	channelID string,
	interval int64,
) *MilestoneDispatcher {
	return &MilestoneDispatcher{
		DB:         db,
		Ledger:     ledger,
		Community:  community,
		Catalog:    catalog,
		Messenger:  messenger,
		ChannelID:  channelID,
		Individual: WatermarkStrategy{Interval: interval},
		Shared:     ModulusStrategy{Interval: interval},
		now:        time.Now,
	}
}

// EvaluateMilestones runs both paths after a credit: the recruiter's
// watermark first, then the community modulus.
func (d *MilestoneDispatcher) EvaluateMilestones(ctx context.Context, recruiter *models.Participant, communityCount int64) error {
	if recruiter != nil {
		if _, err := d.EvaluateIndividual(ctx, recruiter); err != nil {
			return err
		}
	}
	_, err := d.EvaluateCommunity(ctx, communityCount)
	return err
}

// EvaluateIndividual delivers every tier the recruiter has newly reached, one
// full tier at a time in ascending order. Each tier is claimed on the
// watermark before it is sent, so a tier reaches a recruiter at most once.
func (d *MilestoneDispatcher) EvaluateIndividual(ctx context.Context, recruiter *models.Participant) ([]int64, error) {
	var delivered []int64
	for _, tier := range d.Individual.Due(recruiter.Referrals, recruiter.HighestTier) {
		claimed, err := d.Ledger.AdvanceTier(ctx, recruiter.ID, tier)
		if err != nil {
			return delivered, fmt.Errorf("advance tier %d for %d: %w", tier, recruiter.ID, err)
		}
		if !claimed {
			// Another run already moved the watermark past this tier.
			break
		}
		recruiter.HighestTier = tier
		if _, err := d.DeliverTier(ctx, recruiter.ID, tier); err != nil {
			return delivered, err
		}
		delivered = append(delivered, tier)
	}
	return delivered, nil
}

// EvaluateCommunity announces the tier matching count, if any.
func (d *MilestoneDispatcher) EvaluateCommunity(ctx context.Context, count int64) (*models.ChannelPost, error) {
	tier, ok := d.Shared.Due(count)
	if !ok {
		return nil, nil
	}
	return d.AnnounceTier(ctx, tier, count, false)
}

// DeliverTier sends the tier's artifacts to one participant. Send failures
// are logged and skipped; only store errors are returned.
func (d *MilestoneDispatcher) DeliverTier(ctx context.Context, userID, tier int64) (int, error) {
	artifacts, err := d.Catalog.AtTier(ctx, tier)
	if err != nil {
		return 0, fmt.Errorf("load tier %d: %w", tier, err)
	}

	chat := UserChat(userID)
	intro := fmt.Sprintf("🎉 You reached %d referrals and unlocked a new reward!", tier)
	if len(artifacts) == 0 {
		intro += "\nThe content for this level is not ready yet, stay tuned."
	}
	if _, err := d.Messenger.SendText(ctx, chat, intro); err != nil {
		log.Printf("[Dispatcher] ❌ tier %d intro to %d: %v", tier, userID, err)
		d.handleSendError(ctx, userID, err)
		if errors.Is(err, ErrRecipientBlocked) {
			return 0, nil
		}
	}

	sent := 0
	for _, a := range artifacts {
		if _, err := d.sendArtifact(ctx, chat, a, fmt.Sprintf("🎁 Level %d reward: %s", tier, a.Name)); err != nil {
			log.Printf("[Dispatcher] ❌ tier %d artifact %s to %d: %v", tier, a.ID, userID, err)
			d.handleSendError(ctx, userID, err)
			continue
		}
		sent++
	}
	log.Printf("[Dispatcher] ✅ tier %d delivered to %d (%d/%d artifacts)", tier, userID, sent, len(artifacts))
	return sent, nil
}

// DeliverOnboardingBonus sends the tier 0 content once per participant.
func (d *MilestoneDispatcher) DeliverOnboardingBonus(ctx context.Context, userID int64) (bool, error) {
	artifacts, err := d.Catalog.AtTier(ctx, 0)
	if err != nil {
		return false, err
	}
	if len(artifacts) == 0 {
		return false, nil
	}
	claimed, err := d.Ledger.ClaimOnboarding(ctx, userID)
	if err != nil || !claimed {
		return false, err
	}

	chat := UserChat(userID)
	notify(ctx, d.Messenger, chat, "👋 Thanks for joining the channel! Here is your welcome bonus.")
	for _, a := range artifacts {
		if _, err := d.sendArtifact(ctx, chat, a, "🎁 Welcome bonus: "+a.Name); err != nil {
			log.Printf("[Dispatcher] ❌ onboarding artifact %s to %d: %v", a.ID, userID, err)
			d.handleSendError(ctx, userID, err)
		}
	}
	return true, nil
}

// AnnounceTier posts the tier's image and file to the channel and records the
// post. Parts that fail to send leave their message id nil. When the tier has
// no content the announcement is skipped and nothing is recorded.
func (d *MilestoneDispatcher) AnnounceTier(ctx context.Context, tier, count int64, forced bool) (*models.ChannelPost, error) {
	image, err := d.Catalog.Pick(ctx, tier, models.MediaImage)
	if err != nil {
		return nil, err
	}
	file, err := d.Catalog.Pick(ctx, tier, models.MediaFile)
	if err != nil {
		return nil, err
	}
	if image == nil && file == nil {
		log.Printf("[Dispatcher] no content for tier %d, channel announcement skipped", tier)
		return nil, nil
	}

	post := &models.ChannelPost{
		ID:             uuid.NewString(),
		PostedAt:       d.now(),
		Tier:           tier,
		CommunityCount: count,
		Forced:         forced,
	}

	if image != nil {
		caption := d.channelCaption(count, image.Name)
		if id, err := d.Messenger.SendPhoto(ctx, d.ChannelID, image.ContentRef, caption); err != nil {
			log.Printf("[Dispatcher] ❌ channel image for tier %d: %v", tier, err)
		} else {
			post.ImageMessageID = &id
		}
	}
	if file != nil {
		caption := fmt.Sprintf("📥 %s\nUnlocked by the community!", file.Name)
		if id, err := d.Messenger.SendDocument(ctx, d.ChannelID, file.ContentRef, caption); err != nil {
			log.Printf("[Dispatcher] ❌ channel file for tier %d: %v", tier, err)
		} else {
			post.FileMessageID = &id
		}
	}

	if err := d.DB.WithContext(ctx).Create(post).Error; err != nil {
		return nil, fmt.Errorf("record channel post: %w", err)
	}
	if err := d.Community.TouchLastPost(ctx, post.PostedAt); err != nil {
		return post, fmt.Errorf("touch last post: %w", err)
	}
	log.Printf("[Dispatcher] 📣 channel post for tier %d at community count %d (forced=%t)", tier, count, forced)
	return post, nil
}

// ForceChannelAnnouncement posts a tier regardless of the counter. With a nil
// tier a random catalog artifact picks it.
func (d *MilestoneDispatcher) ForceChannelAnnouncement(ctx context.Context, tier *int64) (*models.ChannelPost, error) {
	counter, err := d.Community.Get(ctx)
	if err != nil {
		return nil, err
	}
	target := int64(0)
	if tier != nil {
		target = *tier
	} else {
		a, err := d.Catalog.Random(ctx)
		if err != nil {
			return nil, err
		}
		target = a.Tier
	}
	return d.AnnounceTier(ctx, target, counter.Total, true)
}

// LastPosts returns the most recent channel posts, newest first.
func (d *MilestoneDispatcher) LastPosts(ctx context.Context, limit int) ([]models.ChannelPost, error) {
	var posts []models.ChannelPost
	err := d.DB.WithContext(ctx).Order("posted_at DESC").Limit(limit).Find(&posts).Error
	return posts, err
}

func (d *MilestoneDispatcher) channelCaption(count int64, name string) string {
	caption := fmt.Sprintf("🔥 %d members joined through referrals!\n🎁 %s", count, name)
	if d.BotLink != nil {
		if link := d.BotLink(); link != "" {
			caption += "\n\nInvite friends to unlock more: " + link
		}
	}
	return caption
}

func (d *MilestoneDispatcher) sendArtifact(ctx context.Context, chat string, a models.RewardArtifact, caption string) (int, error) {
	if a.Kind == models.MediaImage {
		return d.Messenger.SendPhoto(ctx, chat, a.ContentRef, caption)
	}
	return d.Messenger.SendDocument(ctx, chat, a.ContentRef, caption)
}

func (d *MilestoneDispatcher) handleSendError(ctx context.Context, userID int64, err error) {
	if !errors.Is(err, ErrRecipientBlocked) {
		return
	}
	if err := d.Ledger.SetBlocked(ctx, userID, true); err != nil {
		log.Printf("[Dispatcher] ⚠️ could not mark %d blocked: %v", userID, err)
	}
}
