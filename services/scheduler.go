// services/scheduler.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"channel-unlock-bot/config"
	"channel-unlock-bot/models"

	"github.com/go-co-op/gocron/v2"
)

// FallbackScheduler runs the periodic jobs: the membership sweep, the
// channel cadence guarantee and the catalog backup.
type FallbackScheduler struct {
	Referral      *ReferralEngine
	Dispatcher    *MilestoneDispatcher
	Community     *CommunityService
	Backup        *BackupService
	Messenger     Messenger
	AdminIDs      []int64
	FallbackAfter time.Duration

	now func() time.Time
}

func NewFallbackScheduler(
	referral *ReferralEngine,
	dispatcher *MilestoneDispatcher,
	community *CommunityService,
	backup *BackupService,
	messenger Messenger,
	adminIDs []int64,
	fallbackAfter time.Duration,
) *FallbackScheduler {
	return &FallbackScheduler{
		Referral:      referral,
		Dispatcher:    dispatcher,
		Community:     community,
		Backup:        backup,
		Messenger:     messenger,
		AdminIDs:      adminIDs,
		FallbackAfter: fallbackAfter,
		now:           time.Now,
	}
}

// RunFallbackCheck forces a channel post with random catalog content when the
// channel has been silent for FallbackAfter. It returns nil when no post was due.
func (s *FallbackScheduler) RunFallbackCheck(ctx context.Context) (*models.ChannelPost, error) {
	counter, err := s.Community.Get(ctx)
	if err != nil {
		return nil, err
	}
	if counter.LastPostAt != nil && s.now().Sub(*counter.LastPostAt) < s.FallbackAfter {
		return nil, nil
	}

	post, err := s.Dispatcher.ForceChannelAnnouncement(ctx, nil)
	if err != nil {
		return nil, err
	}
	if post != nil {
		s.notifyAdmins(ctx, fmt.Sprintf(
			"⏰ The channel was quiet for %s, so a tier %d reward was posted (community count %d).",
			s.FallbackAfter, post.Tier, post.CommunityCount))
	}
	return post, nil
}

func (s *FallbackScheduler) notifyAdmins(ctx context.Context, text string) {
	for _, id := range s.AdminIDs {
		notify(ctx, s.Messenger, UserChat(id), text)
	}
}

// Start registers the jobs on sched. Jobs never overlap themselves.
func (s *FallbackScheduler) Start(ctx context.Context, sched gocron.Scheduler, cfg config.ScheduleConfig) error {
	singleton := gocron.WithSingletonMode(gocron.LimitModeReschedule)

	// Membership sweep: credit referrals whose join went unnoticed
	_, err := sched.NewJob(
		gocron.DurationJob(cfg.SweepInterval),
		gocron.NewTask(func() {
			if _, err := s.Referral.RunMembershipSweep(ctx); err != nil {
				log.Printf("[Scheduler] membership sweep failed: %v", err)
			}
		}),
		singleton,
	)
	if err != nil {
		return fmt.Errorf("register membership sweep: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(cfg.FallbackCheckInterval),
		gocron.NewTask(func() {
			post, err := s.RunFallbackCheck(ctx)
			switch {
			case errors.Is(err, ErrEmptyCatalog):
				log.Printf("[Scheduler] fallback post due but the catalog is empty")
			case err != nil:
				log.Printf("[Scheduler] fallback check failed: %v", err)
			case post != nil:
				log.Printf("✅ Fallback post published for tier %d", post.Tier)
			}
		}),
		singleton,
	)
	if err != nil {
		return fmt.Errorf("register fallback check: %w", err)
	}

	if s.Backup != nil && s.Backup.Enabled() {
		_, err = sched.NewJob(
			gocron.DurationJob(24*time.Hour),
			gocron.NewTask(func() {
				if _, err := s.Backup.Run(ctx); err != nil {
					log.Printf("[Scheduler] catalog backup failed: %v", err)
				}
			}),
			singleton,
		)
		if err != nil {
			return fmt.Errorf("register catalog backup: %w", err)
		}
	}

	sched.Start()
	log.Printf("[Scheduler] started: sweep every %s, fallback check every %s", cfg.SweepInterval, cfg.FallbackCheckInterval)
	return nil
}
