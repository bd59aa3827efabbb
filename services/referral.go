package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"channel-unlock-bot/models"
)

// ReferralEngine credits verified recruitment exactly once.
type ReferralEngine struct {
	Ledger     *LedgerService
	Community  *CommunityService
	Dispatcher *MilestoneDispatcher
	Messenger  Messenger
	ChannelID  string

	now func() time.Time
}

func NewReferralEngine(
	ledger *LedgerService,
	community *CommunityService,
	dispatcher *MilestoneDispatcher,
	messenger Messenger,
	channelID string,
) *ReferralEngine {
	return &ReferralEngine{
		Ledger:     ledger,
		Community:  community,
		Dispatcher: dispatcher,
		Messenger:  messenger,
		ChannelID:  channelID,
		now:        time.Now,
	}
}

// TryCreditReferral credits the participant's recruiter if the referral is
// still pending. It returns the updated recruiter, or nil when nothing was
// credited (no recruiter, already credited, recruiter gone). The credited
// flag is claimed before any counter moves, which makes repeated or racing
// calls harmless.
func (e *ReferralEngine) TryCreditReferral(ctx context.Context, participantID int64) (*models.Participant, error) {
	p, err := e.Ledger.Get(ctx, participantID)
	if err != nil {
		return nil, err
	}
	if !p.PendingReferral() {
		return nil, nil
	}

	recruiter, err := e.Ledger.Get(ctx, *p.ReferredBy)
	if errors.Is(err, ErrParticipantNotFound) {
		log.Printf("[Referral] recruiter %d of %d no longer exists", *p.ReferredBy, p.ID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	claimed, err := e.Ledger.ClaimReferralCredit(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("claim referral credit for %d: %w", p.ID, err)
	}
	if !claimed {
		return nil, nil
	}

	recruiter, err = e.Ledger.AddReferrals(ctx, recruiter.ID, 1)
	if errors.Is(err, ErrParticipantNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("increment recruiter %d: %w", *p.ReferredBy, err)
	}

	total, err := e.Community.Increment(ctx)
	if err != nil {
		return recruiter, fmt.Errorf("increment community counter: %w", err)
	}
	log.Printf("[Referral] ✅ %d credited to %d (individual=%d, community=%d)", p.ID, recruiter.ID, recruiter.Referrals, total)

	if err := e.Dispatcher.EvaluateMilestones(ctx, recruiter, total); err != nil {
		return recruiter, err
	}

	notify(ctx, e.Messenger, UserChat(recruiter.ID), fmt.Sprintf(
		"🙌 %s joined the channel with your link!\nYou now have %d referrals.", p.Name(), recruiter.Referrals))
	return recruiter, nil
}

// CheckMembership polls the channel for the participant and applies the result.
func (e *ReferralEngine) CheckMembership(ctx context.Context, participantID int64) (models.MemberStatus, *models.Participant, error) {
	status, err := e.Messenger.MemberStatus(ctx, e.ChannelID, participantID)
	if err != nil {
		return "", nil, fmt.Errorf("membership of %d: %w", participantID, err)
	}
	recruiter, err := e.ApplyMembership(ctx, participantID, status)
	return status, recruiter, err
}

// ApplyMembership stores a membership observation (a poll result or a
// chat-member update). Joining hands out the onboarding bonus and credits a
// pending referral; leaving only clears the flag, credit is never revoked.
func (e *ReferralEngine) ApplyMembership(ctx context.Context, participantID int64, status models.MemberStatus) (*models.Participant, error) {
	if err := e.Ledger.SetMembership(ctx, participantID, status.Joined(), e.now()); err != nil {
		return nil, err
	}
	if !status.Joined() {
		return nil, nil
	}
	if _, err := e.Dispatcher.DeliverOnboardingBonus(ctx, participantID); err != nil {
		log.Printf("[Referral] ⚠️ onboarding bonus for %d: %v", participantID, err)
	}
	return e.TryCreditReferral(ctx, participantID)
}

// SweepReport summarizes a membership sweep.
type SweepReport struct {
	Checked  int
	Credited int
	Failed   int
}

// RunMembershipSweep re-checks every participant with a pending referral.
// A failure for one participant does not stop the sweep.
func (e *ReferralEngine) RunMembershipSweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	pending, err := e.Ledger.PendingReferrals(ctx)
	if err != nil {
		return report, err
	}
	for _, p := range pending {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Checked++
		_, recruiter, err := e.CheckMembership(ctx, p.ID)
		if err != nil {
			report.Failed++
			log.Printf("[Referral] ⚠️ sweep check for %d failed: %v", p.ID, err)
			continue
		}
		if recruiter != nil {
			report.Credited++
		}
	}
	log.Printf("[Referral] 🔁 sweep done: checked=%d credited=%d failed=%d", report.Checked, report.Credited, report.Failed)
	return report, nil
}
