package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLedger_RegisterLinksRecruiterOnce(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	recruiter := f.register(t, 1, "alice", "")
	require.NotEmpty(t, recruiter.ReferralToken)
	require.Nil(t, recruiter.ReferredBy)

	other := f.register(t, 2, "bob", "")

	p := f.register(t, 3, "carol", recruiter.ReferralToken)
	require.NotNil(t, p.ReferredBy)
	require.Equal(t, int64(1), *p.ReferredBy)
	require.True(t, p.PendingReferral())

	// A later start link never rewrites the recruiter.
	again, created, err := f.ledger.Register(ctx, 3, "carol_new", "Carol", other.ReferralToken)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, int64(1), *again.ReferredBy)
	require.Equal(t, "carol_new", again.Username)

	stored, err := f.ledger.Get(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, "carol_new", stored.Username)
	require.Equal(t, int64(1), *stored.ReferredBy)
}

func TestLedger_RegisterUnknownToken(t *testing.T) {
	f := newFixture(t, 2)
	p := f.register(t, 1, "alice", "doesnotexist")
	require.Nil(t, p.ReferredBy)
}

func TestLedger_Lookup(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	f.register(t, 42, "Alice", "")

	p, err := f.ledger.Lookup(ctx, "42")
	require.NoError(t, err)
	require.Equal(t, int64(42), p.ID)

	p, err = f.ledger.Lookup(ctx, "@alice")
	require.NoError(t, err)
	require.Equal(t, int64(42), p.ID)

	_, err = f.ledger.Lookup(ctx, "@nobody")
	require.ErrorIs(t, err, ErrParticipantNotFound)
	_, err = f.ledger.Lookup(ctx, "7")
	require.ErrorIs(t, err, ErrParticipantNotFound)
}

func TestLedger_ClaimsSucceedOnce(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	f.register(t, 1, "alice", "")

	ok, err := f.ledger.ClaimReferralCredit(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = f.ledger.ClaimReferralCredit(ctx, 1)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = f.ledger.ClaimOnboarding(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = f.ledger.ClaimOnboarding(ctx, 1)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLedger_AdvanceTierOnlyMovesUp(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	f.register(t, 1, "alice", "")

	ok, err := f.ledger.AdvanceTier(ctx, 1, 4)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = f.ledger.AdvanceTier(ctx, 1, 4)
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = f.ledger.AdvanceTier(ctx, 1, 2)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLedger_CountersAndOverrides(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	f.register(t, 1, "alice", "")
	f.register(t, 2, "bob", "")

	p, err := f.ledger.AddReferrals(ctx, 1, 3)
	require.NoError(t, err)
	require.Equal(t, int64(3), p.Referrals)
	require.Equal(t, int64(3), p.Credit)

	_, err = f.ledger.AddReferrals(ctx, 99, 1)
	require.ErrorIs(t, err, ErrParticipantNotFound)

	require.NoError(t, f.ledger.SetReferrals(ctx, 1, 1))
	require.Error(t, f.ledger.SetReferrals(ctx, 1, -1))
	require.ErrorIs(t, f.ledger.SetReferrals(ctx, 99, 1), ErrParticipantNotFound)

	p, err = f.ledger.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), p.Referrals)
	require.Equal(t, int64(3), p.Credit)

	top, err := f.ledger.TopRecruiters(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	require.Equal(t, int64(1), top[0].ID)

	require.NoError(t, f.ledger.SetBlocked(ctx, 2, true))
	ids, err := f.ledger.Recipients(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{1}, ids)

	total, credited, err := f.ledger.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Equal(t, int64(0), credited)
}

func TestLedger_PendingReferrals(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	r := f.register(t, 1, "alice", "")
	f.register(t, 2, "bob", r.ReferralToken)
	f.register(t, 3, "carol", r.ReferralToken)
	f.register(t, 4, "dave", "")

	_, err := f.ledger.ClaimReferralCredit(ctx, 3)
	require.NoError(t, err)

	pending, err := f.ledger.PendingReferrals(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, int64(2), pending[0].ID)

	require.NoError(t, f.ledger.SetMembership(ctx, 2, true, f.referral.now()))
	p, err := f.ledger.Get(ctx, 2)
	require.NoError(t, err)
	require.True(t, p.IsMember)
	require.NotNil(t, p.MembershipCheckedAt)
	require.ErrorIs(t, f.ledger.SetMembership(ctx, 9, true, f.referral.now()), ErrParticipantNotFound)
}
