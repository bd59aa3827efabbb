package services

import (
	"context"
	"strings"
	"testing"

	"channel-unlock-bot/models"

	"github.com/stretchr/testify/require"
)

func TestDispatcher_BurstDeliversEveryTier(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	f.addArtifact(t, 2, models.MediaImage, "img-2")
	f.addArtifact(t, 4, models.MediaImage, "img-4")
	f.addArtifact(t, 6, models.MediaImage, "img-6")

	f.register(t, 1, "alice", "")
	require.NoError(t, f.ledger.SetReferrals(ctx, 1, 7))
	alice, err := f.ledger.Get(ctx, 1)
	require.NoError(t, err)

	tiers, err := f.dispatcher.EvaluateIndividual(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, []int64{2, 4, 6}, tiers)
	require.Equal(t, []string{"img-2", "img-4", "img-6"}, f.msg.media(UserChat(1)))

	// Nothing new on a second evaluation.
	alice, err = f.ledger.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(6), alice.HighestTier)
	tiers, err = f.dispatcher.EvaluateIndividual(ctx, alice)
	require.NoError(t, err)
	require.Empty(t, tiers)
}

func TestDispatcher_ResetDoesNotRedeliver(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	f.addArtifact(t, 2, models.MediaImage, "img-2")

	alice := f.register(t, 1, "alice", "")
	f.recruit(t, alice, 100, 2)
	require.Len(t, f.msg.media(UserChat(1)), 1)

	require.NoError(t, f.ledger.SetReferrals(ctx, 1, 0))
	f.recruit(t, alice, 200, 2)

	alice, err := f.ledger.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), alice.Referrals)
	require.Len(t, f.msg.media(UserChat(1)), 1)
}

func TestDispatcher_EmptyTierStillAdvances(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	f.register(t, 1, "alice", "")
	require.NoError(t, f.ledger.SetReferrals(ctx, 1, 2))
	alice, err := f.ledger.Get(ctx, 1)
	require.NoError(t, err)

	tiers, err := f.dispatcher.EvaluateIndividual(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, []int64{2}, tiers)

	texts := f.msg.texts(UserChat(1))
	require.Len(t, texts, 1)
	require.Contains(t, texts[0], "not ready yet")
}

func TestDispatcher_BlockedRecipientIsMarked(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	f.addArtifact(t, 2, models.MediaImage, "img-2")
	f.register(t, 1, "alice", "")
	f.msg.blocked[UserChat(1)] = true

	sent, err := f.dispatcher.DeliverTier(ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, 0, sent)

	alice, err := f.ledger.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, alice.Blocked)
}

func TestDispatcher_CommunityModulusRefiresAfterReset(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	f.addArtifact(t, 2, models.MediaImage, "img-2")

	alice := f.register(t, 1, "alice", "")
	f.recruit(t, alice, 100, 3)
	require.Equal(t, []string{"img-2"}, f.msg.media(testChannel))

	require.NoError(t, f.community.Set(ctx, 0))
	f.recruit(t, alice, 200, 2)
	require.Equal(t, []string{"img-2", "img-2"}, f.msg.media(testChannel))

	posts, err := f.dispatcher.LastPosts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	for _, p := range posts {
		require.Equal(t, int64(2), p.Tier)
		require.Equal(t, int64(2), p.CommunityCount)
		require.False(t, p.Forced)
	}
}

func TestDispatcher_PartialAnnouncementIsRecorded(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	f.addArtifact(t, 4, models.MediaImage, "img-4")
	f.addArtifact(t, 4, models.MediaFile, "file-4")
	f.msg.failing["document"] = true
	f.dispatcher.BotLink = func() string { return "https://t.me/unlock_bot" }

	post, err := f.dispatcher.AnnounceTier(ctx, 4, 4, false)
	require.NoError(t, err)
	require.NotNil(t, post)
	require.NotNil(t, post.ImageMessageID)
	require.Nil(t, post.FileMessageID)

	var stored models.ChannelPost
	require.NoError(t, f.db.First(&stored, "id = ?", post.ID).Error)
	require.Nil(t, stored.FileMessageID)

	c, err := f.community.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, c.LastPostAt)

	f.msg.mu.Lock()
	caption := f.msg.sent[0].Caption
	f.msg.mu.Unlock()
	require.True(t, strings.HasSuffix(caption, "https://t.me/unlock_bot"))
}

func TestDispatcher_AnnouncementSkippedWithoutContent(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	post, err := f.dispatcher.AnnounceTier(ctx, 8, 8, false)
	require.NoError(t, err)
	require.Nil(t, post)

	var posts int64
	require.NoError(t, f.db.Model(&models.ChannelPost{}).Count(&posts).Error)
	require.Equal(t, int64(0), posts)

	c, err := f.community.Get(ctx)
	require.NoError(t, err)
	require.Nil(t, c.LastPostAt)
}

func TestDispatcher_ForceAnnouncement(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	_, err := f.dispatcher.ForceChannelAnnouncement(ctx, nil)
	require.ErrorIs(t, err, ErrEmptyCatalog)

	f.addArtifact(t, 6, models.MediaFile, "file-6")
	require.NoError(t, f.community.Set(ctx, 3))

	post, err := f.dispatcher.ForceChannelAnnouncement(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, int64(6), post.Tier)
	require.Equal(t, int64(3), post.CommunityCount)
	require.True(t, post.Forced)

	tier := int64(6)
	post, err = f.dispatcher.ForceChannelAnnouncement(ctx, &tier)
	require.NoError(t, err)
	require.NotNil(t, post)
}

func TestDispatcher_OnboardingBonusOnce(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	f.register(t, 1, "alice", "")

	// No tier 0 content: nothing is claimed, so a later upload still reaches her.
	ok, err := f.dispatcher.DeliverOnboardingBonus(ctx, 1)
	require.NoError(t, err)
	require.False(t, ok)

	f.addArtifact(t, 0, models.MediaFile, "welcome")
	for i := 0; i < 2; i++ {
		_, err := f.referral.ApplyMembership(ctx, 1, models.MemberMember)
		require.NoError(t, err)
	}
	require.Equal(t, []string{"welcome"}, f.msg.media(UserChat(1)))
}
