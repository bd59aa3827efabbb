package telegram

import (
	"errors"
	"strings"
	"testing"

	"channel-unlock-bot/models"
	"channel-unlock-bot/services"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"
)

func TestParseTierCaption(t *testing.T) {
	tier, ok := parseTierCaption("tier 4")
	require.True(t, ok)
	require.Equal(t, int64(4), tier)

	tier, ok = parseTierCaption("  TIER 10 ")
	require.True(t, ok)
	require.Equal(t, int64(10), tier)

	_, ok = parseTierCaption("tier")
	require.False(t, ok)
	_, ok = parseTierCaption("level 3")
	require.False(t, ok)
	_, ok = parseTierCaption("tier -2")
	require.False(t, ok)
}

func TestFormatIngestReport(t *testing.T) {
	text := formatIngestReport(&services.IngestReport{Processed: 3, Skipped: 1, Tiers: []int64{2, 4}})
	require.Contains(t, text, "Added: 3")
	require.Contains(t, text, "Skipped (already present): 1")
	require.Contains(t, text, "Tiers: 2, 4")

	require.Contains(t, formatIngestReport(&services.IngestReport{}), "Tiers: none")
	require.Equal(t, "Nothing to ingest.", formatIngestReport(nil))
}

func TestFormatChannelPost_PartialSuccess(t *testing.T) {
	id := 7
	text := formatChannelPost(&models.ChannelPost{Tier: 4, CommunityCount: 4, ImageMessageID: &id})
	require.Contains(t, text, "Image: sent, file: failed")
}

func TestChunkLines(t *testing.T) {
	lines := []string{strings.Repeat("a", 6), strings.Repeat("b", 6), strings.Repeat("c", 6)}
	chunks := chunkLines(lines, 14)
	require.Equal(t, []string{"aaaaaa\nbbbbbb", "cccccc"}, chunks)
	require.Empty(t, chunkLines(nil, 10))
}

func TestMemberStatus(t *testing.T) {
	require.Equal(t, models.MemberCreator, memberStatus(&tele.ChatMember{Role: tele.Creator}))
	require.Equal(t, models.MemberAdministrator, memberStatus(&tele.ChatMember{Role: tele.Administrator}))
	require.Equal(t, models.MemberMember, memberStatus(&tele.ChatMember{Role: tele.Member}))
	require.Equal(t, models.MemberMember, memberStatus(&tele.ChatMember{Role: tele.Restricted, Member: true}))
	require.Equal(t, models.MemberLeft, memberStatus(&tele.ChatMember{Role: tele.Restricted}))
	require.Equal(t, models.MemberLeft, memberStatus(&tele.ChatMember{Role: tele.Left}))
	require.Equal(t, models.MemberKicked, memberStatus(&tele.ChatMember{Role: tele.Kicked}))
	require.Equal(t, models.MemberNotFound, memberStatus(nil))
}

func TestMapSendError(t *testing.T) {
	err := mapSendError(tele.ErrBlockedByUser)
	require.True(t, errors.Is(err, services.ErrRecipientBlocked))

	err = mapSendError(errors.New("telegram: Forbidden: user is deactivated (403)"))
	require.True(t, errors.Is(err, services.ErrRecipientBlocked))

	other := errors.New("telegram: Too Many Requests (429)")
	require.Equal(t, other, mapSendError(other))
}

func TestIsUserNotFound(t *testing.T) {
	require.True(t, isUserNotFound(errors.New("telegram: Bad Request: user not found (400)")))
	require.True(t, isUserNotFound(errors.New("telegram: Bad Request: PARTICIPANT_ID_INVALID (400)")))
	require.False(t, isUserNotFound(errors.New("telegram: Bad Request: chat not found (400)")))
}

func TestLinks(t *testing.T) {
	require.Equal(t, "https://t.me/unlock_bot?start=ref_abc", inviteLink("unlock_bot", "abc"))
	require.Equal(t, "https://t.me/unlock_bot", inviteLink("unlock_bot", ""))
	require.Equal(t, "https://t.me/mychannel", channelLink("@mychannel"))
	require.Equal(t, "", channelLink("-1001234"))
}

func TestIsConfiguredChannel(t *testing.T) {
	require.True(t, isConfiguredChannel("@MyChannel", &tele.Chat{Username: "mychannel"}))
	require.True(t, isConfiguredChannel("-1001234", &tele.Chat{ID: -1001234}))
	require.False(t, isConfiguredChannel("-1001234", &tele.Chat{ID: -1005678}))
	require.False(t, isConfiguredChannel("@x", nil))
}

func TestDisplayName(t *testing.T) {
	// "e" followed by a combining acute accent composes to "é"
	u := &tele.User{FirstName: "René", LastName: ""}
	require.Equal(t, "René", displayName(u))
	require.Equal(t, "Ann Lee", displayName(&tele.User{FirstName: "Ann", LastName: "Lee"}))
}
