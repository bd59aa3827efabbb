package telegram

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"channel-unlock-bot/services"

	"golang.org/x/text/unicode/norm"
	tele "gopkg.in/telebot.v3"
)

// displayName stores names in NFC so equal names compare equal.
func displayName(u *tele.User) string {
	return norm.NFC.String(strings.TrimSpace(u.FirstName + " " + u.LastName))
}

func (b *Bot) joinKeyboard() *tele.ReplyMarkup {
	keyboard := &tele.ReplyMarkup{}
	var rows []tele.Row
	if link := channelLink(b.cfg.ChannelID); link != "" {
		rows = append(rows, keyboard.Row(keyboard.URL("📢 Join the channel", link)))
	}
	rows = append(rows, keyboard.Row(keyboard.Data("✅ I joined", callbackCheck)))
	keyboard.Inline(rows...)
	return keyboard
}

func (b *Bot) handleStart(c tele.Context) error {
	ctx, cancel := b.context()
	defer cancel()

	user := c.Sender()
	token := ""
	if payload := c.Message().Payload; strings.HasPrefix(payload, referralPrefix) {
		token = strings.TrimPrefix(payload, referralPrefix)
	}

	p, isNew, err := b.svc.Ledger.Register(ctx, user.ID, user.Username, displayName(user), token)
	if err != nil {
		return err
	}

	text := fmt.Sprintf(`Hi, %s! 👋

Invite friends to our channel and unlock exclusive content.
Every %d friends who join unlock a new reward for you, and every %d joins across the community unlock a post for everyone.

🔗 Your invite link:
%s`, user.FirstName, b.svc.Dispatcher.Individual.Interval, b.svc.Dispatcher.Shared.Interval, b.transport.InviteLink(p.ReferralToken))

	if isNew && p.ReferredBy != nil {
		text += "\n\n🎁 A friend invited you! Join the channel and press the button below so they get the credit."
	}
	return c.Send(text, b.joinKeyboard())
}

func (b *Bot) handleHelp(c tele.Context) error {
	text := `📖 Commands

/start - main menu and your invite link
/link - your invite link
/check - confirm you joined the channel
/me - your referral progress
/top - best recruiters`

	if b.cfg.IsAdmin(c.Sender().ID) {
		text += `

🛠 Admin
/bulk_start, /bulk_finish, /bulk_cancel, /bulk_status - batch upload rewards
send a photo or file captioned "tier N" - add a single reward
/rewards - list the catalog
/delete_reward <id>, /delete_tier <tier>
/force_post [tier], /fallback - post to the channel
/community, /set_community <n>
/set_refs <user> <n>, /block <user>, /unblock <user>
/broadcast <text>, /sweep, /backup, /stats`
	}
	return c.Send(text)
}

func (b *Bot) handleLink(c tele.Context) error {
	ctx, cancel := b.context()
	defer cancel()

	user := c.Sender()
	p, _, err := b.svc.Ledger.Register(ctx, user.ID, user.Username, displayName(user), "")
	if err != nil {
		return err
	}
	return c.Send("🔗 Your invite link:\n" + b.transport.InviteLink(p.ReferralToken))
}

func (b *Bot) handleMe(c tele.Context) error {
	ctx, cancel := b.context()
	defer cancel()

	p, err := b.svc.Ledger.Get(ctx, c.Sender().ID)
	if err != nil {
		return err
	}
	interval := b.svc.Dispatcher.Individual.Interval
	next := services.Tier(p.Referrals, interval) + interval

	return c.Send(fmt.Sprintf(`📊 Your progress

👥 Referrals: %d
🏆 Highest unlocked level: %d
🎯 Next unlock at: %d referrals
📢 Channel member: %s`, p.Referrals, p.HighestTier, next, yesNo(p.IsMember)))
}

func (b *Bot) handleTop(c tele.Context) error {
	ctx, cancel := b.context()
	defer cancel()

	top, err := b.svc.Ledger.TopRecruiters(ctx, 10)
	if err != nil {
		return err
	}
	if len(top) == 0 {
		return c.Send("Nobody has recruited anyone yet. Be the first!")
	}
	var sb strings.Builder
	sb.WriteString("🏆 Top recruiters\n\n")
	for i, p := range top {
		fmt.Fprintf(&sb, "%d. %s - %d\n", i+1, p.Name(), p.Referrals)
	}
	return c.Send(sb.String())
}

func (b *Bot) handleCheck(c tele.Context) error {
	ctx, cancel := b.context()
	defer cancel()

	user := c.Sender()
	if _, _, err := b.svc.Ledger.Register(ctx, user.ID, user.Username, displayName(user), ""); err != nil {
		return err
	}

	status, _, err := b.svc.Referral.CheckMembership(ctx, user.ID)
	if err != nil {
		return err
	}
	if !status.Joined() {
		return c.Send("❌ You are not in the channel yet. Join it and press the button again.", b.joinKeyboard())
	}
	return c.Send("✅ Membership confirmed, thank you!")
}

func (b *Bot) handleCallback(c tele.Context) error {
	defer c.Respond()

	// telebot prefixes callback data with \f
	switch strings.TrimPrefix(c.Callback().Data, "\f") {
	case callbackCheck:
		return b.handleCheck(c)
	default:
		log.Printf("[Bot] unknown callback data %q from %d", c.Callback().Data, c.Sender().ID)
	}
	return nil
}

// handleChatMember reacts to join/leave updates from the channel.
func (b *Bot) handleChatMember(c tele.Context) error {
	update := c.ChatMember()
	if update == nil || update.NewChatMember == nil || update.NewChatMember.User == nil {
		return nil
	}
	if !isConfiguredChannel(b.cfg.ChannelID, update.Chat) {
		return nil
	}

	ctx, cancel := b.context()
	defer cancel()

	userID := update.NewChatMember.User.ID
	status := memberStatus(update.NewChatMember)
	_, err := b.svc.Referral.ApplyMembership(ctx, userID, status)
	if err != nil && !errors.Is(err, services.ErrParticipantNotFound) {
		log.Printf("[Bot] ⚠️ membership update for %d: %v", userID, err)
	}
	// Users who never opened the bot are unknown; nothing to credit.
	return nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
