package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"channel-unlock-bot/models"
	"channel-unlock-bot/services"
	"channel-unlock-bot/workers"

	tele "gopkg.in/telebot.v3"
)

func (b *Bot) handleBulkStart(c tele.Context) error {
	replaced := b.svc.Sessions.Start(c.Sender().ID)
	text := "📦 Bulk upload started. Send the files and images now, then /bulk_finish (or /bulk_cancel).\n" +
		"Numbers in the file names decide the order: the Nth file unlocks at N × interval."
	if replaced {
		text = "♻️ Previous session discarded.\n" + text
	}
	return c.Send(text)
}

func (b *Bot) handleBulkFinish(c tele.Context) error {
	ctx, cancel := b.context()
	defer cancel()

	report, err := b.svc.Sessions.Finish(ctx, c.Sender().ID)
	if err != nil {
		return err
	}
	if report == nil {
		return c.Send("No active bulk session.")
	}
	return c.Send("✅ Bulk upload finished.\n" + formatIngestReport(report))
}

func (b *Bot) handleBulkCancel(c tele.Context) error {
	discarded, ok := b.svc.Sessions.Cancel(c.Sender().ID)
	if !ok {
		return c.Send("No active bulk session.")
	}
	return c.Send(fmt.Sprintf("🗑 Bulk session cancelled, %d uploads discarded.", discarded))
}

func (b *Bot) handleBulkStatus(c tele.Context) error {
	status, ok := b.svc.Sessions.Status(c.Sender().ID)
	if !ok {
		return c.Send("No active bulk session.")
	}
	return c.Send(fmt.Sprintf("📦 Session active since %s\nPending uploads: %d\nExpires at: %s",
		status.StartedAt.Format("15:04:05"), status.Pending, status.ExpiresAt.Format("15:04:05")))
}

func (b *Bot) handleDocument(c tele.Context) error {
	doc := c.Message().Document
	if doc == nil {
		return nil
	}
	name := doc.FileName
	if name == "" {
		name = c.Message().Caption
	}
	return b.acceptUpload(c, services.PendingUpload{FileName: name, ContentRef: doc.FileID})
}

func (b *Bot) handlePhoto(c tele.Context) error {
	photo := c.Message().Photo
	if photo == nil {
		return nil
	}
	caption := c.Message().Caption
	name := caption
	if _, ok := parseTierCaption(caption); ok {
		name = ""
	}
	return b.acceptUpload(c, services.PendingUpload{FileName: imageName(name), ContentRef: photo.FileID})
}

// acceptUpload queues media into the admin's bulk session, or inserts it
// directly when captioned "tier N".
func (b *Bot) acceptUpload(c tele.Context, upload services.PendingUpload) error {
	n, err := b.svc.Sessions.Append(c.Sender().ID, upload)
	if err == nil {
		return c.Send(fmt.Sprintf("📥 %d. %s", n, upload.FileName))
	}
	if !errors.Is(err, services.ErrNoSession) {
		return err
	}

	tier, ok := parseTierCaption(c.Message().Caption)
	if !ok {
		return c.Send("Start a bulk session with /bulk_start, or caption the upload with \"tier N\".")
	}

	ctx, cancel := b.context()
	defer cancel()

	kind := models.MediaFile
	if c.Message().Photo != nil || isImageName(upload.FileName) {
		kind = models.MediaImage
	}
	artifact := &models.RewardArtifact{
		Tier:       tier,
		Kind:       kind,
		ContentRef: upload.ContentRef,
		Name:       upload.FileName,
	}
	err = b.svc.Catalog.Add(ctx, artifact)
	if errors.Is(err, services.ErrArtifactExists) {
		return c.Send(fmt.Sprintf("⚠️ Tier %d already has a %s reward. Delete it first.", tier, kind))
	}
	if err != nil {
		return err
	}
	return c.Send(fmt.Sprintf("✅ Added %s reward for tier %d (id %s).", kind, tier, artifact.ID))
}

func (b *Bot) handleRewards(c tele.Context) error {
	ctx, cancel := b.context()
	defer cancel()

	artifacts, err := b.svc.Catalog.List(ctx)
	if err != nil {
		return err
	}
	if len(artifacts) == 0 {
		return c.Send("The catalog is empty.")
	}
	for _, chunk := range chunkLines(formatCatalog(artifacts), 3500) {
		if err := c.Send(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) handleDeleteReward(c tele.Context) error {
	if len(c.Args()) != 1 {
		return c.Send("Usage: /delete_reward <id>")
	}
	ctx, cancel := b.context()
	defer cancel()

	err := b.svc.Catalog.Delete(ctx, c.Args()[0])
	if errors.Is(err, services.ErrArtifactNotFound) {
		return c.Send("🔍 Reward not found.")
	}
	if err != nil {
		return err
	}
	return c.Send("🗑 Reward deleted.")
}

func (b *Bot) handleDeleteTier(c tele.Context) error {
	tier, ok := singleIntArg(c)
	if !ok || tier < 0 {
		return c.Send("Usage: /delete_tier <tier>")
	}
	ctx, cancel := b.context()
	defer cancel()

	n, err := b.svc.Catalog.DeleteTier(ctx, tier)
	if err != nil {
		return err
	}
	return c.Send(fmt.Sprintf("🗑 %d rewards deleted from tier %d.", n, tier))
}

func (b *Bot) handleForcePost(c tele.Context) error {
	ctx, cancel := b.context()
	defer cancel()

	var tier *int64
	if len(c.Args()) > 0 {
		v, ok := singleIntArg(c)
		if !ok {
			return c.Send("Usage: /force_post [tier]")
		}
		tier = &v
	}

	post, err := b.svc.Dispatcher.ForceChannelAnnouncement(ctx, tier)
	if errors.Is(err, services.ErrEmptyCatalog) {
		return c.Send("The catalog is empty, nothing to post.")
	}
	if err != nil {
		return err
	}
	if post == nil {
		return c.Send("No content for that tier, nothing was posted.")
	}
	return c.Send(formatChannelPost(post))
}

func (b *Bot) handleFallback(c tele.Context) error {
	ctx, cancel := b.context()
	defer cancel()

	post, err := b.svc.Scheduler.RunFallbackCheck(ctx)
	if errors.Is(err, services.ErrEmptyCatalog) {
		return c.Send("A fallback post is due but the catalog is empty.")
	}
	if err != nil {
		return err
	}
	if post == nil {
		return c.Send("The channel was posted to recently, no fallback needed.")
	}
	return c.Send(formatChannelPost(post))
}

func (b *Bot) handleCommunity(c tele.Context) error {
	ctx, cancel := b.context()
	defer cancel()

	counter, err := b.svc.Community.Get(ctx)
	if err != nil {
		return err
	}
	last := "never"
	if counter.LastPostAt != nil {
		last = counter.LastPostAt.Format("2006-01-02 15:04")
	}
	return c.Send(fmt.Sprintf("👥 Community count: %d\n📣 Last channel post: %s", counter.Total, last))
}

func (b *Bot) handleSetCommunity(c tele.Context) error {
	n, ok := singleIntArg(c)
	if !ok || n < 0 {
		return c.Send("Usage: /set_community <n>")
	}
	ctx, cancel := b.context()
	defer cancel()

	if err := b.svc.Community.Set(ctx, n); err != nil {
		return err
	}
	return c.Send(fmt.Sprintf("✅ Community count set to %d.", n))
}

func (b *Bot) handleSetRefs(c tele.Context) error {
	args := c.Args()
	if len(args) != 2 {
		return c.Send("Usage: /set_refs <user id or @username> <n>")
	}
	n, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || n < 0 {
		return c.Send("Usage: /set_refs <user id or @username> <n>")
	}

	ctx, cancel := b.context()
	defer cancel()

	p, err := b.svc.Ledger.Lookup(ctx, args[0])
	if err != nil {
		return err
	}
	if err := b.svc.Ledger.SetReferrals(ctx, p.ID, n); err != nil {
		return err
	}
	return c.Send(fmt.Sprintf("✅ %s now has %d referrals.", p.Name(), n))
}

func (b *Bot) handleBlock(blocked bool) tele.HandlerFunc {
	return func(c tele.Context) error {
		if len(c.Args()) != 1 {
			return c.Send("Usage: /block <user> or /unblock <user>")
		}
		ctx, cancel := b.context()
		defer cancel()

		p, err := b.svc.Ledger.Lookup(ctx, c.Args()[0])
		if err != nil {
			return err
		}
		if err := b.svc.Ledger.SetBlocked(ctx, p.ID, blocked); err != nil {
			return err
		}
		if blocked {
			return c.Send(fmt.Sprintf("🚫 %s blocked.", p.Name()))
		}
		return c.Send(fmt.Sprintf("✅ %s unblocked.", p.Name()))
	}
}

func (b *Bot) handleBroadcast(c tele.Context) error {
	text := strings.TrimSpace(c.Message().Payload)
	if text == "" {
		return c.Send("Usage: /broadcast <text>")
	}
	adminID := c.Sender().ID
	ok := b.svc.Broadcasts.Enqueue(workers.BroadcastJob{
		Text:        text,
		RequestedBy: adminID,
		Done: func(report services.BroadcastReport, err error) {
			ctx, cancel := b.context()
			defer cancel()
			msg := fmt.Sprintf("📬 Broadcast finished: sent %d, failed %d, blocked %d of %d.",
				report.Sent, report.Failed, report.Blocked, report.Recipients)
			if err != nil {
				msg = "❌ Broadcast stopped: " + err.Error() + "\n" + msg
			}
			_, _ = b.transport.SendText(ctx, services.UserChat(adminID), msg)
		},
	})
	if !ok {
		return c.Send("⏳ Too many broadcasts queued, try again later.")
	}
	return c.Send("📤 Broadcast queued.")
}

func (b *Bot) handleSweep(c tele.Context) error {
	ctx, cancel := b.context()
	defer cancel()

	report, err := b.svc.Referral.RunMembershipSweep(ctx)
	if err != nil {
		return err
	}
	return c.Send(fmt.Sprintf("🔁 Sweep done: checked %d, credited %d, failed %d.",
		report.Checked, report.Credited, report.Failed))
}

func (b *Bot) handleBackup(c tele.Context) error {
	ctx, cancel := b.context()
	defer cancel()

	location, err := b.svc.Backup.Run(ctx)
	if errors.Is(err, services.ErrBackupDisabled) {
		return c.Send("Backups are not configured (R2 settings missing).")
	}
	if err != nil {
		return err
	}
	return c.Send("💾 Catalog saved to " + location)
}

func (b *Bot) handleStats(c tele.Context) error {
	ctx, cancel := b.context()
	defer cancel()

	stats, err := b.svc.Stats.Snapshot(ctx)
	if err != nil {
		return err
	}
	last := "never"
	if stats.LastPostAt != nil {
		last = stats.LastPostAt.Format("2006-01-02 15:04")
	}
	return c.Send(fmt.Sprintf(`📊 Stats

👤 Participants: %d
✅ Credited referrals: %d
👥 Community count: %d
🎁 Catalog size: %d
📣 Last channel post: %s`, stats.Participants, stats.CreditedReferrals, stats.CommunityCount, stats.CatalogSize, last))
}

func singleIntArg(c tele.Context) (int64, bool) {
	if len(c.Args()) != 1 {
		return 0, false
	}
	v, err := strconv.ParseInt(c.Args()[0], 10, 64)
	return v, err == nil
}
