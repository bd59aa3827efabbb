package telegram

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"channel-unlock-bot/config"
	"channel-unlock-bot/services"
	"channel-unlock-bot/workers"

	tele "gopkg.in/telebot.v3"
	"gopkg.in/telebot.v3/middleware"
)

const (
	referralPrefix   = "ref_"
	callbackCheck    = "check_membership"
	handlerTimeout   = 30 * time.Second
	genericErrorText = "⚠️ An error occurred, please try again later."
)

// Services bundles what the command layer calls into.
type Services struct {
	Ledger     *services.LedgerService
	Community  *services.CommunityService
	Catalog    *services.CatalogService
	Dispatcher *services.MilestoneDispatcher
	Referral   *services.ReferralEngine
	Sessions   *services.SessionRegistry
	Scheduler  *services.FallbackScheduler
	Backup     *services.BackupService
	Stats      *services.StatsService
	Broadcasts *workers.BroadcastWorker
}

// Bot is the command layer on top of the Transport.
type Bot struct {
	api       *tele.Bot
	transport *Transport
	cfg       config.TelegramConfig
	svc       Services
	baseCtx   context.Context
}

func NewBot(transport *Transport, cfg config.TelegramConfig, svc Services) *Bot {
	b := &Bot{
		api:       transport.api,
		transport: transport,
		cfg:       cfg,
		svc:       svc,
		baseCtx:   context.Background(),
	}
	transport.onError = b.onError
	svc.Sessions.OnExpire = b.onBulkExpired
	b.registerHandlers()
	return b
}

func (b *Bot) registerHandlers() {
	b.api.Handle("/start", b.handleStart)
	b.api.Handle("/help", b.handleHelp)
	b.api.Handle("/link", b.handleLink)
	b.api.Handle("/check", b.handleCheck)
	b.api.Handle("/me", b.handleMe)
	b.api.Handle("/top", b.handleTop)
	b.api.Handle(tele.OnCallback, b.handleCallback)
	b.api.Handle(tele.OnChatMember, b.handleChatMember)

	admin := b.api.Group()
	admin.Use(middleware.Whitelist(b.cfg.AdminIDs...))

	admin.Handle("/bulk_start", b.handleBulkStart)
	admin.Handle("/bulk_finish", b.handleBulkFinish)
	admin.Handle("/bulk_cancel", b.handleBulkCancel)
	admin.Handle("/bulk_status", b.handleBulkStatus)
	admin.Handle(tele.OnDocument, b.handleDocument)
	admin.Handle(tele.OnPhoto, b.handlePhoto)

	admin.Handle("/rewards", b.handleRewards)
	admin.Handle("/delete_reward", b.handleDeleteReward)
	admin.Handle("/delete_tier", b.handleDeleteTier)
	admin.Handle("/force_post", b.handleForcePost)
	admin.Handle("/fallback", b.handleFallback)
	admin.Handle("/community", b.handleCommunity)
	admin.Handle("/set_community", b.handleSetCommunity)
	admin.Handle("/set_refs", b.handleSetRefs)
	admin.Handle("/block", b.handleBlock(true))
	admin.Handle("/unblock", b.handleBlock(false))
	admin.Handle("/broadcast", b.handleBroadcast)
	admin.Handle("/sweep", b.handleSweep)
	admin.Handle("/backup", b.handleBackup)
	admin.Handle("/stats", b.handleStats)
}

// Start polls for updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	b.baseCtx = ctx
	go func() {
		<-ctx.Done()
		b.api.Stop()
	}()
	log.Printf("[Bot] polling as @%s", b.transport.Username())
	b.api.Start()
}

func (b *Bot) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(b.baseCtx, handlerTimeout)
}

func (b *Bot) onError(err error, c tele.Context) {
	log.Printf("[Bot] ❌ handler error: %v", err)
	if c == nil || c.Chat() == nil {
		return
	}
	if errors.Is(err, services.ErrParticipantNotFound) {
		_ = c.Send("🔍 User not found.")
		return
	}
	_ = c.Send(genericErrorText)
}

func (b *Bot) onBulkExpired(adminID int64, report *services.IngestReport, err error) {
	ctx, cancel := b.context()
	defer cancel()

	text := "⏰ Bulk session timed out.\n"
	if err != nil {
		text += "Ingestion failed: " + err.Error()
	} else {
		text += formatIngestReport(report)
	}
	if _, sendErr := b.transport.SendText(ctx, services.UserChat(adminID), text); sendErr != nil {
		log.Printf("[Bot] could not report expired session to %d: %v", adminID, sendErr)
	}
}

// isConfiguredChannel matches an update's chat against CHANNEL_ID.
func isConfiguredChannel(channelID string, chat *tele.Chat) bool {
	if chat == nil {
		return false
	}
	if strings.HasPrefix(channelID, "@") {
		return strings.EqualFold(strings.TrimPrefix(channelID, "@"), chat.Username)
	}
	return channelID == strconv.FormatInt(chat.ID, 10)
}

// channelLink is the public URL of the channel, empty for private ids.
func channelLink(channelID string) string {
	if strings.HasPrefix(channelID, "@") {
		return "https://t.me/" + strings.TrimPrefix(channelID, "@")
	}
	return ""
}
