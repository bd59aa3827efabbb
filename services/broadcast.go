package services

import (
	"context"
	"errors"
	"log"
	"time"
)

type BroadcastReport struct {
	Recipients int
	Sent       int
	Failed     int
	Blocked    int
}

// BroadcastService sends one text to every participant who has not blocked
// the bot, pausing Delay between sends to stay under Telegram rate limits.
type BroadcastService struct {
	Ledger    *LedgerService
	Messenger Messenger
	Delay     time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

func NewBroadcastService(ledger *LedgerService, messenger Messenger, delay time.Duration) *BroadcastService {
	return &BroadcastService{Ledger: ledger, Messenger: messenger, Delay: delay, sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send delivers text to all recipients. One failed recipient never aborts the rest.
func (b *BroadcastService) Send(ctx context.Context, text string) (BroadcastReport, error) {
	var report BroadcastReport
	ids, err := b.Ledger.Recipients(ctx)
	if err != nil {
		return report, err
	}
	report.Recipients = len(ids)

	for i, id := range ids {
		if i > 0 {
			if err := b.sleep(ctx, b.Delay); err != nil {
				return report, err
			}
		}
		_, err := b.Messenger.SendText(ctx, UserChat(id), text)
		switch {
		case err == nil:
			report.Sent++
		case errors.Is(err, ErrRecipientBlocked):
			report.Blocked++
			if err := b.Ledger.SetBlocked(ctx, id, true); err != nil {
				log.Printf("[Broadcast] ⚠️ could not mark %d blocked: %v", id, err)
			}
		default:
			report.Failed++
			log.Printf("[Broadcast] ❌ send to %d: %v", id, err)
		}
	}
	log.Printf("[Broadcast] done: sent=%d failed=%d blocked=%d of %d", report.Sent, report.Failed, report.Blocked, report.Recipients)
	return report, nil
}
