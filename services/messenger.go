package services

import (
	"context"
	"log"
	"strconv"

	"channel-unlock-bot/models"
)

// Messenger is the transport the core talks to. Send methods return the
// transport message id. Implementations report a recipient that blocked
// the bot (or deleted the account) as ErrRecipientBlocked.
type Messenger interface {
	SendText(ctx context.Context, chat, text string) (int, error)
	SendPhoto(ctx context.Context, chat, fileRef, caption string) (int, error)
	SendDocument(ctx context.Context, chat, fileRef, caption string) (int, error)
	MemberStatus(ctx context.Context, channel string, userID int64) (models.MemberStatus, error)
}

// UserChat addresses a private chat with a participant.
func UserChat(id int64) string {
	return strconv.FormatInt(id, 10)
}

// notify delivers a best-effort message: failures are logged and discarded, never retried.
func notify(ctx context.Context, m Messenger, chat, text string) {
	if _, err := m.SendText(ctx, chat, text); err != nil {
		log.Printf("[Notify] ⚠️ message to %s dropped: %v", chat, err)
	}
}
