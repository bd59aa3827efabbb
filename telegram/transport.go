package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"channel-unlock-bot/config"
	"channel-unlock-bot/models"
	"channel-unlock-bot/services"
	"channel-unlock-bot/utils"

	tele "gopkg.in/telebot.v3"
)

// chatRef addresses a chat by numeric id or @username.
type chatRef string

func (c chatRef) Recipient() string { return string(c) }

// Transport is the telebot-backed services.Messenger.
type Transport struct {
	api      *tele.Bot
	username string
	onError  func(error, tele.Context)
}

func NewTransport(cfg config.TelegramConfig) (*Transport, error) {
	t := &Transport{username: cfg.BotUsername}
	pref := tele.Settings{
		Token:  cfg.BotToken,
		Client: utils.HTTPClient,
		Poller: &tele.LongPoller{
			Timeout:        60 * time.Second,
			AllowedUpdates: []string{"message", "callback_query", "chat_member"},
		},
		// One update at a time, in arrival order.
		Synchronous: true,
		OnError: func(err error, c tele.Context) {
			if t.onError != nil {
				t.onError(err, c)
				return
			}
			log.Printf("[Bot] ❌ %v", err)
		},
	}

	api, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	t.api = api
	if t.username == "" && api.Me != nil {
		t.username = api.Me.Username
	}
	return t, nil
}

// Username is the bot handle used in invite links.
func (t *Transport) Username() string {
	return t.username
}

// InviteLink builds the deep link that registers token as the recruiter.
func (t *Transport) InviteLink(token string) string {
	return inviteLink(t.username, token)
}

func inviteLink(username, token string) string {
	if token == "" {
		return "https://t.me/" + username
	}
	return "https://t.me/" + username + "?start=" + referralPrefix + token
}

func (t *Transport) SendText(ctx context.Context, chat, text string) (int, error) {
	return t.send(chat, text)
}

func (t *Transport) SendPhoto(ctx context.Context, chat, fileRef, caption string) (int, error) {
	return t.send(chat, &tele.Photo{File: tele.File{FileID: fileRef}, Caption: caption})
}

func (t *Transport) SendDocument(ctx context.Context, chat, fileRef, caption string) (int, error) {
	return t.send(chat, &tele.Document{File: tele.File{FileID: fileRef}, Caption: caption})
}

func (t *Transport) send(chat string, what interface{}) (int, error) {
	msg, err := t.api.Send(chatRef(chat), what)
	if err != nil {
		return 0, mapSendError(err)
	}
	return msg.ID, nil
}

func (t *Transport) MemberStatus(ctx context.Context, channel string, userID int64) (models.MemberStatus, error) {
	member, err := t.api.ChatMemberOf(chatRef(channel), &tele.User{ID: userID})
	if err != nil {
		if isUserNotFound(err) {
			return models.MemberNotFound, nil
		}
		return "", err
	}
	return memberStatus(member), nil
}

func mapSendError(err error) error {
	if errors.Is(err, tele.ErrBlockedByUser) || errors.Is(err, tele.ErrUserIsDeactivated) {
		return fmt.Errorf("%w: %v", services.ErrRecipientBlocked, err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "bot was blocked") || strings.Contains(msg, "user is deactivated") {
		return fmt.Errorf("%w: %v", services.ErrRecipientBlocked, err)
	}
	return err
}

func isUserNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "user not found") ||
		strings.Contains(msg, "participant_id_invalid") ||
		strings.Contains(msg, "member not found")
}

func memberStatus(m *tele.ChatMember) models.MemberStatus {
	if m == nil {
		return models.MemberNotFound
	}
	switch m.Role {
	case tele.Creator:
		return models.MemberCreator
	case tele.Administrator:
		return models.MemberAdministrator
	case tele.Member:
		return models.MemberMember
	case tele.Restricted:
		// Restricted users still count while they are in the chat.
		if m.Member {
			return models.MemberMember
		}
		return models.MemberLeft
	case tele.Kicked:
		return models.MemberKicked
	case tele.Left:
		return models.MemberLeft
	}
	return models.MemberNotFound
}
