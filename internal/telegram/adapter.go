// internal/telegram/adapter.go
package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/auditrelay/internal/inspector"
	"github.com/user/auditrelay/internal/types"
)

// Handler consumes inbound events one at a time.
type Handler interface {
	Handle(ctx context.Context, event *types.InboundEvent)
}

// Adapter bridges Telegram to the audit pipeline. It owns the long-poll
// loop and implements the backend-facing collaborator interfaces
// (inspector.MemberClient, types.ImageFetcher, types.Replier,
// forwarder.Sender).
type Adapter struct {
	bot    *tgbotapi.BotAPI
	client *http.Client
}

// New creates a Telegram adapter.
func New(token string) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return &Adapter{
		bot:    bot,
		client: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Start begins long-polling for Telegram updates. Events are dispatched to
// the handler one at a time; Start returns when the context is cancelled.
func (a *Adapter) Start(ctx context.Context, handler Handler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := a.bot.GetUpdatesChan(u)

	for {
		select {
		case update := <-updates:
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			if update.Message.From == nil {
				// Channel posts and anonymous admins carry no human sender.
				continue
			}
			event := buildEvent(update.Message)
			if event == nil {
				continue
			}
			handler.Handle(ctx, event)
		case <-ctx.Done():
			a.bot.StopReceivingUpdates()
			return
		}
	}
}

// buildEvent converts a Telegram message into an InboundEvent. Returns nil
// for chat types outside the audit scope (channels).
func buildEvent(msg *tgbotapi.Message) *types.InboundEvent {
	sender := types.PrivateUser{
		ID:            msg.From.ID,
		DisplayName:   displayName(msg.From),
		MentionHandle: mentionHandle(msg.From.ID),
		// Updates do not say whether the sender has a profile photo;
		// assume present and let the download fall back.
		HasProfileImage: true,
	}
	event := &types.InboundEvent{
		Sender:    sender,
		Text:      msg.Text,
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
	}
	switch {
	case msg.Chat.IsPrivate():
		event.Kind = types.OriginPrivate
	case msg.Chat.IsGroup() || msg.Chat.IsSuperGroup():
		event.Kind = types.OriginGroup
		event.Group = &types.GroupChat{
			ID:          msg.Chat.ID,
			Title:       msg.Chat.Title,
			InviteLink:  msg.Chat.InviteLink,
			MessageLink: messageLink(msg),
		}
	default:
		return nil
	}
	return event
}

func displayName(user *tgbotapi.User) string {
	return strings.TrimSpace(strings.TrimSpace(user.FirstName) + " " + strings.TrimSpace(user.LastName))
}

// mentionHandle builds a deep-link mention labelled with the numeric ID.
func mentionHandle(userID int64) string {
	return fmt.Sprintf("[%d](tg://user?id=%d)", userID, userID)
}

// messageLink returns the public permalink for messages in supergroups with
// a username, or "" when the chat has none.
func messageLink(msg *tgbotapi.Message) string {
	if msg.Chat.UserName == "" {
		return ""
	}
	return fmt.Sprintf("https://t.me/%s/%d", msg.Chat.UserName, msg.MessageID)
}

// SelfMember implements inspector.MemberClient using getChatMember for the
// bot's own account.
func (a *Adapter) SelfMember(ctx context.Context, chatID int64) (inspector.Member, error) {
	member, err := a.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chatID,
			UserID: a.bot.Self.ID,
		},
	})
	if err != nil {
		return inspector.Member{}, err
	}
	return inspector.Member{
		Status:             member.Status,
		CustomTitle:        member.CustomTitle,
		CanChangeInfo:      member.CanChangeInfo,
		CanDeleteMessages:  member.CanDeleteMessages,
		CanPinMessages:     member.CanPinMessages,
		CanInviteUsers:     member.CanInviteUsers,
		CanRestrictMembers: member.CanRestrictMembers,
		CanPromoteMembers:  member.CanPromoteMembers,
	}, nil
}

// FetchProfileImage implements types.ImageFetcher: resolve the sender's
// current profile photo, pick the largest size, and download the bytes.
// A user without photos yields nil bytes and no error.
func (a *Adapter) FetchProfileImage(ctx context.Context, userID int64) ([]byte, error) {
	photos, err := a.bot.GetUserProfilePhotos(tgbotapi.NewUserProfilePhotos(userID))
	if err != nil {
		return nil, fmt.Errorf("get profile photos: %w", err)
	}
	if photos.TotalCount == 0 || len(photos.Photos) == 0 || len(photos.Photos[0]) == 0 {
		return nil, nil
	}
	best := pickLargest(photos.Photos[0])

	url, err := a.bot.GetFileDirectURL(best.FileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download profile photo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download profile photo status: %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read profile photo: %w", err)
	}
	return data, nil
}

func pickLargest(sizes []tgbotapi.PhotoSize) tgbotapi.PhotoSize {
	best := sizes[0]
	for _, item := range sizes[1:] {
		if item.Width*item.Height > best.Width*best.Height {
			best = item
		}
	}
	return best
}

// SendText implements half of forwarder.Sender.
func (a *Adapter) SendText(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := a.bot.Send(msg); err != nil {
		// Retry without markdown if formatting is what Telegram rejected.
		msg.ParseMode = ""
		if _, err := a.bot.Send(msg); err != nil {
			return err
		}
	}
	return nil
}

// SendImage implements the other half of forwarder.Sender.
func (a *Adapter) SendImage(ctx context.Context, chatID int64, image []byte, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "profile.jpg", Bytes: image})
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeMarkdown
	if _, err := a.bot.Send(photo); err != nil {
		photo.ParseMode = ""
		if _, err := a.bot.Send(photo); err != nil {
			return err
		}
	}
	return nil
}

// Reply implements types.Replier.
func (a *Adapter) Reply(ctx context.Context, chatID int64, messageID int, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyToMessageID = messageID
	_, err := a.bot.Send(msg)
	return err
}
