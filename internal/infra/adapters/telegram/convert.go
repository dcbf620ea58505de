package telegram

import (
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"group-broadcast-gateway/internal/application"
)

// toInbound keeps text messages from humans and drops everything else.
func toInbound(up tgbotapi.Update) (application.InboundMessage, bool) {
	msg := up.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || msg.From.IsBot {
		return application.InboundMessage{}, false
	}
	if strings.TrimSpace(msg.Text) == "" {
		return application.InboundMessage{}, false
	}
	return application.InboundMessage{
		SenderID:   strconv.FormatInt(msg.From.ID, 10),
		SenderName: displayName(msg.From),
		ChatID:     strconv.FormatInt(msg.Chat.ID, 10),
		ChatTitle:  msg.Chat.Title,
		IsGroup:    msg.Chat.IsGroup() || msg.Chat.IsSuperGroup(),
		Text:       msg.Text,
	}, true
}

func displayName(u *tgbotapi.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	if u.UserName != "" {
		return "@" + u.UserName
	}
	return strconv.FormatInt(u.ID, 10)
}
