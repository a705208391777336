package notify

import (
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier sends operational alerts to the admin chat. A nil *Notifier is
// valid and drops everything, so callers never have to branch on config.
type Notifier struct {
	api       *tgbotapi.BotAPI
	log       *slog.Logger
	adminChat int64
}

func New(token string, adminChatID int64, log *slog.Logger) (*Notifier, error) {
	if token == "" || adminChatID == 0 {
		return nil, nil
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Notifier{api: api, log: log, adminChat: adminChatID}, nil
}

func (n *Notifier) Alert(text string) {
	if n == nil {
		return
	}
	msg := tgbotapi.NewMessage(n.adminChat, text)
	if _, err := n.api.Send(msg); err != nil {
		n.log.Error("notify: send failed", "err", err)
	}
}
