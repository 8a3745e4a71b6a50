package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dfbb/adfgvx/internal/channel"
)

const maxMessageLen = 4000

// Channel is the Telegram adapter. Uses HTTP long polling.
type Channel struct {
	token       string
	allow       channel.AllowList
	bot         *tgbotapi.BotAPI
	inbound     chan<- channel.InboundMessage
	onFirstUser func(string) // called once with the first sender ID when allow is empty

	mu       sync.Mutex
	lockedID string
}

// New creates a Telegram adapter. With an empty allowFrom the first sender is
// locked in and reported through onFirstUser so the caller can persist it.
func New(token string, allowFrom []string, onFirstUser func(string), inbound chan<- channel.InboundMessage) *Channel {
	allow := channel.NewAllowList(allowFrom)
	if len(allow) > 0 {
		onFirstUser = nil
	}
	return &Channel{token: token, allow: allow, onFirstUser: onFirstUser, inbound: inbound}
}

func (c *Channel) Name() string { return "telegram" }

func (c *Channel) Start(ctx context.Context) error {
	bot, err := tgbotapi.NewBotAPI(c.token)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	c.bot = bot
	slog.Info("telegram connected", "bot", bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			c.handleMessage(update.Message.From.ID, update.Message.From.UserName, update.Message.Chat.ID, update.Message.Text)
		}
	}
}

func (c *Channel) handleMessage(fromID int64, userName string, chatID int64, text string) {
	if text == "" {
		return // stickers, photos, voice
	}
	senderID := strconv.FormatInt(fromID, 10)
	if !c.admit(senderID, userName) {
		return
	}
	channel.Deliver(c.inbound, channel.InboundMessage{
		Channel:       "telegram",
		ChatID:        strconv.FormatInt(chatID, 10),
		SenderID:      senderID,
		Text:          text,
		PreAuthorized: true,
	})
}

// admit applies the static allow list, or locks the bot to its first sender.
func (c *Channel) admit(senderID, userName string) bool {
	if len(c.allow) > 0 {
		ok, _ := c.allow.Check(senderID, userName)
		return ok
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.lockedID {
	case "":
		c.lockedID = senderID
		slog.Info("telegram: locked to first user", "senderID", senderID)
		if c.onFirstUser != nil {
			go c.onFirstUser(senderID)
		}
		return true
	case senderID:
		return true
	default:
		slog.Warn("telegram: ignoring message from non-locked user", "senderID", senderID, "lockedID", c.lockedID)
		return false
	}
}

func (c *Channel) Stop() error {
	if c.bot != nil {
		c.bot.StopReceivingUpdates()
	}
	return nil
}

func (c *Channel) Send(msg channel.OutboundMessage) error {
	if c.bot == nil {
		return fmt.Errorf("telegram: not connected")
	}
	chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: invalid chat ID %q: %w", msg.ChatID, err)
	}
	for _, chunk := range channel.Split(msg.Text, maxMessageLen) {
		m := tgbotapi.NewMessage(chatID, chunk)
		m.ParseMode = "Markdown"
		if _, err := c.bot.Send(m); err != nil {
			// Retry without markdown on parse error
			m.ParseMode = ""
			if _, err2 := c.bot.Send(m); err2 != nil {
				return fmt.Errorf("telegram: send: %w", err2)
			}
		}
	}
	return nil
}

// CheckToken verifies the bot token and returns the bot username.
func CheckToken(token string) (string, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return "", err
	}
	return "@" + bot.Self.UserName, nil
}
