package dingtalk

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/open-dingtalk/dingtalk-stream-sdk-go/chatbot"
	"github.com/open-dingtalk/dingtalk-stream-sdk-go/client"

	"github.com/dfbb/adfgvx/internal/channel"
)

const maxMessageLen = 4000

// Channel is the DingTalk adapter. Uses the DingTalk Stream SDK (WebSocket).
// Replies go to the session webhook carried by the last inbound message of
// each conversation.
type Channel struct {
	clientID     string
	clientSecret string
	allow        channel.AllowList
	inbound      chan<- channel.InboundMessage
	cli          *client.StreamClient
	replier      *chatbot.ChatbotReplier

	mu       sync.Mutex
	webhooks map[string]string // conversation ID → session webhook
}

func New(clientID, clientSecret string, allowFrom []string, inbound chan<- channel.InboundMessage) *Channel {
	return &Channel{
		clientID:     clientID,
		clientSecret: clientSecret,
		allow:        channel.NewAllowList(allowFrom),
		inbound:      inbound,
		replier:      chatbot.NewChatbotReplier(),
		webhooks:     make(map[string]string),
	}
}

func (c *Channel) Name() string { return "dingtalk" }

func (c *Channel) Start(ctx context.Context) error {
	c.cli = client.NewStreamClient(
		client.WithAppCredential(client.NewAppCredentialConfig(c.clientID, c.clientSecret)),
	)
	c.cli.RegisterChatBotCallbackRouter(c.onMessage)

	slog.Info("dingtalk: starting stream client")
	if err := c.cli.Start(ctx); err != nil {
		return fmt.Errorf("dingtalk: %w", err)
	}
	// Start does not block.
	<-ctx.Done()
	return nil
}

func (c *Channel) onMessage(ctx context.Context, data *chatbot.BotCallbackDataModel) ([]byte, error) {
	if data == nil {
		return nil, nil
	}
	text := strings.TrimSpace(data.Text.Content)
	if text == "" {
		return nil, nil
	}
	admitted, listed := c.allow.Check(data.SenderStaffId, data.SenderId)
	if !admitted {
		return nil, nil
	}
	if data.SessionWebhook != "" {
		c.mu.Lock()
		c.webhooks[data.ConversationId] = data.SessionWebhook
		c.mu.Unlock()
	}

	senderID := data.SenderStaffId
	if senderID == "" {
		senderID = data.SenderId
	}
	channel.Deliver(c.inbound, channel.InboundMessage{
		Channel:       "dingtalk",
		ChatID:        data.ConversationId,
		SenderID:      senderID,
		Text:          text,
		PreAuthorized: listed,
	})
	return nil, nil
}

func (c *Channel) Stop() error {
	if c.cli != nil {
		c.cli.Close()
	}
	return nil
}

// CheckToken verifies the app credentials by requesting an access token.
func CheckToken(clientID, clientSecret string) (string, error) {
	q := url.Values{"appkey": {clientID}, "appsecret": {clientSecret}}
	resp, err := http.Get("https://oapi.dingtalk.com/gettoken?" + q.Encode())
	if err != nil {
		return "", fmt.Errorf("dingtalk: %w", err)
	}
	defer resp.Body.Close()
	var r struct {
		ErrCode int    `json:"errcode"`
		ErrMsg  string `json:"errmsg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", fmt.Errorf("dingtalk: decode response: %w", err)
	}
	if r.ErrCode != 0 {
		return "", fmt.Errorf("dingtalk: %s (code %d)", r.ErrMsg, r.ErrCode)
	}
	return "client_id=" + clientID, nil
}

func (c *Channel) Send(msg channel.OutboundMessage) error {
	c.mu.Lock()
	webhook := c.webhooks[msg.ChatID]
	c.mu.Unlock()
	if webhook == "" {
		return fmt.Errorf("dingtalk: no session webhook for conversation %q", msg.ChatID)
	}
	for _, chunk := range channel.Split(msg.Text, maxMessageLen) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := c.replier.SimpleReplyText(ctx, webhook, []byte(chunk))
		cancel()
		if err != nil {
			return fmt.Errorf("dingtalk: reply: %w", err)
		}
	}
	return nil
}
