package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"

	"github.com/dfbb/adfgvx/internal/channel"
)

const maxMessageLen = 4000

// Channel is the Feishu (Lark) adapter. Uses the WebSocket long connection.
type Channel struct {
	appID     string
	appSecret string
	allow     channel.AllowList
	inbound   chan<- channel.InboundMessage
	apiClient *lark.Client
}

func New(appID, appSecret string, allowFrom []string, inbound chan<- channel.InboundMessage) *Channel {
	return &Channel{
		appID:     appID,
		appSecret: appSecret,
		allow:     channel.NewAllowList(allowFrom),
		inbound:   inbound,
		apiClient: lark.NewClient(appID, appSecret),
	}
}

func (c *Channel) Name() string { return "feishu" }

func (c *Channel) Start(ctx context.Context) error {
	// WS mode needs neither verification token nor encrypt key.
	d := dispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(c.onMessage)

	wsClient := larkws.NewClient(c.appID, c.appSecret,
		larkws.WithEventHandler(d),
		larkws.WithLogLevel(larkcore.LogLevelWarn),
	)

	slog.Info("feishu: starting WebSocket client")
	return wsClient.Start(ctx)
}

func (c *Channel) onMessage(ctx context.Context, event *larkim.P2MessageReceiveV1) error {
	if event == nil || event.Event == nil || event.Event.Message == nil {
		return nil
	}
	ev := event.Event

	var senderID string
	if ev.Sender != nil && ev.Sender.SenderId != nil && ev.Sender.SenderId.OpenId != nil {
		senderID = *ev.Sender.SenderId.OpenId
	}
	admitted, listed := c.allow.Check(senderID)
	if !admitted {
		return nil
	}

	var chatID, content string
	if ev.Message.ChatId != nil {
		chatID = *ev.Message.ChatId
	}
	if ev.Message.Content != nil {
		content = *ev.Message.Content
	}
	text := messageText(content)
	if text == "" {
		return nil
	}

	channel.Deliver(c.inbound, channel.InboundMessage{
		Channel:       "feishu",
		ChatID:        chatID,
		SenderID:      senderID,
		Text:          text,
		PreAuthorized: listed,
	})
	return nil
}

// messageText extracts the text from a Feishu message body, which is JSON of
// the form {"text":"..."}. Non-JSON bodies are returned as-is.
func messageText(content string) string {
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return content
	}
	return payload.Text
}

// WebSocket client stops when its context is cancelled.
func (c *Channel) Stop() error { return nil }

func (c *Channel) sendChunk(receiveID, content string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType("chat_id").
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(receiveID).
			MsgType("text").
			Content(content).
			Build()).
		Build()
	resp, err := c.apiClient.Im.V1.Message.Create(ctx, req)
	if err != nil {
		return err
	}
	if resp.Code != 0 {
		return fmt.Errorf("code=%d msg=%s", resp.Code, resp.Msg)
	}
	return nil
}

func (c *Channel) Send(msg channel.OutboundMessage) error {
	if c.apiClient == nil {
		return fmt.Errorf("feishu: not started")
	}
	for _, chunk := range channel.Split(msg.Text, maxMessageLen) {
		contentBytes, err := json.Marshal(map[string]string{"text": chunk})
		if err != nil {
			return fmt.Errorf("feishu: marshal content: %w", err)
		}
		if err := c.sendChunk(msg.ChatID, string(contentBytes)); err != nil {
			return fmt.Errorf("feishu: send: %w", err)
		}
	}
	return nil
}

// Connect opens a short-lived WebSocket connection. Feishu only offers the
// long-connection event mode in its console after one successful connection.
func Connect(appID, appSecret string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	d := dispatcher.NewEventDispatcher("", "")
	wsClient := larkws.NewClient(appID, appSecret,
		larkws.WithEventHandler(d),
		larkws.WithLogLevel(larkcore.LogLevelError),
	)

	err := wsClient.Start(ctx)
	// Timing out means the connection stayed up.
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// CheckToken verifies the app credentials by fetching a tenant access token.
func CheckToken(appID, appSecret string) (string, error) {
	body := fmt.Sprintf(`{"app_id":%q,"app_secret":%q}`, appID, appSecret)
	resp, err := http.Post(
		"https://open.feishu.cn/open-apis/auth/v3/tenant_access_token/internal",
		"application/json; charset=utf-8",
		strings.NewReader(body),
	)
	if err != nil {
		return "", fmt.Errorf("feishu: %w", err)
	}
	defer resp.Body.Close()
	var r struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", fmt.Errorf("feishu: decode response: %w", err)
	}
	if r.Code != 0 {
		return "", fmt.Errorf("feishu: %s (code %d)", r.Msg, r.Code)
	}
	return "app_id=" + appID, nil
}
