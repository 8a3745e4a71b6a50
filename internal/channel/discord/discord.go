package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dfbb/adfgvx/internal/channel"
)

const (
	gatewayURL    = "wss://gateway.discord.gg/?v=10&encoding=json"
	apiBase       = "https://discord.com/api/v10"
	maxMessageLen = 2000

	opDispatch  = 0
	opHeartbeat = 1
	opIdentify  = 2
	opHello     = 10

	// GUILD_MESSAGES | DIRECT_MESSAGES | MESSAGE_CONTENT
	intents = 1<<9 | 1<<12 | 1<<15
)

type payload struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
	S  *int            `json:"s"`
	T  *string         `json:"t"`
}

type messageCreate struct {
	Content string `json:"content"`
	Author  struct {
		ID  string `json:"id"`
		Bot bool   `json:"bot"`
	} `json:"author"`
	ChannelID string `json:"channel_id"`
}

// Channel is the Discord adapter. Uses the Discord Gateway WebSocket.
type Channel struct {
	token   string
	allow   channel.AllowList
	inbound chan<- channel.InboundMessage

	mu    sync.Mutex
	ws    *websocket.Conn
	seq   int
	botID string
}

func New(token string, allowFrom []string, inbound chan<- channel.InboundMessage) *Channel {
	return &Channel{token: token, allow: channel.NewAllowList(allowFrom), inbound: inbound}
}

func (c *Channel) Name() string { return "discord" }

func (c *Channel) Start(ctx context.Context) error {
	for {
		if err := c.connect(ctx); err != nil {
			slog.Error("discord connection error", "err", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(5 * time.Second):
			slog.Info("discord reconnecting...")
		}
	}
}

func (c *Channel) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, gatewayURL, nil)
	if err != nil {
		return fmt.Errorf("discord: dial: %w", err)
	}
	c.mu.Lock()
	c.ws = conn
	c.mu.Unlock()
	defer func() {
		conn.Close()
		c.mu.Lock()
		c.ws = nil
		c.mu.Unlock()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var p payload
		if err := json.Unmarshal(raw, &p); err != nil {
			continue
		}
		if p.S != nil {
			c.mu.Lock()
			c.seq = *p.S
			c.mu.Unlock()
		}

		switch p.Op {
		case opHello:
			var hello struct {
				HeartbeatInterval int `json:"heartbeat_interval"`
			}
			if err := json.Unmarshal(p.D, &hello); err != nil {
				return fmt.Errorf("discord: hello: %w", err)
			}
			go c.heartbeat(ctx, conn, time.Duration(hello.HeartbeatInterval)*time.Millisecond)
			if err := c.identify(conn); err != nil {
				return err
			}
		case opDispatch:
			if p.T == nil {
				continue
			}
			switch *p.T {
			case "READY":
				var ready struct {
					User struct {
						ID       string `json:"id"`
						Username string `json:"username"`
					} `json:"user"`
				}
				json.Unmarshal(p.D, &ready)
				c.mu.Lock()
				c.botID = ready.User.ID
				c.mu.Unlock()
				slog.Info("discord connected", "bot", ready.User.Username)
			case "MESSAGE_CREATE":
				c.handleMessage(p.D)
			}
		}
	}
}

func (c *Channel) identify(conn *websocket.Conn) error {
	data, _ := json.Marshal(map[string]any{
		"op": opIdentify,
		"d": map[string]any{
			"token":   c.token,
			"intents": intents,
			"properties": map[string]string{
				"os": "linux", "browser": "adfgvx", "device": "adfgvx",
			},
		},
	})
	c.mu.Lock()
	defer c.mu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Channel) heartbeat(ctx context.Context, conn *websocket.Conn, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.mu.Lock()
			if c.ws != conn {
				c.mu.Unlock()
				return
			}
			data, _ := json.Marshal(map[string]any{"op": opHeartbeat, "d": c.seq})
			err := conn.WriteMessage(websocket.TextMessage, data)
			c.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (c *Channel) handleMessage(d json.RawMessage) {
	var msg messageCreate
	if err := json.Unmarshal(d, &msg); err != nil || msg.Content == "" {
		return
	}
	c.mu.Lock()
	botID := c.botID
	c.mu.Unlock()
	if msg.Author.Bot || msg.Author.ID == botID {
		return
	}
	admitted, listed := c.allow.Check(msg.Author.ID)
	if !admitted {
		return
	}
	channel.Deliver(c.inbound, channel.InboundMessage{
		Channel:       "discord",
		ChatID:        msg.ChannelID,
		SenderID:      msg.Author.ID,
		Text:          msg.Content,
		PreAuthorized: listed,
	})
}

func (c *Channel) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ws != nil {
		c.ws.Close()
	}
	return nil
}

func (c *Channel) Send(msg channel.OutboundMessage) error {
	url := fmt.Sprintf("%s/channels/%s/messages", apiBase, msg.ChatID)
	for _, chunk := range channel.Split(msg.Text, maxMessageLen) {
		body, _ := json.Marshal(map[string]string{"content": chunk})
		req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("discord: %w", err)
		}
		req.Header.Set("Authorization", "Bot "+c.token)
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return fmt.Errorf("discord: send: %w", err)
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			time.Sleep(1 * time.Second)
		}
	}
	return nil
}

// CheckToken verifies the bot token by calling the Discord API.
func CheckToken(token string) (string, error) {
	req, _ := http.NewRequest(http.MethodGet, apiBase+"/users/@me", nil)
	req.Header.Set("Authorization", "Bot "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	var u struct {
		Username string `json:"username"`
	}
	json.NewDecoder(resp.Body).Decode(&u)
	return "@" + u.Username, nil
}
