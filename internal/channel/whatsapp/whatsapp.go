package whatsapp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
	_ "modernc.org/sqlite"

	"github.com/dfbb/adfgvx/internal/channel"
)

const maxMessageLen = 4000

type Channel struct {
	sessionDir string
	allow      channel.AllowList
	inbound    chan<- channel.InboundMessage
	client     *whatsmeow.Client
}

func New(sessionDir string, allowFrom []string, inbound chan<- channel.InboundMessage) *Channel {
	if sessionDir == "" {
		sessionDir = DefaultSessionDir()
	}
	return &Channel{sessionDir: sessionDir, allow: channel.NewAllowList(allowFrom), inbound: inbound}
}

// DefaultSessionDir is where the paired device is stored when no
// session_dir is configured.
func DefaultSessionDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".adfgvx", "whatsapp")
}

// SessionDB returns the path of the session database inside dir.
func SessionDB(dir string) string {
	return filepath.Join(dir, "session.db")
}

func (c *Channel) Name() string { return "whatsapp" }

func (c *Channel) Start(ctx context.Context) error {
	if err := os.MkdirAll(c.sessionDir, 0700); err != nil {
		return fmt.Errorf("whatsapp: session dir: %w", err)
	}

	// sqlstore requires foreign keys.
	dsn := "file:" + SessionDB(c.sessionDir) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	container, err := sqlstore.New(ctx, "sqlite", dsn, nil)
	if err != nil {
		return fmt.Errorf("whatsapp store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return fmt.Errorf("whatsapp device: %w", err)
	}

	c.client = whatsmeow.NewClient(deviceStore, nil)
	c.client.AddEventHandler(c.eventHandler)

	if c.client.Store.ID == nil {
		qrChan, _ := c.client.GetQRChannel(ctx)
		if err := c.client.Connect(); err != nil {
			return fmt.Errorf("whatsapp: connect: %w", err)
		}
		for evt := range qrChan {
			if evt.Event != "code" {
				slog.Info("whatsapp QR event", "event", evt.Event)
				break
			}
			fmt.Fprintln(os.Stderr, "\nScan with WhatsApp -> Linked Devices -> Link a Device")
			qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, os.Stderr)
		}
	} else if err := c.client.Connect(); err != nil {
		return fmt.Errorf("whatsapp: connect: %w", err)
	}

	slog.Info("whatsapp connected", "jid", c.client.Store.ID)
	<-ctx.Done()
	c.client.Disconnect()
	return nil
}

func (c *Channel) eventHandler(evt any) {
	v, ok := evt.(*events.Message)
	if !ok || v.Info.IsFromMe || v.Message == nil {
		return
	}
	text := v.Message.GetConversation()
	if text == "" {
		text = v.Message.GetExtendedTextMessage().GetText()
	}
	if text == "" {
		return
	}
	senderID := v.Info.Sender.String()
	admitted, listed := c.allow.Check(senderID, v.Info.Sender.User)
	if !admitted {
		return
	}
	channel.Deliver(c.inbound, channel.InboundMessage{
		Channel:       "whatsapp",
		ChatID:        v.Info.Chat.String(),
		SenderID:      senderID,
		Text:          text,
		PreAuthorized: listed,
	})
}

func (c *Channel) Stop() error {
	if c.client != nil {
		c.client.Disconnect()
	}
	return nil
}

func (c *Channel) Send(msg channel.OutboundMessage) error {
	if c.client == nil {
		return fmt.Errorf("whatsapp: not connected")
	}
	jid, err := types.ParseJID(msg.ChatID)
	if err != nil {
		return fmt.Errorf("whatsapp: chat ID %q: %w", msg.ChatID, err)
	}
	for _, chunk := range channel.Split(msg.Text, maxMessageLen) {
		if _, err := c.client.SendMessage(context.Background(), jid, &waE2E.Message{
			Conversation: proto.String(chunk),
		}); err != nil {
			return fmt.Errorf("whatsapp: send: %w", err)
		}
	}
	return nil
}
