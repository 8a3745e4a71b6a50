package slack

import (
	"context"
	"fmt"
	"log/slog"

	goslack "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/dfbb/adfgvx/internal/channel"
)

const maxMessageLen = 3000

// Channel is the Slack adapter. Uses Socket Mode (no public URL required).
type Channel struct {
	botToken string
	appToken string
	allow    channel.AllowList
	inbound  chan<- channel.InboundMessage
	client   *goslack.Client
}

func New(botToken, appToken string, allowFrom []string, inbound chan<- channel.InboundMessage) *Channel {
	return &Channel{
		botToken: botToken,
		appToken: appToken,
		allow:    channel.NewAllowList(allowFrom),
		inbound:  inbound,
	}
}

func (c *Channel) Name() string { return "slack" }

func (c *Channel) Start(ctx context.Context) error {
	api := goslack.New(c.botToken, goslack.OptionAppLevelToken(c.appToken))
	c.client = api
	sm := socketmode.New(api)

	go func() {
		for evt := range sm.Events {
			if evt.Type != socketmode.EventTypeEventsAPI {
				continue
			}
			sm.Ack(*evt.Request)
			eventsAPI, ok := evt.Data.(slackevents.EventsAPIEvent)
			if !ok {
				continue
			}
			if eventsAPI.Type == slackevents.CallbackEvent {
				c.handleInner(eventsAPI.InnerEvent)
			}
		}
	}()

	authTest, err := api.AuthTest()
	if err != nil {
		return fmt.Errorf("slack: auth: %w", err)
	}
	slog.Info("slack connected", "bot", authTest.User, "team", authTest.Team)
	return sm.RunContext(ctx)
}

func (c *Channel) handleInner(event slackevents.EventsAPIInnerEvent) {
	ev, ok := event.Data.(*slackevents.MessageEvent)
	if !ok || ev.BotID != "" || ev.SubType != "" {
		return
	}
	admitted, listed := c.allow.Check(ev.User)
	if !admitted {
		return
	}
	channel.Deliver(c.inbound, channel.InboundMessage{
		Channel:       "slack",
		ChatID:        ev.Channel,
		SenderID:      ev.User,
		Text:          ev.Text,
		PreAuthorized: listed,
	})
}

func (c *Channel) Stop() error { return nil }

func (c *Channel) Send(msg channel.OutboundMessage) error {
	if c.client == nil {
		return nil
	}
	for _, chunk := range channel.Split(msg.Text, maxMessageLen) {
		if _, _, err := c.client.PostMessage(msg.ChatID,
			goslack.MsgOptionText(chunk, false),
		); err != nil {
			return fmt.Errorf("slack: post: %w", err)
		}
	}
	return nil
}

// CheckToken verifies the bot token via Slack's auth.test API.
func CheckToken(botToken string) (string, error) {
	api := goslack.New(botToken)
	auth, err := api.AuthTest()
	if err != nil {
		return "", err
	}
	return auth.User + " (" + auth.Team + ")", nil
}
