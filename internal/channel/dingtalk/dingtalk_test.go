package dingtalk

import (
	"context"
	"testing"

	"github.com/open-dingtalk/dingtalk-stream-sdk-go/chatbot"

	"github.com/dfbb/adfgvx/internal/channel"
)

func TestOnMessage_StoresWebhook(t *testing.T) {
	inbound := make(chan channel.InboundMessage, 1)
	c := New("id", "secret", nil, inbound)

	data := &chatbot.BotCallbackDataModel{
		ConversationId: "cid1",
		SenderStaffId:  "staff1",
		SessionWebhook: "https://oapi.dingtalk.com/robot/sendBySession?session=x",
	}
	data.Text.Content = " LUCAS "
	c.onMessage(context.Background(), data)

	got := <-inbound
	if got.ChatID != "cid1" || got.SenderID != "staff1" || got.Text != "LUCAS" {
		t.Errorf("got %+v", got)
	}
	if got.PreAuthorized {
		t.Error("open channel should not pre-authorize senders")
	}
	if c.webhooks["cid1"] != data.SessionWebhook {
		t.Errorf("webhook not stored: %v", c.webhooks)
	}
}

func TestSend_NoWebhook(t *testing.T) {
	c := New("id", "secret", nil, make(chan channel.InboundMessage, 1))
	if err := c.Send(channel.OutboundMessage{Channel: "dingtalk", ChatID: "unknown", Text: "x"}); err == nil {
		t.Error("expected error without a session webhook")
	}
}
