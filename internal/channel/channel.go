package channel

import (
	"context"
	"log/slog"
	"strings"
)

// Channel is implemented by each IM platform adapter.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Send(msg OutboundMessage) error
}

type InboundMessage struct {
	Channel  string
	ChatID   string
	SenderID string
	Text     string
	// PreAuthorized is set when the sender matched a configured allow list,
	// so the router skips its activation gate.
	PreAuthorized bool
}

type OutboundMessage struct {
	Channel string
	ChatID  string
	Text    string
}

// Manager runs all channels and routes outbound messages.
type Manager struct {
	channels map[string]Channel
	inbound  chan<- InboundMessage
	outbound <-chan OutboundMessage
}

func NewManager(inbound chan<- InboundMessage, outbound <-chan OutboundMessage) *Manager {
	return &Manager{
		channels: make(map[string]Channel),
		inbound:  inbound,
		outbound: outbound,
	}
}

func (m *Manager) Register(ch Channel) {
	m.channels[ch.Name()] = ch
}

// Names returns the registered channel names.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	return names
}

// Run starts all channels and dispatches outbound messages. Blocks until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	for _, ch := range m.channels {
		go func(c Channel) {
			if err := c.Start(ctx); err != nil {
				slog.Error("channel error", "channel", c.Name(), "err", err)
			}
		}(ch)
	}
	for {
		select {
		case <-ctx.Done():
			for _, ch := range m.channels {
				ch.Stop()
			}
			return
		case msg := <-m.outbound:
			ch, ok := m.channels[msg.Channel]
			if !ok {
				slog.Warn("unknown channel", "channel", msg.Channel)
				continue
			}
			if err := ch.Send(msg); err != nil {
				slog.Error("send error", "channel", msg.Channel, "err", err)
			}
		}
	}
}

// Deliver pushes msg to inbound without blocking the adapter's receive loop.
func Deliver(inbound chan<- InboundMessage, msg InboundMessage) {
	select {
	case inbound <- msg:
	default:
		slog.Warn("inbound queue full, dropping message", "channel", msg.Channel, "sender", msg.SenderID)
	}
}

// AllowList holds the sender IDs configured for a channel. An empty list
// admits everyone, leaving authorization to the router's activation gate.
type AllowList map[string]bool

func NewAllowList(ids []string) AllowList {
	allow := make(AllowList, len(ids))
	for _, id := range ids {
		allow[id] = true
	}
	return allow
}

// Check reports whether any of ids is admitted, and whether the admission
// came from an explicit entry.
func (a AllowList) Check(ids ...string) (admitted, listed bool) {
	if len(a) == 0 {
		return true, false
	}
	for _, id := range ids {
		if id != "" && a[id] {
			return true, true
		}
	}
	return false, false
}

// Split breaks text into chunks of at most maxLen bytes, cutting at line
// boundaries where possible. Ciphertext is a single long line, so lines
// longer than maxLen are cut hard.
func Split(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}
	var chunks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, strings.TrimSuffix(cur.String(), "\n"))
			cur.Reset()
		}
	}
	for _, line := range strings.Split(text, "\n") {
		for len(line) > maxLen {
			flush()
			chunks = append(chunks, line[:maxLen])
			line = line[maxLen:]
		}
		if cur.Len() > 0 && cur.Len()+len(line)+1 > maxLen {
			flush()
		}
		cur.WriteString(line)
		cur.WriteByte('\n')
	}
	flush()
	return chunks
}
