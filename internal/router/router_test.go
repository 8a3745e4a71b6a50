package router_test

import (
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/dfbb/adfgvx/internal/channel"
	"github.com/dfbb/adfgvx/internal/router"
	"github.com/dfbb/adfgvx/internal/state"
)

type record struct {
	channel, sender, op, key string
	in, out                  int
}

type fakeHistory struct {
	mu      sync.Mutex
	records []record
}

func (f *fakeHistory) Record(ch, sender, op, key string, in, out int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record{ch, sender, op, key, in, out})
	return nil
}

func newTestRouter(t *testing.T, opts router.Options) (*router.Router, chan channel.OutboundMessage) {
	t.Helper()
	f, _ := os.CreateTemp("", "keys*.json")
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	keys, _ := state.NewKeys(f.Name())
	outbound := make(chan channel.OutboundMessage, 10)
	r, err := router.New(opts, keys, outbound)
	if err != nil {
		t.Fatalf("router.New() error: %v", err)
	}
	return r, outbound
}

func send(r *router.Router, text string) {
	r.Handle(channel.InboundMessage{
		Channel: "telegram", ChatID: "123", SenderID: "u1",
		Text: text, PreAuthorized: true,
	})
}

func TestRoute_NoKey(t *testing.T) {
	r, outbound := newTestRouter(t, router.Options{})

	send(r, "LUCAS")

	msg := <-outbound
	if msg.ChatID != "123" {
		t.Errorf("expected reply to 123, got %q", msg.ChatID)
	}
	if !strings.Contains(msg.Text, "No key set") {
		t.Errorf("reply = %q, want a no-key hint", msg.Text)
	}
}

func TestRoute_HashHelp(t *testing.T) {
	r, outbound := newTestRouter(t, router.Options{})

	send(r, "#help")

	msg := <-outbound
	if !strings.Contains(msg.Text, "#decode") {
		t.Errorf("help text = %q, want command list", msg.Text)
	}
}

func TestRoute_KeyEncodeDecode(t *testing.T) {
	hist := &fakeHistory{}
	r, outbound := newTestRouter(t, router.Options{History: hist})

	send(r, "#key UM")
	if msg := <-outbound; !strings.HasPrefix(msg.Text, "Key set") {
		t.Errorf("key reply = %q", msg.Text)
	}

	send(r, "LUCAS")
	if msg := <-outbound; msg.Text != "XFFAADGAAG" {
		t.Errorf("plain text reply = %q, want %q", msg.Text, "XFFAADGAAG")
	}

	send(r, "#encode L#UC%AS")
	if msg := <-outbound; msg.Text != "XFFAADGAAG" {
		t.Errorf("encode reply = %q, want %q", msg.Text, "XFFAADGAAG")
	}

	send(r, "#decode XFFAA DGAAG")
	if msg := <-outbound; msg.Text != "LUCAS" {
		t.Errorf("decode reply = %q, want %q", msg.Text, "LUCAS")
	}

	if len(hist.records) != 3 {
		t.Fatalf("history has %d records, want 3", len(hist.records))
	}
	if got := hist.records[2]; got.op != "decode" || got.key != "UM" || got.out != 5 {
		t.Errorf("last record = %+v, want decode with key UM", got)
	}
	if r.CachedCiphers() != 1 {
		t.Errorf("CachedCiphers() = %d, want 1", r.CachedCiphers())
	}
}

func TestRoute_FoldCase(t *testing.T) {
	r, outbound := newTestRouter(t, router.Options{DefaultKey: "UM", FoldCase: true})

	send(r, "lucas")
	if msg := <-outbound; msg.Text != "XFFAADGAAG" {
		t.Errorf("folded reply = %q, want %q", msg.Text, "XFFAADGAAG")
	}
}

func TestRoute_Strict(t *testing.T) {
	r, outbound := newTestRouter(t, router.Options{DefaultKey: "UM"})

	send(r, "#strict on")
	<-outbound

	send(r, "#encode L#UCAS")
	if msg := <-outbound; !strings.HasPrefix(msg.Text, "Error:") {
		t.Errorf("strict encode reply = %q, want error", msg.Text)
	}

	send(r, "#strict off")
	<-outbound

	send(r, "#encode L#UCAS")
	if msg := <-outbound; msg.Text != "XFFAADGAAG" {
		t.Errorf("lenient encode reply = %q, want %q", msg.Text, "XFFAADGAAG")
	}
}

func TestRoute_DecodeMalformed(t *testing.T) {
	r, outbound := newTestRouter(t, router.Options{DefaultKey: "UM"})

	send(r, "#decode XFF")
	if msg := <-outbound; !strings.Contains(msg.Text, "malformed") {
		t.Errorf("reply = %q, want malformed ciphertext error", msg.Text)
	}
}

func TestRoute_StatusForget(t *testing.T) {
	r, outbound := newTestRouter(t, router.Options{})

	send(r, "#key CHAVE123")
	<-outbound

	send(r, "#status")
	msg := <-outbound
	if !strings.Contains(msg.Text, "C*******") || strings.Contains(msg.Text, "CHAVE123") {
		t.Errorf("status reply = %q, want masked key", msg.Text)
	}

	send(r, "#forget")
	<-outbound

	send(r, "#status")
	if msg := <-outbound; !strings.Contains(msg.Text, "No key set") {
		t.Errorf("status after forget = %q", msg.Text)
	}
}

func TestRoute_Explain(t *testing.T) {
	r, outbound := newTestRouter(t, router.Options{DefaultKey: "UM"})

	send(r, "#explain LUCAS")
	if msg := <-outbound; !strings.Contains(msg.Text, "ciphertext: XFFAADGAAG") {
		t.Errorf("explain reply = %q", msg.Text)
	}
}

func TestRoute_Square(t *testing.T) {
	r, outbound := newTestRouter(t, router.Options{})

	send(r, "#square")
	if msg := <-outbound; !strings.Contains(msg.Text, "Y Z _ 1 2 3") {
		t.Errorf("square reply = %q", msg.Text)
	}
}

func TestRoute_CustomPrefix(t *testing.T) {
	r, outbound := newTestRouter(t, router.Options{Prefix: "!"})

	send(r, "!help")
	msg := <-outbound
	if !strings.Contains(msg.Text, "!encode") {
		t.Errorf("help with custom prefix = %q", msg.Text)
	}
}

func TestRoute_UnknownCommand(t *testing.T) {
	r, outbound := newTestRouter(t, router.Options{})

	send(r, "#foobar")
	msg := <-outbound
	if !strings.HasPrefix(msg.Text, "Unknown command") {
		t.Errorf("reply = %q, want unknown command", msg.Text)
	}
}

func TestRoute_ActivationGate(t *testing.T) {
	activated := make(chan string, 1)
	r, outbound := newTestRouter(t, router.Options{
		DefaultKey: "UM",
		OnActivate: func(ch, senderID string) { activated <- senderID },
	})

	in := channel.InboundMessage{Channel: "whatsapp", ChatID: "c1", SenderID: "alice", Text: "LUCAS"}
	r.Handle(in)
	select {
	case msg := <-outbound:
		t.Fatalf("unexpected reply before activation: %q", msg.Text)
	default:
	}

	in.Text = "#adfgvx"
	r.Handle(in)
	if msg := <-outbound; !strings.HasPrefix(msg.Text, "Activated") {
		t.Errorf("activation reply = %q", msg.Text)
	}
	if got := <-activated; got != "alice" {
		t.Errorf("OnActivate sender = %q, want alice", got)
	}

	r.Handle(channel.InboundMessage{Channel: "whatsapp", ChatID: "c1", SenderID: "mallory", Text: "LUCAS"})
	select {
	case msg := <-outbound:
		t.Fatalf("unexpected reply to other sender: %q", msg.Text)
	default:
	}

	in.Text = "LUCAS"
	r.Handle(in)
	if msg := <-outbound; msg.Text != "XFFAADGAAG" {
		t.Errorf("reply after activation = %q, want %q", msg.Text, "XFFAADGAAG")
	}
}
