package router

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dfbb/adfgvx/internal/adfgvx"
	"github.com/dfbb/adfgvx/internal/channel"
	"github.com/dfbb/adfgvx/internal/state"
)

const helpText = `Available commands:
  {P}key <key>         — set the cipher key for this chat
  {P}forget            — remove this chat's key
  {P}encode <text>     — encipher text (plain messages are enciphered too)
  {P}decode <symbols>  — decipher ADFGVX text
  {P}explain <text>    — show every step of the encipherment
  {P}strict on|off     — reject unsupported characters instead of dropping them
  {P}square            — show the Polybius square
  {P}status            — show key and mode for this chat
  {P}help              — show this message`

// Recorder receives one call per successful encode or decode.
type Recorder interface {
	Record(channel, senderID, op, key string, inputLen, outputLen int) error
}

type Options struct {
	Prefix     string
	DefaultKey string // used by chats without a key of their own
	Square     *adfgvx.Square
	Strict     bool
	FoldCase   bool
	CacheSize  int
	History    Recorder
	OnActivate func(ch, senderID string) // called when a channel is first activated
}

type cacheKey struct {
	key    string
	strict bool
}

// Router dispatches inbound IM messages: prefix-commands → handlers, others → encode.
type Router struct {
	opts     Options
	keys     *state.Keys
	outbound chan<- channel.OutboundMessage
	ciphers  *lru.Cache[cacheKey, *adfgvx.Cipher]

	mu     sync.RWMutex
	strict map[string]bool // chat key → strict override

	activeMu  sync.Mutex
	activated map[string]string // channel name → locked senderID
}

func New(opts Options, keys *state.Keys, outbound chan<- channel.OutboundMessage) (*Router, error) {
	if opts.Prefix == "" {
		opts.Prefix = "#"
	}
	if opts.Square == nil {
		opts.Square = adfgvx.Standard
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 128
	}
	cache, err := lru.New[cacheKey, *adfgvx.Cipher](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("router: cipher cache: %w", err)
	}
	return &Router{
		opts:      opts,
		keys:      keys,
		outbound:  outbound,
		ciphers:   cache,
		strict:    make(map[string]bool),
		activated: make(map[string]string),
	}, nil
}

func (r *Router) reply(msg channel.InboundMessage, text string) {
	out := channel.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Text:    text,
	}
	select {
	case r.outbound <- out:
	default:
		slog.Warn("router: outbound full, dropping reply", "channel", msg.Channel, "chatID", msg.ChatID)
	}
}

func chatKey(msg channel.InboundMessage) string {
	return msg.Channel + ":" + msg.ChatID
}

// Handle dispatches a message: bridge command or plain-text encipherment.
func (r *Router) Handle(msg channel.InboundMessage) {
	// Gate: channels without a pre-configured allowFrom require the sender to
	// activate with "{prefix}adfgvx" before any other interaction is accepted.
	if !msg.PreAuthorized {
		activationCmd := r.opts.Prefix + "adfgvx"

		r.activeMu.Lock()
		lockedSender := r.activated[msg.Channel]
		r.activeMu.Unlock()

		if lockedSender == "" {
			if strings.TrimSpace(msg.Text) == activationCmd {
				r.activeMu.Lock()
				r.activated[msg.Channel] = msg.SenderID
				r.activeMu.Unlock()
				slog.Info("channel activated", "channel", msg.Channel, "senderID", msg.SenderID)
				if r.opts.OnActivate != nil {
					go r.opts.OnActivate(msg.Channel, msg.SenderID)
				}
				r.reply(msg, fmt.Sprintf("Activated. Send %shelp to see available commands.", r.opts.Prefix))
			}
			return
		}

		if lockedSender != msg.SenderID {
			return
		}
	}

	if strings.HasPrefix(msg.Text, r.opts.Prefix) {
		r.handleCommand(msg)
		return
	}
	r.encode(msg, msg.Text)
}

func (r *Router) handleCommand(msg channel.InboundMessage) {
	text := strings.TrimPrefix(msg.Text, r.opts.Prefix)
	cmd, arg, _ := strings.Cut(strings.TrimLeft(text, " \t"), " ")
	cmd = strings.ToLower(strings.TrimSpace(cmd))
	arg = strings.TrimSpace(arg)
	key := chatKey(msg)

	switch cmd {
	case "", "help":
		r.reply(msg, r.helpText())

	case "key":
		if arg == "" {
			r.reply(msg, fmt.Sprintf("Usage: %skey <key>", r.opts.Prefix))
			return
		}
		if err := r.keys.Set(key, arg); err != nil {
			slog.Error("router: saving key", "chat", key, "err", err)
			r.reply(msg, fmt.Sprintf("Key set for this session only (save failed: %v)", err))
			return
		}
		r.reply(msg, fmt.Sprintf("Key set (%d characters, order %v).", len(arg), adfgvx.KeyOrder(arg)))

	case "forget":
		if err := r.keys.Delete(key); err != nil {
			slog.Error("router: deleting key", "chat", key, "err", err)
		}
		r.mu.Lock()
		delete(r.strict, key)
		r.mu.Unlock()
		r.reply(msg, "Key removed.")

	case "encode":
		if arg == "" {
			r.reply(msg, fmt.Sprintf("Usage: %sencode <text>", r.opts.Prefix))
			return
		}
		r.encode(msg, arg)

	case "decode":
		if arg == "" {
			r.reply(msg, fmt.Sprintf("Usage: %sdecode <symbols>", r.opts.Prefix))
			return
		}
		r.decode(msg, arg)

	case "explain":
		if arg == "" {
			r.reply(msg, fmt.Sprintf("Usage: %sexplain <text>", r.opts.Prefix))
			return
		}
		c, ok := r.cipherFor(msg)
		if !ok {
			return
		}
		tr, err := c.Trace(r.fold(arg))
		if err != nil {
			r.reply(msg, fmt.Sprintf("Error: %v", err))
			return
		}
		r.reply(msg, "```\n"+tr.String()+"```")

	case "strict":
		switch strings.ToLower(arg) {
		case "on":
			r.mu.Lock()
			r.strict[key] = true
			r.mu.Unlock()
			r.reply(msg, "Strict mode enabled.")
		case "off":
			r.mu.Lock()
			r.strict[key] = false
			r.mu.Unlock()
			r.reply(msg, "Strict mode disabled.")
		default:
			r.reply(msg, fmt.Sprintf("Usage: %sstrict on|off", r.opts.Prefix))
		}

	case "square":
		r.reply(msg, "```\n"+r.opts.Square.String()+"\n```")

	case "status":
		k, source := r.keyFor(key)
		if k == "" {
			r.reply(msg, fmt.Sprintf("No key set. Use %skey <key>.", r.opts.Prefix))
			return
		}
		r.reply(msg, fmt.Sprintf("Key: %s (%s)\nSquare: %s\nStrict: %v",
			state.Mask(k), source, r.opts.Square.Name(), r.strictFor(key)))

	default:
		r.reply(msg, fmt.Sprintf("Unknown command: %s%s\nRun %shelp for available commands.", r.opts.Prefix, cmd, r.opts.Prefix))
	}
}

func (r *Router) encode(msg channel.InboundMessage, text string) {
	c, ok := r.cipherFor(msg)
	if !ok {
		return
	}
	text = r.fold(text)
	out, err := c.Encode(text)
	if err != nil {
		r.reply(msg, fmt.Sprintf("Error: %v", err))
		return
	}
	if out == "" {
		r.reply(msg, "Nothing to encode: no supported characters.")
		return
	}
	r.record(msg, "encode", c.Key(), len(text), len(out))
	r.reply(msg, out)
}

func (r *Router) decode(msg channel.InboundMessage, text string) {
	c, ok := r.cipherFor(msg)
	if !ok {
		return
	}
	// Chat clients wrap long lines; ciphertext never contains whitespace.
	text = strings.Join(strings.Fields(r.fold(text)), "")
	out, err := c.Decode(text)
	if err != nil {
		r.reply(msg, fmt.Sprintf("Error: %v", err))
		return
	}
	r.record(msg, "decode", c.Key(), len(text), len(out))
	r.reply(msg, out)
}

func (r *Router) record(msg channel.InboundMessage, op, key string, in, out int) {
	if r.opts.History == nil {
		return
	}
	if err := r.opts.History.Record(msg.Channel, msg.SenderID, op, key, in, out); err != nil {
		slog.Warn("router: history record failed", "op", op, "err", err)
	}
}

// cipherFor returns the cached cipher for the chat's key and mode, replying
// with a hint when the chat has no key.
func (r *Router) cipherFor(msg channel.InboundMessage) (*adfgvx.Cipher, bool) {
	chat := chatKey(msg)
	key, _ := r.keyFor(chat)
	if key == "" {
		r.reply(msg, fmt.Sprintf("No key set. Use %skey <key> to set one.", r.opts.Prefix))
		return nil, false
	}
	ck := cacheKey{key: key, strict: r.strictFor(chat)}
	if c, ok := r.ciphers.Get(ck); ok {
		return c, true
	}
	c, err := adfgvx.New(key, adfgvx.WithSquare(r.opts.Square), adfgvx.WithStrict(ck.strict))
	if err != nil {
		r.reply(msg, fmt.Sprintf("Error: %v", err))
		return nil, false
	}
	r.ciphers.Add(ck, c)
	return c, true
}

func (r *Router) keyFor(chat string) (key, source string) {
	if k, ok := r.keys.Get(chat); ok && k != "" {
		return k, "chat"
	}
	if r.opts.DefaultKey != "" {
		return r.opts.DefaultKey, "default"
	}
	return "", ""
}

func (r *Router) strictFor(chat string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.strict[chat]; ok {
		return s
	}
	return r.opts.Strict
}

func (r *Router) fold(text string) string {
	if r.opts.FoldCase {
		return strings.ToUpper(text)
	}
	return text
}

func (r *Router) helpText() string {
	return strings.ReplaceAll(helpText, "{P}", r.opts.Prefix)
}

// CachedCiphers reports how many compiled ciphers are cached.
func (r *Router) CachedCiphers() int {
	return r.ciphers.Len()
}
