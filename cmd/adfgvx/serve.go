package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dfbb/adfgvx/internal/channel"
	"github.com/dfbb/adfgvx/internal/channel/dingtalk"
	"github.com/dfbb/adfgvx/internal/channel/discord"
	"github.com/dfbb/adfgvx/internal/channel/feishu"
	"github.com/dfbb/adfgvx/internal/channel/slack"
	"github.com/dfbb/adfgvx/internal/channel/telegram"
	"github.com/dfbb/adfgvx/internal/channel/whatsapp"
	"github.com/dfbb/adfgvx/internal/history"
	"github.com/dfbb/adfgvx/internal/router"
	"github.com/dfbb/adfgvx/internal/state"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the IM cipher bot",
	RunE:  runServe,
}

var (
	flagPrefix   string
	flagChannels []string
)

func init() {
	serveCmd.Flags().StringVar(&flagPrefix, "prefix", "", "bridge command prefix (overrides config)")
	serveCmd.Flags().StringSliceVar(&flagChannels, "channels", nil, "channels to enable (e.g. telegram,slack)")
}

// persistAllowFrom appends senderID to a channel's allow_from in the config
// file so the sender stays authorized across restarts.
func persistAllowFrom(chName, senderID string) {
	cfgFile := configPath()
	err := updateConfig(cfgFile, func(raw map[string]any) {
		ch := getOrCreateMap(getOrCreateMap(raw, "channels"), chName)
		existing, _ := ch["allow_from"].([]any)
		ch["allow_from"] = append(existing, senderID)
	})
	if err != nil {
		slog.Error("failed to persist sender to config", "channel", chName, "err", err)
		return
	}
	slog.Info("sender saved to config", "channel", chName, "senderID", senderID, "config", cfgFile)
}

func runServe(cmd *cobra.Command, args []string) error {
	prefix := cfg.Prefix
	if flagPrefix != "" {
		prefix = flagPrefix
	}

	dir := dataDir()
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	keys, err := state.NewKeys(filepath.Join(dir, "keys.json"))
	if err != nil {
		return fmt.Errorf("loading keys: %w", err)
	}

	sq, err := cfg.Cipher.ResolveSquare()
	if err != nil {
		return err
	}

	opts := router.Options{
		Prefix:     prefix,
		DefaultKey: cfg.Cipher.Key,
		Square:     sq,
		Strict:     cfg.Cipher.Strict,
		FoldCase:   cfg.Cipher.FoldCase,
		CacheSize:  cfg.Cipher.CacheSize,
		OnActivate: persistAllowFrom,
	}
	if cfg.History.DSN != "" {
		h, err := history.Open(cfg.History.Driver, cfg.History.DSN)
		if err != nil {
			return err
		}
		defer h.Close()
		opts.History = h
	}

	inbound := make(chan channel.InboundMessage, 64)
	outbound := make(chan channel.OutboundMessage, 64)
	mgr := channel.NewManager(inbound, outbound)

	enabled := func(name string) bool {
		return len(flagChannels) == 0 || slices.Contains(flagChannels, name)
	}

	chs := cfg.Channels
	if enabled("telegram") && chs.Telegram.Token != "" {
		onFirstUser := func(senderID string) { persistAllowFrom("telegram", senderID) }
		mgr.Register(telegram.New(chs.Telegram.Token, chs.Telegram.AllowFrom, onFirstUser, inbound))
	}
	if enabled("discord") && chs.Discord.Token != "" {
		mgr.Register(discord.New(chs.Discord.Token, chs.Discord.AllowFrom, inbound))
	}
	if enabled("slack") && chs.Slack.BotToken != "" {
		mgr.Register(slack.New(chs.Slack.BotToken, chs.Slack.AppToken, chs.Slack.AllowFrom, inbound))
	}
	// WhatsApp pairs through a QR code on first run, so it has no credential to check.
	if enabled("whatsapp") && (chs.WhatsApp.Enabled || slices.Contains(flagChannels, "whatsapp")) {
		mgr.Register(whatsapp.New(chs.WhatsApp.SessionDir, chs.WhatsApp.AllowFrom, inbound))
	}
	if enabled("feishu") && chs.Feishu.AppID != "" {
		mgr.Register(feishu.New(chs.Feishu.AppID, chs.Feishu.AppSecret, chs.Feishu.AllowFrom, inbound))
	}
	if enabled("dingtalk") && chs.DingTalk.ClientID != "" {
		mgr.Register(dingtalk.New(chs.DingTalk.ClientID, chs.DingTalk.ClientSecret, chs.DingTalk.AllowFrom, inbound))
	}
	if len(mgr.Names()) == 0 {
		return fmt.Errorf("no channels configured; run 'adfgvx login <channel>' first")
	}

	rtr, err := router.New(opts, keys, outbound)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				// Drain remaining buffered messages before exiting.
				for {
					select {
					case msg := <-inbound:
						rtr.Handle(msg)
					default:
						return
					}
				}
			case msg := <-inbound:
				rtr.Handle(msg)
			}
		}
	}()

	slog.Info("adfgvx started", "prefix", prefix, "channels", mgr.Names(), "square", sq.Name())
	fmt.Fprintf(cmd.OutOrStdout(), "adfgvx serving %v (prefix %q). Ctrl-C to stop.\n", mgr.Names(), prefix)
	mgr.Run(ctx)
	wg.Wait()
	slog.Info("adfgvx stopped", "cached_ciphers", rtr.CachedCiphers())
	return nil
}
