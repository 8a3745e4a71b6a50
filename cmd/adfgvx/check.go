package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dfbb/adfgvx/internal/channel/dingtalk"
	"github.com/dfbb/adfgvx/internal/channel/discord"
	feishuch "github.com/dfbb/adfgvx/internal/channel/feishu"
	slackch "github.com/dfbb/adfgvx/internal/channel/slack"
	"github.com/dfbb/adfgvx/internal/channel/telegram"
	"github.com/dfbb/adfgvx/internal/channel/whatsapp"
)

var checkCmd = &cobra.Command{
	Use:   "check [channel]",
	Short: "Check channel connectivity",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	chs := cfg.Channels

	type entry struct {
		name    string
		enabled bool
		check   func() (string, error)
	}

	entries := []entry{
		{"telegram", chs.Telegram.Token != "",
			func() (string, error) { return telegram.CheckToken(chs.Telegram.Token) }},
		{"discord", chs.Discord.Token != "",
			func() (string, error) { return discord.CheckToken(chs.Discord.Token) }},
		{"slack", chs.Slack.BotToken != "",
			func() (string, error) { return slackch.CheckToken(chs.Slack.BotToken) }},
		{"whatsapp", chs.WhatsApp.Enabled, checkWhatsAppSession},
		{"feishu", chs.Feishu.AppID != "",
			func() (string, error) { return feishuch.CheckToken(chs.Feishu.AppID, chs.Feishu.AppSecret) }},
		{"dingtalk", chs.DingTalk.ClientID != "",
			func() (string, error) { return dingtalk.CheckToken(chs.DingTalk.ClientID, chs.DingTalk.ClientSecret) }},
	}

	filter := ""
	if len(args) > 0 {
		filter = args[0]
	}

	w := cmd.OutOrStdout()
	ok, failed, skipped := 0, 0, 0
	for _, e := range entries {
		if filter != "" && e.name != filter {
			continue
		}
		if !e.enabled {
			fmt.Fprintf(w, "  - %-12s skipped    (not configured)\n", e.name)
			skipped++
			continue
		}
		detail, err := e.check()
		if err != nil {
			fmt.Fprintf(w, "  ✗ %-12s failed     (%v)\n", e.name, err)
			failed++
		} else {
			fmt.Fprintf(w, "  ✓ %-12s ok         (%s)\n", e.name, detail)
			ok++
		}
	}
	fmt.Fprintf(w, "\n%d ok, %d failed, %d skipped\n", ok, failed, skipped)
	return nil
}

func checkWhatsAppSession() (string, error) {
	dir := cfg.Channels.WhatsApp.SessionDir
	if dir == "" {
		dir = whatsapp.DefaultSessionDir()
	}
	if _, err := os.Stat(whatsapp.SessionDB(dir)); err != nil {
		return "", fmt.Errorf("not paired (run serve --channels whatsapp)")
	}
	return "paired session in " + dir, nil
}
