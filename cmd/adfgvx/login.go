package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/dfbb/adfgvx/internal/channel/dingtalk"
	"github.com/dfbb/adfgvx/internal/channel/discord"
	feishuch "github.com/dfbb/adfgvx/internal/channel/feishu"
	slackch "github.com/dfbb/adfgvx/internal/channel/slack"
	"github.com/dfbb/adfgvx/internal/channel/telegram"
)

var loginCmd = &cobra.Command{
	Use:   "login <channel>",
	Short: "Configure IM channel credentials",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	ch := strings.ToLower(args[0])
	cfgPath := configPath()

	switch ch {
	case "telegram":
		return loginToken(cfgPath, "telegram", "Bot Token")
	case "discord":
		return loginToken(cfgPath, "discord", "Bot Token")
	case "slack":
		return loginSlack(cfgPath)
	case "whatsapp":
		return loginWhatsApp(cfgPath)
	case "feishu":
		return loginFeishu(cfgPath)
	case "dingtalk":
		return loginDingTalk(cfgPath)
	default:
		return fmt.Errorf("unknown channel: %s\nSupported: telegram, discord, slack, whatsapp, feishu, dingtalk", ch)
	}
}

func loginToken(cfgPath, chName, label string) error {
	fmt.Printf("%s %s: ", chName, label)
	tok, err := readSecret()
	if err != nil {
		return err
	}
	fmt.Print("Verifying... ")
	var identity string
	switch chName {
	case "telegram":
		identity, err = telegram.CheckToken(tok)
	case "discord":
		identity, err = discord.CheckToken(tok)
	}
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	fmt.Printf("OK (%s)\n", identity)
	return saveConfig(cfgPath, func(raw map[string]any) {
		ch := getOrCreateMap(getOrCreateMap(raw, "channels"), chName)
		ch["token"] = tok
	})
}

func loginSlack(cfgPath string) error {
	fmt.Print("Bot Token (xoxb-...): ")
	botToken, _ := readSecret()
	fmt.Print("App Token (xapp-...): ")
	appToken, _ := readSecret()
	fmt.Print("Verifying... ")
	identity, err := slackch.CheckToken(botToken)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	fmt.Printf("OK (%s)\n", identity)
	return saveConfig(cfgPath, func(raw map[string]any) {
		ch := getOrCreateMap(getOrCreateMap(raw, "channels"), "slack")
		ch["bot_token"] = botToken
		ch["app_token"] = appToken
	})
}

func loginFeishu(cfgPath string) error {
	fmt.Print("App ID: ")
	appID, _ := readLine()
	fmt.Print("App Secret: ")
	appSecret, _ := readSecret()
	fmt.Print("Verifying... ")
	identity, err := feishuch.CheckToken(appID, appSecret)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	fmt.Printf("OK (%s)\n", identity)
	fmt.Print("Opening long connection... ")
	if err := feishuch.Connect(appID, appSecret); err != nil {
		fmt.Printf("failed (%v)\n", err)
	} else {
		fmt.Println("OK")
	}
	return saveConfig(cfgPath, func(raw map[string]any) {
		ch := getOrCreateMap(getOrCreateMap(raw, "channels"), "feishu")
		ch["app_id"] = appID
		ch["app_secret"] = appSecret
	})
}

func loginDingTalk(cfgPath string) error {
	fmt.Print("Client ID: ")
	clientID, _ := readLine()
	fmt.Print("Client Secret: ")
	clientSecret, _ := readSecret()
	fmt.Print("Verifying... ")
	identity, err := dingtalk.CheckToken(clientID, clientSecret)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	fmt.Printf("OK (%s)\n", identity)
	return saveConfig(cfgPath, func(raw map[string]any) {
		ch := getOrCreateMap(getOrCreateMap(raw, "channels"), "dingtalk")
		ch["client_id"] = clientID
		ch["client_secret"] = clientSecret
	})
}

func loginWhatsApp(cfgPath string) error {
	if err := saveConfig(cfgPath, func(raw map[string]any) {
		getOrCreateMap(getOrCreateMap(raw, "channels"), "whatsapp")["enabled"] = true
	}); err != nil {
		return err
	}
	fmt.Println("WhatsApp pairs on first run: a QR code will be printed.")
	fmt.Println("Run: adfgvx serve --channels whatsapp")
	return nil
}

func readSecret() (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return readLine()
	}
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	return strings.TrimSpace(string(b)), err
}

var stdin = bufio.NewReader(os.Stdin)

func readLine() (string, error) {
	s, err := stdin.ReadString('\n')
	return strings.TrimSpace(s), err
}

func saveConfig(path string, fn func(map[string]any)) error {
	if err := updateConfig(path, fn); err != nil {
		return err
	}
	fmt.Printf("Saved to %s\n", path)
	return nil
}

// updateConfig edits the raw YAML map so keys the Config type does not know
// about survive the rewrite.
func updateConfig(path string, fn func(map[string]any)) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	raw := make(map[string]any)
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	fn(raw)
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func getOrCreateMap(m map[string]any, key string) map[string]any {
	if v, ok := m[key]; ok {
		if sub, ok := v.(map[string]any); ok {
			return sub
		}
	}
	sub := make(map[string]any)
	m[key] = sub
	return sub
}
