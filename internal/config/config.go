package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dfbb/adfgvx/internal/adfgvx"
)

type Config struct {
	Prefix   string         `yaml:"prefix"`
	LogLevel string         `yaml:"loglevel"`
	LogFile  string         `yaml:"logfile"`
	Cipher   CipherConfig   `yaml:"cipher"`
	IO       IOConfig       `yaml:"io"`
	History  HistoryConfig  `yaml:"history"`
	Channels ChannelConfigs `yaml:"channels"`
}

type CipherConfig struct {
	Key       string `yaml:"key"`
	Square    string `yaml:"square"`  // standard | classic | punctuated
	Layout    string `yaml:"layout"`  // 36-byte custom square, overrides square
	Keyword   string `yaml:"keyword"` // mixes the square
	Strict    bool   `yaml:"strict"`
	FoldCase  bool   `yaml:"fold_case"` // upper-case chat input before enciphering
	CacheSize int    `yaml:"cache_size"`
}

// IOConfig names the files used by encode/decode when no path is given.
type IOConfig struct {
	MessageFile   string `yaml:"message_file"`
	KeyFile       string `yaml:"key_file"`
	EncryptedFile string `yaml:"encrypted_file"`
	DecryptedFile string `yaml:"decrypted_file"`
}

type HistoryConfig struct {
	Driver string `yaml:"driver"` // sqlite | postgres
	DSN    string `yaml:"dsn"`    // empty disables history
}

type ChannelConfigs struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Discord  DiscordConfig  `yaml:"discord"`
	Slack    SlackConfig    `yaml:"slack"`
	WhatsApp WhatsAppConfig `yaml:"whatsapp"`
	Feishu   FeishuConfig   `yaml:"feishu"`
	DingTalk DingTalkConfig `yaml:"dingtalk"`
}

type TelegramConfig struct {
	Token     string   `yaml:"token"`
	AllowFrom []string `yaml:"allow_from"`
}

type DiscordConfig struct {
	Token     string   `yaml:"token"`
	AllowFrom []string `yaml:"allow_from"`
}

type SlackConfig struct {
	BotToken  string   `yaml:"bot_token"`
	AppToken  string   `yaml:"app_token"`
	AllowFrom []string `yaml:"allow_from"`
}

type WhatsAppConfig struct {
	Enabled    bool     `yaml:"enabled"`
	SessionDir string   `yaml:"session_dir"`
	AllowFrom  []string `yaml:"allow_from"`
}

type FeishuConfig struct {
	AppID     string   `yaml:"app_id"`
	AppSecret string   `yaml:"app_secret"`
	AllowFrom []string `yaml:"allow_from"`
}

type DingTalkConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	AllowFrom    []string `yaml:"allow_from"`
}

// Defaults returns a Config populated with all default values.
func Defaults() *Config {
	return &Config{
		Prefix:   "#",
		LogLevel: "warn",
		Cipher: CipherConfig{
			Square:    adfgvx.Standard.Name(),
			FoldCase:  true,
			CacheSize: 128,
		},
		IO: IOConfig{
			MessageFile:   "./io/message.txt",
			KeyFile:       "./io/key.txt",
			EncryptedFile: "./io/encrypted.txt",
			DecryptedFile: "./io/decrypted.txt",
		},
		History: HistoryConfig{Driver: "sqlite"},
	}
}

// Load reads the YAML file at path over the defaults. An empty file yields
// the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path in YAML format, creating parent directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// ResolveSquare returns the configured Polybius square: a custom layout wins over
// a named square, and the keyword is applied last.
func (c CipherConfig) ResolveSquare() (*adfgvx.Square, error) {
	var sq *adfgvx.Square
	switch {
	case c.Layout != "":
		custom, err := adfgvx.NewSquare("custom", c.Layout)
		if err != nil {
			return nil, err
		}
		sq = custom
	case c.Square == "":
		sq = adfgvx.Standard
	default:
		named, ok := adfgvx.LookupSquare(c.Square)
		if !ok {
			return nil, fmt.Errorf("config: unknown square %q (have %v)", c.Square, adfgvx.SquareNames())
		}
		sq = named
	}
	return sq.Mixed(c.Keyword), nil
}
