package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dfbb/adfgvx/internal/adfgvx"
	"github.com/dfbb/adfgvx/internal/config"
)

func TestLoad(t *testing.T) {
	cfg, err := config.Load("../../testdata/config.yaml")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Prefix != "#" {
		t.Errorf("Prefix = %q, want %q", cfg.Prefix, "#")
	}
	if cfg.Cipher.Key != "UM" {
		t.Errorf("Cipher.Key = %q, want %q", cfg.Cipher.Key, "UM")
	}
	if !cfg.Cipher.Strict {
		t.Error("Cipher.Strict = false, want true")
	}
	if cfg.Channels.Telegram.Token != "test-token" {
		t.Errorf("Telegram.Token = %q, want %q", cfg.Channels.Telegram.Token, "test-token")
	}
	// Keys absent from the file keep their defaults.
	if cfg.IO.EncryptedFile != "./io/encrypted.txt" {
		t.Errorf("IO.EncryptedFile = %q, want default", cfg.IO.EncryptedFile)
	}
	if cfg.Cipher.CacheSize != 128 {
		t.Errorf("Cipher.CacheSize = %d, want 128", cfg.Cipher.CacheSize)
	}
}

func TestLoad_Defaults(t *testing.T) {
	f, _ := os.CreateTemp("", "*.yaml")
	f.WriteString("")
	f.Close()
	defer os.Remove(f.Name())

	cfg, err := config.Load(f.Name())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Prefix != "#" {
		t.Errorf("default Prefix = %q, want %q", cfg.Prefix, "#")
	}
	if cfg.Cipher.Square != "standard" {
		t.Errorf("default Cipher.Square = %q, want %q", cfg.Cipher.Square, "standard")
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := config.Defaults()
	cfg.Cipher.Key = "CHAVE123"
	if err := config.Save(path, cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.Cipher.Key != "CHAVE123" {
		t.Errorf("Cipher.Key = %q, want %q", got.Cipher.Key, "CHAVE123")
	}
}

func TestResolveSquare(t *testing.T) {
	cases := []struct {
		name    string
		cfg     config.CipherConfig
		prefix  string
		wantErr bool
	}{
		{"default", config.CipherConfig{}, "ABCDEF", false},
		{"named", config.CipherConfig{Square: "Classic"}, "ABCDEF", false},
		{"keyword", config.CipherConfig{Square: "standard", Keyword: "ZEBRA"}, "ZEBRAC", false},
		{"layout", config.CipherConfig{Layout: "9876543210ZYXWVUTSRQPONMLKJIHGFEDCBA"}, "987654", false},
		{"unknown", config.CipherConfig{Square: "nope"}, "", true},
		{"bad layout", config.CipherConfig{Layout: "ABC"}, "", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			sq, err := c.cfg.ResolveSquare()
			if c.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveSquare() error: %v", err)
			}
			if got := sq.Layout()[:6]; got != c.prefix {
				t.Errorf("layout prefix = %q, want %q", got, c.prefix)
			}
		})
	}
	if sq, _ := (config.CipherConfig{}).ResolveSquare(); sq != adfgvx.Standard {
		t.Error("empty config should resolve to the standard square")
	}
}
