package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dfbb/adfgvx/internal/channel/whatsapp"
)

var rebindCmd = &cobra.Command{
	Use:   "rebind <channel>",
	Short: "Reset channel binding and force re-authentication",
	Args:  cobra.ExactArgs(1),
	RunE:  runRebind,
}

func runRebind(cmd *cobra.Command, args []string) error {
	ch := strings.ToLower(args[0])
	switch ch {
	case "whatsapp":
		return rebindWhatsApp()
	default:
		return fmt.Errorf("rebind not supported for %q (only whatsapp)", ch)
	}
}

func rebindWhatsApp() error {
	cfgPath := configPath()

	// Clearing allow_from lets the next sender activate with #adfgvx.
	if err := updateConfig(cfgPath, func(raw map[string]any) {
		if channels, ok := raw["channels"].(map[string]any); ok {
			if wa, ok := channels["whatsapp"].(map[string]any); ok {
				delete(wa, "allow_from")
			}
		}
	}); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not update config: %v\n", err)
	} else {
		fmt.Println("Cleared whatsapp allow_from in config.")
	}

	sessionDir := cfg.Channels.WhatsApp.SessionDir
	if sessionDir == "" {
		sessionDir = whatsapp.DefaultSessionDir()
	}
	dbPath := whatsapp.SessionDB(sessionDir)
	if err := os.Remove(dbPath); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("removing session: %w", err)
		}
		fmt.Println("No session file found (already clean).")
	} else {
		fmt.Printf("Deleted %s\n", dbPath)
	}

	fmt.Println("Done. Run 'adfgvx serve --channels whatsapp' to re-pair via QR code,")
	fmt.Printf("then send %sadfgvx to activate.\n", cfg.Prefix)
	return nil
}
