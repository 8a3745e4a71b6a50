package main

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/dfbb/adfgvx/internal/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-chat key bindings",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	keys, err := state.NewKeys(filepath.Join(dataDir(), "keys.json"))
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if cfg.Cipher.Key != "" {
		fmt.Fprintf(w, "Default key: %s\n", state.Mask(cfg.Cipher.Key))
	}
	all := keys.All()
	if len(all) == 0 {
		fmt.Fprintln(w, "No chat keys set.")
		return nil
	}
	chats := make([]string, 0, len(all))
	for chat := range all {
		chats = append(chats, chat)
	}
	slices.Sort(chats)
	fmt.Fprintln(w, "Chat keys:")
	for _, chat := range chats {
		fmt.Fprintf(w, "  %-30s → %s\n", chat, state.Mask(all[chat]))
	}
	return nil
}
