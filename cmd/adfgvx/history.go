package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dfbb/adfgvx/internal/history"
)

var flagHistoryN int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent encode/decode operations",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&flagHistoryN, "limit", "n", 20, "number of entries")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if cfg.History.DSN == "" {
		return fmt.Errorf("history is disabled; set history.dsn in %s", configPath())
	}
	h, err := history.Open(cfg.History.Driver, cfg.History.DSN)
	if err != nil {
		return err
	}
	defer h.Close()

	entries, err := h.Recent(flagHistoryN)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(w, "No history yet.")
		return nil
	}
	for _, e := range entries {
		who := e.Channel
		if e.SenderID != "" {
			who += ":" + e.SenderID
		}
		digest := e.KeyDigest
		if len(digest) > 12 {
			digest = digest[:12]
		}
		fmt.Fprintf(w, "%s  %-6s %-24s key=%s  %d → %d\n",
			e.Time.Local().Format(time.DateTime), e.Op, who, digest, e.InputLen, e.OutputLen)
	}
	return nil
}
