package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var explainFlags cipherFlags

var explainCmd = &cobra.Command{
	Use:   "explain <message>",
	Short: "Show every stage of an encipherment and check it deciphers back",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runExplain,
}

func init() {
	explainFlags.register(explainCmd, false)
}

func runExplain(cmd *cobra.Command, args []string) error {
	c, err := explainFlags.cipher(cmd)
	if err != nil {
		return err
	}
	tr, err := c.Trace(strings.Join(args, " "))
	if err != nil {
		return err
	}
	back, err := c.Decode(tr.Ciphertext)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	fmt.Fprint(w, tr.String())
	fmt.Fprintf(w, "deciphered: %s\n", back)
	return nil
}
