package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var flagSquareName string

var squareCmd = &cobra.Command{
	Use:   "square",
	Short: "Print the Polybius square",
	RunE: func(cmd *cobra.Command, args []string) error {
		cc := cfg.Cipher
		if flagSquareName != "" {
			cc.Square, cc.Layout = flagSquareName, ""
		}
		sq, err := cc.ResolveSquare()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", sq.Name(), sq)
		return nil
	},
}

func init() {
	squareCmd.Flags().StringVar(&flagSquareName, "square", "", "named square to print instead of the configured one")
}
