package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dfbb/adfgvx/internal/textio"
)

var decodeFlags cipherFlags

var decodeCmd = &cobra.Command{
	Use:   "decode [ciphertext]",
	Short: "Decipher ADFGVX text",
	Long: `Decipher ADFGVX text.

The ciphertext is taken from the arguments, or from the first line of --in
(default: io.encrypted_file). Whitespace is ignored. The result is printed
unless --out names a file.`,
	RunE: runDecode,
}

func init() {
	decodeFlags.register(decodeCmd, true)
}

func runDecode(cmd *cobra.Command, args []string) error {
	c, err := decodeFlags.cipher(cmd)
	if err != nil {
		return err
	}
	text, err := decodeFlags.input(args, cfg.IO.EncryptedFile)
	if err != nil {
		return err
	}
	text = strings.Join(strings.Fields(text), "")
	out, err := c.Decode(text)
	if err != nil {
		return err
	}
	recordCLI("decode", c.Key(), len(text), len(out))

	path := decodeFlags.out
	if path == "" || path == "-" {
		fmt.Fprintln(cmd.ErrOrStderr(), "decoded message:")
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	}
	if err := textio.WriteText(path, out); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "decoded message written to %s\n", path)
	return nil
}
