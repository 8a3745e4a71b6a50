package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dfbb/adfgvx/internal/adfgvx"
	"github.com/dfbb/adfgvx/internal/history"
	"github.com/dfbb/adfgvx/internal/textio"
)

// cipherFlags are shared by encode, decode and explain.
type cipherFlags struct {
	key     string
	keyFile string
	in      string
	out     string
	square  string
	strict  bool
}

func (f *cipherFlags) register(cmd *cobra.Command, withIO bool) {
	cmd.Flags().StringVarP(&f.key, "key", "k", "", "cipher key")
	cmd.Flags().StringVar(&f.keyFile, "key-file", "", "read the key from the first line of a file (default: io.key_file)")
	cmd.Flags().StringVar(&f.square, "square", "", "Polybius square: "+strings.Join(adfgvx.SquareNames(), ", "))
	cmd.Flags().BoolVar(&f.strict, "strict", false, "reject unsupported characters instead of dropping them")
	if withIO {
		cmd.Flags().StringVarP(&f.in, "in", "i", "", "input file, - for stdin")
		cmd.Flags().StringVarP(&f.out, "out", "o", "", "output file, - for stdout")
	}
}

// resolveKey picks the key from --key, then the key file, then cipher.key.
func (f *cipherFlags) resolveKey() (string, error) {
	if f.key != "" {
		return f.key, nil
	}
	path := f.keyFile
	if path == "" {
		if _, err := os.Stat(cfg.IO.KeyFile); err == nil {
			path = cfg.IO.KeyFile
		}
	}
	if path != "" {
		k, err := textio.ReadLine(path)
		if err != nil {
			return "", fmt.Errorf("reading key: %w", err)
		}
		if k != "" {
			return k, nil
		}
	}
	if cfg.Cipher.Key != "" {
		return cfg.Cipher.Key, nil
	}
	return "", fmt.Errorf("%w: pass --key, --key-file or set cipher.key", adfgvx.ErrEmptyKey)
}

func (f *cipherFlags) cipher(cmd *cobra.Command) (*adfgvx.Cipher, error) {
	key, err := f.resolveKey()
	if err != nil {
		return nil, err
	}
	cc := cfg.Cipher
	if f.square != "" {
		cc.Square, cc.Layout = f.square, ""
	}
	sq, err := cc.ResolveSquare()
	if err != nil {
		return nil, err
	}
	strict := cc.Strict
	if cmd.Flags().Changed("strict") {
		strict = f.strict
	}
	return adfgvx.New(key, adfgvx.WithSquare(sq), adfgvx.WithStrict(strict))
}

// input returns the joined arguments, or the first line of --in / fallback.
func (f *cipherFlags) input(args []string, fallback string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	path := f.in
	if path == "" {
		path = fallback
	}
	text, err := textio.ReadLine(path)
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return text, nil
}

var (
	encodeFlags cipherFlags
	flagUpper   bool
)

var encodeCmd = &cobra.Command{
	Use:   "encode [message]",
	Short: "Encipher a message",
	Long: `Encipher a message with the ADFGVX cipher.

The message is taken from the arguments, or from the first line of --in
(default: io.message_file). Characters missing from the square are dropped
unless --strict is set.`,
	RunE: runEncode,
}

func init() {
	encodeFlags.register(encodeCmd, true)
	encodeCmd.Flags().BoolVar(&flagUpper, "upper", false, "upper-case the message before enciphering")
}

func runEncode(cmd *cobra.Command, args []string) error {
	c, err := encodeFlags.cipher(cmd)
	if err != nil {
		return err
	}
	msg, err := encodeFlags.input(args, cfg.IO.MessageFile)
	if err != nil {
		return err
	}
	if flagUpper {
		msg = strings.ToUpper(msg)
	}
	out, err := c.Encode(msg)
	if err != nil {
		return err
	}
	recordCLI("encode", c.Key(), len(msg), len(out))

	path := encodeFlags.out
	if path == "" {
		path = cfg.IO.EncryptedFile
	}
	if err := textio.WriteText(path, out); err != nil {
		return err
	}
	if path != "-" {
		fmt.Fprintf(cmd.OutOrStdout(), "encrypted message written to %s\n", path)
	}
	return nil
}

// recordCLI logs a command-line operation to history when it is enabled.
func recordCLI(op, key string, inputLen, outputLen int) {
	if cfg.History.DSN == "" {
		return
	}
	h, err := history.Open(cfg.History.Driver, cfg.History.DSN)
	if err != nil {
		slog.Warn("history unavailable", "err", err)
		return
	}
	defer h.Close()
	if err := h.Record("cli", "", op, key, inputLen, outputLen); err != nil {
		slog.Warn("history record failed", "op", op, "err", err)
	}
}
