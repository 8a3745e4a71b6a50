// Package textio reads and writes the one-line text files that carry keys,
// messages and ciphertexts. The path "-" means stdin or stdout.
package textio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ReadLine returns the first line of the file at path without its line
// terminator. Anything after the first newline is ignored.
func ReadLine(path string) (string, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("textio: read %s: %w", path, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// WriteText writes text verbatim to path, creating parent directories.
// Writing to "-" prints text followed by a newline.
func WriteText(path, text string) error {
	if path == "-" {
		_, err := fmt.Fprintln(os.Stdout, text)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("textio: create %s: %w", dir, err)
		}
	}
	return os.WriteFile(path, []byte(text), 0644)
}
