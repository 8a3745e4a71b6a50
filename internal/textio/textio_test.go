package textio_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dfbb/adfgvx/internal/textio"
)

func TestReadLine(t *testing.T) {
	cases := []struct {
		content string
		want    string
	}{
		{"LUCAS\n", "LUCAS"},
		{"LUCAS\r\n", "LUCAS"},
		{"LUCAS", "LUCAS"},
		{"FIRST\nSECOND\n", "FIRST"},
		{"", ""},
		{"ATTACK AT DAWN \n", "ATTACK AT DAWN "},
	}
	dir := t.TempDir()
	for i, c := range cases {
		path := filepath.Join(dir, "in.txt")
		if err := os.WriteFile(path, []byte(c.content), 0644); err != nil {
			t.Fatal(err)
		}
		got, err := textio.ReadLine(path)
		if err != nil {
			t.Fatalf("case %d: ReadLine() error: %v", i, err)
		}
		if got != c.want {
			t.Errorf("case %d: ReadLine() = %q, want %q", i, got, c.want)
		}
	}
}

func TestReadLine_Missing(t *testing.T) {
	_, err := textio.ReadLine(filepath.Join(t.TempDir(), "nope.txt"))
	if !os.IsNotExist(err) {
		t.Errorf("ReadLine() error = %v, want not-exist", err)
	}
}

func TestWriteText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "io", "encrypted.txt")
	if err := textio.WriteText(path, "XFFAADGAAG"); err != nil {
		t.Fatalf("WriteText() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "XFFAADGAAG" {
		t.Errorf("file content = %q, want %q", data, "XFFAADGAAG")
	}
}
