package adfgvx_test

import (
	"testing"

	"github.com/dfbb/adfgvx/internal/adfgvx"
)

func FuzzRoundTrip(f *testing.F) {
	f.Add("UM", "LUCAS")
	f.Add("A", "")
	f.Add("CAB", "AB")
	f.Add("BANANA", "ATTACK AT 1145")
	f.Add("CHAVE123", "L#UC%AS@!d")
	f.Add("zz", "hello 世界")

	f.Fuzz(func(t *testing.T, key, message string) {
		c, err := adfgvx.New(key)
		if key == "" {
			if err == nil {
				t.Fatal("New accepted an empty key")
			}
			return
		}
		if err != nil {
			t.Fatalf("New(%q) error: %v", key, err)
		}
		ct, err := c.Encode(message)
		if err != nil {
			t.Fatalf("Encode(%q) error: %v", message, err)
		}
		want := c.Filter(message)
		if len(ct) != 2*len(want) {
			t.Errorf("len(ciphertext) = %d, want %d", len(ct), 2*len(want))
		}
		got, err := c.Decode(ct)
		if err != nil {
			t.Fatalf("Decode(%q) error: %v", ct, err)
		}
		if got != want {
			t.Errorf("round trip = %q, want %q", got, want)
		}
	})
}
