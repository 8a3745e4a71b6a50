package adfgvx_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dfbb/adfgvx/internal/adfgvx"
)

func TestEncode_KnownCiphertext(t *testing.T) {
	cases := []struct {
		key, message, want string
	}{
		{"UM", "LUCAS", "XFFAADGAAG"},
		{"A", "LUCAS", "DXGFAFAAGA"},
		{"ABC", "LUCAS", "DFAAXAAGFG"},
		{"CAB", "LUCAS", "XAAGFGDFAA"},
		{"UM", "", ""},
	}
	for _, c := range cases {
		got, err := adfgvx.Encode(c.key, c.message)
		if err != nil {
			t.Fatalf("Encode(%q, %q) error: %v", c.key, c.message, err)
		}
		if got != c.want {
			t.Errorf("Encode(%q, %q) = %q, want %q", c.key, c.message, got, c.want)
		}
	}
}

func TestEncode_DropsUnsupported(t *testing.T) {
	clean, _ := adfgvx.Encode("UM", "LUCAS")
	dirty, err := adfgvx.Encode("UM", "L#UC%AS@!d")
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if dirty != clean {
		t.Errorf("Encode with unsupported characters = %q, want %q", dirty, clean)
	}

	got, err := adfgvx.Encode("KEY", "#%@!abc\t\n")
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if got != "" {
		t.Errorf("Encode of unsupported-only message = %q, want empty", got)
	}
}

func TestEncode_Deterministic(t *testing.T) {
	a, _ := adfgvx.Encode("ABC", "ATTACK AT DAWN")
	b, _ := adfgvx.Encode("ABC", "ATTACK AT DAWN")
	if a != b {
		t.Errorf("same key produced %q and %q", a, b)
	}
}

func TestEncode_Invariants(t *testing.T) {
	msg := "THE QUICK BROWN FOX JUMPS OVER 13 LAZY DOGS, 42 TIMES!"
	for _, key := range []string{"A", "UM", "CAB", "BANANA", "CHAVE123", "ZYXWVUTSRQ"} {
		c, err := adfgvx.New(key)
		if err != nil {
			t.Fatalf("New(%q) error: %v", key, err)
		}
		ct, err := c.Encode(msg)
		if err != nil {
			t.Fatalf("Encode() error: %v", err)
		}
		if want := 2 * len(c.Filter(msg)); len(ct) != want {
			t.Errorf("key %q: len(ciphertext) = %d, want %d", key, len(ct), want)
		}
		if i := strings.IndexFunc(ct, func(r rune) bool { return !strings.ContainsRune(adfgvx.Symbols, r) }); i >= 0 {
			t.Errorf("key %q: ciphertext %q has %q outside the alphabet", key, ct, ct[i])
		}
	}
}

func TestRoundTrip(t *testing.T) {
	messages := []string{
		"LUCAS",
		"AB",
		"A",
		"ATTACK AT 1145",
		"THE QUICK BROWN FOX JUMPS OVER THE LAZY DOG 123456789",
	}
	keys := []string{"A", "UM", "CAB", "BANANA", "AAAA", "CHAVE123", "PRIVACY", "Z9 a"}
	for _, key := range keys {
		for _, msg := range messages {
			ct, err := adfgvx.Encode(key, msg)
			if err != nil {
				t.Fatalf("Encode(%q, %q) error: %v", key, msg, err)
			}
			got, err := adfgvx.Decode(key, ct)
			if err != nil {
				t.Fatalf("Decode(%q, %q) error: %v", key, ct, err)
			}
			if got != msg {
				t.Errorf("Decode(%q, Encode(%q)) = %q, want %q", key, msg, got, msg)
			}
		}
	}
}

func TestDecode_Known(t *testing.T) {
	got, err := adfgvx.Decode("UM", "XFFAADGAAG")
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if got != "LUCAS" {
		t.Errorf("Decode() = %q, want %q", got, "LUCAS")
	}

	got, err = adfgvx.Decode("UM", "")
	if err != nil || got != "" {
		t.Errorf("Decode of empty ciphertext = %q, %v; want empty, nil", got, err)
	}
}

func TestDecode_InvalidPairs(t *testing.T) {
	got, err := adfgvx.Decode("A", "DXZZAF")
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if got != "LC" {
		t.Errorf("Decode() = %q, want %q", got, "LC")
	}

	c, _ := adfgvx.New("A", adfgvx.WithStrict(true))
	if _, err := c.Decode("DXZZAF"); !errors.Is(err, adfgvx.ErrInvalidSymbolPair) {
		t.Errorf("strict Decode() error = %v, want ErrInvalidSymbolPair", err)
	}
}

func TestDecode_Malformed(t *testing.T) {
	for _, ct := range []string{"X", "XFF", "XFFAADGAA"} {
		if _, err := adfgvx.Decode("UM", ct); !errors.Is(err, adfgvx.ErrMalformedCiphertext) {
			t.Errorf("Decode(%q) error = %v, want ErrMalformedCiphertext", ct, err)
		}
	}
}

func TestEmptyKey(t *testing.T) {
	if _, err := adfgvx.New(""); !errors.Is(err, adfgvx.ErrEmptyKey) {
		t.Errorf("New(\"\") error = %v, want ErrEmptyKey", err)
	}
	if _, err := adfgvx.Encode("", "LUCAS"); !errors.Is(err, adfgvx.ErrEmptyKey) {
		t.Errorf("Encode with empty key error = %v, want ErrEmptyKey", err)
	}
	if _, err := adfgvx.Decode("", "XF"); !errors.Is(err, adfgvx.ErrEmptyKey) {
		t.Errorf("Decode with empty key error = %v, want ErrEmptyKey", err)
	}
}

func TestStrictEncode(t *testing.T) {
	c, _ := adfgvx.New("UM", adfgvx.WithStrict(true))
	if _, err := c.Encode("L#UCAS"); !errors.Is(err, adfgvx.ErrUnsupportedCharacter) {
		t.Errorf("strict Encode() error = %v, want ErrUnsupportedCharacter", err)
	}
	got, err := c.Encode("LUCAS")
	if err != nil || got != "XFFAADGAAG" {
		t.Errorf("strict Encode(LUCAS) = %q, %v; want %q, nil", got, err, "XFFAADGAAG")
	}
}

func TestWithSquare(t *testing.T) {
	c, _ := adfgvx.New("KEY", adfgvx.WithSquare(adfgvx.Classic))
	if c.Square() != adfgvx.Classic {
		t.Fatalf("Square() = %s, want classic", c.Square().Name())
	}
	msg := "ROOM 101"
	ct, _ := c.Encode(msg)
	got, _ := c.Decode(ct)
	if got != "ROOM101" {
		t.Errorf("classic round trip = %q, want %q", got, "ROOM101")
	}
}

func TestTrace(t *testing.T) {
	c, _ := adfgvx.New("UM")
	tr, err := c.Trace("L#UCAS")
	if err != nil {
		t.Fatalf("Trace() error: %v", err)
	}
	if tr.Message != "LUCAS" {
		t.Errorf("Message = %q, want %q", tr.Message, "LUCAS")
	}
	if string(tr.Stream) != "DXGFAFAAGA" {
		t.Errorf("Stream = %q, want %q", tr.Stream, "DXGFAFAAGA")
	}
	if string(tr.Columns[0]) != "DGAAG" || string(tr.Columns[1]) != "XFFAA" {
		t.Errorf("Columns = %q, want [DGAAG XFFAA]", tr.Columns)
	}
	if tr.Ciphertext != "XFFAADGAAG" {
		t.Errorf("Ciphertext = %q, want %q", tr.Ciphertext, "XFFAADGAAG")
	}
	if !strings.Contains(tr.String(), "ciphertext: XFFAADGAAG") {
		t.Errorf("String() missing ciphertext line:\n%s", tr.String())
	}
}

func TestEncode_LargeMessage(t *testing.T) {
	msg := strings.Repeat("A", 2559)
	start := time.Now()
	ct, err := adfgvx.Encode("CHAVE123", msg)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("Encode took %v, want < 500ms", elapsed)
	}
	if len(ct) != 2*len(msg) {
		t.Errorf("len(ciphertext) = %d, want %d", len(ct), 2*len(msg))
	}
}

func BenchmarkEncode(b *testing.B) {
	c, _ := adfgvx.New("CHAVE123")
	msg := strings.Repeat("ATTACK AT DAWN ", 170)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Encode(msg)
	}
}

func BenchmarkDecode(b *testing.B) {
	c, _ := adfgvx.New("CHAVE123")
	ct, _ := c.Encode(strings.Repeat("ATTACK AT DAWN ", 170))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Decode(ct)
	}
}
