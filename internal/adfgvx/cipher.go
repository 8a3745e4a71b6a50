package adfgvx

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyKey             = errors.New("adfgvx: empty key")
	ErrUnsupportedCharacter = errors.New("adfgvx: unsupported character")
	ErrInvalidSymbolPair    = errors.New("adfgvx: invalid symbol pair")
	ErrMalformedCiphertext  = errors.New("adfgvx: malformed ciphertext")
)

// Cipher enciphers and deciphers with one key and square. It holds no
// mutable state and is safe for concurrent use.
type Cipher struct {
	key    string
	order  []int
	square *Square
	strict bool
}

type Option func(*Cipher)

// WithSquare selects the Polybius square. The default is Standard.
func WithSquare(s *Square) Option {
	return func(c *Cipher) {
		if s != nil {
			c.square = s
		}
	}
}

// WithStrict makes Encode reject bytes outside the square and Decode reject
// pairs containing bytes outside the alphabet, instead of dropping them.
func WithStrict(strict bool) Option {
	return func(c *Cipher) { c.strict = strict }
}

// New returns a Cipher for key.
func New(key string, opts ...Option) (*Cipher, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	c := &Cipher{key: key, order: KeyOrder(key), square: Standard}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Encode enciphers message with key using the standard square, dropping
// unsupported characters.
func Encode(key, message string) (string, error) {
	c, err := New(key)
	if err != nil {
		return "", err
	}
	return c.Encode(message)
}

// Decode deciphers ciphertext with key using the standard square, skipping
// invalid symbol pairs.
func Decode(key, ciphertext string) (string, error) {
	c, err := New(key)
	if err != nil {
		return "", err
	}
	return c.Decode(ciphertext)
}

func (c *Cipher) Key() string     { return c.key }
func (c *Cipher) Square() *Square { return c.square }
func (c *Cipher) Strict() bool    { return c.strict }

// Order returns a copy of the key order.
func (c *Cipher) Order() []int {
	return append([]int(nil), c.order...)
}

func (c *Cipher) Encode(message string) (string, error) {
	stream, err := c.Symbols(message)
	if err != nil {
		return "", err
	}
	columns := Distribute(stream, len(c.order))
	return Linearize(Transpose(columns, c.order)), nil
}

func (c *Cipher) Decode(ciphertext string) (string, error) {
	if len(ciphertext)%2 != 0 {
		return "", fmt.Errorf("%w: odd length %d", ErrMalformedCiphertext, len(ciphertext))
	}
	columns, err := Untranspose(ciphertext, c.order, ColumnSizes(len(ciphertext), c.order))
	if err != nil {
		return "", err
	}
	return c.Plaintext(Collect(columns))
}

// Symbols substitutes every character of message with its row and column
// symbols, in order.
func (c *Cipher) Symbols(message string) ([]byte, error) {
	stream := make([]byte, 0, 2*len(message))
	for i := 0; i < len(message); i++ {
		row, col, ok := c.square.Substitute(message[i])
		if !ok {
			if c.strict {
				return nil, fmt.Errorf("%w %q at offset %d", ErrUnsupportedCharacter, message[i], i)
			}
			continue
		}
		stream = append(stream, row, col)
	}
	return stream, nil
}

// Plaintext decodes a symbol stream two symbols at a time. A trailing
// unpaired symbol is malformed in either mode.
func (c *Cipher) Plaintext(stream []byte) (string, error) {
	if len(stream)%2 != 0 {
		return "", fmt.Errorf("%w: unpaired symbol %q", ErrMalformedCiphertext, stream[len(stream)-1])
	}
	var b strings.Builder
	b.Grow(len(stream) / 2)
	for i := 0; i < len(stream); i += 2 {
		ch, ok := c.square.Unsubstitute(stream[i], stream[i+1])
		if !ok {
			if c.strict {
				return "", fmt.Errorf("%w %q at offset %d", ErrInvalidSymbolPair, stream[i:i+2], i)
			}
			continue
		}
		b.WriteByte(ch)
	}
	return b.String(), nil
}

// Filter returns the characters of message that the cipher's square supports.
func (c *Cipher) Filter(message string) string {
	var b strings.Builder
	for i := 0; i < len(message); i++ {
		if c.square.Contains(message[i]) {
			b.WriteByte(message[i])
		}
	}
	return b.String()
}
