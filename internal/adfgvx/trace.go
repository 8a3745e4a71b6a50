package adfgvx

import (
	"fmt"
	"strings"
)

// Trace records every stage of one encipherment.
type Trace struct {
	Key        string
	Message    string   // supported characters only
	Stream     []byte   // substitution output
	Columns    [][]byte // after round-robin distribution, original order
	Order      []int
	Transposed [][]byte
	Ciphertext string
}

// Trace enciphers message and keeps the intermediate results.
func (c *Cipher) Trace(message string) (*Trace, error) {
	stream, err := c.Symbols(message)
	if err != nil {
		return nil, err
	}
	columns := Distribute(stream, len(c.order))
	transposed := Transpose(columns, c.order)
	return &Trace{
		Key:        c.key,
		Message:    c.Filter(message),
		Stream:     stream,
		Columns:    columns,
		Order:      c.Order(),
		Transposed: transposed,
		Ciphertext: Linearize(transposed),
	}, nil
}

func (t *Trace) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "message:    %q\n", t.Message)
	fmt.Fprintf(&b, "symbols:    %s\n", pairs(t.Stream))
	b.WriteString("columns:\n")
	writeColumns(&b, t.Key, identity(len(t.Columns)), t.Columns)
	fmt.Fprintf(&b, "key order:  %v\n", t.Order)
	b.WriteString("transposed:\n")
	writeColumns(&b, t.Key, t.Order, t.Transposed)
	fmt.Fprintf(&b, "ciphertext: %s\n", t.Ciphertext)
	return b.String()
}

func writeColumns(b *strings.Builder, key string, order []int, columns [][]byte) {
	for p, col := range columns {
		fmt.Fprintf(b, "  %c[%d] %s\n", key[order[p]], order[p], col)
	}
}

func identity(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

func pairs(stream []byte) string {
	var b strings.Builder
	for i := 0; i < len(stream); i += 2 {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.Write(stream[i:min(i+2, len(stream))])
	}
	return b.String()
}
