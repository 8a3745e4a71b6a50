package adfgvx

import (
	"fmt"
	"strings"
)

// Symbols is the cipher alphabet. A square coordinate i is written as Symbols[i].
const Symbols = "ADFGVX"

const side = len(Symbols)

// Square is a 6×6 Polybius square. It is never modified after construction
// and may be shared between goroutines.
type Square struct {
	name  string
	cells [side * side]byte
	pos   [256]uint8 // cell index + 1, 0 when the byte is not in the square
}

var (
	// Standard is the default square: digits 1–9 and space, no zero.
	Standard = MustSquare("standard", "ABCDEFGHIJKLMNOPQRSTUVWXYZ 123456789")
	// Classic holds the letters and all ten digits.
	Classic = MustSquare("classic", "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
	// Punctuated trades digits 8 and 9 for space, comma and period.
	Punctuated = MustSquare("punctuated", "ABCDEFGHIJKLMNOPQRSTUVWXYZ ,.1234567")
)

var squares = map[string]*Square{
	Standard.name:   Standard,
	Classic.name:    Classic,
	Punctuated.name: Punctuated,
}

// LookupSquare returns the built-in square with the given name.
func LookupSquare(name string) (*Square, bool) {
	s, ok := squares[strings.ToLower(name)]
	return s, ok
}

// SquareNames lists the built-in squares.
func SquareNames() []string {
	return []string{Standard.name, Classic.name, Punctuated.name}
}

// NewSquare builds a square from a row-major layout of 36 distinct bytes.
func NewSquare(name, layout string) (*Square, error) {
	if len(layout) != side*side {
		return nil, fmt.Errorf("adfgvx: square layout has %d bytes, want %d", len(layout), side*side)
	}
	s := &Square{name: name}
	for i := 0; i < len(layout); i++ {
		c := layout[i]
		if s.pos[c] != 0 {
			return nil, fmt.Errorf("adfgvx: square layout repeats %q", c)
		}
		s.cells[i] = c
		s.pos[c] = uint8(i + 1)
	}
	return s, nil
}

// MustSquare is like NewSquare but panics on an invalid layout.
func MustSquare(name, layout string) *Square {
	s, err := NewSquare(name, layout)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Square) Name() string { return s.name }

// Layout returns the 36 cells in row-major order.
func (s *Square) Layout() string { return string(s.cells[:]) }

// Contains reports whether c has a cell in the square.
func (s *Square) Contains(c byte) bool { return s.pos[c] != 0 }

// Substitute returns the row and column symbols of c.
func (s *Square) Substitute(c byte) (row, col byte, ok bool) {
	p := s.pos[c]
	if p == 0 {
		return 0, 0, false
	}
	i := int(p - 1)
	return Symbols[i/side], Symbols[i%side], true
}

// Unsubstitute returns the cell addressed by a symbol pair.
func (s *Square) Unsubstitute(row, col byte) (byte, bool) {
	r, c := symbolIndex(row), symbolIndex(col)
	if r < 0 || c < 0 {
		return 0, false
	}
	return s.cells[r*side+c], true
}

// Mixed returns a copy of the square whose cells start with the distinct
// bytes of keyword, followed by the remaining cells in their original order.
// Keyword bytes that the square does not contain are ignored.
func (s *Square) Mixed(keyword string) *Square {
	if keyword == "" {
		return s
	}
	var b strings.Builder
	var seen [256]bool
	add := func(c byte) {
		if s.pos[c] != 0 && !seen[c] {
			seen[c] = true
			b.WriteByte(c)
		}
	}
	for i := 0; i < len(keyword); i++ {
		add(keyword[i])
	}
	for _, c := range s.cells {
		add(c)
	}
	// Every cell is added exactly once, so the layout is always valid.
	return MustSquare(s.name+"+"+keyword, b.String())
}

// String renders the square as a grid headed by the cipher alphabet.
func (s *Square) String() string {
	var b strings.Builder
	b.WriteString("  ")
	for i := 0; i < side; i++ {
		b.WriteByte(' ')
		b.WriteByte(Symbols[i])
	}
	for r := 0; r < side; r++ {
		b.WriteByte('\n')
		b.WriteByte(Symbols[r])
		b.WriteByte(' ')
		for c := 0; c < side; c++ {
			b.WriteByte(' ')
			cell := s.cells[r*side+c]
			if cell == ' ' {
				cell = '_'
			}
			b.WriteByte(cell)
		}
	}
	return b.String()
}

func symbolIndex(c byte) int {
	switch c {
	case 'A':
		return 0
	case 'D':
		return 1
	case 'F':
		return 2
	case 'G':
		return 3
	case 'V':
		return 4
	case 'X':
		return 5
	}
	return -1
}
