package adfgvx

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// KeyOrder returns the column indices of key sorted by key byte. Equal bytes
// keep their original left-to-right order, so encoder and decoder always
// derive the same permutation from the same key.
func KeyOrder(key string) []int {
	order := make([]int, len(key))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(key[a], key[b])
	})
	return order
}

// Distribute deals stream into n columns round-robin: symbol i goes to
// column i mod n.
func Distribute(stream []byte, n int) [][]byte {
	columns := make([][]byte, n)
	if n == 0 {
		return columns
	}
	depth := (len(stream) + n - 1) / n
	for i := range columns {
		columns[i] = make([]byte, 0, depth)
	}
	for i, sym := range stream {
		columns[i%n] = append(columns[i%n], sym)
	}
	return columns
}

// Transpose reorders columns so that output position p holds columns[order[p]].
func Transpose(columns [][]byte, order []int) [][]byte {
	out := make([][]byte, len(order))
	for p, src := range order {
		out[p] = columns[src]
	}
	return out
}

// Linearize concatenates columns one after another.
func Linearize(columns [][]byte) string {
	var n int
	for _, col := range columns {
		n += len(col)
	}
	var b strings.Builder
	b.Grow(n)
	for _, col := range columns {
		b.Write(col)
	}
	return b.String()
}

// ColumnSizes returns how many symbols each column held before transposition,
// indexed by original column, for a ciphertext of length n. Round-robin
// distribution gives the leftover symbols to the lowest original indices.
func ColumnSizes(n int, order []int) []int {
	k := len(order)
	sizes := make([]int, k)
	if k == 0 {
		return sizes
	}
	rows, extra := n/k, n%k
	for _, col := range order {
		sizes[col] = rows
		if col < extra {
			sizes[col]++
		}
	}
	return sizes
}

// Untranspose splits ciphertext back into columns. Chunks are read in key
// order and stored under their original column index.
func Untranspose(ciphertext string, order []int, sizes []int) ([][]byte, error) {
	if len(sizes) != len(order) {
		return nil, fmt.Errorf("%w: %d column sizes for %d columns", ErrMalformedCiphertext, len(sizes), len(order))
	}
	columns := make([][]byte, len(order))
	pos := 0
	for _, col := range order {
		size := sizes[col]
		if size < 0 || pos+size > len(ciphertext) {
			return nil, fmt.Errorf("%w: column %d needs %d symbols at offset %d of %d",
				ErrMalformedCiphertext, col, size, pos, len(ciphertext))
		}
		columns[col] = []byte(ciphertext[pos : pos+size])
		pos += size
	}
	if pos != len(ciphertext) {
		return nil, fmt.Errorf("%w: %d trailing symbols", ErrMalformedCiphertext, len(ciphertext)-pos)
	}
	return columns, nil
}

// Collect reads columns row by row, left to right, undoing Distribute.
func Collect(columns [][]byte) []byte {
	var depth, total int
	for _, col := range columns {
		depth = max(depth, len(col))
		total += len(col)
	}
	stream := make([]byte, 0, total)
	for r := 0; r < depth; r++ {
		for _, col := range columns {
			if r < len(col) {
				stream = append(stream, col[r])
			}
		}
	}
	return stream
}
