// Package matrix defines the square module matrix consumed by the rasterizer.
//
// A [Matrix] is the hand-off point from a QR encoder: Width modules per
// edge and one byte per module in row-major order. Only the least
// significant bit of each byte is meaningful (1 = dark module); higher bits
// belong to the encoder and are ignored here.
//
// Matrices are usually produced by [Encode], which drives
// github.com/skip2/go-qrcode, or converted from any boolean bitmap with
// [FromBitmap].
package matrix

import (
	"strings"

	"github.com/matzehuels/qrraster/pkg/errors"
)

// Matrix is a Width×Width grid of modules in row-major order.
// Callers own a Matrix for the duration of a render call and must not
// mutate it concurrently.
type Matrix struct {
	Width int
	Data  []byte
}

// Validate checks the shape invariants: positive width and exactly
// Width*Width module bytes. The semantic correctness of the symbol is not
// checked.
func (m Matrix) Validate() error {
	if m.Width <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "matrix width must be positive, got %d", m.Width)
	}
	// Compare by division: Width*Width may wrap around for huge widths.
	if len(m.Data)%m.Width != 0 || len(m.Data)/m.Width != m.Width {
		return errors.New(errors.ErrCodeInvalidInput,
			"matrix data has %d modules, want width %d squared", len(m.Data), m.Width)
	}
	return nil
}

// Dark reports whether the module at column x, row y is dark.
func (m Matrix) Dark(x, y int) bool {
	return m.Data[y*m.Width+x]&1 == 1
}

// DarkCount returns the number of dark modules.
func (m Matrix) DarkCount() int {
	n := 0
	for _, b := range m.Data {
		n += int(b & 1)
	}
	return n
}

// FromBitmap converts a square boolean bitmap (true = dark) into a Matrix.
func FromBitmap(bitmap [][]bool) (Matrix, error) {
	w := len(bitmap)
	if w == 0 {
		return Matrix{}, errors.New(errors.ErrCodeInvalidInput, "bitmap is empty")
	}
	data := make([]byte, w*w)
	for y, row := range bitmap {
		if len(row) != w {
			return Matrix{}, errors.New(errors.ErrCodeInvalidInput,
				"bitmap row %d has %d modules, want %d", y, len(row), w)
		}
		for x, dark := range row {
			if dark {
				data[y*w+x] = 1
			}
		}
	}
	return Matrix{Width: w, Data: data}, nil
}

// String renders the matrix as text, one line per row, with '#' for dark
// and '.' for light modules.
func (m Matrix) String() string {
	if m.Validate() != nil {
		return ""
	}
	var b strings.Builder
	b.Grow((m.Width + 1) * m.Width)
	for y := 0; y < m.Width; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Dark(x, y) {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
