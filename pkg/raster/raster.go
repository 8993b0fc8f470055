package raster

import (
	"math"

	"github.com/matzehuels/qrraster/pkg/errors"
	"github.com/matzehuels/qrraster/pkg/matrix"
	"github.com/matzehuels/qrraster/pkg/sink"
)

// Default render parameters, matching common QR tooling.
const (
	DefaultScale  = 3
	DefaultMargin = 4
)

// Params controls how modules map to pixels.
type Params struct {
	Scale  int `json:"scale" toml:"scale"`   // pixels per module edge, > 0
	Margin int `json:"margin" toml:"margin"` // quiet zone in modules, >= 0
}

// Validate checks Scale > 0 and Margin >= 0.
func (p Params) Validate() error {
	if p.Scale <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "scale must be positive, got %d", p.Scale)
	}
	if p.Margin < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "margin must be non-negative, got %d", p.Margin)
	}
	return nil
}

// Geometry is the output layout derived from a matrix width and Params.
type Geometry struct {
	Width     int // modules per matrix edge
	Scale     int
	Margin    int
	RealWidth int // pixels per image edge (the image is square)
	RowBytes  int // packed bytes per scanline
}

// NewGeometry computes the output layout, rejecting inputs whose pixel
// width would overflow int.
func NewGeometry(width int, p Params) (Geometry, error) {
	if width <= 0 {
		return Geometry{}, errors.New(errors.ErrCodeInvalidInput, "matrix width must be positive, got %d", width)
	}
	if err := p.Validate(); err != nil {
		return Geometry{}, err
	}
	if p.Margin > (math.MaxInt-width)/2 {
		return Geometry{}, errors.New(errors.ErrCodeInvalidInput, "margin %d too large", p.Margin)
	}
	modules := width + 2*p.Margin
	if modules > (math.MaxInt-7)/p.Scale {
		return Geometry{}, errors.New(errors.ErrCodeInvalidInput,
			"image of %d modules at scale %d is too large", modules, p.Scale)
	}
	px := modules * p.Scale
	return Geometry{
		Width:     width,
		Scale:     p.Scale,
		Margin:    p.Margin,
		RealWidth: px,
		RowBytes:  (px + 7) / 8,
	}, nil
}

// Rows returns the number of scanlines, equal to RealWidth.
func (g Geometry) Rows() int { return g.RealWidth }

// MarginRows returns the number of white rows above and below the data.
func (g Geometry) MarginRows() int { return g.Margin * g.Scale }

// Size returns the total number of packed bytes in the scanline stream.
func (g Geometry) Size() int { return g.Rows() * g.RowBytes }

// Render pushes every scanline of m, scaled and framed by p, to dst.
//
// Shape and parameter violations are reported as INVALID_INPUT before any
// row is written. If dst fails, rendering stops at that row and the error
// is returned as SINK_WRITE, unless it already carries a code.
func Render(m matrix.Matrix, p Params, dst sink.RowWriter) error {
	if err := m.Validate(); err != nil {
		return err
	}
	g, err := NewGeometry(m.Width, p)
	if err != nil {
		return err
	}

	row := newScanline(g.RowBytes)
	y := 0
	push := func(n int) error {
		for i := 0; i < n; i++ {
			if err := dst.WriteRow(row); err != nil {
				return errors.Ensure(errors.ErrCodeSinkWrite, err, "write row %d", y)
			}
			y++
		}
		return nil
	}

	row.clear()
	if err := push(g.MarginRows()); err != nil {
		return err
	}

	offset := g.MarginRows()
	for my := 0; my < m.Width; my++ {
		row.clear()
		row.pack(m.Data[my*m.Width:(my+1)*m.Width], offset, g.Scale)
		if err := push(g.Scale); err != nil {
			return err
		}
	}

	row.clear()
	return push(g.MarginRows())
}
