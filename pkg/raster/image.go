package raster

import (
	"image"

	"github.com/matzehuels/qrraster/pkg/matrix"
	"github.com/matzehuels/qrraster/pkg/sink"
)

// Image renders m into an 8-bit grayscale image using the same scanline
// stream Render produces. Black pixels are 0, white pixels 255.
func Image(m matrix.Matrix, p Params) (*image.Gray, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	g, err := NewGeometry(m.Width, p)
	if err != nil {
		return nil, err
	}

	img := image.NewGray(image.Rect(0, 0, g.RealWidth, g.RealWidth))
	y := 0
	err = Render(m, p, sink.RowWriterFunc(func(row []byte) error {
		Unpack(row, img.Pix[y*img.Stride:y*img.Stride+g.RealWidth])
		y++
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return img, nil
}

// Unpack expands the first len(dst) pixels of a packed scanline into one
// gray byte per pixel.
func Unpack(row []byte, dst []uint8) {
	s := scanline(row)
	for x := range dst {
		if s.white(x) {
			dst[x] = 0xff
		} else {
			dst[x] = 0
		}
	}
}
