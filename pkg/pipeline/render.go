package pipeline

import (
	"io"
	"math"
	"os"

	"github.com/spf13/afero"

	"github.com/matzehuels/qrraster/pkg/errors"
	"github.com/matzehuels/qrraster/pkg/matrix"
	"github.com/matzehuels/qrraster/pkg/pngenc"
	"github.com/matzehuels/qrraster/pkg/raster"
	"github.com/matzehuels/qrraster/pkg/sink"
)

// EncodePNG renders m as a PNG into a growable memory sink and returns
// the file bytes.
func EncodePNG(m matrix.Matrix, p raster.Params) ([]byte, error) {
	return RenderBytes(m, p, FormatPNG)
}

// RenderBytes renders m in format into memory. The buffer is bounded by the
// largest output the geometry can produce, and a geometry whose output
// cannot be addressed fails with OUT_OF_MEMORY before anything is allocated.
func RenderBytes(m matrix.Matrix, p raster.Params, format string) ([]byte, error) {
	g, err := geometry(m, p, format)
	if err != nil {
		return nil, err
	}
	size, ok := maxOutputSize(g, format)
	if !ok {
		return nil, errors.New(errors.ErrCodeOutOfMemory,
			"%s output of %dx%d pixels does not fit in memory", format, g.RealWidth, g.RealWidth)
	}
	buf := sink.NewGrowable(sink.WithMaxLen(size))
	if err := Render(buf, m, p, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// maxOutputSize bounds the bytes format produces for g.
func maxOutputSize(g raster.Geometry, format string) (int, bool) {
	if format == FormatRaw {
		if g.RowBytes > math.MaxInt/g.Rows() {
			return 0, false
		}
		return g.Size(), true
	}
	return pngenc.MaxSize(g.RealWidth, g.RealWidth)
}

// WritePNG renders m as a PNG file called name on fs.
// The name "-" writes to standard output.
func WritePNG(fs afero.Fs, m matrix.Matrix, p raster.Params, name string) error {
	return WriteFile(fs, m, p, FormatPNG, name, nil)
}

// WriteFile renders m in format to the file called name on fs, or to stdout
// when name is "-" (os.Stdout if stdout is nil). Inputs are validated before
// the destination is created. A file left incomplete by a failed render is
// removed.
func WriteFile(fs afero.Fs, m matrix.Matrix, p raster.Params, format, name string, stdout io.Writer) error {
	_, err := writeFile(fs, m, p, format, name, stdout)
	return err
}

// writeFile is WriteFile reporting how many bytes reached the destination.
func writeFile(fs afero.Fs, m matrix.Matrix, p raster.Params, format, name string, stdout io.Writer) (int64, error) {
	if _, err := geometry(m, p, format); err != nil {
		return 0, err
	}

	f, err := sink.Open(fs, name, stdout)
	if err != nil {
		return 0, err
	}

	err = Render(f, m, p, format)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil && name != sink.Stdout {
		if rerr := fs.Remove(name); rerr != nil && !os.IsNotExist(rerr) {
			return f.Written(), errors.Wrap(errors.ErrCodeSinkWrite, rerr, "remove partial output after: %v", err)
		}
	}
	return f.Written(), err
}

// Render writes m in format to w. Rows go straight to w when it is a
// sink.RowWriter; PNG output is framed by a streaming pngenc.Encoder.
func Render(w io.Writer, m matrix.Matrix, p raster.Params, format string) error {
	g, err := geometry(m, p, format)
	if err != nil {
		return err
	}

	switch format {
	case FormatRaw:
		return raster.Render(m, p, rowWriter(w))
	default:
		enc, err := pngenc.NewEncoder(w, g.RealWidth, g.RealWidth)
		if err != nil {
			return err
		}
		if err := raster.Render(m, p, enc); err != nil {
			return err
		}
		return enc.Close()
	}
}

// geometry validates every input before a single byte is written.
func geometry(m matrix.Matrix, p raster.Params, format string) (raster.Geometry, error) {
	if err := ValidateFormat(format); err != nil {
		return raster.Geometry{}, err
	}
	if err := m.Validate(); err != nil {
		return raster.Geometry{}, err
	}
	return raster.NewGeometry(m.Width, p)
}

func rowWriter(w io.Writer) sink.RowWriter {
	if rw, ok := w.(sink.RowWriter); ok {
		return rw
	}
	return sink.RowWriterFunc(func(row []byte) error {
		_, err := w.Write(row)
		return err
	})
}
