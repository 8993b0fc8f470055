// Package pngenc is a streaming PNG writer for 1-bit grayscale scanlines.
//
// The geometry is declared up front by [NewEncoder], rows are pushed one at
// a time with [Encoder.WriteRow], and [Encoder.Close] writes the trailer.
// Rows are filtered with filter type None, deflated with
// github.com/klauspost/compress/zlib and framed into IDAT chunks of at most
// 32 KiB, so memory use does not depend on image height.
//
// An Encoder satisfies sink.RowWriter, which lets the rasterizer push
// straight into it while it writes the file bytes to any io.Writer,
// typically a sink.File or sink.Growable.
package pngenc

import (
	"encoding/binary"
	"hash/crc32"
	"io"
	"math"

	"github.com/klauspost/compress/zlib"

	"github.com/matzehuels/qrraster/pkg/errors"
)

const pngHeader = "\x89PNG\r\n\x1a\n"

// chunkSize is the IDAT payload size at which a chunk is cut.
const chunkSize = 0x8000

// Software is the default tEXt Software value.
const Software = "qrraster"

// MaxSize returns an upper bound on the bytes an Encoder with the default
// Software text writes for a width×height image, at any compression level.
// ok is false when the bound does not fit in an int.
func MaxSize(width, height int) (n int, ok bool) {
	if width <= 0 || height <= 0 {
		return 0, false
	}
	line := (width+7)/8 + 1
	if line > (math.MaxInt/2)/height {
		return 0, false
	}
	// Filtered scanlines, then deflate's worst case: stored blocks add a
	// few bytes per block on top of the zlib header and checksum.
	raw := line * height
	z := raw + raw>>10 + 64
	chunks := z/chunkSize + 1
	fixed := len(pngHeader) + 12 + 13 + 12 + len("Software\x00"+Software) + 12
	return z + 12*chunks + fixed, true
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithCompressionLevel sets the zlib level (zlib.BestSpeed through
// zlib.BestCompression, or zlib.DefaultCompression).
func WithCompressionLevel(level int) Option {
	return func(e *Encoder) { e.level = level }
}

// WithSoftware sets the tEXt Software chunk. An empty value omits the chunk.
func WithSoftware(s string) Option {
	return func(e *Encoder) { e.software = s }
}

// Encoder writes a bit depth 1, color type 0 (grayscale), non-interlaced PNG.
// An Encoder is not safe for concurrent use.
type Encoder struct {
	w        io.Writer
	width    int
	height   int
	rowBytes int
	level    int
	software string

	rows   int
	line   []byte // filter byte followed by one scanline
	idat   idatWriter
	zw     *zlib.Writer
	err    error
	closed bool
}

// NewEncoder writes the PNG signature and header chunks to w and returns an
// encoder expecting exactly height rows of ceil(width/8) bytes each.
func NewEncoder(w io.Writer, width, height int, opts ...Option) (*Encoder, error) {
	if width <= 0 || height <= 0 || width > math.MaxInt32 || height > math.MaxInt32 {
		return nil, errors.New(errors.ErrCodeEncoder, "invalid image size %dx%d", width, height)
	}
	e := &Encoder{
		w:        w,
		width:    width,
		height:   height,
		rowBytes: (width + 7) / 8,
		level:    zlib.DefaultCompression,
		software: Software,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.line = make([]byte, 1+e.rowBytes)
	e.idat = idatWriter{w: w, buf: make([]byte, 0, chunkSize)}

	zw, err := zlib.NewWriterLevel(&e.idat, e.level)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeEncoder, err, "init zlib")
	}
	e.zw = zw

	if _, err := io.WriteString(w, pngHeader); err != nil {
		return nil, errors.Ensure(errors.ErrCodeSinkWrite, err, "write signature")
	}
	var ihdr [13]byte
	binary.BigEndian.PutUint32(ihdr[0:4], uint32(width))
	binary.BigEndian.PutUint32(ihdr[4:8], uint32(height))
	ihdr[8] = 1  // bit depth
	ihdr[9] = 0  // grayscale
	ihdr[10] = 0 // deflate
	ihdr[11] = 0 // adaptive filtering
	ihdr[12] = 0 // no interlace
	if err := writeChunk(w, "IHDR", ihdr[:]); err != nil {
		return nil, err
	}
	if e.software != "" {
		if err := writeChunk(w, "tEXt", []byte("Software\x00"+e.software)); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Width returns the declared image width in pixels.
func (e *Encoder) Width() int { return e.width }

// Height returns the declared image height in pixels.
func (e *Encoder) Height() int { return e.height }

// Rows returns the number of rows accepted so far.
func (e *Encoder) Rows() int { return e.rows }

// WriteRow appends one packed scanline. The row must be exactly
// ceil(width/8) bytes; row is not retained.
func (e *Encoder) WriteRow(row []byte) error {
	if e.err != nil {
		return e.err
	}
	if e.closed {
		return errors.New(errors.ErrCodeEncoder, "write after close")
	}
	if len(row) != e.rowBytes {
		return e.fail(errors.New(errors.ErrCodeEncoder,
			"row has %d bytes, image width %d needs %d", len(row), e.width, e.rowBytes))
	}
	if e.rows >= e.height {
		return e.fail(errors.New(errors.ErrCodeEncoder, "row %d exceeds image height %d", e.rows, e.height))
	}

	e.line[0] = 0 // filter: none
	copy(e.line[1:], row)
	if _, err := e.zw.Write(e.line); err != nil {
		return e.fail(errors.Ensure(errors.ErrCodeEncoder, err, "compress row %d", e.rows))
	}
	e.rows++
	return nil
}

// Close flushes the compressed stream and writes the trailer. It fails if
// fewer rows than the declared height were written.
func (e *Encoder) Close() error {
	if e.err != nil {
		return e.err
	}
	if e.closed {
		return nil
	}
	e.closed = true
	if e.rows != e.height {
		return e.fail(errors.New(errors.ErrCodeEncoder, "got %d rows, image height is %d", e.rows, e.height))
	}
	if err := e.zw.Close(); err != nil {
		return e.fail(errors.Ensure(errors.ErrCodeEncoder, err, "finish zlib stream"))
	}
	if err := e.idat.flush(); err != nil {
		return e.fail(err)
	}
	if err := writeChunk(e.w, "IEND", nil); err != nil {
		return e.fail(err)
	}
	return nil
}

func (e *Encoder) fail(err error) error {
	e.err = err
	return err
}

// idatWriter collects zlib output and emits it as IDAT chunks.
type idatWriter struct {
	w   io.Writer
	buf []byte
}

func (d *idatWriter) Write(p []byte) (int, error) {
	n := len(p)
	for len(p) > 0 {
		k := min(len(p), chunkSize-len(d.buf))
		d.buf = append(d.buf, p[:k]...)
		p = p[k:]
		if len(d.buf) == chunkSize {
			if err := d.flush(); err != nil {
				return 0, err
			}
		}
	}
	return n, nil
}

func (d *idatWriter) flush() error {
	if len(d.buf) == 0 {
		return nil
	}
	err := writeChunk(d.w, "IDAT", d.buf)
	d.buf = d.buf[:0]
	return err
}

// writeChunk writes length, type, data and the CRC of type and data.
func writeChunk(w io.Writer, name string, data []byte) error {
	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[0:4], uint32(len(data)))
	copy(hdr[4:8], name)

	crc := crc32.NewIEEE()
	crc.Write(hdr[4:8])
	crc.Write(data)
	var footer [4]byte
	binary.BigEndian.PutUint32(footer[:], crc.Sum32())

	for _, b := range [][]byte{hdr[:], data, footer[:]} {
		if len(b) == 0 {
			continue
		}
		if _, err := w.Write(b); err != nil {
			return errors.Ensure(errors.ErrCodeSinkWrite, err, "write %s chunk", name)
		}
	}
	return nil
}
