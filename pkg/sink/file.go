package sink

import (
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/matzehuels/qrraster/pkg/errors"
)

// Stdout is the destination name that selects standard output.
const Stdout = "-"

// File forwards every row to an underlying writer as soon as it arrives.
// A failed write is reported as SINK_WRITE; whatever the destination
// already accepted is left as is.
type File struct {
	w       io.Writer
	c       io.Closer
	name    string
	written int64
}

// NewFile wraps w. If w is also an io.Closer, Close closes it.
func NewFile(w io.Writer, name string) *File {
	f := &File{w: w, name: name}
	if c, ok := w.(io.Closer); ok {
		f.c = c
	}
	return f
}

// Open creates the named file on fs, truncating an existing one. The name
// "-" selects stdout instead; stdout is never closed by the sink. A nil
// stdout means os.Stdout.
func Open(fs afero.Fs, name string, stdout io.Writer) (*File, error) {
	if err := errors.ValidateOutputPath(name); err != nil {
		return nil, err
	}
	if name == Stdout {
		if stdout == nil {
			stdout = os.Stdout
		}
		return &File{w: stdout, name: name}, nil
	}
	fh, err := fs.Create(name)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSinkWrite, err, "create %s", name)
	}
	return &File{w: fh, c: fh, name: name}, nil
}

// Name returns the destination name given at construction.
func (f *File) Name() string { return f.name }

// Written returns the number of bytes accepted by the destination.
func (f *File) Written() int64 { return f.written }

// WriteRow forwards one scanline.
func (f *File) WriteRow(row []byte) error {
	_, err := f.Write(row)
	return err
}

// Write forwards p to the destination.
func (f *File) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	f.written += int64(n)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return n, errors.Wrap(errors.ErrCodeSinkWrite, err, "write %s", f.name)
	}
	return n, nil
}

// Close closes the destination if the sink owns it.
func (f *File) Close() error {
	if f.c == nil {
		return nil
	}
	c := f.c
	f.c = nil
	if err := c.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeSinkWrite, err, "close %s", f.name)
	}
	return nil
}

// Ensure File implements RowWriter.
var _ RowWriter = (*File)(nil)
