// Package sink provides destinations for packed scanline bytes.
//
// # Overview
//
// A "sink" is where the rasterizer's output goes. Every sink accepts rows
// through the narrow [RowWriter] capability and plain byte streams through
// io.Writer, so it can sit directly behind the rasterizer (raw scanlines)
// or behind a container encoder (PNG bytes).
//
//   - [File]: forwards every write immediately to a file-like destination.
//     Rows are pushed and forgotten.
//   - [Growable]: accumulates bytes in memory. Rows must survive until the
//     caller reads them back with [Growable.Bytes].
//
// # Ownership
//
// Sinks never retain the slice passed to WriteRow or Write; the rasterizer
// rewrites its scanline buffer in place for every row. A sink is owned by a
// single render call and is not safe for concurrent use.
//
// # Destinations
//
// [Open] creates a [File] sink on an afero filesystem. The name "-" means
// standard output instead of a file of that name:
//
//	s, err := sink.Open(afero.NewOsFs(), "-", nil)
//	defer s.Close()
package sink

// RowWriter accepts exactly one scanline's packed bytes per call.
// Implementations must not retain row after returning.
type RowWriter interface {
	WriteRow(row []byte) error
}

// RowWriterFunc adapts an ordinary function to RowWriter.
type RowWriterFunc func(row []byte) error

// WriteRow calls f(row).
func (f RowWriterFunc) WriteRow(row []byte) error { return f(row) }
