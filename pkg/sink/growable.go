package sink

import (
	"fmt"
	"math"

	"github.com/matzehuels/qrraster/pkg/errors"
)

// InitialCapacity is the starting size of a Growable buffer, large enough
// for a typical small symbol without reallocating.
const InitialCapacity = 4096

// maxCapacity is the largest buffer a Growable will ever try to allocate.
const maxCapacity = math.MaxInt >> 1

// Growable is an in-memory sink with an explicit capacity/length pair.
// When an append would reach capacity, the capacity is doubled (repeatedly,
// if needed) and the existing bytes are copied before the new ones.
//
// The zero value is not usable; create one with [NewGrowable].
type Growable struct {
	buf    []byte // len(buf) is the capacity
	n      int    // valid bytes in buf
	limit  int    // largest permitted capacity
	maxLen int    // largest permitted length
	grows  int
}

// GrowableOption configures a Growable sink.
type GrowableOption func(*Growable)

// WithInitialCapacity overrides InitialCapacity. Values below 1 are raised to 1.
func WithInitialCapacity(n int) GrowableOption {
	return func(g *Growable) { g.buf = make([]byte, max(n, 1)) }
}

// WithLimit caps the capacity the buffer may grow to. Appends that would
// need more fail with OUT_OF_MEMORY.
func WithLimit(n int) GrowableOption {
	return func(g *Growable) { g.limit = n }
}

// WithMaxLen bounds the number of bytes the sink accepts. Callers that know
// the size of their output use it to turn a runaway producer into
// OUT_OF_MEMORY instead of an ever larger allocation.
func WithMaxLen(n int) GrowableOption {
	return func(g *Growable) { g.maxLen = n }
}

// NewGrowable creates an empty in-memory sink.
func NewGrowable(opts ...GrowableOption) *Growable {
	g := &Growable{limit: maxCapacity, maxLen: maxCapacity}
	for _, opt := range opts {
		opt(g)
	}
	if g.buf == nil {
		g.buf = make([]byte, InitialCapacity)
	}
	return g
}

// WriteRow appends one scanline.
func (g *Growable) WriteRow(row []byte) error {
	return g.append(row)
}

// Write appends p. It implements io.Writer so a container encoder can
// stream into the sink.
func (g *Growable) Write(p []byte) (int, error) {
	if err := g.append(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Bytes returns exactly the bytes written so far. The slice aliases the
// sink's buffer and is valid until the next write or Reset.
func (g *Growable) Bytes() []byte { return g.buf[:g.n:g.n] }

// Len returns the number of valid bytes.
func (g *Growable) Len() int { return g.n }

// Cap returns the current capacity.
func (g *Growable) Cap() int { return len(g.buf) }

// Grows returns how many times the buffer has been reallocated.
func (g *Growable) Grows() int { return g.grows }

// Reset discards the contents but keeps the allocated capacity.
func (g *Growable) Reset() { g.n = 0 }

func (g *Growable) append(p []byte) error {
	if err := g.reserve(len(p)); err != nil {
		return err
	}
	copy(g.buf[g.n:], p)
	g.n += len(p)
	return nil
}

// reserve makes room for n more bytes. Growth happens when n+len reaches
// capacity, so the buffer always keeps at least one spare byte.
func (g *Growable) reserve(n int) error {
	if n > maxCapacity-g.n {
		return errors.New(errors.ErrCodeOutOfMemory, "append of %d bytes overflows buffer length %d", n, g.n)
	}
	need := g.n + n
	if need > g.maxLen {
		return errors.New(errors.ErrCodeOutOfMemory, "append of %d bytes exceeds maximum length %d", n, g.maxLen)
	}
	if need < len(g.buf) {
		return nil
	}

	newCap := len(g.buf)
	for need >= newCap {
		if newCap > g.limit/2 {
			return errors.New(errors.ErrCodeOutOfMemory,
				"cannot grow buffer beyond %d bytes to hold %d", g.limit, need)
		}
		newCap *= 2
	}

	buf, err := allocate(newCap)
	if err != nil {
		return err
	}
	copy(buf, g.buf[:g.n])
	g.buf = buf
	g.grows++
	return nil
}

// allocate turns the runtime's refusal of a slice length into OUT_OF_MEMORY.
// Exhausting real memory is a fatal runtime error that cannot be recovered;
// WithLimit and WithMaxLen are the way to bound what a Growable asks for.
func allocate(n int) (buf []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrap(errors.ErrCodeOutOfMemory, fmt.Errorf("%v", r), "allocate %d bytes", n)
		}
	}()
	return make([]byte, n), nil
}

// Ensure Growable implements RowWriter.
var _ RowWriter = (*Growable)(nil)
