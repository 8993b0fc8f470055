package matrix

import (
	"math"
	"math/bits"
	"testing"

	"github.com/matzehuels/qrraster/pkg/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		m       Matrix
		wantErr bool
	}{
		{"single module", Matrix{Width: 1, Data: []byte{1}}, false},
		{"two by two", Matrix{Width: 2, Data: []byte{0, 1, 1, 0}}, false},

		{"zero width", Matrix{Width: 0, Data: nil}, true},
		{"negative width", Matrix{Width: -3, Data: nil}, true},
		{"short data", Matrix{Width: 2, Data: []byte{0, 1, 1}}, true},
		{"long data", Matrix{Width: 1, Data: []byte{0, 1}}, true},
		{"width squared wraps to zero", Matrix{Width: 1 << (bits.UintSize / 2), Data: nil}, true},
		{"max width", Matrix{Width: math.MaxInt, Data: []byte{1}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("Validate() code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidInput)
			}
		})
	}
}

func TestDarkIgnoresHighBits(t *testing.T) {
	m := Matrix{Width: 2, Data: []byte{0x01, 0xfe, 0x81, 0x00}}

	want := [][]bool{{true, false}, {true, false}}
	for y := range want {
		for x := range want[y] {
			if got := m.Dark(x, y); got != want[y][x] {
				t.Errorf("Dark(%d, %d) = %v, want %v", x, y, got, want[y][x])
			}
		}
	}
	if got := m.DarkCount(); got != 2 {
		t.Errorf("DarkCount() = %d, want 2", got)
	}
}

func TestFromBitmap(t *testing.T) {
	m, err := FromBitmap([][]bool{
		{true, false, false},
		{false, true, false},
		{false, false, true},
	})
	if err != nil {
		t.Fatalf("FromBitmap() error: %v", err)
	}
	if m.Width != 3 {
		t.Errorf("Width = %d, want 3", m.Width)
	}
	want := []byte{1, 0, 0, 0, 1, 0, 0, 0, 1}
	if string(m.Data) != string(want) {
		t.Errorf("Data = %v, want %v", m.Data, want)
	}

	if _, err := FromBitmap(nil); err == nil {
		t.Error("FromBitmap(nil) should fail")
	}
	if _, err := FromBitmap([][]bool{{true, false}, {true}}); err == nil {
		t.Error("FromBitmap() with ragged rows should fail")
	}
}

func TestString(t *testing.T) {
	m := Matrix{Width: 2, Data: []byte{1, 0, 0, 1}}
	want := "#.\n.#\n"
	if got := m.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	if got := (Matrix{Width: 2}).String(); got != "" {
		t.Errorf("String() on invalid matrix = %q, want empty", got)
	}
}
