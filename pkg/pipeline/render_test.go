package pipeline

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"math/bits"
	"os"
	"testing"

	"github.com/spf13/afero"

	"github.com/matzehuels/qrraster/pkg/errors"
	"github.com/matzehuels/qrraster/pkg/matrix"
	"github.com/matzehuels/qrraster/pkg/raster"
)

// diagonal is a 2x2 matrix with dark modules on the main diagonal.
var diagonal = matrix.Matrix{Width: 2, Data: []byte{1, 0, 0, 1}}

func TestRenderRaw(t *testing.T) {
	got, err := RenderBytes(diagonal, raster.Params{Scale: 2, Margin: 1}, FormatRaw)
	if err != nil {
		t.Fatalf("RenderBytes: %v", err)
	}
	want := []byte{0xff, 0xff, 0xcf, 0xcf, 0xf3, 0xf3, 0xff, 0xff}
	if !bytes.Equal(got, want) {
		t.Errorf("raw = % x, want % x", got, want)
	}
}

func TestEncodePNGMatchesRaster(t *testing.T) {
	tests := []struct {
		name string
		m    matrix.Matrix
		p    raster.Params
	}{
		{"diagonal", diagonal, raster.Params{Scale: 2, Margin: 1}},
		{"unaligned", diagonal, raster.Params{Scale: 3, Margin: 1}},
		{"no margin", matrix.Matrix{Width: 3, Data: []byte{1, 1, 1, 0, 1, 0, 1, 0, 1}}, raster.Params{Scale: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodePNG(tt.m, tt.p)
			if err != nil {
				t.Fatalf("EncodePNG: %v", err)
			}
			img, err := png.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("png.Decode: %v", err)
			}
			want, err := raster.Image(tt.m, tt.p)
			if err != nil {
				t.Fatal(err)
			}
			assertSamePixels(t, img, want)
		})
	}
}

func TestEncodePNGInvalid(t *testing.T) {
	data, err := EncodePNG(matrix.Matrix{Width: 2, Data: []byte{1}}, raster.Params{Scale: 1})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("error = %v, want INVALID_INPUT", err)
	}
	if data != nil {
		t.Errorf("data = %d bytes, want nil", len(data))
	}

	_, err = RenderBytes(diagonal, raster.Params{Scale: 1}, "bmp")
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("error = %v, want INVALID_FORMAT", err)
	}
}

func TestRenderBytesTooLarge(t *testing.T) {
	// A single module at this scale is valid geometry, but neither format
	// can hold the image in an addressable buffer.
	p := raster.Params{Scale: math.MaxInt / 4}
	for format := range ValidFormats {
		data, err := RenderBytes(matrix.Matrix{Width: 1, Data: []byte{1}}, p, format)
		if !errors.Is(err, errors.ErrCodeOutOfMemory) {
			t.Errorf("%s: error = %v, want OUT_OF_MEMORY", format, err)
		}
		if data != nil {
			t.Errorf("%s: data = %d bytes, want nil", format, len(data))
		}
	}
}

func TestRenderBytesWidthWrap(t *testing.T) {
	_, err := RenderBytes(matrix.Matrix{Width: 1 << (bits.UintSize / 2)}, raster.Params{Scale: 1}, FormatRaw)
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("error = %v, want INVALID_INPUT", err)
	}
}

func TestWritePNG(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := raster.Params{Scale: 4, Margin: 2}

	if err := WritePNG(fs, diagonal, p, "qr.png"); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}

	data, err := afero.ReadFile(fs, "qr.png")
	if err != nil {
		t.Fatal(err)
	}
	mem, err := EncodePNG(diagonal, p)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, mem) {
		t.Error("file output differs from in-memory output")
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if cfg.Width != 24 || cfg.Height != 24 {
		t.Errorf("size = %dx%d, want 24x24", cfg.Width, cfg.Height)
	}
}

func TestWriteFileStdout(t *testing.T) {
	var stdout bytes.Buffer
	err := WriteFile(afero.NewMemMapFs(), diagonal, raster.Params{Scale: 2, Margin: 1}, FormatRaw, "-", &stdout)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if stdout.Len() != 8 {
		t.Errorf("stdout got %d bytes, want 8", stdout.Len())
	}
}

func TestWriteFileErrors(t *testing.T) {
	p := raster.Params{Scale: 1}

	t.Run("invalid matrix creates nothing", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		err := WriteFile(fs, matrix.Matrix{}, p, FormatPNG, "qr.png", nil)
		if !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("error = %v, want INVALID_INPUT", err)
		}
		if _, err := fs.Stat("qr.png"); !os.IsNotExist(err) {
			t.Errorf("output should not exist, stat err = %v", err)
		}
	})

	t.Run("bad path", func(t *testing.T) {
		err := WriteFile(afero.NewMemMapFs(), diagonal, p, FormatPNG, "", nil)
		if !errors.Is(err, errors.ErrCodeInvalidPath) {
			t.Errorf("error = %v, want INVALID_PATH", err)
		}
	})

	t.Run("read-only fs", func(t *testing.T) {
		fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
		err := WriteFile(fs, diagonal, p, FormatPNG, "qr.png", nil)
		if !errors.Is(err, errors.ErrCodeSinkWrite) {
			t.Errorf("error = %v, want SINK_WRITE", err)
		}
	})
}

func assertSamePixels(t *testing.T, got image.Image, want *image.Gray) {
	t.Helper()
	if got.Bounds() != want.Bounds() {
		t.Fatalf("bounds = %v, want %v", got.Bounds(), want.Bounds())
	}
	b := want.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(got.At(x, y)).(color.Gray)
			if g.Y != want.GrayAt(x, y).Y {
				t.Fatalf("pixel (%d,%d) = %d, want %d", x, y, g.Y, want.GrayAt(x, y).Y)
			}
		}
	}
}
