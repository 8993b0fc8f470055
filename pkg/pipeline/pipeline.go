// Package pipeline turns text content into a rendered QR artifact.
//
// The pipeline has two stages that can be run together through a [Runner]
// or separately:
//
//  1. Encode: content → module matrix (matrix.Encode)
//  2. Render: module matrix → scanlines → artifact bytes, either a PNG
//     container or the bare 1-bit scanline stream
//
// # Usage
//
// Run both stages with caching:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Content: "https://example.com",
//	    Scale:   4,
//	    Margin:  4,
//	})
//	if err != nil {
//	    return err
//	}
//	png := result.Artifact
//
// Render a matrix you already have:
//
//	data, err := pipeline.EncodePNG(m, raster.Params{Scale: 3, Margin: 4})
//	err = pipeline.WritePNG(afero.NewOsFs(), m, params, "qr.png")
package pipeline

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/qrraster/pkg/errors"
	"github.com/matzehuels/qrraster/pkg/matrix"
	"github.com/matzehuels/qrraster/pkg/raster"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

// Format constants for output formats.
const (
	// FormatPNG is a 1-bit grayscale PNG file.
	FormatPNG = "png"

	// FormatRaw is the packed scanline stream without any container:
	// RealWidth rows of RowBytes bytes each, bit 1 = white.
	FormatRaw = "raw"
)

// DefaultFormat is the output format used when none is given.
const DefaultFormat = FormatPNG

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatPNG: true,
	FormatRaw: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a pipeline run.
// This struct supports JSON serialization for API requests.
//
// Margin is used as given, so the zero value renders without a quiet zone.
// Callers that want the conventional frame set it to raster.DefaultMargin.
type Options struct {
	// Encode options
	Content string `json:"content"`
	Level   string `json:"level,omitempty"`

	// Render options
	Scale  int    `json:"scale,omitempty"`
	Margin int    `json:"margin"`
	Format string `json:"format,omitempty"`

	// Refresh bypasses the cache lookup. The fresh result is still stored.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	// Logger overrides the Runner's logger for this run.
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Artifact holds the rendered bytes in Format.
	Artifact []byte

	// Format is the artifact format.
	Format string

	// Symbol describes the encoded QR symbol.
	Symbol SymbolInfo

	// Geometry is the pixel layout of the artifact.
	Geometry raster.Geometry

	// ContentHash is the SHA-256 of the content.
	ContentHash string

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks whether the artifact came from the cache.
	CacheInfo CacheInfo
}

// SymbolInfo describes an encoded symbol.
type SymbolInfo struct {
	Version int          `json:"version"`
	Width   int          `json:"width"`
	Level   matrix.Level `json:"level"`
}

// Stats contains pipeline execution statistics.
type Stats struct {
	EncodeTime time.Duration
	RenderTime time.Duration
	Size       int
}

// CacheInfo tracks cache use for a run.
type CacheInfo struct {
	Hit bool // Whether the artifact came from cache
	Key string
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: png, raw)", format)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := errors.ValidateContent(o.Content); err != nil {
		return err
	}

	level, err := matrix.ParseLevel(o.Level)
	if err != nil {
		return err
	}
	o.Level = string(level)

	o.SetRenderDefaults()
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if o.Scale == 0 {
		o.Scale = raster.DefaultScale
	}
	if o.Format == "" {
		o.Format = DefaultFormat
	}
}

// ValidateForRender checks the render parameters.
func (o *Options) ValidateForRender() error {
	if err := errors.ValidateDimensions(o.Scale, o.Margin); err != nil {
		return err
	}
	return ValidateFormat(o.Format)
}

// Params returns the raster parameters.
func (o Options) Params() raster.Params {
	return raster.Params{Scale: o.Scale, Margin: o.Margin}
}
