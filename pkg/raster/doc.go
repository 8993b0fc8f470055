// Package raster turns a module matrix into a 1-bit-per-pixel scanline stream.
//
// # Overview
//
// [Render] takes a [matrix.Matrix], a per-module pixel [Params.Scale] and a
// quiet-zone [Params.Margin] (in modules), and pushes every scanline of the
// resulting square image to a [sink.RowWriter]:
//
//	margin*scale white rows
//	width data rows, each repeated scale times
//	margin*scale white rows
//
// The image edge is (width + 2*margin) * scale pixels. Each scanline is
// ceil(edge/8) bytes, packed most significant bit first, with 1 = white and
// 0 = black. This is the layout a grayscale bit-depth-1 PNG expects.
//
// # Buffer Reuse
//
// A single scanline buffer is allocated per call and rewritten in place
// for every row, so sinks must copy what they keep. Pixels beyond the image
// edge in the last byte of a row are always 1.
//
// # Example
//
//	g := sink.NewGrowable()
//	err := raster.Render(m, raster.Params{Scale: 4, Margin: 4}, g)
//	rows := g.Bytes() // Rows * RowBytes bytes
//
// [matrix.Matrix]: github.com/matzehuels/qrraster/pkg/matrix.Matrix
// [sink.RowWriter]: github.com/matzehuels/qrraster/pkg/sink.RowWriter
package raster
