// Package pkg provides the core libraries for qrraster.
//
// # Overview
//
// qrraster turns text into a QR symbol and rasterizes the symbol's module
// matrix into a 1-bit image. The packages are layered:
//
//  1. [errors] - coded errors shared by every package
//  2. [matrix] - module matrix type and the QR encoder adapter
//  3. [sink] - row and byte destinations (file, growable memory buffer)
//  4. [raster] - scaling, quiet zone and MSB-first bit packing
//  5. [pngenc] - streaming PNG container for 1-bit scanlines
//  6. [pipeline] - orchestration with caching and hooks
//
// Supporting packages: [cache], [config], [observability] and [buildinfo].
//
// # Data Flow
//
//	content
//	   ↓
//	[matrix] Encode → Matrix{Width, Data}
//	   ↓
//	[raster] Render → one packed scanline per WriteRow
//	   ↓
//	[pngenc] Encoder (optional container)
//	   ↓
//	[sink] File or Growable
//
// # Quick Start
//
//	sym, err := matrix.Encode("https://example.com", matrix.LevelMedium)
//	if err != nil {
//	    return err
//	}
//	data, err := pipeline.EncodePNG(sym.Matrix, raster.Params{Scale: 4, Margin: 4})
package pkg
