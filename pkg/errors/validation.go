package errors

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxContentBytes is the byte-mode capacity of the largest QR symbol
// (version 40, low recovery). Longer payloads can never be encoded.
const MaxContentBytes = 2953

// MaxScale bounds the pixels-per-module factor accepted from untrusted
// callers such as HTTP requests.
const MaxScale = 64

// MaxMargin bounds the quiet zone, in modules, accepted from untrusted callers.
const MaxMargin = 64

// ValidateContent validates a payload before it is handed to the QR encoder.
//
// The rules are intentionally minimal:
//   - No empty payloads
//   - Valid UTF-8
//   - At most MaxContentBytes bytes
func ValidateContent(content string) error {
	if content == "" {
		return New(ErrCodeInvalidInput, "content cannot be empty")
	}
	if !utf8.ValidString(content) {
		return New(ErrCodeInvalidInput, "content must be valid UTF-8")
	}
	if len(content) > MaxContentBytes {
		return New(ErrCodeInvalidInput, "content too long (%d bytes, max %d)", len(content), MaxContentBytes)
	}
	return nil
}

// ValidateDimensions checks scale and margin supplied by untrusted callers.
// Library callers may exceed the bounds; the rasterizer only requires
// scale > 0 and margin >= 0.
func ValidateDimensions(scale, margin int) error {
	if scale < 1 || scale > MaxScale {
		return New(ErrCodeInvalidInput, "scale must be between 1 and %d, got %d", MaxScale, scale)
	}
	if margin < 0 || margin > MaxMargin {
		return New(ErrCodeInvalidInput, "margin must be between 0 and %d, got %d", MaxMargin, margin)
	}
	return nil
}

// ValidateOutputPath validates a destination name.
// The name "-" is accepted and denotes standard output.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
//   - Path cannot name a directory (trailing separator)
func ValidateOutputPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "output path cannot be empty")
	}
	if path == "-" {
		return nil
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasSuffix(path, "/") {
		return New(ErrCodeInvalidPath, "path must name a file, not a directory")
	}

	return nil
}
