package matrix

import (
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/matzehuels/qrraster/pkg/errors"
)

// Level is an error correction level name: "low", "medium", "high" or "highest".
type Level string

// Recovery levels, from roughly 7% to 30% recoverable codewords.
const (
	LevelLow     Level = "low"
	LevelMedium  Level = "medium"
	LevelHigh    Level = "high"
	LevelHighest Level = "highest"
)

// DefaultLevel is the recovery level used when none is given.
const DefaultLevel = LevelMedium

var levels = map[Level]qrcode.RecoveryLevel{
	LevelLow:     qrcode.Low,
	LevelMedium:  qrcode.Medium,
	LevelHigh:    qrcode.High,
	LevelHighest: qrcode.Highest,
}

// ParseLevel parses a level name case-insensitively. The single-letter
// forms L, M, Q and H are accepted too.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "m", "medium":
		return LevelMedium, nil
	case "l", "low":
		return LevelLow, nil
	case "q", "high":
		return LevelHigh, nil
	case "h", "highest":
		return LevelHighest, nil
	}
	return "", errors.New(errors.ErrCodeInvalidLevel,
		"invalid level: %q (must be one of: low, medium, high, highest)", s)
}

// Symbol is an encoded QR symbol together with the encoder's metadata.
type Symbol struct {
	Matrix
	Version int
	Level   Level
}

// Encode turns content into a module matrix without a quiet zone.
// The symbol version is the smallest that fits content at the given level.
func Encode(content string, level Level) (Symbol, error) {
	if err := errors.ValidateContent(content); err != nil {
		return Symbol{}, err
	}
	rl, ok := levels[level]
	if !ok {
		return Symbol{}, errors.New(errors.ErrCodeInvalidLevel, "invalid level: %q", level)
	}

	q, err := qrcode.New(content, rl)
	if err != nil {
		return Symbol{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "encode content")
	}
	q.DisableBorder = true

	m, err := FromBitmap(q.Bitmap())
	if err != nil {
		return Symbol{}, errors.Wrap(errors.ErrCodeInternal, err, "convert encoder bitmap")
	}
	return Symbol{Matrix: m, Version: q.VersionNumber, Level: level}, nil
}
