// Package cache stores rendered artifacts so identical requests skip the
// encode and rasterize stages.
//
// Three backends share the [Cache] interface:
//
//   - [FileCache]: one file per entry on an afero filesystem (CLI)
//   - [MemoryCache]: an in-process map (HTTP server, tests)
//   - [NullCache]: never stores anything (--no-cache)
//
// Keys come from a [Keyer], which hashes the content together with every
// option that changes the output bytes.
package cache

import (
	"context"
	"time"
)

// TTLArtifact is how long a rendered artifact stays cached. Rendering is
// deterministic, so the limit only bounds disk use.
const TTLArtifact = 7 * 24 * time.Hour

// Artifact is one rendered output with the symbol metadata a cache hit
// needs to describe it without re-encoding.
type Artifact struct {
	Format  string
	Version int // QR symbol version
	Width   int // modules per edge, without quiet zone
	Data    []byte
}

// Cache stores artifacts with optional expiry.
type Cache interface {
	// Get returns the artifact and true on a hit. A miss is not an error.
	Get(ctx context.Context, key string) (Artifact, bool, error)

	// Set stores a. A zero ttl means no expiry.
	Set(ctx context.Context, key string, a Artifact, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}

// ArtifactKeyOpts lists the render options that affect artifact bytes.
type ArtifactKeyOpts struct {
	Format string
	Level  string
	Scale  int
	Margin int
}

// Keyer generates cache keys.
type Keyer interface {
	// ArtifactKey generates a key for a rendered artifact of the content
	// with the given hash.
	ArtifactKey(contentHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer generates unscoped keys of the form "artifact:<sha256>".
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ArtifactKey hashes the content hash with opts.
func (DefaultKeyer) ArtifactKey(contentHash string, opts ArtifactKeyOpts) string {
	return "artifact:" + artifactDigest(contentHash, opts)
}
