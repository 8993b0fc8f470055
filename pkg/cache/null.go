package cache

import (
	"context"
	"time"
)

// NullCache misses on every lookup and drops every artifact. The CLI uses
// it for --no-cache and when no cache directory can be created.
type NullCache struct{}

// NewNullCache returns a cache that stores nothing.
func NewNullCache() Cache { return NullCache{} }

// Get always misses.
func (NullCache) Get(context.Context, string) (Artifact, bool, error) { return Artifact{}, false, nil }

// Set discards the artifact.
func (NullCache) Set(context.Context, string, Artifact, time.Duration) error { return nil }

func (NullCache) Delete(context.Context, string) error { return nil }

func (NullCache) Close() error { return nil }

var _ Cache = NullCache{}
