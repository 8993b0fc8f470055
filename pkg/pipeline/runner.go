package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/matzehuels/qrraster/pkg/cache"
	"github.com/matzehuels/qrraster/pkg/errors"
	"github.com/matzehuels/qrraster/pkg/matrix"
	"github.com/matzehuels/qrraster/pkg/observability"
	"github.com/matzehuels/qrraster/pkg/raster"
)

// cacheKeyType labels artifact entries in cache hooks.
const cacheKeyType = "artifact"

// Runner encapsulates pipeline execution with caching.
// Both the CLI and the HTTP server use it so cache keys stay consistent.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options, provided the cache is safe for
// concurrent use.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the encode → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	logger := r.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	}

	level := matrix.Level(opts.Level)
	params := opts.Params()
	result := &Result{
		Format:      opts.Format,
		ContentHash: cache.Hash([]byte(opts.Content)),
	}
	result.CacheInfo.Key = r.Keyer.ArtifactKey(result.ContentHash, cache.ArtifactKeyOpts{
		Format: opts.Format,
		Level:  opts.Level,
		Scale:  opts.Scale,
		Margin: opts.Margin,
	})

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if entry, ok := r.lookup(ctx, result.CacheInfo.Key); ok {
			g, err := raster.NewGeometry(entry.Width, params)
			if err == nil && entry.Format == opts.Format {
				result.Artifact = entry.Data
				result.Symbol = SymbolInfo{Version: entry.Version, Width: entry.Width, Level: level}
				result.Geometry = g
				result.Stats.Size = len(entry.Data)
				result.CacheInfo.Hit = true
				observability.Cache().OnCacheHit(ctx, cacheKeyType)
				logger.Debug("artifact cache hit", "key", result.CacheInfo.Key)
				return result, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, cacheKeyType)
	}

	// Stage 1: Encode
	sym, err := r.encode(ctx, logger, opts, result)
	if err != nil {
		return nil, err
	}

	// Stage 2: Render
	g, err := raster.NewGeometry(sym.Width, params)
	if err != nil {
		return nil, err
	}
	result.Geometry = g

	renderStart := time.Now()
	observability.Render().OnRenderStart(ctx, opts.Format, g.RealWidth)
	data, err := RenderBytes(sym.Matrix, params, opts.Format)
	result.Stats.RenderTime = time.Since(renderStart)
	observability.Render().OnRenderComplete(ctx, opts.Format, len(data), result.Stats.RenderTime, err)
	if err != nil {
		return nil, err
	}
	result.Artifact = data
	result.Stats.Size = len(data)

	logger.Debug("rendered artifact",
		"format", opts.Format,
		"pixels", g.RealWidth,
		"bytes", len(data),
		"duration", result.Stats.RenderTime)

	r.store(ctx, logger, result.CacheInfo.Key, cache.Artifact{
		Format:  opts.Format,
		Version: sym.Version,
		Width:   sym.Width,
		Data:    data,
	})
	return result, nil
}

// WriteFile encodes opts.Content and streams the artifact to the file called
// name on fs, or to stdout when name is "-". Rows reach the destination as
// they are rendered, so nothing larger than a scanline is buffered. The
// cache is neither read nor written and Result.Artifact is nil.
func (r *Runner) WriteFile(ctx context.Context, opts Options, fs afero.Fs, name string, stdout io.Writer) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if err := errors.ValidateOutputPath(name); err != nil {
		return nil, err
	}

	logger := r.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	}
	params := opts.Params()
	result := &Result{
		Format:      opts.Format,
		ContentHash: cache.Hash([]byte(opts.Content)),
	}

	sym, err := r.encode(ctx, logger, opts, result)
	if err != nil {
		return nil, err
	}
	g, err := raster.NewGeometry(sym.Width, params)
	if err != nil {
		return nil, err
	}
	result.Geometry = g

	renderStart := time.Now()
	observability.Render().OnRenderStart(ctx, opts.Format, g.RealWidth)
	n, err := writeFile(fs, sym.Matrix, params, opts.Format, name, stdout)
	result.Stats.RenderTime = time.Since(renderStart)
	observability.Render().OnRenderComplete(ctx, opts.Format, int(n), result.Stats.RenderTime, err)
	if err != nil {
		return nil, err
	}
	result.Stats.Size = int(n)

	logger.Debug("streamed artifact",
		"format", opts.Format,
		"output", name,
		"pixels", g.RealWidth,
		"bytes", n,
		"duration", result.Stats.RenderTime)
	return result, nil
}

// encode runs the encode stage and fills result.Symbol and EncodeTime.
func (r *Runner) encode(ctx context.Context, logger *log.Logger, opts Options, result *Result) (matrix.Symbol, error) {
	start := time.Now()
	observability.Render().OnEncodeStart(ctx, len(opts.Content), opts.Level)
	sym, err := matrix.Encode(opts.Content, matrix.Level(opts.Level))
	result.Stats.EncodeTime = time.Since(start)
	observability.Render().OnEncodeComplete(ctx, sym.Version, sym.Width, result.Stats.EncodeTime, err)
	if err != nil {
		return matrix.Symbol{}, err
	}
	result.Symbol = SymbolInfo{Version: sym.Version, Width: sym.Width, Level: sym.Level}

	logger.Debug("encoded content",
		"bytes", len(opts.Content),
		"version", sym.Version,
		"modules", sym.Width,
		"duration", result.Stats.EncodeTime)
	return sym, nil
}

// lookup treats a cache error as a miss.
func (r *Runner) lookup(ctx context.Context, key string) (cache.Artifact, bool) {
	a, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		return cache.Artifact{}, false
	}
	return a, true
}

// store writes a to the cache. A failed write is logged, not returned:
// the artifact itself is fine.
func (r *Runner) store(ctx context.Context, logger *log.Logger, key string, a cache.Artifact) {
	if err := r.Cache.Set(ctx, key, a, cache.TTLArtifact); err != nil {
		logger.Warn("cache write failed", "key", key, "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, cacheKeyType, len(a.Data))
}
