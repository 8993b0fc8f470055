package cli

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/matzehuels/qrraster/pkg/buildinfo"
	"github.com/matzehuels/qrraster/pkg/cache"
	"github.com/matzehuels/qrraster/pkg/config"
	"github.com/matzehuels/qrraster/pkg/errors"
	"github.com/matzehuels/qrraster/pkg/observability"
	"github.com/matzehuels/qrraster/pkg/pipeline"
)

const (
	// requestIDHeader carries the request id in both directions.
	requestIDHeader = "X-Request-Id"

	shutdownTimeout = 5 * time.Second
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr         string
	cacheEntries int
}

// serveCommand creates the serve command, an HTTP front end for render.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{addr: config.DefaultAddr, cacheEntries: 1024}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve QR code PNGs over HTTP",
		Long: `Serve QR code images over HTTP.

  GET /qr?content=TEXT[&scale=N][&margin=N][&level=L][&format=png|raw]
  GET /healthz
  GET /metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("addr") {
				opts.addr = cfg.Addr
			}

			reg := prometheus.NewRegistry()
			newMetrics(reg).register()
			defer observability.Reset()

			keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "serve:")
			runner := pipeline.NewRunner(cache.NewMemoryCache(opts.cacheEntries), keyer, c.Logger)
			return c.listenAndServe(cmd.Context(), opts.addr, newServer(runner, cfg, reg, c.Logger))
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", opts.addr, "listen address")
	cmd.Flags().IntVar(&opts.cacheEntries, "cache-entries", opts.cacheEntries, "in-memory artifact cache size (0 = unbounded)")

	return cmd
}

// listenAndServe runs the server until ctx is cancelled, then shuts it down.
func (c *CLI) listenAndServe(ctx context.Context, addr string, h http.Handler) error {
	var g run.Group

	{
		ctx, cancel := context.WithCancel(ctx)
		g.Add(
			func() error {
				<-ctx.Done()
				return nil
			},
			func(error) {
				cancel()
			},
		)
	}

	{
		srv := &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Add(
			func() error {
				c.Logger.Info("listening", "addr", addr)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					return err
				}
				return nil
			},
			func(error) {
				ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				c.Logger.Info("shutting down")
				_ = srv.Shutdown(ctx)
			},
		)
	}

	return g.Run()
}

// =============================================================================
// HTTP Handler
// =============================================================================

type server struct {
	runner   *pipeline.Runner
	defaults config.Config
}

// newServer builds the HTTP router. Query parameters left out fall back
// to defaults.
func newServer(runner *pipeline.Runner, defaults config.Config, gatherer prometheus.Gatherer, logger *log.Logger) http.Handler {
	s := &server{runner: runner, defaults: defaults}

	r := chi.NewRouter()
	r.Use(requestID(logger))
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Server", buildinfo.UserAgent()))

	r.Get("/qr", s.handleQR)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}

func (s *server) handleQR(w http.ResponseWriter, r *http.Request) {
	logger := loggerFromContext(r.Context())

	opts, err := s.options(r)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	result, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	contentType := "image/png"
	if result.Format == pipeline.FormatRaw {
		contentType = "application/octet-stream"
		w.Header().Set("X-Image-Width", strconv.Itoa(result.Geometry.RealWidth))
		w.Header().Set("X-Row-Bytes", strconv.Itoa(result.Geometry.RowBytes))
	}
	cacheStatus := "MISS"
	if result.CacheInfo.Hit {
		cacheStatus = "HIT"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Artifact)))
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	w.Header().Set("ETag", `"`+result.CacheInfo.Key+`"`)
	w.Header().Set("X-Cache", cacheStatus)
	w.Header().Set("X-QR-Version", strconv.Itoa(result.Symbol.Version))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Artifact)
}

// options reads pipeline options from the query string.
func (s *server) options(r *http.Request) (pipeline.Options, error) {
	q := r.URL.Query()
	opts := pipeline.Options{
		Content: q.Get("content"),
		Level:   s.defaults.Level,
		Scale:   s.defaults.Scale,
		Margin:  s.defaults.Params().Margin,
		Format:  s.defaults.Format,
		Logger:  loggerFromContext(r.Context()),
	}
	if v := q.Get("level"); v != "" {
		opts.Level = v
	}
	if v := q.Get("format"); v != "" {
		opts.Format = v
	}

	var err error
	if opts.Scale, err = intParam(q.Get("scale"), opts.Scale, "scale"); err != nil {
		return opts, err
	}
	if opts.Margin, err = intParam(q.Get("margin"), opts.Margin, "margin"); err != nil {
		return opts, err
	}
	return opts, nil
}

func intParam(v string, def int, name string) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidInput, err, "%s must be an integer", name)
	}
	return n, nil
}

// writeError maps an error code to an HTTP status and writes a plain-text body.
func writeError(w http.ResponseWriter, logger *log.Logger, err error) {
	status := httpStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("render failed", "error", err)
	} else {
		logger.Debug("bad request", "error", err)
	}
	http.Error(w, errors.UserMessage(err), status)
}

func httpStatus(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat,
		errors.ErrCodeInvalidLevel, errors.ErrCodeInvalidPath:
		return http.StatusBadRequest
	case errors.ErrCodeOutOfMemory:
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}

// =============================================================================
// Middleware
// =============================================================================

// requestID tags each request with an id, taken from the incoming header
// when it is a valid UUID and generated otherwise. The id and a logger
// carrying it are stored in the request context.
func requestID(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)

			ctx := context.WithValue(r.Context(), requestIDKey, id)
			ctx = withLogger(ctx, logger.With("request_id", id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// accessLog logs each request and emits HTTP hooks.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := requestIDFromContext(ctx)
		start := time.Now()
		observability.HTTP().OnRequest(ctx, id, r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		d := time.Since(start)
		observability.HTTP().OnResponse(ctx, id, status, d)
		loggerFromContext(ctx).Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", d)
	})
}
