package hit2assext

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/georgfedermann/hit2assext/internal/ids"
	"github.com/georgfedermann/hit2assext/internal/logging"
	"github.com/georgfedermann/hit2assext/pkg/adapters/file"
	httpAdapter "github.com/georgfedermann/hit2assext/pkg/adapters/http"
	"github.com/georgfedermann/hit2assext/pkg/adapters/memory"
	"github.com/georgfedermann/hit2assext/pkg/adapters/redis"
	"github.com/georgfedermann/hit2assext/pkg/config"
	"github.com/georgfedermann/hit2assext/pkg/observability"
	"github.com/georgfedermann/hit2assext/pkg/persistence/middleware"
	"github.com/georgfedermann/hit2assext/pkg/ports"
	"github.com/georgfedermann/hit2assext/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// Version is the release version, overridden at build time via -ldflags.
var Version = "0.1.0-dev"

// shutdownTimeout bounds the graceful shutdown of the admin server.
const shutdownTimeout = 5 * time.Second

// Runtime is a configured session pool with its logging, metrics and snapshot sink.
type Runtime struct {
	Config   config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *observability.Metrics
	Sink     ports.SnapshotStore // nil when the sink backend is "none"
	Manager  *session.Manager

	closer io.Closer
}

// Option defines a functional option for configuring the Runtime.
type Option func(*runtimeOptions)

type runtimeOptions struct {
	logger *slog.Logger
	sink   ports.SnapshotStore
}

// WithLogger replaces the logger built from the configuration.
func WithLogger(logger *slog.Logger) Option {
	return func(o *runtimeOptions) {
		o.logger = logger
	}
}

// WithSink replaces the snapshot sink built from the configuration.
func WithSink(sink ports.SnapshotStore) Option {
	return func(o *runtimeOptions) {
		o.sink = sink
	}
}

// New wires a Runtime from cfg.
func New(cfg config.Config, opts ...Option) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o runtimeOptions
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		level, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		logger, err = logging.NewWithFormat(level, cfg.LogFormat)
		if err != nil {
			return nil, err
		}
	}

	idGen, err := ids.Generator(cfg.IDFormat)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}
	rt.Metrics = observability.NewMetrics(rt.Registry)

	rt.Sink = o.sink
	if rt.Sink == nil {
		rt.Sink, rt.closer, err = NewSink(cfg.Sink)
		if err != nil {
			return nil, err
		}
	}

	managerOpts := []session.ManagerOption{
		session.WithLogger(logger),
		session.WithStaleAfter(cfg.StaleAfter),
		session.WithHooks(rt.Metrics.Hooks()),
		session.WithContextOptions(
			session.WithIDGenerator(idGen),
			session.WithReporter(rt.Metrics.Reporter(logging.NewReporter(logger))),
		),
	}
	if rt.Sink != nil {
		managerOpts = append(managerOpts, session.WithSink(rt.Sink))
	}
	rt.Manager = session.NewManager(managerOpts...)
	return rt, nil
}

// NewSink builds the snapshot sink selected by cfg, wrapped in the masking and
// encryption middlewares it enables. It returns a nil store for the "none" backend,
// and a non-nil closer only when the store holds a connection.
func NewSink(cfg config.SinkConfig) (ports.SnapshotStore, io.Closer, error) {
	var (
		store  ports.SnapshotStore
		closer io.Closer
	)
	switch cfg.Backend {
	case "", config.SinkNone:
		return nil, nil, nil
	case config.SinkMemory:
		store = memory.NewStore()
	case config.SinkFile:
		store = file.New(cfg.Dir)
	case config.SinkRedis:
		rs := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithTTL(cfg.Redis.TTL),
		)
		store, closer = rs, rs
	default:
		return nil, nil, fmt.Errorf("unknown sink backend %q", cfg.Backend)
	}

	mws, err := sinkMiddlewares(cfg)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, nil, err
	}
	return middleware.Chain(store, mws...), closer, nil
}

func sinkMiddlewares(cfg config.SinkConfig) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(cfg.MaskPatterns) > 0 {
		mw, err := middleware.NewPIIMiddleware(cfg.MaskPatterns)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}

	active, fallback, err := cfg.Keys()
	if err != nil {
		return nil, err
	}
	if active != nil {
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		})
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return mws, nil
}

// Handler returns the admin HTTP handler of the runtime.
func (rt *Runtime) Handler() http.Handler {
	opts := []httpAdapter.Option{
		httpAdapter.WithGatherer(rt.Registry),
		httpAdapter.WithLogger(rt.Logger),
	}
	if rt.Sink != nil {
		opts = append(opts, httpAdapter.WithArchive(rt.Sink))
	}
	return httpAdapter.NewHandler(rt.Manager, opts...)
}

// Serve listens on the configured admin address and runs until ctx is canceled.
func (rt *Runtime) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", rt.Config.Admin.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", rt.Config.Admin.Addr, err)
	}
	return rt.ServeListener(ctx, ln)
}

// ServeListener runs the admin server on ln and, when reaping is enabled, the sweeper.
// It returns nil after a graceful shutdown triggered by ctx.
func (rt *Runtime) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           rt.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rt.Logger.Info("Admin server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("admin server: %w", err)
		}
		return nil
	})

	if rt.Config.StaleAfter > 0 {
		sweeper := session.NewSweeper(rt.Manager, rt.Config.SweepInterval, rt.Logger)
		g.Go(func() error {
			err := sweeper.Run(gctx)
			if gctx.Err() != nil {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			rt.Logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			return srv.Close()
		}
		rt.Logger.Info("Admin server stopped gracefully")
		return nil
	})

	return g.Wait()
}

// Close releases the sink connection, if any.
func (rt *Runtime) Close() error {
	if rt.closer == nil {
		return nil
	}
	return rt.closer.Close()
}
