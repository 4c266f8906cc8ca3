package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/iliyamo/reserveease-console/internal/apiclient"
	"github.com/iliyamo/reserveease-console/internal/board"
	"github.com/iliyamo/reserveease-console/internal/config"
	"github.com/iliyamo/reserveease-console/internal/events"
	"github.com/iliyamo/reserveease-console/internal/roster"
	"github.com/iliyamo/reserveease-console/internal/schedule"
	"github.com/iliyamo/reserveease-console/internal/session"
	"github.com/iliyamo/reserveease-console/internal/store"
	"github.com/iliyamo/reserveease-console/internal/tokenstore"
)

// app holds the wired components shared by every subcommand.
type app struct {
	cfg      config.Config
	log      *slog.Logger
	rdb      *redis.Client
	tokens   tokenstore.Store
	api      *apiclient.Client
	guard    *session.Guard
	store    *store.Store
	pub      events.Publisher
	board    *board.Board
	roster   *roster.Service
	schedule *schedule.Service

	closers []func() error
}

func newApp(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	if cfg.TokenStore == "redis" || cfg.Redis.Enabled {
		rdb, err := config.NewRedisClient(ctx, cfg.Redis)
		switch {
		case err == nil:
			a.rdb = rdb
			a.closers = append(a.closers, rdb.Close)
		case cfg.TokenStore == "redis":
			return nil, fmt.Errorf("token store: %w", err)
		default:
			log.Warn("redis unavailable, sign-in rate limiting disabled", "err", err)
		}
	}

	switch cfg.TokenStore {
	case "memory":
		a.tokens = tokenstore.NewMemory()
	case "redis":
		a.tokens = tokenstore.NewRedis(a.rdb, cfg.Redis.Prefix)
	default:
		b, err := tokenstore.OpenBolt(cfg.TokenStorePath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("token store: %w", err)
		}
		a.tokens = b
		a.closers = append(a.closers, b.Close)
	}

	policy, err := board.ParsePolicy(cfg.BoardPolicy)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.pub = events.Nop{}
	if cfg.AMQPURL != "" {
		a.pub = events.NewAMQPPublisher(cfg.AMQPURL, log)
	}

	a.api = apiclient.New(apiclient.Config{BaseURL: cfg.APIURL, Timeout: cfg.APITimeout}, apiclient.StoreTokens{Store: a.tokens})
	a.guard = session.NewGuard(a.tokens, a.api, log)
	a.store = store.New(a.api, log)
	a.board = board.New(a.store, a.api, board.Options{
		Policy:    policy,
		Location:  cfg.Location,
		Publisher: a.pub,
		Logger:    log,
	})
	a.roster = roster.NewService(a.api, a.store, log)
	a.schedule = schedule.NewService(a.api, a.store, a.pub, cfg.Location, log)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close", "err", err)
		}
	}
	a.closers = nil
}

// requireSession checks the stored session and loads the shared data,
// for subcommands that read reservations.
func (a *app) requireSession(ctx context.Context) error {
	if st := a.guard.Check(ctx); st != session.StateAuthorized {
		return errors.New("not logged in: run `console login` first")
	}
	return a.store.Load(ctx)
}

// setupTracing installs an OTLP/gRPC trace exporter when addr is set.
// The returned func flushes and stops it.
func setupTracing(ctx context.Context, addr string, log *slog.Logger) (func(context.Context) error, error) {
	if addr == "" {
		return func(context.Context) error { return nil }, nil
	}
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc connection to collector: %w", err)
	}
	exp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)
	log.Info("otlp tracing enabled", "address", addr)
	return func(ctx context.Context) error {
		err := tp.Shutdown(ctx)
		return errors.Join(err, conn.Close())
	}, nil
}
