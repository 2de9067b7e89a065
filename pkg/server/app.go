package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"SignalDeck/internal/domain/models"
	"SignalDeck/internal/domain/repository"
	"SignalDeck/internal/handler/api"
	"SignalDeck/internal/service/stream"
	"SignalDeck/internal/usecase"
	"SignalDeck/pkg/config"
	xhttp "SignalDeck/pkg/http"
	applogger "SignalDeck/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// App encapsulates the entire application lifecycle. Run composes the event
// path (stream -> dispatcher -> store/reconciler) and the fetch path
// (poller/reconciler -> syncer), starts the view server, and blocks until
// interrupted.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	store      *usecase.Store
	dispatcher *usecase.Dispatcher
	syncer     *usecase.Syncer
	poller     *usecase.Poller
	stream     *stream.Client
	tap        *usecase.EventTap
	notifier   repository.Notifier
	handler    *api.ViewHandler
	rdb        *redis.Client

	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	store *usecase.Store,
	dispatcher *usecase.Dispatcher,
	syncer *usecase.Syncer,
	poller *usecase.Poller,
	sc *stream.Client,
	tap *usecase.EventTap,
	notifier repository.Notifier,
	handler *api.ViewHandler,
	rdb *redis.Client,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		store:      store,
		dispatcher: dispatcher,
		syncer:     syncer,
		poller:     poller,
		stream:     sc,
		tap:        tap,
		notifier:   notifier,
		handler:    handler,
		rdb:        rdb,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Backstop reconciliation over the syncer, debounced per resource.
	reconciler := usecase.NewReconciler(ctx, a.syncer, usecase.Windows{
		Signals:   a.cfg.Reconcile.Signals,
		Positions: a.cfg.Reconcile.Positions,
		Stats:     a.cfg.Reconcile.Stats,
	}, a.log)

	// Event path: every dispatched event projects onto the read-model
	// immediately, then schedules the authoritative backstop fetch.
	a.store.SetTransitionHook(a.notifier.SignalTransition)
	a.dispatcher.Subscribe(func(ev models.Event) {
		a.store.ApplyEvent(ev)
		reconciler.KickForEvent(ev.Type)
	})

	// Visibility regained nudges the transport before the immediate pull.
	a.poller.SetWake(a.stream.Wake)

	opts := []xhttp.ServerOption{
		xhttp.WithPort(a.cfg.View.Port),
		xhttp.WithTimeouts(a.cfg.View.ReadTimeout, a.cfg.View.WriteTimeout, a.cfg.View.ShutdownTimeout),
		xhttp.WithCORS(a.cfg.View.CORS),
		xhttp.WithLogger(a.log),
	}
	if a.cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(a.cfg.Metrics.Path))
	}
	a.httpServer = xhttp.NewServer(a.handler, opts...)

	go a.tap.Run(ctx)

	// Stale-but-available: render the last cached snapshots before the first
	// fetch completes.
	a.syncer.WarmStart(ctx)

	a.stream.Start(ctx)
	go a.dispatcher.Run(ctx, a.stream.Frames())
	go a.poller.Run(ctx)
	go a.poller.PullAll(ctx)

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("started",
		applogger.String("gateway", a.cfg.Gateway.BaseURL),
		applogger.String("stream", a.cfg.Stream.URL),
		applogger.String("audit", a.cfg.Audit.Backend))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	reconciler.Stop()
	return a.shutdown(ctx, cancel)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context, cancel context.CancelFunc) error {
	// Cancelling the run context stops the stream, dispatcher, poller and tap
	// loops; the remaining teardown is connection cleanup.
	cancel()

	if err := a.stream.Close(); err != nil {
		a.log.Warn("stream close error", applogger.Error(err))
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), a.cfg.View.ShutdownTimeout)
	defer done()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if err := a.tap.Close(); err != nil {
		a.log.Warn("audit sink close error", applogger.Error(err))
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.log.Warn("redis close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
