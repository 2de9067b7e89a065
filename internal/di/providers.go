package di

import (
	"context"
	"fmt"
	"time"

	"SignalDeck/internal/domain/models"
	"SignalDeck/internal/domain/repository"
	"SignalDeck/internal/handler/api"
	"SignalDeck/internal/service/cache"
	"SignalDeck/internal/service/gateway"
	"SignalDeck/internal/service/notify"
	"SignalDeck/internal/service/prefs"
	"SignalDeck/internal/service/stream"
	"SignalDeck/internal/usecase"
	pkgch "SignalDeck/pkg/clickhouse"
	"SignalDeck/pkg/config"
	pkgkafka "SignalDeck/pkg/kafka"
	applogger "SignalDeck/pkg/logger"
	"SignalDeck/pkg/metrics"
	"SignalDeck/pkg/server"

	"github.com/redis/go-redis/v9"
)

// ProvideLogger creates the application logger with the recent-error feed
// attached.
func ProvideLogger(cfg *config.Config, feed *applogger.Feed) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	l.AttachFeed(feed)
	return l, nil
}

// ProvideFeed creates the bounded recent-error feed served by the view API.
func ProvideFeed() *applogger.Feed {
	return applogger.NewFeed(0)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideRedis creates a Redis client when enabled; nil disables the
// warm-start cache persistence and the shared preference store.
func ProvideRedis(cfg *config.Config) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// ProvideSnapshotCache creates the last-good-snapshot cache.
func ProvideSnapshotCache(rdb *redis.Client) *cache.SnapshotCache {
	return cache.NewSnapshotCache(rdb)
}

// ProvidePrefStore picks the preference backend: the Redis hash when Redis
// is configured, a local JSON file otherwise.
func ProvidePrefStore(cfg *config.Config, rdb *redis.Client) (repository.PrefStore, error) {
	if rdb != nil {
		store, err := prefs.NewRedisStore(rdb)
		if err != nil {
			return nil, fmt.Errorf("redis prefs: %w", err)
		}
		return store, nil
	}
	store, err := prefs.NewFileStore(cfg.Prefs.Path)
	if err != nil {
		return nil, fmt.Errorf("file prefs: %w", err)
	}
	return store, nil
}

// ProvidePrefs creates the typed preference service.
func ProvidePrefs(store repository.PrefStore) *prefs.Service {
	return prefs.NewService(store)
}

// ProvideGateway creates the REST client for the signal gateway.
func ProvideGateway(cfg *config.Config) repository.GatewayAPI {
	return gateway.New(cfg.Gateway.BaseURL, cfg.Gateway.Timeout)
}

// ProvideNotifier creates the notification service. The default cue player
// only logs; displays subscribe through the view API.
func ProvideNotifier(p *prefs.Service, log *applogger.Logger) repository.Notifier {
	return notify.NewService(p, log, nil)
}

// ProvideStore creates the consolidated read-model.
func ProvideStore(cfg *config.Config, log *applogger.Logger, m repository.Metrics) *usecase.Store {
	return usecase.NewStore(cfg.Gateway.SignalLimit, log, m)
}

// ProvideEventTap builds the audit tap for the configured backend, creating
// the Kafka producer or ClickHouse client it needs. Backend "none" yields a
// no-op tap.
func ProvideEventTap(cfg *config.Config, log *applogger.Logger, m repository.Metrics) (*usecase.EventTap, error) {
	switch cfg.Audit.Backend {
	case "kafka":
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Audit.Kafka.Brokers),
			pkgkafka.WithCompression(cfg.Audit.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Audit.Kafka.RequiredAcks),
			pkgkafka.WithWriteTimeout(cfg.Audit.Kafka.WriteTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("audit kafka producer: %w", err)
		}
		return usecase.NewEventTap(cfg.Audit.Buffer, log, m,
			usecase.WithKafkaSink(producer, cfg.Audit.Kafka.Topic)), nil

	case "clickhouse":
		ch := cfg.Audit.ClickHouse
		client, err := pkgch.NewClient(
			pkgch.WithHost(ch.Host),
			pkgch.WithPort(ch.Port),
			pkgch.WithDatabase(ch.Database),
			pkgch.WithCredentials(ch.User, ch.Password),
			pkgch.WithDialTimeout(ch.DialTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("audit clickhouse client: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		table := ch.Database + "." + ch.Table
		if err := client.InitSchema(ctx, []string{
			"CREATE DATABASE IF NOT EXISTS " + ch.Database,
			"CREATE TABLE IF NOT EXISTS " + table + ` (
				event_type String,
				signal_id String,
				symbol String,
				status String,
				received_at DateTime64(3),
				payload String
			) ENGINE=MergeTree ORDER BY (received_at, signal_id)`,
		}); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("audit clickhouse schema: %w", err)
		}
		return usecase.NewEventTap(cfg.Audit.Buffer, log, m,
			usecase.WithClickHouseSink(client, table)), nil

	default:
		return usecase.NewEventTap(cfg.Audit.Buffer, log, m), nil
	}
}

// ProvideDispatcher creates the event dispatcher fed by the stream.
func ProvideDispatcher(log *applogger.Logger, m repository.Metrics, tap *usecase.EventTap) *usecase.Dispatcher {
	return usecase.NewDispatcher(log, m, tap)
}

// ProvideSyncer creates the snapshot fetcher.
func ProvideSyncer(gw repository.GatewayAPI, store *usecase.Store, snapshots *cache.SnapshotCache, log *applogger.Logger, m repository.Metrics, cfg *config.Config) *usecase.Syncer {
	return usecase.NewSyncer(gw, store, snapshots, log, m, cfg.Gateway.SignalLimit)
}

// ProvidePoller creates the visibility-aware periodic fetcher.
func ProvidePoller(sy *usecase.Syncer, cfg *config.Config, log *applogger.Logger) *usecase.Poller {
	return usecase.NewPoller(sy, cfg.Poll.Interval, cfg.Poll.HealthInterval, log)
}

// ProvideStream creates the WebSocket client. Status changes project onto
// the store and fire the connection notification.
func ProvideStream(cfg *config.Config, log *applogger.Logger, m repository.Metrics, store *usecase.Store, notifier repository.Notifier) *stream.Client {
	return stream.New(stream.Config{
		URL:               cfg.Stream.URL,
		KeepaliveInterval: cfg.Stream.KeepaliveInterval,
		DeadPeerTimeout:   cfg.Stream.DeadPeerTimeout,
		ReconnectDelay:    cfg.Stream.ReconnectDelay,
		FrameBuffer:       cfg.Stream.FrameBuffer,
	}, log, m, func(s models.ConnStatus) {
		store.SetConnStatus(s)
		notifier.ConnectionChanged(s)
	})
}

// ProvideController creates the optimistic action controller.
func ProvideController(store *usecase.Store, gw repository.GatewayAPI, notifier repository.Notifier, log *applogger.Logger, m repository.Metrics) *usecase.Controller {
	return usecase.NewController(store, gw, notifier, log, m)
}

// ProvideViewHandler creates the HTTP handler for the view API.
func ProvideViewHandler(
	log *applogger.Logger,
	store *usecase.Store,
	actions *usecase.Controller,
	dispatcher *usecase.Dispatcher,
	poller *usecase.Poller,
	p *prefs.Service,
	gw repository.GatewayAPI,
	feed *applogger.Feed,
) *api.ViewHandler {
	return api.NewViewHandler(log, store, actions, dispatcher, poller, p, gw, feed)
}

// ProvideApp creates the application server.
func ProvideApp(
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
) *server.App {
	return server.New(cfg, log, store, dispatcher, syncer, poller, sc, tap, notifier, handler, rdb)
}
