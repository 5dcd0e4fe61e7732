package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/events"
	"storefront/internal/httpserver"
	"storefront/internal/logger"
	"storefront/internal/migrate"
	"storefront/internal/mirror"
	"storefront/internal/repository"
	"storefront/internal/repository/memory"
	"storefront/internal/seed"
	authsvc "storefront/internal/service/auth"
	cartsvc "storefront/internal/service/cart"
	catalogsvc "storefront/internal/service/catalog"
	checkoutsvc "storefront/internal/service/checkout"
	contactsvc "storefront/internal/service/contact"
	customersvc "storefront/internal/service/customer"
	loyaltysvc "storefront/internal/service/loyalty"
)

const mirrorTimeout = 2 * time.Second

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	log := logger.New(cfg.Env, cfg.LogLevel).With().Str("app", "api").Logger()

	ctx := context.Background()

	var (
		store repository.Store
		ready httpserver.Pinger
	)
	switch cfg.StorageBackend {
	case config.BackendMemory:
		mem := memory.New()
		n, err := seed.Apply(ctx, mem.Repos().Products)
		if err != nil {
			log.Fatal().Err(err).Msg("seed memory catalog")
		}
		log.Info().Int("products", n).Msg("using in-memory storage with demo catalog")
		store = mem
	case config.BackendPostgres:
		pool, err := db.Connect(ctx, cfg.DBConnString)
		if err != nil {
			log.Fatal().Err(err).Msg("connect to db")
		}
		defer pool.Close()
		if err := migrate.Apply(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("apply migrations")
		}
		store = repository.NewPostgres(pool, logger.Component(log, "postgres"))
		ready = pool
	default:
		log.Fatal().Str("backend", cfg.StorageBackend).Msg("unknown storage backend")
	}

	var (
		cartMirror    cartsvc.Mirror
		contactRemote contactsvc.Remote
		async         *mirror.Async
	)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		remote := mirror.NewRedis(client, cfg.RemoteCartTTL)
		if err := remote.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis not reachable, mirroring will retry per request")
		}
		async = mirror.NewAsync(remote, mirrorTimeout, logger.Component(log, "mirror"))
		cartMirror, contactRemote = async, async
		log.Info().Str("addr", cfg.RedisAddr).Msg("remote mirror enabled")
	}

	var publisher interface {
		checkoutsvc.Publisher
		Close() error
	} = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafka(cfg.KafkaBrokers, cfg.KafkaOrderTopic)
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaOrderTopic).Msg("order events enabled")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("close event publisher")
		}
	}()

	ledger := loyaltysvc.New(store, logger.Component(log, "loyalty"))
	customers := customersvc.New(store.Repos().Customers, ledger, logger.Component(log, "customer"))
	carts := cartsvc.New(store, cartMirror, logger.Component(log, "cart"))

	srv, err := httpserver.New(cfg.HTTPAddr, logger.Component(log, "http"), ready, httpserver.Deps{
		Auth:      authsvc.New(store.Repos().Sessions, customers, carts, cfg.SessionTTL, logger.Component(log, "auth")),
		Customers: customers,
		Catalog:   catalogsvc.New(store.Repos().Products),
		Carts:     carts,
		Loyalty:   ledger,
		Checkout:  checkoutsvc.New(store, ledger, carts, publisher, logger.Component(log, "checkout")),
		Contact:   contactsvc.New(contactRemote, cfg.ContactEmail, logger.Component(log, "contact")),
	}, cfg.CORSOrigins)
	if err != nil {
		log.Fatal().Err(err).Msg("init server")
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-serverErr:
		log.Error().Err(err).Msg("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	drain(shutdownCtx, async, log)
	log.Info().Msg("server stopped")
}

func drain(ctx context.Context, async *mirror.Async, log zerolog.Logger) {
	if async == nil {
		return
	}
	if err := async.Wait(ctx); err != nil {
		log.Warn().Err(err).Msg("pending mirror pushes abandoned")
	}
}
