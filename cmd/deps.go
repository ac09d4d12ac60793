package main

import (
	"context"
	"net/http"

	"domainwatch/internal/checker"
	"domainwatch/internal/config"
	"domainwatch/pkg/domain"
	"domainwatch/pkg/logger"
	"domainwatch/pkg/notify"
	"domainwatch/pkg/notify/email"
	"domainwatch/pkg/notify/pushover"
	"domainwatch/pkg/notify/telegram"
	"domainwatch/pkg/notify/webhook"
	"domainwatch/pkg/registry"
	"domainwatch/pkg/registry/rdap"
	"domainwatch/pkg/registry/whois"
	"domainwatch/pkg/storage"
	"domainwatch/pkg/storage/postgres"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// routeCacheKey is the Redis hash holding discovered registry routes.
const routeCacheKey = "domainwatch:routes"

// getPostgres creates a PostgreSQL client using configuration values and returns it
// along with a cleanup function to close the connection pool.
func getPostgres(ctx context.Context, cfg *config.Config) (*postgres.PgSQL, func()) {
	pgsql, err := postgres.New(ctx, postgres.Options{
		Username:           cfg.Database.Username,
		Password:           cfg.Database.Password,
		Host:               cfg.Database.Host,
		Port:               cfg.Database.Port,
		Database:           cfg.Database.DatabaseName,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime:    cfg.Database.ConnMaxIdleTime,
		MaxOpenConnections: cfg.Database.MaxOpenConnections,
		MaxIdleConnections: cfg.Database.MaxIdleConnections,
		SslMode:            cfg.Database.SslMode,
	})
	if err != nil {
		logger.Fatal(ctx, "could not create postgres storage", zap.Error(err))
	}

	return pgsql, func() {
		logger.Info(ctx, "closing postgres client...")
		if err = pgsql.Close(); err != nil {
			logger.Warn(ctx, "could not close postgres connection", zap.Error(err))
		}
	}
}

// registryDeps is the registry client and what it was built from.
type registryDeps struct {
	client   *registry.Client
	resolver *registry.Resolver
	// redis is nil when routes are cached in memory.
	redis *redis.Client
}

// getRegistry builds the registry client. Routes come from the configured
// overrides, then the well-known WHOIS table, the IANA RDAP bootstrap file
// and finally a referral from whois.iana.org.
func getRegistry(ctx context.Context, cfg *config.Config) (*registryDeps, func()) {
	deps := &registryDeps{}

	var cache registry.RouteCache = registry.NewMemoryCache()
	if cfg.Redis.URL != "" {
		client, err := registry.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Fatal(ctx, "could not connect to redis", zap.Error(err))
		}
		deps.redis = client
		cache = registry.NewRedisCache(client, routeCacheKey)
	}

	httpClient := &http.Client{Timeout: cfg.Registry.Timeout}
	whoisClient := whois.New(cfg.Registry.Timeout)

	discoverers := []registry.Discoverer{registry.WellKnownWHOIS()}
	if !cfg.Registry.DisableBootstrap {
		discoverers = append(discoverers, rdap.NewBootstrap(httpClient))
	}
	discoverers = append(discoverers, whoisClient)

	deps.resolver = registry.NewResolver(cache, cfg.Registry.Overrides, discoverers...)
	deps.client = registry.NewClient(deps.resolver, cfg.Registry.Timeout, map[registry.Protocol]registry.ProtocolClient{
		registry.ProtocolWHOIS: whoisClient,
		registry.ProtocolRDAP:  rdap.New(httpClient, cfg.Registry.UserAgent),
	})

	return deps, func() {
		if deps.redis == nil {
			return
		}
		if err := deps.redis.Close(); err != nil {
			logger.Warn(ctx, "could not close redis client", zap.Error(err))
		}
	}
}

// getDispatcher registers a sender for every channel type.
func getDispatcher(cfg *config.Config) *notify.Dispatcher {
	httpClient := &http.Client{Timeout: cfg.Notify.Timeout}
	delivery := notify.HTTPDelivery{
		Client:   httpClient,
		Attempts: cfg.Notify.Attempts,
		Delay:    cfg.Notify.RetryDelay,
	}

	return notify.NewDispatcher(map[domain.ChannelType]notify.Sender{
		domain.ChannelWebhook: webhook.New(delivery, cfg.Registry.UserAgent),
		domain.ChannelPushover: pushover.New(delivery, pushover.Options{
			Retry:  cfg.Notify.PushoverRetry,
			Expire: cfg.Notify.PushoverExpire,
		}),
		domain.ChannelTelegram: telegram.New(telegram.NewBotFactory(httpClient), cfg.Notify.Attempts, cfg.Notify.RetryDelay),
		domain.ChannelEmail:    email.New(delivery, email.Endpoint),
	})
}

// getChecker wires the checker on top of strg.
func getChecker(cfg *config.Config, strg storage.AllStorage, reg *registryDeps) checker.Checker {
	return checker.New(strg, reg.client, getDispatcher(cfg), checker.NewOptions(cfg),
		checker.WithInvalidator(reg.resolver))
}
