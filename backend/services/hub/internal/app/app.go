package app

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/WilliamKTurner/openhab-addons/backend/libs/db"
	"github.com/WilliamKTurner/openhab-addons/backend/libs/httpclient"
	libredis "github.com/WilliamKTurner/openhab-addons/backend/libs/redis"

	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/auth"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/bindings/mercedesme"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/bindings/mybmw"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/bindings/pegelonline"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/bindings/solarforecast"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/config"
	httpserver "github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/http"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/http/handlers"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/http/middleware"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/influxdb"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/kafka"
	redisstore "github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/redis"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/repository"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/scheduler"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/service"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/thing"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/token"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/ws"
)

const (
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
	restoreTimeout = 10 * time.Second
)

// App wires hub dependencies.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	registry  *thing.Registry
	sched     *scheduler.Scheduler
	manager   *service.ThingManager
	server    *httpserver.Server
	wsManager *ws.Manager

	db        *sql.DB
	states    *repository.StateRepository
	redis     *goredis.Client
	influx    *influxdb.Client
	publisher *kafka.Publisher
}

// New constructs application components. Optional sinks are skipped when not configured.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	things, err := cfg.ThingList()
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:       cfg,
		logger:    logger,
		registry:  thing.NewRegistry(thing.NewInbox()),
		sched:     scheduler.New(logger.Named("scheduler")),
		wsManager: ws.NewManager(wsPingInterval, logger.Named("ws")),
	}

	tokens, err := a.tokenStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := a.connectSinks(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}

	a.manager = service.NewThingManager(a.registry, logger.Named("things"))
	a.registerBindings(cfg, tokens)
	a.manager.Load(things)

	if a.states != nil {
		restoreCtx, cancel := context.WithTimeout(ctx, restoreTimeout)
		n, err := a.states.RestoreInto(restoreCtx, a.registry)
		cancel()
		if err != nil {
			logger.Warn("failed to restore channel states", zap.Error(err))
		} else {
			logger.Info("restored channel states", zap.Int("count", n))
		}
	}

	a.registry.AddListener(a.wsManager)
	if a.states != nil {
		a.registry.AddListener(a.states)
	}
	if a.influx != nil {
		a.registry.AddListener(a.influx)
	}
	if a.publisher != nil {
		a.registry.AddListener(a.publisher)
	}

	authService := auth.NewService(cfg.Auth.User, cfg.Auth.PasswordHash,
		auth.NewBcryptHasher(bcrypt.DefaultCost), auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL))

	router := httpserver.NewRouter(httpserver.RouterDeps{
		AuthHandlers:  handlers.NewAuthHandlers(authService, logger),
		ThingHandlers: handlers.NewThingHandlers(a.registry, a.manager, logger),
		HealthHandler: handlers.NewHealthHandler(),
		Events:        ws.NewServer(a.wsManager, wsWriteTimeout, logger.Named("ws")).HandleWS,
	}, middleware.AuthMiddleware(authService))
	a.server = httpserver.NewServer(cfg.HTTPAddress(), router, logger,
		middleware.Recovery(logger), middleware.Logging(logger))

	return a, nil
}

func (a *App) tokenStore(ctx context.Context, cfg *config.Config) (token.Store, error) {
	client, err := libredis.NewRedisClient(ctx, libredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if errors.Is(err, libredis.ErrDisabled) {
		a.logger.Info("redis disabled, keeping vendor tokens in memory")
		return token.NewMemoryStore(), nil
	}
	if err != nil {
		return nil, err
	}
	a.redis = client
	return redisstore.NewTokenStore(client, cfg.Redis.TokenTTL), nil
}

func (a *App) connectSinks(ctx context.Context, cfg *config.Config) error {
	sqlDB, err := db.NewPostgresDB(ctx, cfg.Database.DSN, db.PoolOptions{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	switch {
	case errors.Is(err, db.ErrDisabled):
		a.logger.Info("postgres disabled, channel states are not persisted")
	case err != nil:
		return err
	default:
		a.db = sqlDB
		a.states = repository.NewStateRepository(sqlDB, a.logger.Named("states"))
		if err := a.states.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	if cfg.InfluxDB.URL != "" {
		client, err := influxdb.NewClient(ctx, influxdb.Config{
			URL:    cfg.InfluxDB.URL,
			Token:  cfg.InfluxDB.Token,
			Org:    cfg.InfluxDB.Org,
			Bucket: cfg.InfluxDB.Bucket,
		}, a.logger.Named("influxdb"))
		if err != nil {
			return err
		}
		a.influx = client
	}

	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := kafka.NewPublisher(kafka.Config{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic}, a.logger.Named("kafka"))
		if err != nil {
			return err
		}
		a.publisher = publisher
	}
	return nil
}

func (a *App) registerBindings(cfg *config.Config, tokens token.Store) {
	doer := httpclient.NewDefaultHTTPClient(cfg.HTTPTimeout())
	home := cfg.Home()

	pegel := pegelonline.NewClient("", doer)
	a.manager.RegisterFactory(pegelonline.NewFactory(pegel, a.registry, a.sched, a.logger))
	a.manager.RegisterDiscovery(pegelonline.BindingID, pegelonline.NewDiscovery(pegel, a.registry, home, a.logger))

	solar := solarforecast.NewClient("", doer)
	a.manager.RegisterFactory(solarforecast.NewFactory(solar, a.registry, a.sched, home, cfg.Zone(), a.logger))

	a.manager.RegisterFactory(mybmw.NewFactory(a.registry, a.sched, tokens, cfg.Zone(), cfg.Location.Language, a.logger))

	a.manager.RegisterFactory(mercedesme.NewFactory(a.registry, a.sched, tokens, mercedesme.DefaultEndpoints(), doer, a.logger))
}

// Run starts handlers and serves HTTP until ctx is done.
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	if a.states != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.states.Run(ctx)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.wsManager.Start(ctx)
	}()

	a.manager.Start(ctx)
	err := a.server.Run(ctx)
	wg.Wait()
	return err
}

// Close disposes handlers and releases resources.
func (a *App) Close() {
	if a.manager != nil {
		a.manager.Close()
	}
	a.sched.Stop()
	if a.influx != nil {
		a.influx.Close()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("failed to close kafka publisher", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
