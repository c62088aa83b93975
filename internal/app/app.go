package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"evtracker/internal/charging"
	"evtracker/internal/config"
	"evtracker/internal/db"
	httpserver "evtracker/internal/http"
	"evtracker/internal/http/handlers"
	"evtracker/internal/http/middleware"
	"evtracker/internal/importer"
	"evtracker/internal/metrics"
	"evtracker/internal/octopus"
	redislib "evtracker/internal/redis"
	"evtracker/internal/repository"
	"evtracker/internal/ws"
)

// App wires evtracker dependencies.
type App struct {
	server      *httpserver.Server
	importer    *importer.Importer
	db          *sql.DB
	redisClient *goredis.Client
	logger      *zap.Logger
}

// New constructs the application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := db.NewPostgres(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	formatter, err := charging.NewCivilFormatter(cfg.Timezone)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	var redisClient *goredis.Client
	var tokens octopus.TokenStore = octopus.NewMemoryTokenStore()
	if cfg.Redis.Addr != "" {
		redisClient, err = redislib.NewClient(cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			logger.Warn("redis unavailable, caching kraken tokens in memory", zap.Error(err))
		} else {
			tokens = octopus.NewRedisTokenStore(redisClient)
		}
	}

	creds := octopus.Credentials{
		APIKey:        cfg.Octopus.APIKey,
		MPAN:          cfg.Octopus.MPAN,
		Serial:        cfg.Octopus.Serial,
		AccountNumber: cfg.Octopus.AccountNumber,
	}
	httpClient := &http.Client{Timeout: 30 * time.Second}

	var dispatchSource importer.DispatchSource
	var dispatchFetcher handlers.DispatchFetcher
	if cfg.Octopus.APIKey != "" && cfg.Octopus.AccountNumber != "" {
		graphql := octopus.NewGraphQLClient(cfg.Octopus.GraphQLURL, creds, tokens, httpClient, logger)
		dispatchSource = graphql
		dispatchFetcher = graphql
	}

	var consumptionSource importer.ConsumptionSource
	if cfg.Octopus.APIKey != "" && cfg.Octopus.MPAN != "" && cfg.Octopus.Serial != "" {
		consumptionSource = octopus.NewRestClient(cfg.Octopus.RestBaseURL, creds, httpClient)
	}

	sessionRepo := repository.NewSessionRepository(sqlDB)
	settingsRepo := repository.NewSettingsRepository(sqlDB)

	hub := ws.NewHub(logger)
	metrics.Init()

	imp := importer.New(
		dispatchSource,
		consumptionSource,
		sessionRepo,
		settingsRepo,
		hub,
		formatter,
		importer.Options{
			ThresholdKWh:     cfg.Import.ThresholdKWh,
			ConsumptionGap:   cfg.ConsumptionGap(),
			DispatchGap:      cfg.DispatchGap(),
			RateOverride:     cfg.RateOverride(),
			SameLocationOnly: cfg.Import.SameLocationOnly,
			Vehicle:          cfg.Import.DefaultVehicle,
			LookbackDays:     cfg.Import.LookbackDays,
		},
		logger,
	)

	sessionsHandler := handlers.NewSessionsHandler(sessionRepo, logger)
	importHandler := handlers.NewImportHandler(imp, dispatchFetcher, settingsRepo, cfg.Import.LookbackDays, logger)

	routes := httpserver.Routes{
		ListSessions:      sessionsHandler.HandleList,
		GetSession:        sessionsHandler.HandleGet,
		CreateSession:     sessionsHandler.HandleCreate,
		UpdateSession:     sessionsHandler.HandleUpdate,
		DeleteSession:     sessionsHandler.HandleDelete,
		Stats:             sessionsHandler.HandleStats,
		ImportConsumption: importHandler.HandleImportConsumption,
		ImportDispatches:  importHandler.HandleImportDispatches,
		CompletedDispatch: importHandler.HandleCompletedDispatches,
		GraphQLAuth:       importHandler.HandleGraphQLAuth,
		LastImport:        importHandler.HandleLastImport,
		Events:            hub.HandleWS,
		Metrics:           metrics.Handler(),
		Health:            handlers.NewHealthHandler(),
	}

	router := httpserver.NewRouter(routes, middleware.AdminAuth(cfg.Admin.PasswordHash))
	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	return &App{
		server:      server,
		importer:    imp,
		db:          sqlDB,
		redisClient: redisClient,
		logger:      logger,
	}, nil
}

// Importer exposes the import pipeline for the batch commands.
func (a *App) Importer() *importer.Importer {
	return a.importer
}

// DB exposes the database handle for the batch commands.
func (a *App) DB() *sql.DB {
	return a.db
}

// Run starts the HTTP server.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
