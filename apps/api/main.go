package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	echoapi "github.com/trezcool/masomo-lms/apps/api/echo"
	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/catalogue"
	"github.com/trezcool/masomo-lms/core/query"
	logsvc "github.com/trezcool/masomo-lms/services/logger"
	metricsvc "github.com/trezcool/masomo-lms/services/metrics"
	"github.com/trezcool/masomo-lms/storage/database"
	"github.com/trezcool/masomo-lms/storage/database/inmem"
	"github.com/trezcool/masomo-lms/storage/database/sqlx"
	"github.com/trezcool/masomo-lms/storage/redis"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()
	ctx := context.Background()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close(conf.Server.ShutdownTimeout)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	catRepo, closeDB, err := setUpCatalogueRepository(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = closeDB(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// set up the query layer
	metrics := metricsvc.NewQueryMetrics()
	store, closeStore, err := setUpQueryStore(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up query store: %v", err), err)
	}
	defer func() {
		if err = closeStore(); err != nil {
			logger.Error("Failed to close query store", err)
		}
	}()
	queries := query.NewResilient(query.ResilientDeps{
		Client: query.NewClient(
			query.WithRetry(conf.Query.Retry),
			query.WithRetryDelay(query.ExponentialDelay(query.DefaultRetryDelayMin, conf.Query.RetryDelayMax)),
			query.WithStaleTime(conf.Query.StaleTime),
		),
		Tracker: query.NewTracker(store, query.TrackerConfig{
			FailureLimit: conf.Query.FailureLimit,
			Cooldown:     conf.Query.Cooldown,
		}),
		Logger:   logger,
		Observer: metrics,
	})

	// set up services
	catSvc := catalogue.NewService(catRepo, queries)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : %s", conf))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	catalogue.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("queryStore").Set(conf.Query.Store)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:         conf,
			Logger:       logger,
			CatalogueSvc: catSvc,
			Queries:      queries,
			Metrics:      metrics.Handler(),
			Validate:     validate,
			Translator:   translator,
		},
	)

	go func() {
		logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Address))
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(ctx, conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpCatalogueRepository opens the configured database ("memory" or postgres), creating and migrating it if needed.
func setUpCatalogueRepository(ctx context.Context, conf *core.Config) (catalogue.Repository, func() error, error) {
	if conf.Database.Engine == "memory" {
		db, err := inmemdb.Open()
		if err != nil {
			return nil, nil, err
		}
		return inmemdb.NewCatalogueRepository(db), func() error { return nil }, nil
	}

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, nil, err
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, nil, err
	}
	if err = database.Migrate(ctx, db, "up"); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return sqlxrepos.NewCatalogueRepository(db), db.Close, nil
}

// setUpQueryStore returns the failure store selected by conf.Query.Store.
func setUpQueryStore(ctx context.Context, conf *core.Config) (query.Store, func() error, error) {
	switch conf.Query.Store {
	case "redis":
		rdb, err := redisstore.Open(ctx, conf.Redis)
		if err != nil {
			return nil, nil, err
		}
		return redisstore.NewStore(rdb, conf.Redis.Prefix), rdb.Close, nil
	case "memory", "":
		return query.NewMemoryStore(), func() error { return nil }, nil
	default:
		return nil, nil, errors.Errorf("unknown query store %q", conf.Query.Store)
	}
}
