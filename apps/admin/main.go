package main

import (
	"context"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/query"
	"github.com/trezcool/masomo-lms/storage/database"
	"github.com/trezcool/masomo-lms/storage/redis"
)

var logger *log.Logger

func main() {
	os.Exit(run())
}

func run() int {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()
	ctx := context.Background()

	var cleanups []func() error
	defer func() {
		for _, cleanup := range cleanups {
			if err := cleanup(); err != nil {
				logger.Printf("cleanup: %v", err)
			}
		}
	}()

	// start CLI
	cli := commandLine{
		conf: conf,
		out:  os.Stdout,
		openDB: func(ctx context.Context) (*sqlx.DB, error) {
			if err := database.CreateIfNotExist(ctx, conf); err != nil {
				return nil, err
			}
			db, err := database.Open(ctx, conf)
			if err != nil {
				return nil, err
			}
			cleanups = append(cleanups, db.Close)
			return db, nil
		},
		openTracker: func(ctx context.Context) (*query.Tracker, error) {
			if conf.Query.Store != "redis" {
				return nil, errors.Errorf("query store %q is process-local; set query.store=redis", conf.Query.Store)
			}
			rdb, err := redisstore.Open(ctx, conf.Redis)
			if err != nil {
				return nil, err
			}
			cleanups = append(cleanups, rdb.Close)
			return query.NewTracker(
				redisstore.NewStore(rdb, conf.Redis.Prefix),
				query.TrackerConfig{FailureLimit: conf.Query.FailureLimit, Cooldown: conf.Query.Cooldown},
			), nil
		},
	}
	if err := cli.run(ctx, os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		return 1
	}
	return 0
}
