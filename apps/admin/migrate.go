package main

import (
	"context"

	"github.com/trezcool/masomo-lms/storage/database"
)

var gooseRunFunc = database.Migrate // mockable

func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	db, err := cli.openDB(ctx)
	if err != nil {
		return err
	}
	return gooseRunFunc(ctx, db, args[0], args[1:]...)
}
