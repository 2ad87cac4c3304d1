package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/query"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf *core.Config
	out  io.Writer

	// resources are opened by the subcommands needing them
	openDB      func(ctx context.Context) (*sqlx.DB, error)
	openTracker func(ctx context.Context) (*query.Tracker, error)
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                            - run a goose command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  querystatus [-key JSON]                           - list failing queries, or show one query")
	fmt.Fprintln(cli.out, "  queryreset -key JSON                              - reset the failures of a query")
	fmt.Fprintln(cli.out, "  token -id ID [-username U] [-email E] -roles R,.. - print a signed API token")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	queryStatusCmd := flag.NewFlagSet("querystatus", flag.ContinueOnError)
	queryStatusKey := queryStatusCmd.String("key", "", `The query key as a JSON array, eg. '["semesters","<catalogue id>"]'.`)

	queryResetCmd := flag.NewFlagSet("queryreset", flag.ContinueOnError)
	queryResetKey := queryResetCmd.String("key", "", `The query key as a JSON array, eg. '["semesters","<catalogue id>"]'.`)

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenID := tokenCmd.String("id", "", "The subject of the token.")
	tokenUsername := tokenCmd.String("username", "", "The username of the subject.")
	tokenEmail := tokenCmd.String("email", "", "The email of the subject.")
	tokenRoles := tokenCmd.String("roles", "", "Comma separated roles, eg. 'admin:,teacher:'.")

	for _, fs := range []*flag.FlagSet{queryStatusCmd, queryResetCmd, tokenCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(ctx, args[2:])
	case "querystatus":
		if err := queryStatusCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.queryStatus(ctx, *queryStatusKey)
	case "queryreset":
		if err := queryResetCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *queryResetKey == "" {
			queryResetCmd.Usage()
			return errHelp
		}
		return cli.queryReset(ctx, *queryResetKey)
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenID == "" || *tokenRoles == "" {
			tokenCmd.Usage()
			return errHelp
		}
		id := core.Identity{ID: *tokenID, Username: *tokenUsername, Email: *tokenEmail}
		return cli.token(id, splitRoles(*tokenRoles))
	default:
		cli.printUsage()
		return errHelp
	}
}

func splitRoles(s string) []string {
	var roles []string
	for _, role := range strings.Split(s, ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}
	return roles
}
