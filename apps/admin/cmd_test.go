package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/jmoiron/sqlx"
	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/auth"
	"github.com/trezcool/masomo-lms/core/query"
)

func setup(t *testing.T) (*commandLine, *query.Tracker, *bytes.Buffer) {
	var out bytes.Buffer
	tracker := query.NewTracker(query.NewMemoryStore(), query.TrackerConfig{FailureLimit: 2})
	cli := &commandLine{
		conf: &core.Config{
			AppName:   "Masomo",
			SecretKey: "test-secret",
			Server:    core.ServerConfig{JWTExpirationDelta: time.Hour},
		},
		out: &out,
		openDB: func(context.Context) (*sqlx.DB, error) {
			return nil, nil
		},
		openTracker: func(context.Context) (*query.Tracker, error) {
			return tracker, nil
		},
	}
	return cli, tracker, &out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantOut    string
}

func runCLITests(t *testing.T, cli *commandLine, out *bytes.Buffer, tests []cliTest) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(context.Background(), args)
			switch {
			case err == nil:
				if tt.wantErr != nil || tt.wantErrStr != "" {
					t.Errorf("cli.run() error = nil, wantErr %v %s", tt.wantErr, tt.wantErrStr)
				}
			case tt.wantErr != nil:
				if pkgerrors.Cause(err) != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			case tt.wantErrStr != "":
				if err.Error() != tt.wantErrStr {
					t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
				}
			default:
				t.Errorf("cli.run() unexpected error = %v", err)
			}
			if tt.wantOut != "" && !strings.Contains(out.String(), tt.wantOut) {
				t.Errorf("failed! out = %q; want it to contain %q", out.String(), tt.wantOut)
			}
		})
	}
}

func Test_commandLine_run(t *testing.T) {
	cli, _, out := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp, wantOut: "Usage:"},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp, wantOut: "Usage:"},
	}
	runCLITests(t, cli, out, tests)
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, out := setup(t)

	orig := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = orig })

	gooseRunFunc = func(_ context.Context, _ *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "0"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "enrolment", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	runCLITests(t, cli, out, tests)

	dbErr := errors.New("db down")
	cli.openDB = func(context.Context) (*sqlx.DB, error) { return nil, dbErr }
	runCLITests(t, cli, out, []cliTest{{name: "db down", args: []string{"migrate", "up"}, wantErr: dbErr}})
}

func Test_commandLine_queries(t *testing.T) {
	cli, tracker, out := setup(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := tracker.RecordFailure(ctx, `["catalogues"]`); err != nil {
			t.Fatalf("RecordFailure() failed: %v", err)
		}
	}
	if _, err := tracker.RecordFailure(ctx, `["semesters","cat-1"]`); err != nil {
		t.Fatalf("RecordFailure() failed: %v", err)
	}

	tests := []cliTest{
		{name: "status: all", args: []string{"querystatus"}, wantOut: "suppressed"},
		{name: "status: healthy key", args: []string{"querystatus", "-key", `["semesters","cat-1"]`}, wantOut: "healthy"},
		{name: "status: invalid key", args: []string{"querystatus", "-key", "lol"}, wantErr: query.ErrInvalidKey},
		{name: "reset: no key", args: []string{"queryreset"}, wantErr: errHelp},
		{name: "reset: invalid key", args: []string{"queryreset", "-key", "[]"}, wantErr: query.ErrInvalidKey},
		{name: "reset", args: []string{"queryreset", "-key", `["catalogues"]`}, wantOut: `reset ["catalogues"]`},
	}
	runCLITests(t, cli, out, tests)

	policy, err := tracker.Policy(ctx, `["catalogues"]`)
	if err != nil {
		t.Fatalf("Policy() failed: %v", err)
	}
	if policy.Failures != 0 || policy.Suppressed() {
		t.Errorf("failed! policy = %+v; want healthy", policy)
	}
}

func Test_commandLine_token(t *testing.T) {
	cli, _, out := setup(t)

	tests := []cliTest{
		{name: "no args", args: []string{"token"}, wantErr: errHelp},
		{name: "no roles", args: []string{"token", "-id", "1"}, wantErr: errHelp},
		{name: "invalid role", args: []string{"token", "-id", "1", "-roles", "root"}, wantErr: auth.ErrInvalidRole},
		{name: "admin", args: []string{"token", "-id", "1", "-username", "admin", "-roles", "admin:, teacher:"}},
	}
	runCLITests(t, cli, out, tests)

	// out holds the last token
	claims := new(auth.Claims)
	_, err := jwt.ParseWithClaims(strings.TrimSpace(out.String()), claims, func(*jwt.Token) (interface{}, error) {
		return []byte(cli.conf.SecretKey), nil
	})
	if err != nil {
		t.Fatalf("ParseWithClaims() failed: %v", err)
	}
	if !claims.IsAdmin || !claims.IsTeacher || claims.Username != "admin" {
		t.Errorf("failed! claims = %+v", claims)
	}
}
