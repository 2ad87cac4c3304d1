package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/trezcool/masomo-lms/core/query"
)

func (cli *commandLine) printPolicies(policies []query.Policy) error {
	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STATE\tFAILURES\tLAST FAILURE\tKEY")
	for _, p := range policies {
		last := "-"
		if !p.LastFailure.IsZero() {
			last = p.LastFailure.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", p.State, p.Failures, last, p.Hash)
	}
	return w.Flush()
}

func (cli *commandLine) queryStatus(ctx context.Context, rawKey string) error {
	tracker, err := cli.openTracker(ctx)
	if err != nil {
		return err
	}

	if rawKey == "" {
		policies, err := tracker.Failing(ctx)
		if err != nil {
			return err
		}
		return cli.printPolicies(policies)
	}

	hash, err := parseHash(rawKey)
	if err != nil {
		return err
	}
	policy, err := tracker.Policy(ctx, hash)
	if err != nil {
		return err
	}
	return cli.printPolicies([]query.Policy{policy})
}

func (cli *commandLine) queryReset(ctx context.Context, rawKey string) error {
	tracker, err := cli.openTracker(ctx)
	if err != nil {
		return err
	}
	hash, err := parseHash(rawKey)
	if err != nil {
		return err
	}
	if err = tracker.Reset(ctx, hash); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "reset %s\n", hash)
	return nil
}

func parseHash(rawKey string) (string, error) {
	key, err := query.ParseKey(rawKey)
	if err != nil {
		return "", err
	}
	return key.Hash()
}
