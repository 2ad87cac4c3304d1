package main

import (
	"fmt"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/auth"
)

func (cli *commandLine) token(id core.Identity, roles []string) error {
	claims, err := auth.NewClaims(cli.conf, id, roles...)
	if err != nil {
		return err
	}
	token, err := auth.GenerateToken(cli.conf.SecretKey, claims)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}
