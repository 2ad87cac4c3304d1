package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core/query"
)

const keyParam = "key"

type queryApi struct {
	queries *query.Resilient
}

func registerQueryAPI(g *echo.Group, jwt echo.MiddlewareFunc, queries *query.Resilient) {
	api := queryApi{queries: queries}

	qg := g.Group("/queries", jwt, adminMiddleware())
	qg.GET("", api.retrieve)
	qg.GET("/failing", api.queryFailing)
	qg.DELETE("", api.reset)
}

func parseKeyParam(ctx echo.Context) (query.Key, error) {
	raw := ctx.QueryParam(keyParam)
	if raw == "" {
		return nil, errHttpBadKey
	}
	return query.ParseKey(raw)
}

// Handlers

func (api *queryApi) retrieve(ctx echo.Context) error {
	key, err := parseKeyParam(ctx)
	if err != nil {
		return err
	}
	policy, err := api.queries.Policy(ctx.Request().Context(), key)
	if err != nil {
		return errors.Wrap(err, "getting query policy")
	}
	return ctx.JSON(http.StatusOK, policy)
}

func (api *queryApi) queryFailing(ctx echo.Context) error {
	policies, err := api.queries.Tracker().Failing(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing failing queries")
	}
	return ctx.JSON(http.StatusOK, policies)
}

func (api *queryApi) reset(ctx echo.Context) error {
	key, err := parseKeyParam(ctx)
	if err != nil {
		return err
	}
	if err = api.queries.Reset(ctx.Request().Context(), key); err != nil {
		return errors.Wrap(err, "resetting query")
	}
	return ctx.NoContent(http.StatusNoContent)
}
