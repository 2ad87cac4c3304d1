package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core/catalogue"
	"github.com/trezcool/masomo-lms/core/query"
)

type catalogueApi struct {
	svc      catalogue.Service
	validate *validator.Validate
}

func registerCatalogueAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc catalogue.Service, validate *validator.Validate) {
	api := catalogueApi{
		svc:      svc,
		validate: validate,
	}

	cg := g.Group("/catalogues")
	cg.GET("", api.query)

	dg := cg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.GET("/courses", api.queryCourses)
	dg.GET("/semesters", api.querySemesters)
	dg.POST("/semesters", api.createSemester, jwt, staffMiddleware)
}

// respond renders a query.Result: data when there is some, the fetch error,
// or 503 when the query is suppressed and nothing is cached.
func respond(ctx echo.Context, res query.Result) error {
	switch {
	case res.IsDisabled && res.Data != nil:
		return ctx.JSON(http.StatusOK, res.Data)
	case res.IsDisabled:
		return errUnavailable
	case res.IsError():
		return res.Err
	case res.IsSuccess():
		return ctx.JSON(http.StatusOK, res.Data)
	default:
		return errUnavailable
	}
}

// Handlers

func (api *catalogueApi) query(ctx echo.Context) error {
	return respond(ctx, api.svc.Catalogues(ctx.Request().Context()))
}

func (api *catalogueApi) retrieve(ctx echo.Context) error {
	return respond(ctx, api.svc.Catalogue(ctx.Request().Context(), ctx.Param("id")))
}

func (api *catalogueApi) queryCourses(ctx echo.Context) error {
	var filter catalogue.CourseFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to CourseFilter")
	}
	if err := filter.Validate(api.validate); err != nil {
		return err
	}
	var ord Ordering
	ord.Bind(ctx)
	if err := catalogue.ValidateOrdering(ord.Orderings); err != nil {
		return err
	}

	return respond(ctx, api.svc.Courses(ctx.Request().Context(), ctx.Param("id"), filter, ord.Orderings))
}

func (api *catalogueApi) querySemesters(ctx echo.Context) error {
	return respond(ctx, api.svc.Semesters(ctx.Request().Context(), ctx.Param("id")))
}

func (api *catalogueApi) createSemester(ctx echo.Context) error {
	var data catalogue.NewSemester
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSemester")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sem, err := api.svc.CreateSemester(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating semester")
	}
	return ctx.JSON(http.StatusCreated, sem)
}
