package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jifunze/jifunze/core/course"
	"github.com/jifunze/jifunze/core/resource"
)

type resourceApi struct {
	deps ServerDeps
}

func registerResourceAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := resourceApi{deps: deps}

	g.GET("/courses/:id/resources", api.queryByCourse, jwt)

	rg := g.Group("/resources", jwt)
	rg.POST("", api.share, staffMiddleware())
	rg.PUT("/:id", api.update, staffMiddleware())
	rg.DELETE("/:id", api.destroy, staffMiddleware())
}

func (api *resourceApi) queryByCourse(ctx echo.Context) error {
	courseID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	ctxUsr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	crs, err := api.deps.CourseSvc.GetByID(ctx.Request().Context(), courseID)
	if err != nil {
		return notFoundIf(err, course.ErrNotFound)
	}
	if ctxUsr.SchoolID != crs.SchoolID {
		return errHttpNotFound
	}

	resources, err := api.deps.ResourceSvc.QueryByCourse(ctx.Request().Context(), crs.ID)
	if err != nil {
		return errors.Wrap(err, "querying resources")
	}
	if resources == nil {
		resources = []resource.Resource{}
	}
	return respond(ctx, http.StatusOK, resources)
}

func (api *resourceApi) share(ctx echo.Context) error {
	var data resource.NewResource
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewResource")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	res, err := api.deps.ResourceSvc.Share(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return notFoundIf(err, course.ErrNotFound)
	}
	return respond(ctx, http.StatusCreated, res)
}

func (api *resourceApi) update(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	orig, err := api.deps.ResourceSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return notFoundIf(err, resource.ErrNotFound)
	}

	var data resource.UpdateResource
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateResource")
	}
	if err := data.Validate(orig, api.deps.Validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	res, err := api.deps.ResourceSvc.Update(ctx.Request().Context(), ctxUsr, id, data)
	if err != nil {
		return notFoundIf(err, resource.ErrNotFound)
	}
	return respond(ctx, http.StatusOK, res)
}

func (api *resourceApi) destroy(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	ctxUsr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.deps.ResourceSvc.Delete(ctx.Request().Context(), ctxUsr, id); err != nil {
		return notFoundIf(err, resource.ErrNotFound)
	}
	return ctx.NoContent(http.StatusNoContent)
}
