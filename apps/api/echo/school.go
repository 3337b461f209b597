package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jifunze/jifunze/core/school"
)

type schoolApi struct {
	deps ServerDeps
}

func registerSchoolAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := schoolApi{deps: deps}

	// the school list is public so the registration form can offer a choice
	g.GET("/schools", api.query)

	sg := g.Group("/schools", jwt)
	sg.POST("", api.create, managerMiddleware())
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update, managerMiddleware())
	sg.DELETE("/:id", api.destroy, managerMiddleware())
}

func (api *schoolApi) create(ctx echo.Context) error {
	var data school.NewSchool
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchool")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sch, err := api.deps.SchoolSvc.Create(ctx.Request().Context(), ctxUsr.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating school")
	}
	return respond(ctx, http.StatusCreated, sch)
}

func (api *schoolApi) query(ctx echo.Context) error {
	schools, err := api.deps.SchoolSvc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying schools")
	}
	if schools == nil {
		schools = []school.School{}
	}
	return respond(ctx, http.StatusOK, schools)
}

func (api *schoolApi) retrieve(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}
	sch, err := api.deps.SchoolSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return notFoundIf(err, school.ErrNotFound)
	}
	return respond(ctx, http.StatusOK, sch)
}

func (api *schoolApi) update(ctx echo.Context) error {
	sch, err := api.getOwnedSchool(ctx)
	if err != nil {
		return err
	}

	var data school.UpdateSchool
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSchool")
	}
	if err := data.Validate(sch, api.deps.Validate); err != nil {
		return err
	}

	sch, err = api.deps.SchoolSvc.Update(ctx.Request().Context(), sch.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating school")
	}
	return respond(ctx, http.StatusOK, sch)
}

func (api *schoolApi) destroy(ctx echo.Context) error {
	sch, err := api.getOwnedSchool(ctx)
	if err != nil {
		return err
	}
	if err := api.deps.SchoolSvc.Delete(ctx.Request().Context(), sch.ID); err != nil {
		return errors.Wrap(err, "deleting school")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// getOwnedSchool resolves :id and checks the caller manages that school.
func (api *schoolApi) getOwnedSchool(ctx echo.Context) (school.School, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return school.School{}, errHttpNotFound
	}
	sch, err := api.deps.SchoolSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return school.School{}, notFoundIf(err, school.ErrNotFound)
	}

	ctxUsr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return school.School{}, errors.Wrap(err, "getting context user")
	}
	if ctxUsr.SchoolID != sch.ID {
		return school.School{}, errHttpForbidden
	}
	return sch, nil
}
