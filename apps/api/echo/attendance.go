package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jifunze/jifunze/core/attendance"
	"github.com/jifunze/jifunze/core/user"
)

type attendanceApi struct {
	deps ServerDeps
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := attendanceApi{deps: deps}

	ag := g.Group("/attendance", jwt)

	ag.POST("", api.record, staffMiddleware())
	ag.GET("", api.query)
	ag.PATCH("/:id", api.updateStatus, staffMiddleware())
	ag.DELETE("/:id", api.destroy, managerMiddleware())
}

func (api *attendanceApi) record(ctx echo.Context) error {
	var data attendance.NewAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAttendance")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	att, err := api.deps.AttendanceSvc.Record(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return notFoundIf(err, user.ErrNotFound)
	}
	return respond(ctx, http.StatusCreated, att)
}

// query lists attendance records. Students only ever see their own.
func (api *attendanceApi) query(ctx echo.Context) error {
	filter := new(attendance.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}

	ctxUsr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if ctxUsr.IsStudent() {
		filter.UserPublicID = ctxUsr.PublicID
	}

	records, err := api.deps.AttendanceSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	if records == nil {
		records = []attendance.Attendance{}
	}
	return respond(ctx, http.StatusOK, records)
}

func (api *attendanceApi) updateStatus(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	var data UpdateAttendanceRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAttendanceRequest")
	}
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	att, err := api.deps.AttendanceSvc.UpdateStatus(ctx.Request().Context(), ctxUsr, id, data.Status)
	if err != nil {
		return notFoundIf(err, attendance.ErrNotFound)
	}
	return respond(ctx, http.StatusOK, att)
}

func (api *attendanceApi) destroy(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}
	if err := api.deps.AttendanceSvc.Delete(ctx.Request().Context(), id); err != nil {
		return notFoundIf(err, attendance.ErrNotFound)
	}
	return ctx.NoContent(http.StatusNoContent)
}

type UpdateAttendanceRequest struct {
	Status string `json:"status" validate:"required,attstatus"`
}
