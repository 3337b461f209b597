package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jifunze/jifunze/core/course"
	"github.com/jifunze/jifunze/core/user"
)

type courseApi struct {
	deps ServerDeps
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := courseApi{deps: deps}

	cg := g.Group("/courses", jwt)

	cg.POST("", api.create, staffMiddleware())
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update, staffMiddleware())
	cg.DELETE("/:id", api.destroy, staffMiddleware())

	// enrollment
	cg.POST("/:id/enroll", api.enroll)
	cg.POST("/:id/unenroll", api.unenroll)
	cg.GET("/:id/enrollments", api.queryEnrollments, staffMiddleware())
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}

	ctxUsr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	data.EducatorID = ctxUsr.ID
	data.SchoolID = ctxUsr.SchoolID
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	crs, err := api.deps.CourseSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return respond(ctx, http.StatusCreated, crs)
}

func (api *courseApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	courses, err := api.deps.CourseSvc.QueryForUser(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return respond(ctx, http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, _, err := api.getSchoolCourse(ctx)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	crs, ctxUsr, err := api.getSchoolCourse(ctx)
	if err != nil {
		return err
	}
	if ctxUsr.IsEducator() && crs.EducatorID != ctxUsr.ID {
		return errHttpForbidden
	}

	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(crs, api.deps.Validate); err != nil {
		return err
	}

	crs, err = api.deps.CourseSvc.Update(ctx.Request().Context(), crs.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return respond(ctx, http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	crs, ctxUsr, err := api.getSchoolCourse(ctx)
	if err != nil {
		return err
	}
	if ctxUsr.IsEducator() && crs.EducatorID != ctxUsr.ID {
		return errHttpForbidden
	}
	if err := api.deps.CourseSvc.Delete(ctx.Request().Context(), crs.ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// enroll enrolls the caller (students) or a named student (staff).
func (api *courseApi) enroll(ctx echo.Context) error {
	crs, ctxUsr, err := api.getSchoolCourse(ctx)
	if err != nil {
		return err
	}

	var data EnrollRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollRequest")
	}

	publicID := data.UserPublicID
	if ctxUsr.IsStudent() || publicID == "" {
		publicID = ctxUsr.PublicID
	}

	ne := course.NewEnrollment{UserPublicID: publicID, CourseID: crs.ID}
	if err := ne.Validate(api.deps.Validate); err != nil {
		return err
	}

	enr, err := api.deps.CourseSvc.Enroll(ctx.Request().Context(), ne)
	if err != nil {
		return notFoundIf(err, user.ErrNotFound)
	}
	return respondMsg(ctx, http.StatusCreated, "Successfully enrolled.", enr)
}

func (api *courseApi) unenroll(ctx echo.Context) error {
	crs, ctxUsr, err := api.getSchoolCourse(ctx)
	if err != nil {
		return err
	}

	var data EnrollRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollRequest")
	}

	publicID := data.UserPublicID
	if ctxUsr.IsStudent() || publicID == "" {
		publicID = ctxUsr.PublicID
	}

	if err := api.deps.CourseSvc.Unenroll(ctx.Request().Context(), publicID, crs.ID); err != nil {
		return notFoundIf(err, user.ErrNotFound)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) queryEnrollments(ctx echo.Context) error {
	crs, _, err := api.getSchoolCourse(ctx)
	if err != nil {
		return err
	}

	enrollments, err := api.deps.CourseSvc.QueryEnrollments(ctx.Request().Context(), crs.ID)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrollments == nil {
		enrollments = []course.Enrollment{}
	}
	return respond(ctx, http.StatusOK, enrollments)
}

// getSchoolCourse resolves :id to a course in the caller's school.
func (api *courseApi) getSchoolCourse(ctx echo.Context) (course.Course, user.User, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return course.Course{}, user.User{}, errHttpNotFound
	}
	crs, err := api.deps.CourseSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return course.Course{}, user.User{}, notFoundIf(err, course.ErrNotFound)
	}

	ctxUsr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return course.Course{}, user.User{}, errors.Wrap(err, "getting context user")
	}
	if ctxUsr.SchoolID != crs.SchoolID {
		return course.Course{}, user.User{}, errHttpNotFound
	}
	return crs, ctxUsr, nil
}

type EnrollRequest struct {
	UserPublicID string `json:"user_public_id"`
}
