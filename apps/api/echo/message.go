package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jifunze/jifunze/core"
	"github.com/jifunze/jifunze/core/course"
	"github.com/jifunze/jifunze/core/message"
)

type messageApi struct {
	deps ServerDeps
}

func registerMessageAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := messageApi{deps: deps}

	mg := g.Group("/messages", jwt)

	mg.GET("", api.query)
	mg.POST("", api.create)
	mg.PUT("/:id", api.update)
	mg.DELETE("/:id", api.destroy)
}

// query returns a page of a course's messages in ascending timestamp
// order. The caller must be able to see the course: enrolled students,
// the owning educator or a manager of the school.
func (api *messageApi) query(ctx echo.Context) error {
	filter := new(message.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	if filter.CourseID == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "course_id", Error: "this field is required"})
	}

	ctxUsr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	crs, err := api.deps.CourseSvc.GetByID(ctx.Request().Context(), filter.CourseID)
	if err != nil {
		return notFoundIf(err, course.ErrNotFound)
	}
	if ctxUsr.SchoolID != crs.SchoolID {
		return errHttpNotFound
	}
	if ctxUsr.IsStudent() {
		enrolled, err := api.deps.CourseSvc.IsEnrolled(ctx.Request().Context(), ctxUsr.ID, crs.ID)
		if err != nil {
			return errors.Wrap(err, "checking enrollment")
		}
		if !enrolled {
			return errHttpForbidden
		}
	}

	msgs, meta, err := api.deps.MessageSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying messages")
	}
	if msgs == nil {
		msgs = []message.Message{}
	}
	return respond(ctx, http.StatusOK, MessagesResponse{Messages: msgs, Meta: meta})
}

func (api *messageApi) create(ctx echo.Context) error {
	var data message.NewMessage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	msg, err := api.deps.MessageSvc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		if errors.Cause(err) == course.ErrNotEnrolled {
			return errHttpForbidden
		}
		return notFoundIf(err, course.ErrNotFound)
	}
	return respond(ctx, http.StatusCreated, msg)
}

func (api *messageApi) update(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	var data UpdateMessageRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMessageRequest")
	}
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	msg, err := api.deps.MessageSvc.Update(ctx.Request().Context(), ctxUsr, id, data.Content)
	if err != nil {
		return notFoundIf(err, message.ErrNotFound)
	}
	return respond(ctx, http.StatusOK, msg)
}

func (api *messageApi) destroy(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	ctxUsr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.deps.MessageSvc.Delete(ctx.Request().Context(), ctxUsr, id); err != nil {
		return notFoundIf(err, message.ErrNotFound)
	}
	return ctx.NoContent(http.StatusNoContent)
}

type UpdateMessageRequest struct {
	Content string `json:"content" validate:"required,min=2"`
}

// MessagesResponse carries a page of messages with its paging block
// nested under data, alongside the notifications shape.
type MessagesResponse struct {
	Messages []message.Message `json:"messages"`
	Meta     core.PageMeta     `json:"meta"`
}
