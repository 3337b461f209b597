package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jifunze/jifunze/core/notification"
)

type notificationApi struct {
	deps ServerDeps
}

func registerNotificationAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := notificationApi{deps: deps}

	ng := g.Group("/notifications", jwt)

	ng.GET("", api.query)
	ng.PATCH("/:id", api.markRead)
	ng.POST("/mark-all-read", api.markAllRead)
	ng.DELETE("/:id", api.destroy)
}

func (api *notificationApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	unreadOnly, _ := strconv.ParseBool(ctx.QueryParam("unread_only"))
	limit, _ := strconv.Atoi(ctx.QueryParam("limit"))

	notifs, unread, err := api.deps.NotifSvc.Query(ctx.Request().Context(), claims.Subject, unreadOnly, limit)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	if notifs == nil {
		notifs = []notification.Notification{}
	}
	return respond(ctx, http.StatusOK, NotificationsResponse{
		Notifications: notifs,
		UnreadCount:   unread,
	})
}

func (api *notificationApi) markRead(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err := api.deps.NotifSvc.MarkRead(ctx.Request().Context(), claims.Subject, id); err != nil {
		return notFoundIf(err, notification.ErrNotFound)
	}
	return respondMsg(ctx, http.StatusOK, "Notification marked as read.", nil)
}

func (api *notificationApi) markAllRead(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if err := api.deps.NotifSvc.MarkAllRead(ctx.Request().Context(), claims.Subject); err != nil {
		return errors.Wrap(err, "marking all read")
	}
	return respondMsg(ctx, http.StatusOK, "All notifications marked as read.", nil)
}

func (api *notificationApi) destroy(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err := api.deps.NotifSvc.Delete(ctx.Request().Context(), claims.Subject, id); err != nil {
		return notFoundIf(err, notification.ErrNotFound)
	}
	return ctx.NoContent(http.StatusNoContent)
}

type NotificationsResponse struct {
	Notifications []notification.Notification `json:"notifications"`
	UnreadCount   int                         `json:"unread_count"`
}
