package echoapi

import (
	"github.com/labstack/echo/v4"
)

// envelope is the uniform JSON response body. Errors reuse it with
// Success=false and the message set by the error handler. Paged lists
// nest their paging block inside Data next to the list itself.
type envelope struct {
	Success bool        `json:"success"`
	Message interface{} `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func respond(ctx echo.Context, code int, data interface{}) error {
	return ctx.JSON(code, envelope{Success: true, Data: data})
}

func respondMsg(ctx echo.Context, code int, msg string, data interface{}) error {
	return ctx.JSON(code, envelope{Success: true, Message: msg, Data: data})
}
