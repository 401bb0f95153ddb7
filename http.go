package accounts

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// ErrorHandler renders handler errors as envelopes. Expected failures
// keep their status and message, anything else is logged and answered
// with a generic 500.
func ErrorHandler(logger Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			if fiberErr.Code == fiber.StatusNotFound {
				return SendError(c, fiber.StatusNotFound, MsgRouteNotFound, MsgRouteNotFoundError)
			}
			if fiberErr.Code >= http.StatusInternalServerError {
				logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
				return SendError(c, fiberErr.Code, MsgInternalError, "")
			}
			return SendError(c, fiberErr.Code, fiberErr.Message, "")
		}

		if fields, ok := ValidationFields(err); ok {
			return c.Status(fiber.StatusBadRequest).JSON(Envelope{
				Success: false,
				Message: "Validation failed",
				Code:    TextCodeValidation,
				Errors:  fields,
			})
		}

		status := StatusCode(err)

		var richErr *goerrors.Error
		if status >= http.StatusInternalServerError || !goerrors.As(err, &richErr) {
			fields := []any{
				"method", c.Method(),
				"path", c.Path(),
				"error", err,
			}
			if richErr != nil && len(richErr.Metadata) > 0 {
				fields = append(fields, "details", print.MaybePrettyJSON(richErr.Metadata))
			}
			logger.Error("request failed", fields...)
			return SendError(c, http.StatusInternalServerError, MsgInternalError, "")
		}

		return c.Status(status).JSON(Envelope{
			Success: false,
			Message: richErr.Message,
			Code:    richErr.TextCode,
		})
	}
}

// NotFoundHandler answers requests that matched no route
func NotFoundHandler(c *fiber.Ctx) error {
	return SendError(c, fiber.StatusNotFound, MsgRouteNotFound, MsgRouteNotFoundError)
}
