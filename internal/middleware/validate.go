package middleware

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/firenews/internal/apperr"
	"github.com/bilgisen/firenews/internal/logger"
)

// BodyKey is the locals key holding the validated request body.
const BodyKey = "body"

var validate = validator.New()

// ValidateBody parses the request body into a fresh T per request and
// validates its struct tags.
func ValidateBody[T any]() fiber.Handler {
	return func(c *fiber.Ctx) error {
		body := new(T)
		if err := c.BodyParser(body); err != nil {
			return apperr.Validation("invalid request body")
		}
		if err := validate.Struct(body); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				fields := make([]string, 0, len(verrs))
				for _, fe := range verrs {
					fields = append(fields, strings.ToLower(fe.Field())+" ("+fe.Tag()+")")
				}
				return apperr.Validation("invalid fields: " + strings.Join(fields, ", "))
			}
			return apperr.Validation("invalid request body")
		}
		c.Locals(BodyKey, body)
		return c.Next()
	}
}

// Body returns the body stored by ValidateBody[T].
func Body[T any](c *fiber.Ctx) *T {
	body, _ := c.Locals(BodyKey).(*T)
	if body == nil {
		return new(T)
	}
	return body
}

func errorStatus(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return apperr.CodeOf(err).HTTPStatus()
}

func errorCode(status int) apperr.Code {
	switch status {
	case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge, fiber.StatusUnprocessableEntity:
		return apperr.CodeValidation
	case fiber.StatusUnauthorized:
		return apperr.CodeUnauthenticated
	case fiber.StatusForbidden:
		return apperr.CodeForbidden
	case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
		return apperr.CodeNotFound
	case fiber.StatusConflict:
		return apperr.CodeConflict
	}
	return apperr.CodeInternal
}

// ErrorHandler renders errors as {"error", "code"}. Internal causes are
// logged and replaced by the generic notice.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var (
		status = fiber.StatusInternalServerError
		code   = apperr.CodeInternal
		notice = "internal server error"
	)

	var appErr *apperr.Error
	var fe *fiber.Error
	switch {
	case errors.As(err, &appErr):
		code = appErr.Code
		status = code.HTTPStatus()
		notice = appErr.Message
	case errors.As(err, &fe):
		status = fe.Code
		code = errorCode(status)
		notice = fe.Message
	}

	if status >= fiber.StatusInternalServerError {
		logger.Get().Error().
			Err(err).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Msg("HTTP error")
	}

	return c.Status(status).JSON(fiber.Map{
		"error": notice,
		"code":  code,
	})
}
