package middleware

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/bilgisen/draftdesk/internal/logger"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

const validatedKey = "validated"

// Validator is a struct that holds the validator instance
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate validates a struct against its validate tags
func (v *Validator) Validate(s interface{}) error {
	return v.validate.Struct(s)
}

// Var validates a single value against a tag expression
func (v *Validator) Var(value interface{}, tag string) error {
	return v.validate.Var(value, tag)
}

func fieldErrors(err error) map[string]string {
	out := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			out[fe.Field()] = fe.Tag()
		}
	}
	return out
}

// ValidateBody parses the JSON body into a fresh T per request and
// validates it. An empty body validates the zero T. Handlers read the
// value with Validated.
func ValidateBody[T any]() fiber.Handler {
	v := NewValidator()

	return func(c *fiber.Ctx) error {
		req := new(T)

		if len(c.Body()) > 0 {
			if err := c.BodyParser(req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid request body",
					"msg":   err.Error(),
				})
			}
		}

		if err := v.Validate(req); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":  "Validation failed",
				"fields": fieldErrors(err),
			})
		}

		c.Locals(validatedKey, req)
		return c.Next()
	}
}

// Validated returns the body stored by ValidateBody
func Validated[T any](c *fiber.Ctx) *T {
	if req, ok := c.Locals(validatedKey).(*T); ok {
		return req
	}
	return new(T)
}

// PathParam returns a route parameter with percent-escapes decoded, so
// an id containing "/" can travel as one escaped segment.
func PathParam(c *fiber.Ctx, name string) string {
	raw := c.Params(name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// ValidateParam validates a decoded route parameter against a tag expression
func ValidateParam(name, tag string) fiber.Handler {
	return validateValue(name, tag, "Invalid path parameter", func(c *fiber.Ctx) string {
		return PathParam(c, name)
	})
}

// ValidateFormValue validates a form field against a tag expression
func ValidateFormValue(name, tag string) fiber.Handler {
	return validateValue(name, tag, "Invalid form field", func(c *fiber.Ctx) string {
		return c.FormValue(name)
	})
}

func validateValue(name, tag, msg string, value func(c *fiber.Ctx) string) fiber.Handler {
	v := NewValidator()

	return func(c *fiber.Ctx) error {
		if err := v.Var(value(c), tag); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":  msg,
				"fields": map[string]string{name: tagOf(err)},
			})
		}
		return c.Next()
	}
}

func tagOf(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Tag()
	}
	return "invalid"
}

// ErrorHandler is the fiber error handler rendering errors as JSON
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}

	logger.Get().Error().
		Err(err).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", code).
		Msg("HTTP error")

	return c.Status(code).JSON(fiber.Map{
		"error": http.StatusText(code),
	})
}
