package middleware

import (
	"errors"
	"net/url"
	"time"

	"github.com/bilgisen/draftdesk/internal/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
)

const (
	// CSRFField is the form field carrying the token
	CSRFField = "_csrf"
	// CSRFCookie holds the same token on the browser side
	CSRFCookie = "draftdesk_csrf"

	csrfContextKey = "csrf"
)

var errCrossOrigin = errors.New("cross-origin request")

// CSRF protects the dashboard forms with a double-submit token. One
// handler must serve both the page that renders the forms and the
// routes they post to, since the token store lives in the handler.
func CSRF(secureCookie bool) fiber.Handler {
	return csrf.New(csrf.Config{
		KeyLookup:      "form:" + CSRFField,
		CookieName:     CSRFCookie,
		CookieSameSite: "Strict",
		CookieHTTPOnly: true,
		CookieSecure:   secureCookie,
		Expiration:     8 * time.Hour,
		ContextKey:     csrfContextKey,
		ErrorHandler:   forbidden,
	})
}

// CSRFToken returns the token the CSRF handler stored for this request
func CSRFToken(c *fiber.Ctx) string {
	token, _ := c.Locals(csrfContextKey).(string)
	return token
}

// SameOrigin rejects unsafe requests a browser marks as cross-site, or
// whose Origin names another host.
func SameOrigin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		if c.Get("Sec-Fetch-Site") == "cross-site" {
			return forbidden(c, errCrossOrigin)
		}
		if origin := c.Get(fiber.HeaderOrigin); origin != "" {
			u, err := url.Parse(origin)
			if err != nil || u.Host != c.Hostname() {
				return forbidden(c, errCrossOrigin)
			}
		}
		return c.Next()
	}
}

func forbidden(c *fiber.Ctx, err error) error {
	logger.Get().Warn().
		Err(err).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Str("ip", c.IP()).
		Str("origin", c.Get(fiber.HeaderOrigin)).
		Msg("Rejected form submission")

	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"error": "Forbidden",
	})
}
