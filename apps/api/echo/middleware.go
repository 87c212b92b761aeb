package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/ieptracker/core/roster"
)

// credentialMiddleware forwards the bearer token of the request to the roster hooks through the request context.
func credentialMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if token := bearerToken(ctx); token != "" {
				req := ctx.Request()
				ctx.SetRequest(req.WithContext(roster.WithCredential(req.Context(), token)))
			}
			return next(ctx)
		}
	}
}
