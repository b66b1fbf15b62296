package echoapi

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/shule/services/metrics"
)

// metricsMiddleware counts & times requests by route name.
func metricsMiddleware(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			if err != nil {
				ctx.Error(err)
			}

			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			m.ObserveRequest(route, ctx.Request().Method, ctx.Response().Status, time.Since(start))
			return err
		}
	}
}
