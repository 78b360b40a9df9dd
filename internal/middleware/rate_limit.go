package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RateLimit allows perMinute requests per caller with the given burst. Signed-in
// callers are keyed by user, anonymous ones by IP.
func RateLimit(perMinute float64, burst int) echo.MiddlewareFunc {
	store := eMiddleware.NewRateLimiterMemoryStoreWithConfig(eMiddleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(perMinute / 60),
		Burst:     burst,
		ExpiresIn: 3 * time.Minute,
	})
	return eMiddleware.RateLimiterWithConfig(eMiddleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if id := ViewerID(c); id != 0 {
				return "user:" + strconv.FormatUint(uint64(id), 10), nil
			}
			return "ip:" + c.RealIP(), nil
		},
	})
}
