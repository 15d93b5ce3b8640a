package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const InstanceIDKey string = "instanceID"

// SecretLoader is called once per request.
type SecretLoader func() (*Secret, error)

// Middleware gates the next handler on a matching API key. Parameters are
// checked before the secret is decoded, so a request without parameters is
// rejected even when the secret is broken.
func Middleware(load SecretLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := FromQuery(c.QueryParams())
			if req.InstanceID == "" {
				req.InstanceID = c.FormValue("ec2_id")
			}
			if req.Key == "" {
				req.Key = c.FormValue("key")
			}

			if err := req.Validate(); err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error()).SetInternal(err)
			}

			secret, err := load()
			if err != nil {
				c.Logger().Errorf("Unable to load API secret: %v", err)
				return err
			}

			if err := secret.Authenticate(req.InstanceID, req.Key); err != nil {
				c.Logger().Warnf("Rejected request for instance %s: wrong API key", req.InstanceID)
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error()).SetInternal(err)
			}

			c.Set(InstanceIDKey, req.InstanceID)
			return next(c)
		}
	}
}
