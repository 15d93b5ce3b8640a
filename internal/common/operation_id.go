package common

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/segmentio/ksuid"
)

type ctxKey string

const OperationIDKey string = "operationID"
const OperationIDHeader string = "X-Operation-Id"
const operationIDKeyCtx ctxKey = ctxKey(OperationIDKey)

// Adds a time-sortable globally unique identifier to an echo.Context if not
// already set. A caller supplied X-Operation-Id header is reused, and the id
// is always echoed back in the response.
func OperationIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Get(OperationIDKey) == nil {
			oid := strings.TrimSpace(c.Request().Header.Get(OperationIDHeader))
			if oid == "" {
				oid = GenerateOperationID()
			}
			c.Set(OperationIDKey, oid)

			ctx := WithOperationID(c.Request().Context(), oid)
			c.SetRequest(c.Request().WithContext(ctx))
		}
		c.Response().Header().Set(OperationIDHeader, c.Get(OperationIDKey).(string))

		return next(c)
	}
}

func GenerateOperationID() string {
	return ksuid.New().String()
}

func WithOperationID(ctx context.Context, oid string) context.Context {
	return context.WithValue(ctx, operationIDKeyCtx, oid)
}

// OperationIDFromContext returns an empty string when no id was attached.
func OperationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	oid, _ := ctx.Value(operationIDKeyCtx).(string)
	return oid
}
