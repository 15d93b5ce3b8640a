package api

import (
	"errors"
	"fmt"
	"net/http"

	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"

	"github.com/transcription-server/ami-publisher/internal/publisher"
)

// HTTPErrorHandler writes client errors as a JSON string with the message
// and everything else as a plain text 500 "Error: <message>".
func (s *Server) HTTPErrorHandler(echoError error, c echo.Context) {
	if c.Response().Committed {
		c.Logger().Infof("Failed to return error response, response already committed: %v", echoError)
		return
	}

	var err error
	var he *echo.HTTPError
	if errors.As(echoError, &he) && he.Code < http.StatusInternalServerError {
		err = respond(c, he.Code, func() error {
			return c.JSON(he.Code, fmt.Sprint(he.Message))
		})
	} else {
		msg := echoError.Error()
		if he != nil {
			msg = fmt.Sprint(he.Message)
			if he.Internal != nil {
				msg = he.Internal.Error()
			}
		}

		if kind, ok := publisher.KindOf(echoError); ok {
			c.Logger().Errorf("Internal server error, kind %s: %v", kind, echoError)
		} else {
			c.Logger().Errorf("Internal server error: %v", echoError)
		}
		if hub := sentryecho.GetHubFromContext(c); hub != nil {
			hub.CaptureException(echoError)
		}

		err = respond(c, http.StatusInternalServerError, func() error {
			return c.String(http.StatusInternalServerError, "Error: "+msg)
		})
	}
	if err != nil {
		c.Logger().Errorf("Failed to return error response: %v", err)
	}
}

func respond(c echo.Context, code int, body func() error) error {
	if c.Request().Method == http.MethodHead {
		return c.NoContent(code)
	}
	return body()
}
