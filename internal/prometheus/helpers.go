package prometheus

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

type ObserveFunc func() time.Duration

var pathParam = regexp.MustCompile(":(.*)")

func pathLabel(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = pathParam.ReplaceAllString(segment, "-")
	}
	return strings.Join(segments, "/")
}

// statusCode is the status the error handler is going to write for err,
// or the already committed one when err is nil.
func statusCode(c echo.Context, err error) int {
	if err == nil {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}
