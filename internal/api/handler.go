package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/transcription-server/ami-publisher/internal/auth"
	"github.com/transcription-server/ami-publisher/internal/common"
)

type statusResponse struct {
	Status      string `json:"status"`
	BuildCommit string `json:"build_commit"`
	BuildTime   string `json:"build_time"`
}

func (s *Server) status(c echo.Context) error {
	return c.JSON(http.StatusOK, statusResponse{
		Status:      "OK",
		BuildCommit: common.BuildCommit,
		BuildTime:   common.BuildTime,
	})
}

func (s *Server) publish(c echo.Context) error {
	instanceID := c.Get(auth.InstanceIDKey).(string)

	// The image is already being captured once the first call returns, so a
	// dropped client must not abort the run half way.
	ctx := context.WithoutCancel(c.Request().Context())

	c.Logger().Infof("Publishing image of instance %s", instanceID)
	result, err := s.publisher.Publish(ctx, instanceID)
	if err != nil {
		return err
	}
	c.Logger().Infof("Launch template %s (version %d) now uses %s", result.TemplateID, result.Version, result.ImageID)

	return c.String(http.StatusOK, result.String())
}
