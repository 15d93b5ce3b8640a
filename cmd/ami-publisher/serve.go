package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/transcription-server/ami-publisher/internal/api"
	"github.com/transcription-server/ami-publisher/internal/auth"
	"github.com/transcription-server/ami-publisher/internal/publisher"
)

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the publish API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			cloud, err := a.newCloud(cmd.Context(), c)
			if err != nil {
				return err
			}

			secretEnv := c.SecretEnv
			if a.getenv(secretEnv) == "" {
				a.logger.Warnf("%s is not set, every authenticated request will fail", secretEnv)
			}
			server := api.NewServer(publisher.New(c.PublisherConfig(), cloud), func() (*auth.Secret, error) {
				return auth.LoadSecret(a.getenv(secretEnv))
			})

			sentryEnabled, err := initSentry(c)
			if err != nil {
				return err
			}
			if sentryEnabled {
				server.EnableSentry()
				defer sentry.Flush(2 * time.Second)
			} else {
				a.logger.Warn("Sentry disabled")
			}

			httpServer := &http.Server{
				Addr:              c.Server.Listen,
				Handler:           server.Handler(c.Server.BasePath),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return a.serve(cmd.Context(), httpServer, time.Duration(c.Server.ShutdownTimeout))
		},
	}
}

func (a *app) serve(ctx context.Context, httpServer *http.Server, shutdownTimeout time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Infof("Listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("Shutting down, waiting for in-flight publish runs")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
