package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"github.com/transcription-server/ami-publisher/internal/cloud/awscloud"
	"github.com/transcription-server/ami-publisher/internal/common"
	"github.com/transcription-server/ami-publisher/internal/config"
	"github.com/transcription-server/ami-publisher/internal/publisher"
	"github.com/transcription-server/ami-publisher/internal/splunk"
)

// configureLogging returns a function flushing forwarded log entries.
func configureLogging(ctx context.Context, logger *logrus.Logger, c *config.Config) (func(), error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)
	logger.AddHook(&common.BuildHook{})
	if c.DeploymentChannel != "" {
		logger.AddHook(&common.EnvironmentHook{Channel: c.DeploymentChannel})
	}

	if c.Splunk.URL == "" {
		return func() {}, nil
	}
	hostname := c.Splunk.Hostname
	if hostname == "" {
		hostname, err = os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("cannot determine host name for splunk: %w", err)
		}
	}
	// detached so entries logged during shutdown are still sent
	sl := splunk.NewLogger(context.WithoutCancel(ctx), c.Splunk.URL, c.Splunk.Token, c.Splunk.Source, hostname)
	logger.AddHook(splunk.NewHook(sl))
	logger.Infof("Forwarding logs to splunk at %s", c.Splunk.URL)
	return sl.Close, nil
}

func newCloud(ctx context.Context, c *config.Config) (publisher.Cloud, error) {
	region := c.AWS.Region
	if region == "" {
		var err error
		region, err = awscloud.RegionFromInstanceMetadata()
		if err != nil {
			return nil, fmt.Errorf("no region configured and instance metadata unavailable: %w", err)
		}
		logrus.Infof("Using region %s from instance metadata", region)
	}

	var a *awscloud.AWS
	var err error
	switch {
	case c.AWS.Endpoint != "":
		logrus.Infof("Using AWS endpoint %s", c.AWS.Endpoint)
		a, err = awscloud.NewForEndpoint(c.AWS.Endpoint, region, c.AWS.CABundle, c.AWS.SkipSSLVerification)
	case c.AWS.AccessKeyID != "":
		a, err = awscloud.New(region, c.AWS.AccessKeyID, c.AWS.SecretAccessKey, c.AWS.SessionToken)
	case c.AWS.Credentials != "":
		a, err = awscloud.NewFromFile(c.AWS.Credentials, region)
	default:
		a, err = awscloud.NewDefault(region)
	}
	if err != nil {
		return nil, err
	}

	if interval := time.Duration(c.Publish.ImagePollInterval); interval > 0 {
		a.SetWaiterDelays(awscloud.WaiterDelays{Min: interval, Max: interval})
	}
	return a, nil
}

// initSentry returns false when no DSN is configured.
func initSentry(c *config.Config) (bool, error) {
	if c.Sentry.DSN == "" {
		return false, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         c.Sentry.DSN,
		Environment: c.Sentry.Environment,
		Release:     common.BuildCommit,
	})
	if err != nil {
		return false, fmt.Errorf("sentry initialization failed: %w", err)
	}
	return true, nil
}
