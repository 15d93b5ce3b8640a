package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/transcription-server/ami-publisher/internal/cloud/awscloud"
	"github.com/transcription-server/ami-publisher/internal/config"
	"github.com/transcription-server/ami-publisher/internal/publisher"
)

type app struct {
	getenv     func(string) string
	logger     *logrus.Logger
	configFile string
	closers    []func()

	// replaced in tests
	newCloud func(ctx context.Context, c *config.Config) (publisher.Cloud, error)
}

func run(ctx context.Context, args []string, getenv func(string) string, logger *logrus.Logger) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := &app{
		getenv:   getenv,
		logger:   logger,
		newCloud: newCloud,
	}
	root := a.rootCmd()
	root.SetArgs(args)
	defer a.close()
	return root.ExecuteContext(ctx)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ami-publisher",
		Short:         "Capture an EC2 instance as an AMI and publish it through a launch template",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", config.DefaultConfigFile, "path to the configuration file")

	root.AddCommand(a.serveCmd(), a.publishCmd(), a.templateCmd(), a.configCmd())
	return root
}

func (a *app) loadConfig(ctx context.Context) (*config.Config, error) {
	c, err := config.LoadConfig(a.configFile)
	if err != nil {
		return nil, fmt.Errorf("could not load config file '%s': %w", a.configFile, err)
	}
	closeLogging, err := configureLogging(ctx, a.logger, c)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeLogging)
	return c, nil
}

func (a *app) publishCmd() *cobra.Command {
	var instanceID string
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish an image of the given instance once and exit",
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

			result, err := publisher.New(c.PublisherConfig(), cloud).Publish(cmd.Context(), instanceID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.String())
			if result.InstanceTerminated {
				fmt.Fprintf(cmd.OutOrStdout(), "Source instance %s is %s\n", instanceID, result.InstanceState)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&instanceID, "instance-id", "i", "", "id of the instance to capture")
	_ = cmd.MarkFlagRequired("instance-id")
	return cmd
}

type templateDescriber interface {
	DescribeLaunchTemplateByName(ctx context.Context, name string) (*awscloud.LaunchTemplate, error)
}

func (a *app) templateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "template",
		Short: "Show the configured launch template and its default version",
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
			describer, ok := cloud.(templateDescriber)
			if !ok {
				return fmt.Errorf("cloud client cannot describe launch templates")
			}

			lt, err := describer.DescribeLaunchTemplateByName(cmd.Context(), c.Template.Name)
			if err != nil {
				return err
			}
			if lt == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Launch template %s does not exist yet\n", c.Template.Name)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): default version %d, latest version %d\n", lt.Name, lt.ID, lt.DefaultVersion, lt.LatestVersion)
			return nil
		},
	}
}

func (a *app) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			return config.DumpConfig(c, cmd.OutOrStdout())
		},
	}
}
