package main

import (
	"github.com/18061718791/AITestCraft-sub000/internal/config"
	"github.com/18061718791/AITestCraft-sub000/internal/logging"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configDir string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "testcraft",
		Short:         "Test case management API with spreadsheet import and AI generation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configDir, "config", ".", "directory containing config.yaml")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	return cmd
}

// load reads configuration and builds the process logger.
func (o *rootOptions) load() (config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(o.configDir)
	if err != nil {
		return cfg, nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return cfg, nil, err
	}
	if cfg.File != "" {
		logger.WithField("file", cfg.File).Info("loaded config")
	} else {
		logger.Info("no config.yaml found, using defaults and environment")
	}
	return cfg, logger, nil
}
