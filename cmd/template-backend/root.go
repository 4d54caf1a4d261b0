package main

import (
	"github.com/spf13/cobra"

	"github.com/99minutos/template-backend/internal/infrastructure/config"
)

const (
	componentName    = "template-backend"
	descriptionShort = "template-backend serves users, authentication and hello resources."
)

type rootFlags struct {
	configFile string
	env        string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           componentName,
		Short:         descriptionShort,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "path to a YAML config file (environment variables override it)")
	root.PersistentFlags().StringVar(&flags.env, "env", "", "runtime environment, e.g. development, staging, production")

	start := newStartCmd(flags)
	root.AddCommand(start, newExportConfigCmd(flags))
	root.RunE = start.RunE

	return root
}

// loadConfig resolves the configuration for any subcommand.
func (f *rootFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return nil, err
	}
	if f.env != "" {
		cfg.Env = f.env
	}
	return cfg, nil
}
