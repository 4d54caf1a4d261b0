package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newExportConfigCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "export-config",
		Short: "print the resolved configuration",
		Long:  "print the configuration after file, environment and defaults are applied. Secrets are redacted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
