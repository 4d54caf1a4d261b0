package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/99minutos/template-backend/internal/app"
	"github.com/99minutos/template-backend/pkg/logger"
)

func newStartCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}

			log := logger.Init(logger.Options{
				Level:   cfg.Log.Level,
				Pretty:  cfg.Log.Pretty,
				Service: componentName,
				Env:     cfg.Env,
			})

			ctx, stop := signal.NotifyContext(contextOrBackground(cmd.Context()), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, log, app.Options{})
			if err != nil {
				log.Error().Err(err).Msg("startup failed")
				return err
			}

			err = a.Run(ctx)
			log.Info().Msg("goodbye")
			return err
		},
	}
}

// contextOrBackground keeps RunE usable when cobra is executed without a context.
func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
