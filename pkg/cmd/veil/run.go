package veil

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/veilmc/veil/pkg/veil"
)

// Run validates cfg and runs Veil until ctx is cancelled.
func Run(ctx context.Context, cfg *veil.Config, configFile string, log logr.Logger) error {
	warns, errs := cfg.Validate()
	for _, w := range warns {
		log.Info("config validation warn", "warn", w.Error())
	}
	if len(errs) != 0 {
		for _, e := range errs {
			log.Info("config validation error", "error", e.Error())
		}
		return fmt.Errorf("%w: %w", errInvalidConfig, errors.Join(errs...))
	}

	v, err := veil.New(veil.Options{
		Config:     cfg,
		ConfigFile: configFile,
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("error creating veil: %w", err)
	}
	return v.Start(ctx)
}
