package main

import (
	"path/filepath"

	"github.com/JamesStuff/jimbo-cam/internal/camera"
	"github.com/JamesStuff/jimbo-cam/internal/config"
	"github.com/JamesStuff/jimbo-cam/internal/env"
	"github.com/JamesStuff/jimbo-cam/internal/identity"
	"github.com/JamesStuff/jimbo-cam/internal/journal"
	"github.com/JamesStuff/jimbo-cam/internal/lifecycle"
	"github.com/JamesStuff/jimbo-cam/internal/scheduler"
	"github.com/JamesStuff/jimbo-cam/internal/uploader"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if flagAFMode != "" || flagAFPosition != "" {
		mode := firstNonEmpty(flagAFMode, config.String(config.EnvAFMode, "cont"))
		position := firstNonEmpty(flagAFPosition, config.String(config.EnvAFPosition, ""))
		focus, err := camera.ParseFocusPolicy(mode, position)
		if err != nil {
			return err
		}
		cfg.Focus = focus
	}

	configDir, err := env.ConfigDir()
	if err != nil {
		return err
	}
	fingerprint, err := identity.Resolve(cfg.Fingerprint, identity.FilePath(configDir))
	if err != nil {
		return err
	}

	device, err := camera.NewStillDevice()
	if err != nil {
		return err
	}
	acquirer, err := camera.NewAcquirer(device, camera.StillConfig{
		Width:   cfg.Width,
		Height:  cfg.Height,
		Quality: cfg.JPEGQuality,
		Focus:   cfg.Focus,
	})
	if err != nil {
		return err
	}
	up, err := uploader.New(cfg.URL, cfg.Token, fingerprint, cfg.HTTPTimeout, nil)
	if err != nil {
		return err
	}

	// The journal is diagnostics only; a broken database must not keep
	// the camera offline.
	var recorder scheduler.Recorder
	jnl, err := journal.Open(filepath.Join(configDir, journal.DefaultFileName))
	if err != nil {
		log.Warn().Err(err).Msg("cycle journal unavailable; continuing without it")
	} else {
		defer jnl.Close()
		recorder = jnl
	}

	loop, err := scheduler.New(scheduler.Config{
		BaseInterval: cfg.Interval,
		Acquirer:     acquirer,
		Uploader:     up,
		Recorder:     recorder,
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("url", cfg.URL).
		Str("fingerprint", fingerprint).
		Dur("interval", cfg.Interval).
		Str("focus", cfg.Focus.Mode.String()).
		Msg("uploader initialized")

	ctx, cancel := lifecycle.NotifyShutdown(cmd.Context())
	defer cancel()
	return loop.Run(ctx)
}
