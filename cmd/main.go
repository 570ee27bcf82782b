package main

import (
	"os"

	"github.com/JamesStuff/jimbo-cam/internal/env"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "jimbocam",
	Short: "Prusa Connect snapshot uploader for Raspberry Pi cameras",
	Long: `jimbocam captures a still image from the attached Pi camera on a fixed
cadence and uploads it to Prusa Connect, backing off when the hardware or
the endpoint misbehaves. Run without arguments to start the daemon;
use "setup" for first-run provisioning and "service" to install the
systemd unit.`,
	RunE: runDaemon,
}

var (
	flagAFMode     string
	flagAFPosition string
	flagDebug      bool
)

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	cobra.OnInitialize(func() {
		if flagDebug {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
	})
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagAFMode, "af-mode", "", "Autofocus mode override: cont, auto or man (default from PRUSA_AF_MODE)")
	rootCmd.PersistentFlags().StringVar(&flagAFPosition, "af-position", "", "Manual lens position override, e.g. 1.2 (default from PRUSA_AF_POSITION)")
	rootCmd.AddCommand(
		newSetupCmd(),
		newServiceCmd(),
		newHistoryCmd(),
	)
	_ = env.Ensure()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("jimbocam failed")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
