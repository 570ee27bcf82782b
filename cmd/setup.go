package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JamesStuff/jimbo-cam/internal/camera"
	"github.com/JamesStuff/jimbo-cam/internal/config"
	"github.com/JamesStuff/jimbo-cam/internal/env"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactive first-run provisioning",
		Long: `Prompts for the Prusa Connect camera token and autofocus configuration,
then writes the daemon's config env file under the user config dir.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runSetup(in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)
	fmt.Fprintln(out, "=== Jimbo-Cam Setup ===")

	token, err := prompt(reader, out, "Prusa Connect Camera Token: ")
	if err != nil {
		return err
	}
	if token == "" {
		return errors.New("a camera token is required")
	}
	fingerprint, err := prompt(reader, out, "Enter Fingerprint (leave blank to auto-generate): ")
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "\nAutofocus Configuration:")
	fmt.Fprintln(out, "  [1] Continuous (default)")
	fmt.Fprintln(out, "  [2] Auto (single autofocus cycle)")
	fmt.Fprintln(out, "  [3] Manual (requires lens position)")
	choice, err := prompt(reader, out, "Select autofocus mode [1/2/3]: ")
	if err != nil {
		return err
	}

	afMode := "cont"
	afPosition := ""
	switch choice {
	case "", "1":
	case "2":
		afMode = "auto"
	case "3":
		afMode = "man"
		afPosition, err = prompt(reader, out, "Enter manual lens position (e.g. 1.2): ")
		if err != nil {
			return err
		}
	default:
		return errors.Errorf("invalid autofocus choice %q", choice)
	}
	// Reject bad focus input here rather than at the first daemon start.
	if _, err := camera.ParseFocusPolicy(afMode, afPosition); err != nil {
		return err
	}

	path, err := env.ConfigFilePath()
	if err != nil {
		return err
	}
	if err := writeConfigFile(path, token, fingerprint, afMode, afPosition); err != nil {
		return err
	}
	fmt.Fprintf(out, "[+] Saved config to %s\n", path)
	fmt.Fprintln(out, "Install the systemd unit with: sudo jimbocam service")
	return nil
}

func writeConfigFile(path, token, fingerprint, afMode, afPosition string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create config dir")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s=%s\n", config.EnvToken, token)
	if fingerprint != "" {
		fmt.Fprintf(&b, "%s=%s\n", config.EnvFingerprint, fingerprint)
	}
	fmt.Fprintf(&b, "%s=10\n", config.EnvIntervalSec)
	fmt.Fprintf(&b, "%s=1280\n", config.EnvWidth)
	fmt.Fprintf(&b, "%s=720\n", config.EnvHeight)
	fmt.Fprintf(&b, "%s=85\n", config.EnvJPEGQuality)
	fmt.Fprintf(&b, "%s=10\n", config.EnvHTTPTimeout)
	fmt.Fprintf(&b, "%s=%s\n", config.EnvAFMode, afMode)
	if afPosition != "" {
		fmt.Fprintf(&b, "%s=%s\n", config.EnvAFPosition, afPosition)
	}
	// Token in the clear: keep the file private to the owning user.
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return errors.Wrap(err, "write config file")
	}
	return nil
}

func prompt(reader *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", errors.Wrap(err, "read input")
	}
	return strings.TrimSpace(line), nil
}
