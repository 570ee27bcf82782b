package main

import (
	"fmt"
	"os"
	"os/exec"
	"os/user"

	"github.com/JamesStuff/jimbo-cam/internal/env"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const serviceUnitPath = "/etc/systemd/system/jimbo-cam.service"

func newServiceCmd() *cobra.Command {
	var flagEnable bool
	var flagUser string

	cmd := &cobra.Command{
		Use:   "service",
		Short: "Install the systemd unit (requires root)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if os.Geteuid() != 0 {
				return errors.New("service install must run as root, try: sudo jimbocam service")
			}
			runAs := flagUser
			if runAs == "" {
				// sudo preserves the invoking user here; fall back to the
				// effective user for direct root logins.
				runAs = os.Getenv("SUDO_USER")
			}
			if runAs == "" {
				current, err := user.Current()
				if err != nil {
					return errors.Wrap(err, "resolve service user")
				}
				runAs = current.Username
			}
			return installService(cmd, runAs, flagEnable)
		},
	}
	cmd.Flags().BoolVar(&flagEnable, "enable", false, "Enable and start the service immediately")
	cmd.Flags().StringVar(&flagUser, "user", "", "User the service runs as (default: invoking user)")
	return cmd
}

func installService(cmd *cobra.Command, runAs string, enable bool) error {
	binary, err := os.Executable()
	if err != nil {
		return errors.Wrap(err, "resolve executable path")
	}
	envFile, err := env.ConfigFilePath()
	if err != nil {
		return err
	}

	unit := fmt.Sprintf(`[Unit]
Description=Prusa Connect Picamera Uploader by James Robinson
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
User=%s
EnvironmentFile=-%s
ExecStart=%s
Restart=on-failure
RestartSec=10
SyslogIdentifier=jimbo-cam

[Install]
WantedBy=multi-user.target
`, runAs, envFile, binary)

	if err := os.WriteFile(serviceUnitPath, []byte(unit), 0o644); err != nil {
		return errors.Wrapf(err, "write unit file %s", serviceUnitPath)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "[+] Installed systemd unit at %s\n", serviceUnitPath)

	if out, err := exec.Command("systemctl", "daemon-reload").CombinedOutput(); err != nil {
		return errors.Wrapf(err, "systemctl daemon-reload: %s", out)
	}
	if enable {
		if out, err := exec.Command("systemctl", "enable", "--now", "jimbo-cam.service").CombinedOutput(); err != nil {
			return errors.Wrapf(err, "systemctl enable: %s", out)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "[+] jimbo-cam.service enabled and started")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "Enable and start with: sudo systemctl enable --now jimbo-cam.service")
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Check logs with: journalctl -u jimbo-cam.service -f")
	return nil
}
