package startup

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const DefaultUnitPath = "/etc/systemd/system/greenhouse-controller.service"

// ServiceOptions describes how systemd should run the controller.
type ServiceOptions struct {
	User             string
	WorkingDirectory string
	Binary           string
	ConfigFile       string
	After            []string
}

func (o ServiceOptions) execStart() string {
	cmd := o.Binary
	if o.ConfigFile != "" {
		cmd += " -config-file " + o.ConfigFile
	}
	return cmd
}

// RenderUnit builds the systemd unit file for the controller.
func RenderUnit(opts ServiceOptions) (string, error) {
	if opts.Binary == "" {
		return "", fmt.Errorf("binary path is required")
	}
	if !filepath.IsAbs(opts.Binary) {
		return "", fmt.Errorf("binary path %q must be absolute", opts.Binary)
	}

	after := append([]string{"network-online.target"}, opts.After...)

	var b strings.Builder
	fmt.Fprintf(&b, `[Unit]
Description=Greenhouse automation controller
After=%s
Wants=network-online.target

[Service]
Type=simple
`, strings.Join(after, " "))
	if opts.User != "" {
		fmt.Fprintf(&b, "User=%s\n", opts.User)
	}
	if opts.WorkingDirectory != "" {
		fmt.Fprintf(&b, "WorkingDirectory=%s\n", opts.WorkingDirectory)
	}
	fmt.Fprintf(&b, `ExecStart=%s
Restart=on-failure
RestartSec=5s

[Install]
WantedBy=multi-user.target
`, opts.execStart())
	return b.String(), nil
}

// InstallService writes the unit file to path.
func InstallService(path string, opts ServiceOptions) error {
	unit, err := RenderUnit(opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create unit directory: %w", err)
	}
	return os.WriteFile(path, []byte(unit), 0644)
}

var runCommand = defaultRunCommand

func defaultRunCommand(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// EnableService reloads systemd and enables the unit so it starts at boot.
func EnableService(path string) error {
	unit := filepath.Base(path)
	if err := runCommand("systemctl", "daemon-reload"); err != nil {
		return fmt.Errorf("systemctl daemon-reload: %w", err)
	}
	if err := runCommand("systemctl", "enable", "--now", unit); err != nil {
		return fmt.Errorf("systemctl enable %s: %w", unit, err)
	}
	return nil
}
