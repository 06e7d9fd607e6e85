// SPDX-FileCopyrightText: 2025 The guestinit authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package boot

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// defaultShellVariant selects the shell the devtools companion uses inside
// the guest. Images with NVM support override it at build time via
// -ldflags "-X github.com/sandvm/guestinit/boot.defaultShellVariant=bash".
var defaultShellVariant = "busybox"

const (
	// DefaultPort is the port the guest agent listens on and the vsock
	// bridge relays to.
	DefaultPort = 8080

	// DefaultOverrideFile is the optional env-style file on the guest image
	// that overrides the compiled-in defaults.
	DefaultOverrideFile = "/etc/guestinit.env"

	defaultPath = "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"

	defaultWorkloadPath   = "/usr/local/bin/node"
	defaultWorkloadScript = "/opt/guest-agent/dist/index.js"
	defaultWorkloadDir    = "/opt/guest-agent"
	defaultBridgePath     = "/usr/bin/socat"

	defaultReadyDelay = 200 * time.Millisecond
)

// Config carries everything the boot sequence passes to the guest services.
type Config struct {
	// Port is exported to the workload as PORT and used in the bridge's
	// transport spec.
	Port int

	// ShellVariant is exported to the workload as JAIL_SHELL, unmodified.
	ShellVariant string

	// Path is the search path set for all children.
	Path string

	// WorkloadPath, WorkloadArgs and WorkloadDir describe the guest agent
	// process.
	WorkloadPath string
	WorkloadArgs []string
	WorkloadDir  string

	// BridgePath is the binary relaying the hypervisor vsock port to the
	// workload's local address.
	BridgePath string

	// ReadyDelay is how long the supervisor waits after launching the
	// workload before exposing it via the bridge, giving the workload time
	// to bind its listening socket.
	ReadyDelay time.Duration
}

// DefaultConfig returns the configuration of the current guest image
// generation.
func DefaultConfig() Config {
	return Config{
		Port:         DefaultPort,
		ShellVariant: defaultShellVariant,
		Path:         defaultPath,
		WorkloadPath: defaultWorkloadPath,
		WorkloadArgs: []string{defaultWorkloadScript},
		WorkloadDir:  defaultWorkloadDir,
		BridgePath:   defaultBridgePath,
		ReadyDelay:   defaultReadyDelay,
	}
}

// LoadOverrides merges settings from the given env-style file into the
// config. A missing file is not an error.
func (c *Config) LoadOverrides(path string) error {
	env, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("read %s: %w", path, err)
	}

	if value, ok := env["PORT"]; ok {
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("parse PORT: %w", err)
		}

		c.Port = port
	}

	if value, ok := env["JAIL_SHELL"]; ok {
		c.ShellVariant = value
	}

	return nil
}

// WorkloadCommand is the argument vector the guest agent is launched with.
func (c Config) WorkloadCommand() Command {
	return Command{
		Path: c.WorkloadPath,
		Args: c.WorkloadArgs,
		Dir:  c.WorkloadDir,
		Env: []string{
			"PORT=" + strconv.Itoa(c.Port),
			"JAIL_SHELL=" + c.ShellVariant,
		},
	}
}

// BridgeCommand is the literal socat invocation relaying the hypervisor
// vsock port to the workload's local address. The guest agent contract
// depends on this exact transport spec shape.
func (c Config) BridgeCommand() Command {
	return Command{
		Path: c.BridgePath,
		Args: []string{
			fmt.Sprintf("VSOCK-LISTEN:%d,fork", c.Port),
			fmt.Sprintf("TCP:127.0.0.1:%d", c.Port),
		},
	}
}
