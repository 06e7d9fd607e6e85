// SPDX-FileCopyrightText: 2025 The guestinit authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package boot_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sandvm/guestinit/boot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkloadCommand(t *testing.T) {
	command := boot.DefaultConfig().WorkloadCommand()

	assert.Equal(t, "/usr/local/bin/node", command.Path)
	assert.Equal(t, []string{"/opt/guest-agent/dist/index.js"}, command.Args)
	assert.Equal(t, "/opt/guest-agent", command.Dir)
	assert.Contains(t, command.Env, "PORT=8080")
	assert.Contains(t, command.Env, "JAIL_SHELL=busybox")
}

func TestBridgeCommand(t *testing.T) {
	command := boot.DefaultConfig().BridgeCommand()

	assert.Equal(t, "/usr/bin/socat", command.Path)
	assert.Equal(t,
		[]string{"VSOCK-LISTEN:8080,fork", "TCP:127.0.0.1:8080"},
		command.Args,
		"the guest agent contract depends on this exact shape")
}

func TestLoadOverrides(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		cfg := boot.DefaultConfig()

		err := cfg.LoadOverrides(filepath.Join(t.TempDir(), "missing.env"))
		require.NoError(t, err)

		assert.Equal(t, boot.DefaultConfig(), cfg)
	})

	t.Run("overrides", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "guestinit.env")
		content := "PORT=9090\nJAIL_SHELL=bash\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		cfg := boot.DefaultConfig()
		require.NoError(t, cfg.LoadOverrides(path))

		assert.Equal(t, 9090, cfg.Port)
		assert.Equal(t, "bash", cfg.ShellVariant)

		bridge := cfg.BridgeCommand()
		assert.Equal(t,
			[]string{"VSOCK-LISTEN:9090,fork", "TCP:127.0.0.1:9090"},
			bridge.Args)
	})

	t.Run("invalid port", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "guestinit.env")
		require.NoError(t, os.WriteFile(path, []byte("PORT=nope\n"), 0o644))

		cfg := boot.DefaultConfig()
		assert.Error(t, cfg.LoadOverrides(path))
	})
}
