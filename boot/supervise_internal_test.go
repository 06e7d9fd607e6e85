// SPDX-FileCopyrightText: 2025 The guestinit authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package boot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLauncher struct {
	spawnErrs  map[string]error
	waitStatus int

	spawned []string
	waited  []string
}

func (f *fakeLauncher) Spawn(command Command) (*Proc, error) {
	if err := f.spawnErrs[command.Path]; err != nil {
		return nil, err
	}

	f.spawned = append(f.spawned, command.Path)

	return &Proc{PID: 42, Command: command}, nil
}

func (f *fakeLauncher) Wait(proc *Proc) (int, error) {
	f.waited = append(f.waited, proc.Command.Path)
	return f.waitStatus, nil
}

func testSupervisor(launcher Launcher) (*Supervisor, *[]time.Duration, *int) {
	var (
		slept     []time.Duration
		fallbacks int
	)

	s := &Supervisor{
		Workload:     DefaultConfig().WorkloadCommand(),
		Bridge:       DefaultConfig().BridgeCommand(),
		Port:         DefaultPort,
		ReadyDelay:   defaultReadyDelay,
		launcher:     launcher,
		configureNet: func() error { return nil },
		sleep: func(d time.Duration) {
			slept = append(slept, d)
		},
		fallbackRelay: func() error {
			fallbacks++
			return nil
		},
	}

	return s, &slept, &fallbacks
}

func TestSupervisorRun(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		launcher := &fakeLauncher{waitStatus: 0}
		s, slept, fallbacks := testSupervisor(launcher)

		s.run()

		expectedOrder := []string{
			defaultWorkloadPath,
			defaultBridgePath,
		}
		assert.Equal(t, expectedOrder, launcher.spawned, "launch order")
		assert.Equal(t, []string{defaultWorkloadPath}, launcher.waited)
		assert.Equal(t, []time.Duration{defaultReadyDelay}, *slept)
		assert.Zero(t, *fallbacks)
		assert.Equal(t, PhaseWorkloadExited, s.Phase())
	})

	t.Run("workload missing", func(t *testing.T) {
		launcher := &fakeLauncher{
			spawnErrs: map[string]error{defaultWorkloadPath: assert.AnError},
		}
		s, _, _ := testSupervisor(launcher)

		s.run()

		assert.Equal(t, []string{defaultBridgePath}, launcher.spawned,
			"bridge still launches")
		assert.Empty(t, launcher.waited, "no wait on a non-existent handle")
		assert.Equal(t, PhaseBridgeStarted, s.Phase())
	})

	t.Run("bridge missing", func(t *testing.T) {
		launcher := &fakeLauncher{
			spawnErrs: map[string]error{defaultBridgePath: assert.AnError},
		}
		s, _, fallbacks := testSupervisor(launcher)

		s.run()

		assert.Equal(t, []string{defaultWorkloadPath}, launcher.spawned)
		assert.Equal(t, []string{defaultWorkloadPath}, launcher.waited)
		assert.Equal(t, 1, *fallbacks, "builtin relay replaces the bridge")
		assert.Equal(t, PhaseWorkloadExited, s.Phase())
	})

	t.Run("network failure is not fatal", func(t *testing.T) {
		launcher := &fakeLauncher{}
		s, _, _ := testSupervisor(launcher)
		s.configureNet = func() error { return assert.AnError }

		s.run()

		require.NotEmpty(t, launcher.spawned)
		assert.Equal(t, PhaseWorkloadExited, s.Phase())
	})
}

func TestSupervisorPhaseForwardOnly(t *testing.T) {
	s := &Supervisor{}

	s.advance(PhaseBridgeStarted)
	s.advance(PhaseNetworkUp)

	assert.Equal(t, PhaseBridgeStarted, s.Phase())
}

func TestPhaseString(t *testing.T) {
	phases := map[Phase]string{
		PhaseNotStarted:      "not started",
		PhaseNetworkUp:       "network up",
		PhaseWorkloadStarted: "workload started",
		PhaseBridgeStarted:   "bridge started",
		PhaseWorkloadExited:  "workload exited",
		PhaseParked:          "parked",
		Phase(42):            "invalid",
	}

	for phase, expected := range phases {
		assert.Equal(t, expected, phase.String())
	}
}
