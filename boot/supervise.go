// SPDX-FileCopyrightText: 2025 The guestinit authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package boot

import (
	"time"
)

// Phase identifies how far the supervisor progressed. Phases advance
// strictly forward; there are no retries and no re-entry.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseNetworkUp
	PhaseWorkloadStarted
	PhaseBridgeStarted
	PhaseWorkloadExited
	PhaseParked
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not started"
	case PhaseNetworkUp:
		return "network up"
	case PhaseWorkloadStarted:
		return "workload started"
	case PhaseBridgeStarted:
		return "bridge started"
	case PhaseWorkloadExited:
		return "workload exited"
	case PhaseParked:
		return "parked"
	default:
		return "invalid"
	}
}

// Supervisor launches the guest services in their required order and blocks
// for the remaining lifetime of the VM. The workload's exit is observed and
// logged; the bridge deliberately runs unsupervised and unreaped for the
// rest of the guest's life.
type Supervisor struct {
	// Workload is the guest agent process.
	Workload Command

	// Bridge is the process relaying the hypervisor vsock port to the
	// workload's local address.
	Bridge Command

	// Port is the local port the workload listens on.
	Port int

	// ReadyDelay is waited between launching the workload and the bridge.
	ReadyDelay time.Duration

	launcher      Launcher
	configureNet  func() error
	sleep         func(time.Duration)
	fallbackRelay func() error

	phase Phase
}

// NewSupervisor creates a [Supervisor] for the services described by the
// given config.
func NewSupervisor(cfg Config) *Supervisor {
	s := &Supervisor{
		Workload:     cfg.WorkloadCommand(),
		Bridge:       cfg.BridgeCommand(),
		Port:         cfg.Port,
		ReadyDelay:   cfg.ReadyDelay,
		launcher:     NewLauncher(),
		configureNet: ConfigureLoopback,
		sleep:        time.Sleep,
	}

	s.fallbackRelay = func() error {
		return NewRelay(s.Port).Start()
	}

	return s
}

// Phase returns the phase the supervisor is currently in.
func (s *Supervisor) Phase() Phase {
	return s.phase
}

// Run brings up loopback networking, launches the workload and the bridge
// and then blocks for the remaining lifetime of the guest. It never returns:
// once the workload exited, the process parks forever, since PID 1 must not
// exit.
func (s *Supervisor) Run() {
	s.run()
	s.advance(PhaseParked)
	Log.Info().Msg("supervisor parked")

	for {
		s.sleep(time.Hour)
	}
}

func (s *Supervisor) run() {
	if err := s.configureNet(); err != nil {
		Log.Warn().Err(err).Msg("loopback setup")
	}

	s.advance(PhaseNetworkUp)

	workload, err := s.launcher.Spawn(s.Workload)
	if err != nil {
		Log.Err(err).Str("path", s.Workload.Path).Msg("workload launch")
	} else {
		s.advance(PhaseWorkloadStarted)
		Log.Info().Int("pid", workload.PID).Msg("workload started")
	}

	// Give the workload time to bind its listening socket before networking
	// is exposed to the host.
	s.sleep(s.ReadyDelay)

	s.startBridge()
	s.advance(PhaseBridgeStarted)

	if workload == nil {
		return
	}

	status, err := s.launcher.Wait(workload)
	if err != nil {
		Log.Err(err).Msg("workload wait")
	} else {
		Log.Info().Int("status", status).Msg("workload exited")
	}

	s.advance(PhaseWorkloadExited)
}

func (s *Supervisor) startBridge() {
	bridge, err := s.launcher.Spawn(s.Bridge)
	if err == nil {
		Log.Info().Int("pid", bridge.PID).Msg("bridge started")
		return
	}

	Log.Err(err).Str("path", s.Bridge.Path).Msg("bridge launch")

	if err := s.fallbackRelay(); err != nil {
		Log.Err(err).Msg("builtin bridge")
		return
	}

	Log.Info().Int("port", s.Port).Msg("builtin vsock bridge started")
}

func (s *Supervisor) advance(phase Phase) {
	if phase > s.phase {
		s.phase = phase
	}
}

// WithSupervisor returns a boot [Func] that runs the given supervisor. It
// must be the last step of the pipeline since it does not return.
func WithSupervisor(s *Supervisor) Func {
	return func(_ *State) error {
		s.Run()
		return nil
	}
}
