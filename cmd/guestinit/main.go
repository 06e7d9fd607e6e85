// SPDX-FileCopyrightText: 2025 The guestinit authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// guestinit is the first process executed inside the microVM guest. It
// layers the optional overlay device on top of the read-only base image and
// launches the guest services.
package main

import (
	"github.com/sandvm/guestinit/boot"
)

func main() {
	boot.SetupLogger()

	cfg := boot.DefaultConfig()
	if err := cfg.LoadOverrides(boot.DefaultOverrideFile); err != nil {
		boot.Log.Warn().Err(err).Msg("config overrides")
	}

	boot.Run(
		boot.WithConsole(),
		boot.WithEnv(boot.EnvVars{"PATH": cfg.Path}),
		boot.WithMountPoints(boot.EssentialMountPoints()),
		boot.WithOverlay(boot.DefaultOverlayLayout()),
		boot.WithSupervisor(boot.NewSupervisor(cfg)),
	)
}
