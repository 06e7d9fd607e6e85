// SPDX-FileCopyrightText: 2025 The guestinit authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package boot

import (
	"fmt"

	"golang.org/x/sys/unix"
)

const (
	consolePath         = "/dev/console"
	fallbackConsolePath = "/dev/ttyS0"
)

// RedirectConsole points stdout and stderr at the guest's console device, so
// diagnostics are visible on the hypervisor's serial console even though no
// terminal is attached. /dev/console is typically wired to ttyS0 via the
// kernel command line; if it cannot be opened the serial device is used
// directly.
func RedirectConsole() error {
	if err := redirectStdio(consolePath); err == nil {
		return nil
	}

	return redirectStdio(fallbackConsolePath)
}

func redirectStdio(path string) error {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer unix.Close(fd)

	for _, stdFd := range []int{1, 2} {
		if err := unix.Dup3(fd, stdFd, 0); err != nil {
			return fmt.Errorf("dup3 %s to fd %d: %w", path, stdFd, err)
		}
	}

	return nil
}

// WithConsole returns a boot [Func] that creates the baseline log
// directories and redirects stdout and stderr to the console device.
func WithConsole() Func {
	return func(_ *State) error {
		for _, dir := range []string{"/var", "/var/log"} {
			if err := EnsureDir(dir, defaultDirMode); err != nil {
				Log.Warn().Err(err).Msg("log directory")
			}
		}

		return RedirectConsole()
	}
}
