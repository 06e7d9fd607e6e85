// SPDX-FileCopyrightText: 2025 The guestinit authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package boot

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Log is the boot logger. It writes human readable lines to stderr, which
// [RedirectConsole] points at the guest's console device. The serial console
// is the only observability channel of the guest.
var Log = newLogger(zerolog.InfoLevel)

// SetupLogger initializes the log level. Debug logging is enabled by setting
// the GUESTINIT_DEBUG environment variable, usually via the kernel command
// line.
func SetupLogger() {
	level := zerolog.InfoLevel
	if os.Getenv("GUESTINIT_DEBUG") != "" {
		level = zerolog.DebugLevel
	}

	Log = newLogger(level)
}

func newLogger(level zerolog.Level) zerolog.Logger {
	writer := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		NoColor:    true,
		TimeFormat: time.TimeOnly,
	}

	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}
