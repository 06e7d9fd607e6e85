// SPDX-FileCopyrightText: 2025 The guestinit authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package boot

import "slices"

// CleanupFunc is registered with [State.Cleanup] and run once all boot steps
// ran.
type CleanupFunc func() error

// State is passed along the boot steps run by [Run].
type State struct {
	cleanupFns []CleanupFunc
}

// Cleanup registers a function that is run after all boot steps ran. Cleanup
// functions are run in reverse order of registration.
func (s *State) Cleanup(fn CleanupFunc) {
	s.cleanupFns = append(s.cleanupFns, fn)
}

func (s *State) doCleanup() {
	slices.Reverse(s.cleanupFns)

	for _, fn := range s.cleanupFns {
		if err := fn(); err != nil {
			Log.Err(err).Msg("cleanup")
		}
	}
}
