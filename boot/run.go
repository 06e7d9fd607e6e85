// SPDX-FileCopyrightText: 2025 The guestinit authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package boot

import (
	"fmt"
	"os"
	"time"
)

// Func is a single boot step run by [Run].
type Func func(*State) error

// Run is the entry point of the init system. It never returns. It must be
// run as PID 1, otherwise it panics immediately.
//
// The given [Func]s are run in the order given. A step returning an error is
// logged and the remaining steps still run, so a degraded guest keeps as
// much functionality as possible. Panics are recovered per step.
//
// Once all steps ran the process parks forever. PID 1 terminating would
// panic the kernel, so there is no exit path.
func Run(funcs ...Func) {
	if !IsPidOne() {
		panic(ErrNotPidOne)
	}

	run(new(State), funcs)

	park()
}

func run(state *State, funcs []Func) {
	for _, fn := range funcs {
		if err := runFunc(state, fn); err != nil {
			Log.Err(err).Msg("boot step failed")
		}
	}

	state.doCleanup()
}

func runFunc(state *State, fn Func) (err error) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}

		if recoveredErr, ok := rec.(error); ok {
			err = fmt.Errorf("%w: %w", ErrPanic, recoveredErr)
		} else {
			err = fmt.Errorf("%w: %v", ErrPanic, rec)
		}
	}()

	return fn(state)
}

// IsPidOne returns true if the running process has PID 1.
func IsPidOne() bool {
	return os.Getpid() == 1
}

// park keeps the process alive once all boot steps ran. It is the terminal
// state of the init process.
func park() {
	Log.Info().Msg("init parked")

	for {
		time.Sleep(time.Hour)
	}
}
