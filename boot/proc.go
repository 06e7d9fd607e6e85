// SPDX-FileCopyrightText: 2025 The guestinit authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package boot

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// Command describes a child process to launch. Env is the extra environment
// passed to the child on top of the parent's, as explicit KEY=VALUE pairs.
type Command struct {
	Path string
	Args []string
	Dir  string
	Env  []string
}

// Proc is the handle of a launched child process.
type Proc struct {
	PID     int
	Command Command

	cmd *exec.Cmd
}

// Launcher creates child processes and waits for them.
type Launcher interface {
	// Spawn forks and execs the given command. The child's stdout and stderr
	// are inherited, so its output ends up on the guest console. A failed
	// exec is reported as error.
	Spawn(command Command) (*Proc, error)

	// Wait blocks until the process behind the given handle exited and
	// returns its exit status. The handle must not be waited on twice.
	Wait(proc *Proc) (int, error)
}

// NewLauncher returns a [Launcher] backed by fork/exec.
func NewLauncher() Launcher {
	return execLauncher{}
}

type execLauncher struct{}

func (execLauncher) Spawn(command Command) (*Proc, error) {
	cmd := exec.Command(command.Path, command.Args...)
	cmd.Dir = command.Dir
	cmd.Env = append(os.Environ(), command.Env...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn %s: %w", command.Path, err)
	}

	return &Proc{
		PID:     cmd.Process.Pid,
		Command: command,
		cmd:     cmd,
	}, nil
}

func (execLauncher) Wait(proc *Proc) (int, error) {
	err := proc.cmd.Wait()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}

		return -1, fmt.Errorf("wait %s: %w", proc.Command.Path, err)
	}

	return 0, nil
}
