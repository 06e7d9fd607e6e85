// SPDX-FileCopyrightText: 2025 The guestinit authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package boot

import (
	"fmt"
	"os"

	"github.com/moby/sys/mountinfo"
	"golang.org/x/sys/unix"
)

func mount(source, target, fsType string, flags uintptr, data string) error {
	if err := unix.Mount(source, target, fsType, flags, data); err != nil {
		return fmt.Errorf("mount %s: %w", target, err)
	}

	return nil
}

// sysops is the set of privileged operations the overlay transition needs.
// The production implementation issues real syscalls. Tests substitute a
// recording fake, since the rollback ladder cannot be exercised in a live
// mount namespace without being PID 1.
type sysops interface {
	pathExists(path string) bool
	mounted(path string) (bool, error)
	mkdir(path string, mode os.FileMode) error
	mount(source, target, fsType string, flags uintptr, data string) error
	unmount(target string, flags int) error
	pivotRoot(newRoot, putOld string) error
	chdir(path string) error
	remove(path string) error
}

type unixSys struct{}

func (unixSys) pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (unixSys) mounted(path string) (bool, error) {
	mounted, err := mountinfo.Mounted(path)
	if err != nil {
		return false, fmt.Errorf("mountinfo %s: %w", path, err)
	}

	return mounted, nil
}

func (unixSys) mkdir(path string, mode os.FileMode) error {
	return EnsureDir(path, mode)
}

func (unixSys) mount(source, target, fsType string, flags uintptr, data string) error {
	return mount(source, target, fsType, flags, data)
}

func (unixSys) unmount(target string, flags int) error {
	if err := unix.Unmount(target, flags); err != nil {
		return fmt.Errorf("unmount %s: %w", target, err)
	}

	return nil
}

func (unixSys) pivotRoot(newRoot, putOld string) error {
	if err := unix.PivotRoot(newRoot, putOld); err != nil {
		return fmt.Errorf("pivot_root %s: %w", newRoot, err)
	}

	return nil
}

func (unixSys) chdir(path string) error {
	if err := unix.Chdir(path); err != nil {
		return fmt.Errorf("chdir %s: %w", path, err)
	}

	return nil
}

func (unixSys) remove(path string) error {
	return os.Remove(path)
}
