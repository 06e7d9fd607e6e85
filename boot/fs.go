// SPDX-FileCopyrightText: 2025 The guestinit authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package boot

import (
	"errors"
	"fmt"
	"os"
)

// FSType is a file system type.
type FSType string

// File system types used by the boot sequence.
const (
	FSTypeDevTmp  FSType = "devtmpfs"
	FSTypeExt4    FSType = "ext4"
	FSTypeOverlay FSType = "overlay"
	FSTypeProc    FSType = "proc"
	FSTypeSys     FSType = "sysfs"
	FSTypeTmp     FSType = "tmpfs"

	defaultDirMode = 0o755
)

// EnsureDir creates the directory at the given path with the given mode if
// it does not exist yet. An existing directory is not an error.
func EnsureDir(path string, mode os.FileMode) error {
	if err := os.MkdirAll(path, mode); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}

	return nil
}

// MountPoint contains parameters for a single mount operation.
type MountPoint struct {
	// FSType is the file system type. It must be set to an available
	// [FSType].
	FSType FSType

	// Source is the source device to mount. Can be empty for the special
	// file system types. If empty it is set to the string of the type.
	Source string

	// Flags are optional mount flags as defined by mount(2).
	Flags uintptr

	// Data are optional additional parameters that depend on the [FSType]
	// used.
	Data string

	// MayFail determines if the mount operation may fail. If set to true, a
	// mount error does not fail a [MountAll] operation. The error is
	// collected and the next mount point is tried.
	MayFail bool
}

// MountPoints is a collection of [MountPoint]s by target path.
type MountPoints map[string]MountPoint

// EssentialMountPoints returns the virtual file systems the guest services
// depend on. They are mounted right on boot and again after a root switch,
// since the mounts belong to the root they were issued against.
func EssentialMountPoints() MountPoints {
	return MountPoints{
		"/dev":  {FSType: FSTypeDevTmp, MayFail: true},
		"/proc": {FSType: FSTypeProc, MayFail: true},
		"/sys":  {FSType: FSTypeSys, MayFail: true},
	}
}

// Mount mounts the file system described by the given [MountPoint] at the
// given path.
//
// If path does not exist, it is created. An error is returned if this or the
// mount syscall fails.
func Mount(path string, opts MountPoint) error {
	if err := EnsureDir(path, defaultDirMode); err != nil {
		return err
	}

	source := opts.Source
	if source == "" {
		source = string(opts.FSType)
	}

	return mount(source, path, string(opts.FSType), opts.Flags, opts.Data)
}

// MountAll mounts the given set of file systems.
//
// The mounts are executed in lexicographic order of the paths. If only
// optional mount points failed, it returns an [OptionalMountError] with all
// errors.
func MountAll(mountPoints MountPoints) error {
	var optionalErrs OptionalMountError

	for path, opts := range sortedMap(mountPoints) {
		if err := Mount(path, opts); err != nil {
			if !opts.MayFail {
				return err
			}

			optionalErrs = append(optionalErrs, err)
		}
	}

	if optionalErrs != nil {
		return optionalErrs
	}

	return nil
}

// WithMountPoints returns a boot [Func] that wraps [MountAll] and can be
// used with [Run].
//
// It logs optional mounts that failed.
func WithMountPoints(mountPoints MountPoints) Func {
	return func(_ *State) error {
		return mountAllLogged(mountPoints)
	}
}

func mountAllLogged(mountPoints MountPoints) error {
	err := MountAll(mountPoints)

	var optionalErrs OptionalMountError
	if errors.As(err, &optionalErrs) {
		for _, err := range optionalErrs {
			Log.Warn().Err(err).Msg("optional mount failed")
		}

		return nil
	}

	return err
}
