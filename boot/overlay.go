// SPDX-FileCopyrightText: 2025 The guestinit authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package boot

import (
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Outcome is the result of an overlay transition attempt.
type Outcome int

const (
	// Skipped means the original root is retained, either because no overlay
	// device was found or because a setup step failed and was rolled back.
	Skipped Outcome = iota

	// Applied means the process root now points at the union file system and
	// the old root has been detached.
	Applied
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Skipped:
		return "skipped"
	default:
		return "invalid"
	}
}

// OverlayLayout describes the fixed paths the overlay transition works with.
// All paths must be distinct.
type OverlayLayout struct {
	// Device is the overlay block device. Its presence is the sole trigger
	// for overlay mode.
	Device string

	// Staging is where the overlay device is mounted.
	Staging string

	// MergedRoot is where the union file system is mounted and what the
	// process root is switched to.
	MergedRoot string

	// UpperDir and WorkDir are created beneath the staging mount and hold
	// all guest-side writes.
	UpperDir string
	WorkDir  string

	// OldRoot is the anchor directory inside the merged root the previous
	// root is relocated to during the root switch.
	OldRoot string
}

// DefaultOverlayLayout returns the layout of the current guest image
// generation. The overlay device is the second virtio-blk device.
func DefaultOverlayLayout() OverlayLayout {
	return OverlayLayout{
		Device:     "/dev/vdb",
		Staging:    "/mnt/overlay",
		MergedRoot: "/mnt/merged",
		UpperDir:   "/mnt/overlay/upper",
		WorkDir:    "/mnt/overlay/work",
		OldRoot:    "/mnt/merged/oldroot",
	}
}

// Transition performs the root file system transition onto an overlay
// device.
type Transition struct {
	Layout OverlayLayout

	sys sysops
}

// NewTransition creates a [Transition] for the given layout.
func NewTransition(layout OverlayLayout) *Transition {
	return &Transition{
		Layout: layout,
		sys:    unixSys{},
	}
}

// Attempt detects the overlay block device and, if present, mounts it,
// builds a union file system with the current root as read-only lower layer
// and atomically switches the process root onto it.
//
// Every mount in the chain is additive and every failure path unwinds
// exactly the mounts performed so far, in reverse order. A [Skipped] outcome
// therefore always leaves the mount table as it was found. Nothing is
// retried and no failure aborts the boot; the guest falls back to the direct
// root file system.
func (t *Transition) Attempt() Outcome {
	layout := t.Layout

	if !t.sys.pathExists(layout.Device) {
		Log.Info().Msg("no overlay device, using direct rootfs")
		return Skipped
	}

	Log.Info().Str("device", layout.Device).Msg("overlay device detected")

	if mounted, err := t.sys.mounted(layout.MergedRoot); err == nil && mounted {
		Log.Warn().Str("path", layout.MergedRoot).
			Msg("merged root already mounted, keeping current root")

		return Skipped
	}

	for _, dir := range []string{"/mnt", layout.Staging, layout.MergedRoot} {
		if err := t.sys.mkdir(dir, defaultDirMode); err != nil {
			Log.Warn().Err(err).Msg("mount point")
		}
	}

	err := t.sys.mount(layout.Device, layout.Staging, string(FSTypeExt4), 0, "")
	if err != nil {
		Log.Err(err).Msg("mount overlay disk")
		return Skipped
	}

	for _, dir := range []string{layout.UpperDir, layout.WorkDir} {
		if err := t.sys.mkdir(dir, defaultDirMode); err != nil {
			Log.Warn().Err(err).Msg("overlay directory")
		}
	}

	// The current root, mounted read-only from the base image device, is the
	// lower layer. All writes land in the upper layer on the overlay device.
	overlayData := fmt.Sprintf("lowerdir=/,upperdir=%s,workdir=%s",
		layout.UpperDir, layout.WorkDir)

	Log.Info().Str("options", overlayData).Msg("mounting overlayfs")

	err = t.sys.mount("overlay", layout.MergedRoot, string(FSTypeOverlay), 0,
		overlayData)
	if err != nil {
		Log.Err(err).Msg("mount overlayfs")
		t.unmountLogged(layout.Staging, 0)

		return Skipped
	}

	if err := t.sys.mkdir(layout.OldRoot, defaultDirMode); err != nil {
		Log.Warn().Err(err).Msg("old root anchor")
	}

	Log.Info().Str("path", layout.MergedRoot).Msg("pivoting root to overlayfs")

	if err := t.sys.pivotRoot(layout.MergedRoot, layout.OldRoot); err != nil {
		Log.Err(err).Msg("pivot root")
		t.unmountLogged(layout.MergedRoot, 0)
		t.unmountLogged(layout.Staging, 0)

		return Skipped
	}

	if err := t.sys.chdir("/"); err != nil {
		Log.Warn().Err(err).Msg("chdir to new root")
	}

	// The old root is likely still busy, so detach it lazily. It disappears
	// from the namespace and is released once the last handle closes.
	oldRoot := "/" + filepath.Base(layout.OldRoot)
	if err := t.sys.unmount(oldRoot, unix.MNT_DETACH); err != nil {
		Log.Warn().Err(err).Msg("detach old root")
	}

	_ = t.sys.remove(oldRoot)

	Log.Info().Msg("overlayfs setup complete, root is now copy-on-write")

	return Applied
}

func (t *Transition) unmountLogged(target string, flags int) {
	if err := t.sys.unmount(target, flags); err != nil {
		Log.Err(err).Msg("rollback unmount")
	}
}

// WithOverlay returns a boot [Func] that attempts the overlay transition.
//
// If the transition was applied, the essential virtual file system mounts
// are re-issued, since the previous ones belong to the old root and are
// invisible under the new one. If it was skipped, the existing root is
// remounted read-write in place for images that ship without an overlay
// device.
func WithOverlay(layout OverlayLayout) Func {
	return func(_ *State) error {
		switch NewTransition(layout).Attempt() {
		case Applied:
			return mountAllLogged(EssentialMountPoints())
		case Skipped:
			if err := remountRootReadWrite(); err != nil {
				Log.Warn().Err(err).Msg("remount root read-write")
			}
		}

		return nil
	}
}

func remountRootReadWrite() error {
	return mount("", "/", "", unix.MS_REMOUNT, "")
}
