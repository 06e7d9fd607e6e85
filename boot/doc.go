// SPDX-FileCopyrightText: 2025 The guestinit authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package boot implements the PID 1 boot sequence of a microVM guest.
//
// It brings the guest from a bare, read-only root filesystem to a running
// service environment: essential virtual file systems are mounted, an
// optional overlay block device is layered on top of the base image with an
// atomic root switch, and the guest services are launched and supervised for
// the lifetime of the VM.
//
// The package is built around a small pipeline of [Func] steps executed by
// [Run]. Step failures are logged and degrade functionality but never abort
// the boot, since an exiting PID 1 panics the kernel.
package boot
