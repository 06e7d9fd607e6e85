// SPDX-FileCopyrightText: 2025 The guestinit authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package boot

import (
	"errors"
	"fmt"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

const loopbackAddr = "127.0.0.1/8"

// ConfigureLoopback brings the loopback interface up and assigns it the
// local address the vsock bridge relays to. The minimal guest rootfs does
// not bring up loopback on its own. An already assigned address is not an
// error.
func ConfigureLoopback() error {
	link, err := netlink.LinkByName("lo")
	if err != nil {
		return fmt.Errorf("lookup lo: %w", err)
	}

	if err := netlink.LinkSetUp(link); err != nil {
		return fmt.Errorf("set lo up: %w", err)
	}

	addr, err := netlink.ParseAddr(loopbackAddr)
	if err != nil {
		return fmt.Errorf("parse %s: %w", loopbackAddr, err)
	}

	if err := netlink.AddrAdd(link, addr); err != nil &&
		!errors.Is(err, unix.EEXIST) {
		return fmt.Errorf("add %s: %w", loopbackAddr, err)
	}

	return nil
}
