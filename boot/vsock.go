// SPDX-FileCopyrightText: 2025 The guestinit authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package boot

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/mdlayher/vsock"
	"golang.org/x/sync/errgroup"
)

// Relay is the built-in replacement for the socat bridge, used when the
// bridge binary cannot be launched. It accepts connections on the hypervisor
// vsock port and forwards them to the workload's local TCP address. It
// serves the same guest agent contract as the socat transport spec.
type Relay struct {
	// Port is both the vsock port listened on and the local TCP port
	// forwarded to.
	Port uint32

	listener net.Listener
}

// NewRelay creates a [Relay] for the given port.
func NewRelay(port int) *Relay {
	return &Relay{Port: uint32(port)}
}

// Start binds the vsock listener. It returns once the listener is bound;
// connections are served in the background for the lifetime of the guest.
func (r *Relay) Start() error {
	listener, err := vsock.Listen(r.Port, nil)
	if err != nil {
		return fmt.Errorf("vsock listen port %d: %w", r.Port, err)
	}

	r.listener = listener

	go r.serve(listener)

	return nil
}

// Stop closes the listener. Connections in flight are served to completion.
func (r *Relay) Stop() error {
	if r.listener == nil {
		return nil
	}

	return r.listener.Close()
}

func (r *Relay) serve(listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				Log.Err(err).Msg("relay accept")
			}

			return
		}

		go r.forward(conn)
	}
}

// forward pumps data between the accepted connection and the workload's
// local address until either side closes.
func (r *Relay) forward(conn net.Conn) {
	defer conn.Close()

	target := net.JoinHostPort("127.0.0.1", strconv.Itoa(int(r.Port)))

	local, err := net.Dial("tcp", target)
	if err != nil {
		Log.Err(err).Str("target", target).Msg("relay dial")
		return
	}
	defer local.Close()

	var group errgroup.Group

	group.Go(func() error {
		defer local.Close()

		_, err := io.Copy(local, conn)
		return err
	})

	group.Go(func() error {
		defer conn.Close()

		_, err := io.Copy(conn, local)
		return err
	})

	if err := group.Wait(); err != nil && !errors.Is(err, net.ErrClosed) {
		Log.Debug().Err(err).Msg("relay copy")
	}
}
