// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2025 Canonical Ltd
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 3 as
 * published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

// Package netlink listens to kernel uevents on a netlink socket.
package netlink

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// Mode determines the event source: kernel events or udev-processed
// events, see libudev/libudev-monitor.c.
type Mode int

const (
	KernelEvent Mode = 1
	// UdevEvent messages carry a libudev header and are not parsed by
	// ReadUEvent.
	UdevEvent Mode = 2
)

// uevents are limited by the kernel to a few KiB
const ueventBufferSize = 64 * 1024

var (
	unixSocket = unix.Socket
	unixBind   = unix.Bind
)

// UEventConn is a netlink socket bound to the uevent multicast groups.
type UEventConn struct {
	Fd  int
	buf []byte
}

// Connect opens the AF_NETLINK socket of the NETLINK_KOBJECT_UEVENT
// family and subscribes to the events of the given mode.
func (c *UEventConn) Connect(mode Mode) error {
	fd, err := unixSocket(unix.AF_NETLINK, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.NETLINK_KOBJECT_UEVENT)
	if err != nil {
		return os.NewSyscallError("socket", err)
	}
	addr := &unix.SockaddrNetlink{
		Family: unix.AF_NETLINK,
		Groups: uint32(mode),
	}
	if err := unixBind(fd, addr); err != nil {
		unix.Close(fd)
		return os.NewSyscallError("bind", err)
	}
	c.Fd = fd
	c.buf = make([]byte, ueventBufferSize)
	return nil
}

// Close closes the socket.
func (c *UEventConn) Close() error {
	return unix.Close(c.Fd)
}

// ReadMsg reads one complete uevent message.
func (c *UEventConn) ReadMsg() ([]byte, error) {
	n, _, err := unix.Recvfrom(c.Fd, c.buf, 0)
	if err != nil {
		return nil, err
	}
	msg := make([]byte, n)
	copy(msg, c.buf[:n])
	return msg, nil
}

// ReadUEvent reads and parses one uevent.
func (c *UEventConn) ReadUEvent() (*UEvent, error) {
	msg, err := c.ReadMsg()
	if err != nil {
		return nil, err
	}
	return ParseUEvent(msg)
}

// Monitor reads uevents in the background and sends the ones accepted by
// matcher, or all of them for a nil matcher, to queue. Read errors go to
// errs. Calling stop ends the monitoring, the connection stays open.
func (c *UEventConn) Monitor(queue chan<- UEvent, errs chan<- error, matcher Matcher) (stop func(), err error) {
	if matcher != nil {
		if err := matcher.Compile(); err != nil {
			return nil, fmt.Errorf("invalid matcher: %v", err)
		}
	}
	readableOrStop, stopper, err := RawSockStopper(c.Fd)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	var once sync.Once
	stop = func() {
		once.Do(func() {
			close(done)
			stopper()
		})
	}

	report := func(err error) bool {
		select {
		case errs <- err:
			return true
		case <-done:
			return false
		}
	}

	go func() {
		for {
			readable, err := readableOrStop()
			if err != nil {
				report(err)
				return
			}
			if !readable {
				return
			}
			uevent, err := c.ReadUEvent()
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			if err != nil {
				if !report(fmt.Errorf("cannot read uevent: %v", err)) {
					return
				}
				continue
			}
			if matcher != nil && !matcher.Evaluate(*uevent) {
				continue
			}
			select {
			case queue <- *uevent:
			case <-done:
				return
			}
		}
	}()
	return stop, nil
}
