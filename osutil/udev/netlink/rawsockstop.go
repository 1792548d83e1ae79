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

package netlink

import (
	"os"

	"golang.org/x/sys/unix"
)

var unixPoll = unix.Poll

// RawSockStopper returns a pair of functions to manage stopping code
// reading from a raw socket. readableOrStop blocks until fd is readable,
// returning true, or stop was called, returning false. fd is switched to
// non-blocking mode.
func RawSockStopper(fd int) (readableOrStop func() (bool, error), stop func(), err error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, nil, os.NewSyscallError("fcntl", err)
	}

	stopR, stopW, err := os.Pipe()
	if err != nil {
		return nil, nil, err
	}

	// both ends stay referenced by the closures until stop is seen
	readableOrStop = func() (bool, error) {
		readable, stopped, err := stopperPollReadable(fd, int(stopR.Fd()))
		if stopped {
			stopR.Close()
			stopW.Close()
		}
		return readable, err
	}
	stop = func() {
		stopW.Write([]byte{0})
	}
	return readableOrStop, stop, nil
}

func stopperPollReadable(fd, stopFd int) (readable, stopped bool, err error) {
	fds := []unix.PollFd{
		{Fd: int32(fd), Events: unix.POLLIN},
		{Fd: int32(stopFd), Events: unix.POLLIN},
	}
	for {
		_, err := unixPoll(fds, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, false, os.NewSyscallError("poll", err)
		}
		break
	}
	if fds[1].Revents != 0 {
		return false, true, nil
	}
	// errors and hangups are reported by the following read
	return fds[0].Revents&(unix.POLLIN|unix.POLLERR|unix.POLLHUP) != 0, false, nil
}
