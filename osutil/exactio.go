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

package osutil

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

var (
	unixRead  = unix.Read
	unixWrite = unix.Write
)

// IncompleteError is returned when a read or a write transferred fewer
// bytes than requested.
type IncompleteError struct {
	Op   string
	Want int
	Got  int
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("incomplete %s: transferred %d of %d bytes", e.Op, e.Got, e.Want)
}

// IsIncomplete returns true if err is, or wraps, an *IncompleteError.
func IsIncomplete(err error) bool {
	var e *IncompleteError
	return errors.As(err, &e)
}

// ReadExact reads exactly n bytes from the given file descriptor.
//
// Interrupted reads are retried. Reaching the end of input before n bytes
// were read results in an *IncompleteError; nothing read so far is
// returned in that case.
func ReadExact(fd int, n int) ([]byte, error) {
	buf := make([]byte, n)
	nread := 0
	for nread < n {
		k, err := unixRead(fd, buf[nread:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			clear(buf)
			return nil, os.NewSyscallError("read", err)
		}
		if k == 0 {
			clear(buf)
			return nil, &IncompleteError{Op: "read", Want: n, Got: nread}
		}
		nread += k
	}
	return buf, nil
}

// WriteExact writes data to the given file descriptor with a single
// write(2). Interrupted writes are retried, a short write is never
// completed with a second write and results in an *IncompleteError.
//
// This matters for sysfs attributes: the kernel consumes each write as a
// whole, writing a value in chunks corrupts it.
func WriteExact(fd int, data []byte) error {
	for {
		n, err := unixWrite(fd, data)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return os.NewSyscallError("write", err)
		}
		if n != len(data) {
			return &IncompleteError{Op: "write", Want: len(data), Got: n}
		}
		return nil
	}
}

// WriteControlByte writes the single byte b to the given file descriptor.
func WriteControlByte(fd int, b byte) error {
	return WriteExact(fd, []byte{b})
}
