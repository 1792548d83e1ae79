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

// Package sysfs gives access to the attributes of a device directory in
// sysfs. Attributes are always opened relative to a directory descriptor
// that was opened once, never by re-resolving a path, so the files used
// are guaranteed to belong to the directory instance that was inspected.
package sysfs

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

var (
	unixOpen   = unix.Open
	unixOpenat = unix.Openat
	unixClose  = unix.Close
)

// maxAttrSize is the most a sysfs attribute can hold (one page).
const maxAttrSize = 4096

// AttrError records a failed operation on a sysfs directory or attribute.
type AttrError struct {
	Op   string
	Attr string
	Err  error
}

func (e *AttrError) Error() string {
	return fmt.Sprintf("cannot %s %s: %v", e.Op, e.Attr, e.Err)
}

func (e *AttrError) Unwrap() error {
	return e.Err
}

// Errno returns the system error code carried by the error, or 0.
func (e *AttrError) Errno() unix.Errno {
	if errno, ok := e.Err.(unix.Errno); ok {
		return errno
	}
	return 0
}

// Dir is an open device directory.
type Dir struct {
	path string

	mu sync.Mutex
	fd int
}

// OpenDir opens the given directory, the returned Dir must be closed.
func OpenDir(path string) (*Dir, error) {
	fd, err := unixOpen(path, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &AttrError{Op: "open directory", Attr: path, Err: err}
	}
	return &Dir{path: path, fd: fd}, nil
}

// Path returns the path the directory was opened from, for messages only.
func (d *Dir) Path() string {
	return d.path
}

// Close closes the directory. It is safe to call Close more than once.
func (d *Dir) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fd < 0 {
		return nil
	}
	err := unixClose(d.fd)
	d.fd = -1
	if err != nil {
		return &AttrError{Op: "close directory", Attr: d.path, Err: err}
	}
	return nil
}

func validAttrName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsRune(name, '/')
}

// OpenAttr opens the attribute name inside the directory with the given
// open(2) flags. Symlinks are not followed and name must be a plain file
// name.
func (d *Dir) OpenAttr(name string, flags int) (*Attr, error) {
	if !validAttrName(name) {
		return nil, &AttrError{Op: "open", Attr: name, Err: unix.EINVAL}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fd < 0 {
		return nil, &AttrError{Op: "open", Attr: name, Err: unix.EBADF}
	}
	fd, err := unixOpenat(d.fd, name, flags|unix.O_CLOEXEC|unix.O_NOFOLLOW, 0)
	if err != nil {
		return nil, &AttrError{Op: "open", Attr: name, Err: err}
	}
	return &Attr{name: name, fd: fd}, nil
}

// ReadAttr reads the content of the named attribute, without the
// trailing newline.
func (d *Dir) ReadAttr(name string) (string, error) {
	attr, err := d.OpenAttr(name, unix.O_RDONLY)
	if err != nil {
		return "", err
	}
	defer attr.Close()

	buf := make([]byte, maxAttrSize)
	var n int
	for {
		n, err = unix.Read(attr.fd, buf)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		return "", &AttrError{Op: "read", Attr: name, Err: err}
	}
	return string(bytes.TrimRight(buf[:n], "\n")), nil
}

// Attr is an open sysfs attribute.
type Attr struct {
	name string
	fd   int
}

// Name returns the attribute name.
func (a *Attr) Name() string {
	return a.name
}

// Fd returns the file descriptor of the attribute.
func (a *Attr) Fd() int {
	return a.fd
}

// Close closes the attribute. It is safe to call Close more than once.
//
// Writes to sysfs may only be rejected by the kernel when the file is
// closed, callers that wrote to the attribute must check the error.
func (a *Attr) Close() error {
	if a.fd < 0 {
		return nil
	}
	err := unixClose(a.fd)
	a.fd = -1
	if err != nil {
		return &AttrError{Op: "close", Attr: a.name, Err: err}
	}
	return nil
}
