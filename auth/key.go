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

package auth

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/boltauth/boltd/bolt"
	"github.com/boltauth/boltd/osutil"
	"github.com/boltauth/boltd/sysfs"
)

// KeyProvider finds, or creates, the key of a device.
type KeyProvider interface {
	EnsureKey(uid string, allowCreate bool) (path string, created bool, err error)
}

var (
	unixOpen  = unix.Open
	unixClose = unix.Close
)

func obtainKey(keys KeyProvider, uid string) (path string, created bool, err error) {
	path, created, err = keys.EnsureKey(uid, true)
	if err != nil {
		return "", false, &Error{Kind: ErrorKindKey, Msg: "cannot obtain device key", Err: err}
	}
	return path, created, nil
}

// transferKey copies the key stored at path to the open key attribute.
// The key is read completely before anything is written and it is written
// with a single write: a partially written key leaves the device in an
// inconsistent state.
func transferKey(path string, to *sysfs.Attr) error {
	fd, err := unixOpen(path, unix.O_RDONLY|unix.O_CLOEXEC|unix.O_NOFOLLOW, 0)
	if err != nil {
		return &Error{Kind: ErrorKindKey, Msg: "cannot open key file", Err: &os.PathError{Op: "open", Path: path, Err: err}}
	}
	defer unixClose(fd)

	key, err := osutil.ReadExact(fd, bolt.KeyChars)
	if err != nil {
		if osutil.IsIncomplete(err) {
			return &Error{Kind: ErrorKindIncomplete, Msg: "cannot read entire key from disk", Err: err}
		}
		return ioError("cannot read key file", err)
	}
	defer clear(key)

	if err := osutil.WriteExact(to.Fd(), key); err != nil {
		return ioError("cannot write key data", err)
	}
	return nil
}

// provisionKey obtains the device key and writes it to the device.
func provisionKey(dir *sysfs.Dir, uid string, keys KeyProvider) (created bool, err error) {
	path, created, err := obtainKey(keys, uid)
	if err != nil {
		return false, err
	}

	attr, err := dir.OpenAttr("key", unix.O_WRONLY)
	if err != nil {
		return false, ioError("cannot open key attribute", err)
	}
	defer attr.Close()

	if err := transferKey(path, attr); err != nil {
		return false, err
	}
	if err := attr.Close(); err != nil {
		return false, ioError("cannot write key data", err)
	}
	return created, nil
}
