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
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/boltauth/boltd/randutil"
)

// unsafeIO skips fsync in test binaries that set BOLTD_UNSAFE_IO.
var unsafeIO = IsTestBinary() && GetenvBool("BOLTD_UNSAFE_IO")

// AtomicWriteFile writes data to filename so that readers see either the
// previous content or all of data. The file gets exactly perm, is never
// written through a symlink, and is flushed to disk along with its
// directory before returning.
func AtomicWriteFile(filename string, data []byte, perm os.FileMode) (err error) {
	tmp := filename + "." + randutil.MakeRandomString(12)
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL|unix.O_NOFOLLOW|unix.O_CLOEXEC, perm)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	// not subject to the umask
	if err := f.Chmod(perm); err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		return err
	}
	if !unsafeIO {
		if err := f.Sync(); err != nil {
			return err
		}
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, filename); err != nil {
		return err
	}
	if unsafeIO {
		return nil
	}
	return syncDir(filepath.Dir(filename))
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
