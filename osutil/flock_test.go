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


package osutil_test

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
	. "gopkg.in/check.v1"

	"github.com/boltauth/boltd/osutil"
)

type flockSuite struct{}

var _ = Suite(&flockSuite{})

func (s *flockSuite) TestFileExists(c *C) {
	dir := c.MkDir()
	p := filepath.Join(dir, "foo")
	c.Check(osutil.FileExists(p), Equals, false)
	c.Assert(os.WriteFile(p, nil, 0644), IsNil)
	c.Check(osutil.FileExists(p), Equals, true)
	c.Check(osutil.FileExists(dir), Equals, true)
}

func (s *flockSuite) TestLockExcludesOthers(c *C) {
	p := filepath.Join(c.MkDir(), ".lock")

	l1, err := osutil.NewFileLock(p)
	c.Assert(err, IsNil)
	defer l1.Close()
	l2, err := osutil.NewFileLock(p)
	c.Assert(err, IsNil)
	defer l2.Close()

	fi, err := os.Stat(p)
	c.Assert(err, IsNil)
	c.Check(fi.Mode().Perm(), Equals, os.FileMode(0600))

	c.Assert(l1.Lock(), IsNil)
	c.Check(l2.TryLock(), Equals, osutil.ErrAlreadyLocked)

	c.Assert(l1.Unlock(), IsNil)
	c.Check(l2.TryLock(), IsNil)
	c.Check(l1.TryLock(), Equals, osutil.ErrAlreadyLocked)
}

func (s *flockSuite) TestCloseReleases(c *C) {
	p := filepath.Join(c.MkDir(), ".lock")

	l1, err := osutil.NewFileLock(p)
	c.Assert(err, IsNil)
	c.Assert(l1.Lock(), IsNil)
	c.Assert(l1.Close(), IsNil)

	l2, err := osutil.NewFileLock(p)
	c.Assert(err, IsNil)
	defer l2.Close()
	c.Check(l2.TryLock(), IsNil)
}

func (s *flockSuite) TestLockRetriesEINTR(c *C) {
	p := filepath.Join(c.MkDir(), ".lock")
	l, err := osutil.NewFileLock(p)
	c.Assert(err, IsNil)
	defer l.Close()

	calls := 0
	restore := osutil.MockUnixFlock(func(fd int, how int) error {
		calls++
		if calls == 1 {
			return unix.EINTR
		}
		return nil
	})
	defer restore()

	c.Check(l.Lock(), IsNil)
	c.Check(calls, Equals, 2)
}

func (s *flockSuite) TestNoFollow(c *C) {
	dir := c.MkDir()
	target := filepath.Join(dir, "target")
	link := filepath.Join(dir, ".lock")
	c.Assert(os.Symlink(target, link), IsNil)

	_, err := osutil.NewFileLock(link)
	c.Check(err, NotNil)
	c.Check(osutil.FileExists(target), Equals, false)
}
