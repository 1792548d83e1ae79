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

	. "gopkg.in/check.v1"

	"github.com/boltauth/boltd/osutil"
	"github.com/boltauth/boltd/testutil"
)

type atomicWriteSuite struct{}

var _ = Suite(&atomicWriteSuite{})

func (s *atomicWriteSuite) TestAtomicWriteFile(c *C) {
	tmpdir := c.MkDir()

	p := filepath.Join(tmpdir, "foo")
	c.Assert(osutil.AtomicWriteFile(p, []byte("canary"), 0600), IsNil)
	c.Check(p, testutil.FileEquals, "canary")

	// no temporary files left behind
	d, err := os.ReadDir(tmpdir)
	c.Assert(err, IsNil)
	c.Check(d, HasLen, 1)

	st, err := os.Stat(p)
	c.Assert(err, IsNil)
	c.Check(st.Mode().Perm(), Equals, os.FileMode(0600))
}

func (s *atomicWriteSuite) TestAtomicWriteFileIgnoresUmask(c *C) {
	p := filepath.Join(c.MkDir(), "foo")
	c.Assert(osutil.AtomicWriteFile(p, []byte("hi"), 0666), IsNil)

	st, err := os.Stat(p)
	c.Assert(err, IsNil)
	c.Check(st.Mode().Perm(), Equals, os.FileMode(0666))
}

func (s *atomicWriteSuite) TestAtomicWriteFileOverwrite(c *C) {
	p := filepath.Join(c.MkDir(), "foo")
	c.Assert(os.WriteFile(p, []byte("hello"), 0644), IsNil)
	c.Assert(osutil.AtomicWriteFile(p, []byte("hi"), 0600), IsNil)

	c.Check(p, testutil.FileEquals, "hi")
}

func (s *atomicWriteSuite) TestAtomicWriteFileNoDir(c *C) {
	p := filepath.Join(c.MkDir(), "missing", "foo")
	err := osutil.AtomicWriteFile(p, []byte("hi"), 0600)
	c.Check(err, ErrorMatches, `open .*/missing/foo\.\w+: no such file or directory`)
}

func (s *atomicWriteSuite) TestAtomicWriteFileCleansUp(c *C) {
	tmpdir := c.MkDir()
	p := filepath.Join(tmpdir, "foo")
	// a file cannot replace a directory
	c.Assert(os.Mkdir(p, 0755), IsNil)

	err := osutil.AtomicWriteFile(p, []byte("hi"), 0600)
	c.Check(err, NotNil)

	d, err := os.ReadDir(tmpdir)
	c.Assert(err, IsNil)
	c.Assert(d, HasLen, 1)
	c.Check(d[0].Name(), Equals, "foo")
	c.Check(d[0].IsDir(), Equals, true)
}
