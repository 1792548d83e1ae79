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

	. "gopkg.in/check.v1"

	"github.com/boltauth/boltd/osutil"
)

type envSuite struct{}

var _ = Suite(&envSuite{})

const envKey = "BOLTD_TEST_ENV_BOOL"

func (s *envSuite) TearDownTest(c *C) {
	os.Unsetenv(envKey)
}

func (s *envSuite) TestGetenvBool(c *C) {
	for _, t := range []struct {
		value string
		set   bool
		dflt  []bool
		res   bool
	}{
		{set: false, res: false},
		{set: false, dflt: []bool{true}, res: true},
		{value: "1", set: true, res: true},
		{value: "t", set: true, res: true},
		{value: "TRUE", set: true, dflt: []bool{false}, res: true},
		{value: "0", set: true, dflt: []bool{true}, res: false},
		{value: "FALSE", set: true, res: false},
		{value: "", set: true, dflt: []bool{true}, res: true},
		{value: "potato", set: true, res: false},
		{value: "potato", set: true, dflt: []bool{true}, res: true},
	} {
		os.Unsetenv(envKey)
		if t.set {
			os.Setenv(envKey, t.value)
		}
		c.Check(osutil.GetenvBool(envKey, t.dflt...), Equals, t.res, Commentf("%+v", t))
	}
}

func (s *envSuite) TestIsTestBinary(c *C) {
	c.Check(osutil.IsTestBinary(), Equals, true)
}
