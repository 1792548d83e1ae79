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
	"github.com/boltauth/boltd/testutil"
)

func MockUnixRead(f func(fd int, p []byte) (int, error)) (restore func()) {
	return testutil.Mock(&unixRead, f)
}

func MockUnixWrite(f func(fd int, p []byte) (int, error)) (restore func()) {
	return testutil.Mock(&unixWrite, f)
}

func MockUnixFlock(f func(fd int, how int) error) (restore func()) {
	return testutil.Mock(&unixFlock, f)
}
