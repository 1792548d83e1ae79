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
	"golang.org/x/sys/unix"

	"github.com/boltauth/boltd/testutil"
)

func MockUnixSocket(f func(domain, typ, proto int) (int, error)) (restore func()) {
	return testutil.Mock(&unixSocket, f)
}

func MockUnixBind(f func(fd int, sa unix.Sockaddr) error) (restore func()) {
	return testutil.Mock(&unixBind, f)
}
