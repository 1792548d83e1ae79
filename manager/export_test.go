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

package manager

import (
	"gopkg.in/retry.v1"

	"github.com/boltauth/boltd/auth"
	"github.com/boltauth/boltd/testutil"
)

func MockWaitDomainsStrategy(strategy retry.Strategy) (restore func()) {
	return testutil.Mock(&waitDomainsStrategy, strategy)
}

func MockAuthorizeDevice(f func(req *auth.Request, keys auth.KeyProvider, opts *auth.Options) (*auth.Result, error)) (restore func()) {
	return testutil.Mock(&authorizeDevice, f)
}
