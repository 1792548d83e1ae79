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


package main

import (
	"fmt"

	"github.com/jessevdk/go-flags"

	"github.com/boltauth/boltd/i18n"
)

var shortForgetHelp = i18n.G("Forget a stored device")
var longForgetHelp = i18n.G(`
The forget command removes the device with the given unique id from the
device database and deletes its key. A connected device stays authorized
until it is unplugged.
`)

type cmdForget struct {
	managerMixin

	Positional struct {
		UID string `required:"yes"`
	} `positional-args:"yes"`
}

func init() {
	addCommand("forget", shortForgetHelp, longForgetHelp, func() flags.Commander { return &cmdForget{} }, nil, []argDesc{{
		// TRANSLATORS: This needs to begin with < and end with >
		name: i18n.G("<uid>"),
		// TRANSLATORS: This should not start with a lowercase letter.
		desc: i18n.G("The unique id of the device"),
	}})
}

func (x *cmdForget) Execute(args []string) error {
	if len(args) > 0 {
		return ErrExtraArgs
	}

	mgr, err := x.manager()
	if err != nil {
		return err
	}
	defer mgr.Close()

	uid := x.Positional.UID
	if _, err := lookup(mgr, uid); err != nil {
		return err
	}
	if err := mgr.Forget(uid); err != nil {
		return err
	}
	fmt.Fprintf(Stdout, i18n.G("%s forgotten\n"), uid)
	return nil
}
