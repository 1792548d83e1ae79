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

var shortAutoHelp = i18n.G("Authorize a device if it is set up for it")
var longAutoHelp = i18n.G(`
The auto command authorizes the connected thunderbolt device with the given
unique id, but only if it was stored with the auto policy. For any other
device nothing is done and the command succeeds.
`)

type cmdAuto struct {
	managerMixin

	Positional struct {
		UID string `required:"yes"`
	} `positional-args:"yes"`
}

func init() {
	addCommand("auto", shortAutoHelp, longAutoHelp, func() flags.Commander { return &cmdAuto{} }, nil, []argDesc{{
		// TRANSLATORS: This needs to begin with < and end with >
		name: i18n.G("<uid>"),
		// TRANSLATORS: This should not start with a lowercase letter.
		desc: i18n.G("The unique id of the device"),
	}})
}

func (x *cmdAuto) Execute(args []string) error {
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
	done, reason, err := mgr.AutoAuthorize(uid)
	if err != nil {
		return authorizeError(err)
	}
	if !done {
		fmt.Fprintf(Stdout, "%s\n", reason)
		return nil
	}
	fmt.Fprintf(Stdout, i18n.G("%s authorized\n"), uid)
	return nil
}
