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
	"text/tabwriter"

	"github.com/jessevdk/go-flags"
	"github.com/mattn/go-runewidth"

	"github.com/boltauth/boltd/i18n"
)

var shortListHelp = i18n.G("List thunderbolt devices")
var longListHelp = i18n.G(`
The list command shows the connected thunderbolt devices and the devices
stored in the device database.
`)

type cmdList struct {
	managerMixin
}

func init() {
	addCommand("list", shortListHelp, longListHelp, func() flags.Commander { return &cmdList{} }, nil, nil)
}

// device and vendor names longer than this are cut in the table
const maxNameWidth = 24

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func shortName(s string) string {
	return orDash(runewidth.Truncate(s, maxNameWidth, "..."))
}

func (x *cmdList) Execute(args []string) error {
	if len(args) > 0 {
		return ErrExtraArgs
	}

	mgr, err := x.manager()
	if err != nil {
		return err
	}
	defer mgr.Close()

	devs := mgr.Devices()
	if len(devs) == 0 {
		fmt.Fprintln(Stdout, i18n.G("No thunderbolt devices."))
		return nil
	}

	w := tabwriter.NewWriter(Stdout, 5, 3, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, i18n.G("UID\tName\tVendor\tStatus\tPolicy\tStored"))
	for _, dev := range devs {
		stored := i18n.G("no")
		if dev.Stored {
			stored = i18n.G("yes")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", dev.UID, shortName(dev.Name), shortName(dev.Vendor), dev.Status, dev.Policy, stored)
	}
	return nil
}
