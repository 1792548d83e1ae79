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
	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"

	"github.com/boltauth/boltd/i18n"
)

var shortInfoHelp = i18n.G("Show details of a thunderbolt device")
var longInfoHelp = i18n.G(`
The info command shows what is known about the device with the given
unique id, connected or stored.
`)

type cmdDeviceInfo struct {
	managerMixin

	Positional struct {
		UID string `required:"yes"`
	} `positional-args:"yes"`
}

func init() {
	addCommand("info", shortInfoHelp, longInfoHelp, func() flags.Commander { return &cmdDeviceInfo{} }, nil, []argDesc{{
		// TRANSLATORS: This needs to begin with < and end with >
		name: i18n.G("<uid>"),
		// TRANSLATORS: This should not start with a lowercase letter.
		desc: i18n.G("The unique id of the device"),
	}})
}

type deviceInfo struct {
	UID       string `yaml:"uid"`
	Name      string `yaml:"name,omitempty"`
	Vendor    string `yaml:"vendor,omitempty"`
	Status    string `yaml:"status"`
	Security  string `yaml:"security,omitempty"`
	Policy    string `yaml:"policy"`
	Stored    bool   `yaml:"stored"`
	Key       string `yaml:"key"`
	SysfsPath string `yaml:"sysfs-path,omitempty"`
}

func (x *cmdDeviceInfo) Execute(args []string) error {
	if len(args) > 0 {
		return ErrExtraArgs
	}

	mgr, err := x.manager()
	if err != nil {
		return err
	}
	defer mgr.Close()

	dev, err := lookup(mgr, x.Positional.UID)
	if err != nil {
		return err
	}
	info := deviceInfo{
		UID:       dev.UID,
		Name:      dev.Name,
		Vendor:    dev.Vendor,
		Status:    dev.Status.String(),
		Policy:    dev.Policy.String(),
		Stored:    dev.Stored,
		Key:       dev.Key.String(),
		SysfsPath: dev.SysfsPath,
	}
	if dev.Connected() {
		info.Security = mgr.SecurityLevel(dev).String()
	}

	enc := yaml.NewEncoder(Stdout)
	if err := enc.Encode(&info); err != nil {
		return err
	}
	return enc.Close()
}
