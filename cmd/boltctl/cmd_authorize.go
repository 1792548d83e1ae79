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
	"errors"
	"fmt"

	"github.com/jessevdk/go-flags"

	"github.com/boltauth/boltd/auth"
	"github.com/boltauth/boltd/bolt"
	"github.com/boltauth/boltd/i18n"
	"github.com/boltauth/boltd/manager"
)

var shortAuthorizeHelp = i18n.G("Authorize a thunderbolt device")
var longAuthorizeHelp = i18n.G(`
The authorize command authorizes the connected thunderbolt device with the
given unique id at the security level of its domain.

With --store the device is remembered by boltd. With --auto it is also
authorized automatically whenever it is connected; --auto implies --store.
`)

type cmdAuthorize struct {
	managerMixin

	Store      bool `long:"store"`
	Auto       bool `long:"auto"`
	Positional struct {
		UID string `required:"yes"`
	} `positional-args:"yes"`
}

func init() {
	addCommand("authorize", shortAuthorizeHelp, longAuthorizeHelp, func() flags.Commander { return &cmdAuthorize{} }, map[string]string{
		// TRANSLATORS: This should not start with a lowercase letter.
		"store": i18n.G("Remember the device"),
		// TRANSLATORS: This should not start with a lowercase letter.
		"auto": i18n.G("Authorize the device automatically from now on (implies --store)"),
	}, []argDesc{{
		// TRANSLATORS: This needs to begin with < and end with >
		name: i18n.G("<uid>"),
		// TRANSLATORS: This should not start with a lowercase letter.
		desc: i18n.G("The unique id of the device"),
	}})
}

// authorizeError formats a failed authorization for the user, including
// the error code when there is one.
func authorizeError(err error) error {
	var authErr *auth.Error
	if errors.As(err, &authErr) {
		return fmt.Errorf(i18n.G("cannot authorize device: %s [%d]"), authErr, authErr.Code())
	}
	return fmt.Errorf(i18n.G("cannot authorize device: %v"), err)
}

func lookup(mgr *manager.Manager, uid string) (*bolt.Device, error) {
	dev, err := mgr.Lookup(uid)
	if err != nil {
		return nil, fmt.Errorf(i18n.G("cannot find device %s: %v"), uid, err)
	}
	return dev, nil
}

func (x *cmdAuthorize) Execute(args []string) error {
	if len(args) > 0 {
		return ErrExtraArgs
	}

	mgr, err := x.manager()
	if err != nil {
		return err
	}
	defer mgr.Close()

	uid := x.Positional.UID
	dev, err := lookup(mgr, uid)
	if err != nil {
		return err
	}
	res, err := mgr.Authorize(uid)
	if err != nil {
		return authorizeError(err)
	}
	fmt.Fprintf(Stdout, i18n.G("%s authorized (%s)\n"), uid, res.Level)

	policy := dev.Policy
	if x.Auto {
		x.Store = true
		policy = bolt.PolicyAuto
	}
	if !x.Store {
		return nil
	}
	if err := mgr.Store(uid, policy); err != nil {
		return fmt.Errorf(i18n.G("cannot store device in database: %v"), err)
	}
	return nil
}
