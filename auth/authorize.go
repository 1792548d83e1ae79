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

// Package auth implements the authorization of thunderbolt devices via
// their sysfs attributes.
//
// Authorization verifies that the device directory still belongs to the
// expected device, provisions the device key when the secure level is
// required, and finally writes the "authorized" attribute. All attribute
// files are opened relative to a single descriptor of the device
// directory. Nothing is logged here, errors are returned to the caller.
package auth

import (
	"bytes"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/boltauth/boltd/bolt"
	"github.com/boltauth/boltd/osutil"
	"github.com/boltauth/boltd/sysfs"
)

// FreshKeyPolicy decides the level asserted when a device key was
// created during the authorization.
type FreshKeyPolicy int

const (
	// FreshKeyAssertUser asserts the user level with a newly created
	// key; the secure level is asserted by the next authorization once
	// the device holds the key.
	FreshKeyAssertUser FreshKeyPolicy = iota
	// FreshKeyAssertSecure asserts the secure level right away.
	FreshKeyAssertSecure
)

func (p FreshKeyPolicy) String() string {
	switch p {
	case FreshKeyAssertUser:
		return "user"
	case FreshKeyAssertSecure:
		return "secure"
	}
	return fmt.Sprintf("FreshKeyPolicy(%d)", int(p))
}

// ParseFreshKeyPolicy parses the textual form of a FreshKeyPolicy.
func ParseFreshKeyPolicy(s string) (FreshKeyPolicy, error) {
	switch s {
	case "user", "":
		return FreshKeyAssertUser, nil
	case "secure":
		return FreshKeyAssertSecure, nil
	}
	return FreshKeyAssertUser, fmt.Errorf("unknown fresh key level %q", s)
}

// Request describes the device to authorize.
type Request struct {
	// UID is the unique id the device is expected to report.
	UID string
	// SysfsPath is the device directory in sysfs.
	SysfsPath string
	// Level is the security level required by the host.
	Level bolt.SecurityLevel
}

// Options tweak the authorization.
type Options struct {
	FreshKey FreshKeyPolicy
}

// Result is the outcome of a successful authorization.
type Result struct {
	// Level is the level that was asserted, it can be lower than the
	// requested one, see FreshKeyPolicy.
	Level bolt.SecurityLevel
	// KeyCreated is true if a new key was created for the device.
	KeyCreated bool
}

// Authorize authorizes the device described by req.
//
// Nothing is done when the host requires no security. Otherwise the
// device's unique_id is checked against req.UID, the key is provisioned
// for the secure level, and the effective level is written to the
// "authorized" attribute. Any failure aborts before "authorized" is
// written; the returned error is an *Error.
//
// Authorize keeps no state, but concurrent calls for the same device must
// be serialized by the caller.
func Authorize(req *Request, keys KeyProvider, opts *Options) (*Result, error) {
	if opts == nil {
		opts = &Options{}
	}
	if req.UID == "" {
		return nil, &Error{Kind: ErrorKindInvalid, Msg: "device has no unique id"}
	}
	if !req.Level.Valid() {
		return nil, &Error{Kind: ErrorKindInvalid, Msg: fmt.Sprintf("invalid security level %d", int(req.Level))}
	}

	if req.Level == bolt.SecurityNone {
		// nothing to do
		return &Result{Level: bolt.SecurityNone}, nil
	}
	if req.Level == bolt.SecuritySecure && keys == nil {
		return nil, &Error{Kind: ErrorKindInvalid, Msg: "secure level requires a key provider"}
	}

	dir, err := sysfs.OpenDir(req.SysfsPath)
	if err != nil {
		return nil, ioError("cannot open device directory", err)
	}
	defer dir.Close()

	if err := verifyUID(dir, req.UID); err != nil {
		return nil, err
	}

	level := req.Level
	created := false
	if level == bolt.SecuritySecure {
		created, err = provisionKey(dir, req.UID, keys)
		if err != nil {
			return nil, err
		}
		if created && opts.FreshKey == FreshKeyAssertUser {
			level = bolt.SecurityUser
		}
	}

	if err := writeAuthorized(dir, level); err != nil {
		return nil, err
	}
	return &Result{Level: level, KeyCreated: created}, nil
}

// verifyUID checks that the device in dir reports uid as its unique id.
func verifyUID(dir *sysfs.Dir, uid string) error {
	attr, err := dir.OpenAttr("unique_id", unix.O_RDONLY)
	if err != nil {
		return ioError("cannot open unique id", err)
	}
	defer attr.Close()

	buf, err := osutil.ReadExact(attr.Fd(), len(uid))
	if err != nil {
		if osutil.IsIncomplete(err) {
			return &Error{Kind: ErrorKindIdentityMismatch, Msg: "cannot read full unique id", Err: err}
		}
		return ioError("cannot read unique id", err)
	}
	if !bytes.Equal(buf, []byte(uid)) {
		return &Error{
			Kind: ErrorKindIdentityMismatch,
			Msg:  fmt.Sprintf("unique id verification failed [%q != %q]", buf, uid),
		}
	}
	return nil
}

func writeAuthorized(dir *sysfs.Dir, level bolt.SecurityLevel) error {
	attr, err := dir.OpenAttr("authorized", unix.O_WRONLY)
	if err != nil {
		return ioError("cannot open authorized attribute", err)
	}
	defer attr.Close()

	if err := osutil.WriteControlByte(attr.Fd(), level.WireByte()); err != nil {
		return ioError("cannot write authorization", err)
	}
	if err := attr.Close(); err != nil {
		return ioError("cannot write authorization", err)
	}
	return nil
}
