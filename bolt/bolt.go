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

// Package bolt holds the types describing thunderbolt devices and the
// host's security configuration.
package bolt

import (
	"fmt"
)

// KeyChars is the length of a device key as written to the "key"
// sysfs attribute: 32 random bytes, hex encoded.
const KeyChars = 64

// SecurityLevel is the authorization tier enforced by a thunderbolt
// domain.
type SecurityLevel int

const (
	// SecurityNone means devices are connected without authorization.
	SecurityNone SecurityLevel = iota
	// SecurityUser means devices are authorized without key exchange.
	SecurityUser
	// SecuritySecure means devices are authorized with a key exchange.
	SecuritySecure
)

// WireByte returns the byte written to the "authorized" sysfs attribute
// to assert the level.
func (l SecurityLevel) WireByte() byte {
	switch l {
	case SecurityNone:
		return '0'
	case SecurityUser:
		return '1'
	case SecuritySecure:
		return '2'
	}
	panic(fmt.Sprintf("internal error: invalid security level %d", int(l)))
}

// Valid returns true for the known levels.
func (l SecurityLevel) Valid() bool {
	return l >= SecurityNone && l <= SecuritySecure
}

func (l SecurityLevel) String() string {
	switch l {
	case SecurityNone:
		return "none"
	case SecurityUser:
		return "user"
	case SecuritySecure:
		return "secure"
	}
	return fmt.Sprintf("SecurityLevel(%d)", int(l))
}

// ParseSecurityLevel parses the content of a domain's "security" sysfs
// attribute or a wire byte.
//
// "dponly" and "usbonly" domains never tunnel PCIe, there is nothing to
// authorize on them and they map to SecurityNone.
func ParseSecurityLevel(s string) (SecurityLevel, error) {
	switch s {
	case "none", "dponly", "usbonly", "0":
		return SecurityNone, nil
	case "user", "1":
		return SecurityUser, nil
	case "secure", "2":
		return SecuritySecure, nil
	}
	return SecurityNone, fmt.Errorf("unknown security level %q", s)
}

// Policy says what to do with a device when it is connected.
type Policy int

const (
	PolicyDefault Policy = iota
	// PolicyManual devices are only authorized on explicit request.
	PolicyManual
	// PolicyAuto devices are authorized as soon as they show up.
	PolicyAuto
)

func (p Policy) String() string {
	switch p {
	case PolicyDefault:
		return "default"
	case PolicyManual:
		return "manual"
	case PolicyAuto:
		return "auto"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy parses the textual form of a policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "default", "":
		return PolicyDefault, nil
	case "manual":
		return PolicyManual, nil
	case "auto":
		return PolicyAuto, nil
	}
	return PolicyDefault, fmt.Errorf("unknown policy %q", s)
}

// Status is the connection and authorization state of a device.
type Status int

const (
	StatusUnknown Status = iota
	StatusDisconnected
	StatusConnected
	StatusAuthorizing
	StatusAuthError
	StatusAuthorized
	StatusAuthorizedNewKey
	StatusAuthorizedSecure
)

var statusNames = map[Status]string{
	StatusUnknown:          "unknown",
	StatusDisconnected:     "disconnected",
	StatusConnected:        "connected",
	StatusAuthorizing:      "authorizing",
	StatusAuthError:        "auth-error",
	StatusAuthorized:       "authorized",
	StatusAuthorizedNewKey: "authorized-newkey",
	StatusAuthorizedSecure: "authorized-secure",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// IsAuthorized returns true for all the authorized states.
func (s Status) IsAuthorized() bool {
	return s == StatusAuthorized || s == StatusAuthorizedNewKey || s == StatusAuthorizedSecure
}

// StatusFromAuthorized maps the content of a device's "authorized" sysfs
// attribute to a status.
func StatusFromAuthorized(authorized string) Status {
	switch authorized {
	case "0":
		return StatusConnected
	case "1":
		return StatusAuthorized
	case "2":
		return StatusAuthorizedSecure
	}
	return StatusUnknown
}

// KeyState describes the key stored for a device.
type KeyState int

const (
	KeyMissing KeyState = iota
	KeyHave
	KeyNew
)

func (k KeyState) String() string {
	switch k {
	case KeyMissing:
		return "missing"
	case KeyHave:
		return "have"
	case KeyNew:
		return "new"
	}
	return fmt.Sprintf("KeyState(%d)", int(k))
}

// Device describes a thunderbolt device, connected or stored.
type Device struct {
	UID    string
	Name   string
	Vendor string
	// SysfsPath is the device's directory in sysfs, empty when the
	// device is not connected.
	SysfsPath string
	// Security is the level enforced by the domain the device is
	// connected to.
	Security SecurityLevel
	Policy   Policy
	Status   Status
	// Stored is true if the device is known to the device store.
	Stored bool
	Key    KeyState
}

// Connected returns true if the device is currently attached.
func (d *Device) Connected() bool {
	return d.SysfsPath != ""
}
