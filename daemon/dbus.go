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

package daemon

import (
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/boltauth/boltd/auth"
	"github.com/boltauth/boltd/bolt"
	"github.com/boltauth/boltd/manager"
)

const managerIntrospectionXML = `
<interface name='org.freedesktop.bolt1.Manager'>
	<method name='ListDevices'>
		<arg type='a(sssssb)' name='devices' direction='out'/>
	</method>
	<method name='Authorize'>
		<arg type='s' name='uid' direction='in'/>
		<arg type='s' name='level' direction='out'/>
	</method>
	<method name='Enroll'>
		<arg type='s' name='uid' direction='in'/>
		<arg type='s' name='policy' direction='in'/>
		<arg type='s' name='level' direction='out'/>
	</method>
	<method name='Forget'>
		<arg type='s' name='uid' direction='in'/>
	</method>
</interface>`

const (
	errorNotFound     = "org.freedesktop.bolt.Error.NotFound"
	errorAuthFailed   = "org.freedesktop.bolt.Error.AuthorizationFailed"
	errorAccessDenied = "org.freedesktop.DBus.Error.AccessDenied"
	errorInvalidArgs  = "org.freedesktop.DBus.Error.InvalidArgs"
)

var connectionUnixUser = func(conn *dbus.Conn, sender dbus.Sender) (uint32, error) {
	var uid uint32
	call := conn.BusObject().Call("org.freedesktop.DBus.GetConnectionUnixUser", 0, sender)
	if call.Err != nil {
		return 0, call.Err
	}
	if err := call.Store(&uid); err != nil {
		return 0, err
	}
	return uid, nil
}

// DeviceInfo is the D-Bus representation of a device.
type DeviceInfo struct {
	UID    string
	Name   string
	Vendor string
	Status string
	Policy string
	Stored bool
}

// Manager implements the 'org.freedesktop.bolt1.Manager' D-Bus interface.
type Manager struct {
	d *Daemon
}

// Interface returns the name of the interface this object implements
func (m *Manager) Interface() string {
	return "org.freedesktop.bolt1.Manager"
}

// ObjectPath returns the path of the object
func (m *Manager) ObjectPath() dbus.ObjectPath {
	return "/org/freedesktop/bolt"
}

// IntrospectionData gives the XML formatted introspection description
// of the D-Bus service.
func (m *Manager) IntrospectionData() string {
	return managerIntrospectionXML
}

func (m *Manager) checkPrivileged(sender dbus.Sender) *dbus.Error {
	uid, err := connectionUnixUser(m.d.conn, sender)
	if err != nil {
		return dbus.MakeFailedError(fmt.Errorf("cannot get connection user: %v", err))
	}
	if uid != 0 {
		return dbus.NewError(errorAccessDenied, []interface{}{"operation requires root"})
	}
	return nil
}

func deviceError(err error) *dbus.Error {
	var aerr *auth.Error
	switch {
	case errors.Is(err, manager.ErrDeviceNotFound):
		return dbus.NewError(errorNotFound, []interface{}{err.Error()})
	case errors.As(err, &aerr):
		return dbus.NewError(errorAuthFailed, []interface{}{fmt.Sprintf("%s [%d]", aerr.Error(), aerr.Code())})
	}
	return dbus.MakeFailedError(err)
}

// ListDevices implements the 'ListDevices' method.
func (m *Manager) ListDevices() ([]DeviceInfo, *dbus.Error) {
	devs := m.d.mgr.Devices()
	infos := make([]DeviceInfo, 0, len(devs))
	for _, dev := range devs {
		infos = append(infos, DeviceInfo{
			UID:    dev.UID,
			Name:   dev.Name,
			Vendor: dev.Vendor,
			Status: dev.Status.String(),
			Policy: dev.Policy.String(),
			Stored: dev.Stored,
		})
	}
	return infos, nil
}

// Authorize implements the 'Authorize' method. It returns the level that
// was asserted.
func (m *Manager) Authorize(uid string, sender dbus.Sender) (string, *dbus.Error) {
	if derr := m.checkPrivileged(sender); derr != nil {
		return "", derr
	}
	res, err := m.d.authorize(uid)
	if err != nil {
		return "", deviceError(err)
	}
	return res.Level.String(), nil
}

// Enroll implements the 'Enroll' method: the device is authorized and
// then stored with the given policy.
func (m *Manager) Enroll(uid, policy string, sender dbus.Sender) (string, *dbus.Error) {
	if derr := m.checkPrivileged(sender); derr != nil {
		return "", derr
	}
	p, err := bolt.ParsePolicy(policy)
	if err != nil {
		return "", dbus.NewError(errorInvalidArgs, []interface{}{err.Error()})
	}
	res, err := m.d.authorize(uid)
	if err != nil {
		return "", deviceError(err)
	}
	if err := m.d.mgr.Store(uid, p); err != nil {
		return "", deviceError(err)
	}
	return res.Level.String(), nil
}

// Forget implements the 'Forget' method.
func (m *Manager) Forget(uid string, sender dbus.Sender) *dbus.Error {
	if derr := m.checkPrivileged(sender); derr != nil {
		return derr
	}
	if err := m.d.mgr.Forget(uid); err != nil {
		return deviceError(err)
	}
	return nil
}
