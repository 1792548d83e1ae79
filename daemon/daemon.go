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

// Package daemon implements boltd, the service that authorizes
// thunderbolt devices on behalf of unprivileged clients.
package daemon

import (
	"fmt"
	"path/filepath"
	"time"

	sddaemon "github.com/coreos/go-systemd/daemon"
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/juju/ratelimit"
	"gopkg.in/tomb.v2"

	"github.com/boltauth/boltd/auth"
	"github.com/boltauth/boltd/bolt"
	"github.com/boltauth/boltd/config"
	"github.com/boltauth/boltd/dirs"
	"github.com/boltauth/boltd/logger"
	"github.com/boltauth/boltd/osutil/udev/netlink"
)

// BusName is the well-known name of boltd on the system bus.
const BusName = "org.freedesktop.bolt"

var (
	dbusSystemBus = dbus.ConnectSystemBus
	sdNotify      = sddaemon.SdNotify
)

// docks announce a burst of devices at once, re-enumeration on hotplug
// is limited to enumerateRate per second after an initial enumerateBurst
var (
	enumerateRate  float64 = 10
	enumerateBurst int64   = 10
)

var newUEventMonitor = func() (ueventMonitor, error) {
	conn := &netlink.UEventConn{}
	if err := conn.Connect(netlink.KernelEvent); err != nil {
		return nil, err
	}
	return conn, nil
}

type ueventMonitor interface {
	Monitor(queue chan<- netlink.UEvent, errs chan<- error, matcher netlink.Matcher) (stop func(), err error)
	Close() error
}

// DeviceManager is what the daemon needs from the device manager.
type DeviceManager interface {
	Enumerate() error
	Devices() []*bolt.Device
	Lookup(uid string) (*bolt.Device, error)
	LookupSysfs(path string) (*bolt.Device, error)
	Authorize(uid string) (*auth.Result, error)
	AutoAuthorize(uid string) (done bool, reason string, err error)
	AutoAuthorizeAll() []string
	Store(uid string, policy bolt.Policy) error
	Forget(uid string) error
}

type dbusInterface interface {
	Interface() string
	ObjectPath() dbus.ObjectPath
	IntrospectionData() string
}

// Daemon exports the device manager on the system bus. Authorizations
// are carried out one at a time by a worker, D-Bus calls only queue them.
type Daemon struct {
	tomb tomb.Tomb
	mgr  DeviceManager
	cfg  *config.Config

	conn       *dbus.Conn
	dbusIfaces []dbusInterface

	jobs chan func()

	uevents     ueventMonitor
	stopUEvents func()
	enumerates  *ratelimit.Bucket

	started bool
}

// New returns a daemon serving mgr.
func New(mgr DeviceManager, cfg *config.Config) *Daemon {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Daemon{
		mgr:        mgr,
		cfg:        cfg,
		jobs:       make(chan func()),
		enumerates: ratelimit.NewBucketWithRate(enumerateRate, enumerateBurst),
	}
}

// Init connects to the system bus, exports the manager object and takes
// the bus name. It also sets up hotplug monitoring, which is optional.
func (d *Daemon) Init() error {
	conn, err := dbusSystemBus()
	if err != nil {
		return fmt.Errorf("cannot connect to the system bus: %v", err)
	}
	d.conn = conn

	d.dbusIfaces = []dbusInterface{
		&Manager{d: d},
	}
	for _, iface := range d.dbusIfaces {
		// export before taking the name so no call finds a half set up
		// object
		xml := "<node>" + iface.IntrospectionData() + introspect.IntrospectDataString + "</node>"
		if err := conn.Export(iface, iface.ObjectPath(), iface.Interface()); err != nil {
			return err
		}
		if err := conn.Export(introspect.Introspectable(xml), iface.ObjectPath(), "org.freedesktop.DBus.Introspectable"); err != nil {
			return err
		}
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return err
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("cannot obtain bus name %q", BusName)
	}

	mon, err := newUEventMonitor()
	if err != nil {
		logger.Noticef("cannot monitor thunderbolt hotplug events: %v", err)
	} else {
		d.uevents = mon
	}
	return nil
}

// Start starts the authorization worker and the hotplug monitor, and
// tells systemd that boltd is ready.
func (d *Daemon) Start() {
	logger.Noticef("Starting boltd")

	d.started = true
	d.tomb.Go(d.worker)
	if d.uevents != nil {
		queue := make(chan netlink.UEvent)
		errs := make(chan error)
		matcher := &netlink.RuleDefinition{
			Env: map[string]string{
				"SUBSYSTEM": "thunderbolt",
				"DEVTYPE":   "thunderbolt_device",
			},
		}
		stop, err := d.uevents.Monitor(queue, errs, matcher)
		if err != nil {
			logger.Noticef("cannot monitor thunderbolt hotplug events: %v", err)
		} else {
			d.stopUEvents = stop
			d.tomb.Go(func() error {
				return d.hotplug(queue, errs)
			})
		}
	}

	if _, err := sdNotify(false, sddaemon.SdNotifyReady); err != nil {
		logger.Noticef("cannot notify systemd: %v", err)
	}
}

// Stop stops the daemon and closes the bus connection.
func (d *Daemon) Stop() error {
	sdNotify(false, sddaemon.SdNotifyStopping)

	if d.stopUEvents != nil {
		d.stopUEvents()
	}
	var err error
	if d.started {
		d.tomb.Kill(nil)
		err = d.tomb.Wait()
	}

	if d.uevents != nil {
		d.uevents.Close()
	}
	if d.conn != nil {
		d.conn.Close()
	}
	return err
}

// Dying is closed when the daemon is shutting down.
func (d *Daemon) Dying() <-chan struct{} {
	return d.tomb.Dying()
}

func (d *Daemon) worker() error {
	if d.cfg.AutoAuthorize {
		if uids := d.mgr.AutoAuthorizeAll(); len(uids) > 0 {
			logger.Noticef("auto-authorized %d devices", len(uids))
		}
	}
	for {
		select {
		case job := <-d.jobs:
			job()
		case <-d.tomb.Dying():
			return nil
		}
	}
}

// run runs f on the worker and waits for it to finish.
func (d *Daemon) run(f func()) error {
	done := make(chan struct{})
	job := func() {
		defer close(done)
		f()
	}
	select {
	case d.jobs <- job:
	case <-d.tomb.Dying():
		return fmt.Errorf("daemon is shutting down")
	}
	<-done
	return nil
}

// authorize authorizes the device on the worker.
func (d *Daemon) authorize(uid string) (res *auth.Result, err error) {
	if qerr := d.run(func() { res, err = d.mgr.Authorize(uid) }); qerr != nil {
		return nil, qerr
	}
	return res, err
}

func (d *Daemon) hotplug(queue <-chan netlink.UEvent, errs <-chan error) error {
	for {
		select {
		case ev := <-queue:
			d.handleUEvent(ev)
		case err := <-errs:
			logger.Noticef("hotplug monitor error: %v", err)
		case <-d.tomb.Dying():
			return nil
		}
	}
}

func (d *Daemon) handleUEvent(ev netlink.UEvent) {
	logger.Debugf("uevent: %s", ev)
	switch ev.Action {
	case netlink.ADD, netlink.REMOVE, netlink.CHANGE:
	default:
		return
	}
	if wait := d.enumerates.Take(1); wait > 0 {
		logger.Debugf("delaying enumeration by %v", wait)
		select {
		case <-time.After(wait):
		case <-d.tomb.Dying():
			return
		}
	}
	if err := d.mgr.Enumerate(); err != nil {
		logger.Noticef("cannot enumerate devices: %v", err)
		return
	}
	if ev.Action != netlink.ADD || !d.cfg.AutoAuthorize {
		return
	}

	path := filepath.Join(dirs.SysfsDevicesDir, filepath.Base(ev.KObj))
	dev, err := d.mgr.LookupSysfs(path)
	if err != nil {
		logger.Debugf("new device at %s is unknown: %v", path, err)
		return
	}
	if dev.Status.IsAuthorized() {
		return
	}
	var done bool
	var reason string
	qerr := d.run(func() { done, reason, err = d.mgr.AutoAuthorize(dev.UID) })
	switch {
	case qerr != nil:
		return
	case err != nil:
		// already logged by the manager
	case !done:
		logger.Debugf("%s", reason)
	}
}
