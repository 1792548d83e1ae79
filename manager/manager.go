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

// Package manager keeps track of the thunderbolt domains and devices of
// the system and authorizes devices according to their policy.
package manager

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/retry.v1"

	"github.com/boltauth/boltd/auth"
	"github.com/boltauth/boltd/bolt"
	"github.com/boltauth/boltd/config"
	"github.com/boltauth/boltd/dirs"
	"github.com/boltauth/boltd/keystore"
	"github.com/boltauth/boltd/logger"
	"github.com/boltauth/boltd/store"
	"github.com/boltauth/boltd/sysfs"
)

var (
	// ErrDeviceNotFound is returned for devices that are neither
	// connected nor stored.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrNoDomains is returned by WaitForDomains when no thunderbolt
	// domain showed up in time.
	ErrNoDomains = errors.New("no thunderbolt domains found")
)

var waitDomainsStrategy = retry.LimitTime(30*time.Second,
	retry.Exponential{
		Initial:  100 * time.Millisecond,
		Factor:   2,
		MaxDelay: 5 * time.Second,
	},
)

var authorizeDevice = auth.Authorize

// devices are named <domain>-<route>, the route of the host router is 0
var deviceNameRegexp = regexp.MustCompile(`^([0-9]+)-([0-9a-f]+)$`)

// NotConnectedError is returned when authorizing a device that is only
// known from the store.
type NotConnectedError struct {
	UID string
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("device %s is not connected", e.UID)
}

// Manager tracks domains and devices.
type Manager struct {
	cfg  *config.Config
	keys *keystore.Store
	db   *store.Store

	mu      sync.Mutex
	domains map[string]bolt.SecurityLevel
	devices map[string]*bolt.Device

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New returns a manager using the device database and key directory of
// the system. The devices are enumerated right away.
func New(cfg *config.Config) (*Manager, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	db, err := store.Open(dirs.BoltDevicesDB)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		cfg:     cfg,
		keys:    keystore.New(dirs.BoltKeysDir),
		db:      db,
		domains: make(map[string]bolt.SecurityLevel),
		devices: make(map[string]*bolt.Device),
		locks:   make(map[string]*sync.Mutex),
	}
	if err := m.Enumerate(); err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}

// Close releases the device database.
func (m *Manager) Close() error {
	return m.db.Close()
}

// Enumerate rescans sysfs and the device store.
func (m *Manager) Enumerate() error {
	domains := make(map[string]bolt.SecurityLevel)
	devices := make(map[string]*bolt.Device)

	entries, err := os.ReadDir(dirs.SysfsDevicesDir)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cannot enumerate thunderbolt devices: %v", err)
	}

	for _, ent := range entries {
		name := ent.Name()
		if !strings.HasPrefix(name, "domain") {
			continue
		}
		level, err := readDomain(filepath.Join(dirs.SysfsDevicesDir, name))
		if err != nil {
			logger.Noticef("cannot read thunderbolt domain %s: %v", name, err)
			continue
		}
		domains[strings.TrimPrefix(name, "domain")] = level
	}

	for _, ent := range entries {
		name := ent.Name()
		match := deviceNameRegexp.FindStringSubmatch(name)
		if match == nil || match[2] == "0" {
			continue
		}
		dev, err := readDevice(filepath.Join(dirs.SysfsDevicesDir, name))
		if err != nil {
			logger.Noticef("cannot read thunderbolt device %s: %v", name, err)
			continue
		}
		level, ok := domains[match[1]]
		if !ok {
			logger.Noticef("device %s has no domain, assuming security level user", name)
			level = bolt.SecurityUser
		}
		dev.Security = level
		devices[dev.UID] = dev
	}

	recs, err := m.db.List()
	if err != nil {
		return err
	}
	for _, rec := range recs {
		dev := devices[rec.UID]
		if dev == nil {
			dev = &bolt.Device{
				UID:    rec.UID,
				Name:   rec.Name,
				Vendor: rec.Vendor,
				Status: bolt.StatusDisconnected,
			}
			devices[rec.UID] = dev
		}
		dev.Stored = true
		dev.Policy = rec.DevicePolicy()
	}

	for uid, dev := range devices {
		if m.keys.HasKey(uid) {
			dev.Key = bolt.KeyHave
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for uid, dev := range devices {
		old := m.devices[uid]
		if old == nil || !dev.Connected() {
			continue
		}
		// sysfs cannot tell these apart from plain states
		switch {
		case old.Status == bolt.StatusAuthError && dev.Status == bolt.StatusConnected:
			dev.Status = old.Status
		case old.Status == bolt.StatusAuthorizedNewKey && dev.Status == bolt.StatusAuthorized:
			dev.Status = old.Status
		}
		if old.Key == bolt.KeyNew && dev.Key == bolt.KeyHave {
			dev.Key = bolt.KeyNew
		}
	}
	m.domains = domains
	m.devices = devices
	logger.Debugf("found %d thunderbolt domains and %d devices", len(domains), len(devices))
	return nil
}

func readDomain(path string) (bolt.SecurityLevel, error) {
	dir, err := sysfs.OpenDir(path)
	if err != nil {
		return bolt.SecurityNone, err
	}
	defer dir.Close()

	security, err := dir.ReadAttr("security")
	if err != nil {
		return bolt.SecurityNone, err
	}
	return bolt.ParseSecurityLevel(security)
}

func readDevice(path string) (*bolt.Device, error) {
	dir, err := sysfs.OpenDir(path)
	if err != nil {
		return nil, err
	}
	defer dir.Close()

	uid, err := dir.ReadAttr("unique_id")
	if err != nil {
		return nil, err
	}
	if uid == "" {
		return nil, fmt.Errorf("empty unique id")
	}
	dev := &bolt.Device{
		UID:       uid,
		SysfsPath: path,
		Status:    bolt.StatusUnknown,
	}
	// optional attributes
	dev.Name, _ = dir.ReadAttr("device_name")
	dev.Vendor, _ = dir.ReadAttr("vendor_name")
	if authorized, err := dir.ReadAttr("authorized"); err == nil {
		dev.Status = bolt.StatusFromAuthorized(authorized)
	}
	return dev, nil
}

// WaitForDomains enumerates until at least one thunderbolt domain is
// present. Domains can show up late during boot.
func (m *Manager) WaitForDomains() error {
	for attempt := retry.Start(waitDomainsStrategy, nil); attempt.Next(); {
		if err := m.Enumerate(); err != nil {
			return err
		}
		m.mu.Lock()
		n := len(m.domains)
		m.mu.Unlock()
		if n > 0 {
			return nil
		}
		logger.Debugf("no thunderbolt domain yet (attempt %d)", attempt.Count())
	}
	return ErrNoDomains
}

// Domains returns the security level of every domain by domain number.
func (m *Manager) Domains() map[string]bolt.SecurityLevel {
	m.mu.Lock()
	defer m.mu.Unlock()

	domains := make(map[string]bolt.SecurityLevel, len(m.domains))
	for k, v := range m.domains {
		domains[k] = v
	}
	return domains
}

// SecurityLevel returns the level enforced for the given device.
func (m *Manager) SecurityLevel(dev *bolt.Device) bolt.SecurityLevel {
	if match := deviceNameRegexp.FindStringSubmatch(filepath.Base(dev.SysfsPath)); match != nil {
		m.mu.Lock()
		defer m.mu.Unlock()
		if level, ok := m.domains[match[1]]; ok {
			return level
		}
	}
	return dev.Security
}

// Devices returns copies of all known devices, sorted by unique id.
func (m *Manager) Devices() []*bolt.Device {
	m.mu.Lock()
	defer m.mu.Unlock()

	devs := make([]*bolt.Device, 0, len(m.devices))
	for _, dev := range m.devices {
		cpy := *dev
		devs = append(devs, &cpy)
	}
	sort.Slice(devs, func(i, j int) bool { return devs[i].UID < devs[j].UID })
	return devs
}

// Lookup returns a copy of the device with the given unique id.
func (m *Manager) Lookup(uid string) (*bolt.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dev := m.devices[uid]
	if dev == nil {
		return nil, ErrDeviceNotFound
	}
	cpy := *dev
	return &cpy, nil
}

// LookupSysfs returns a copy of the connected device at the given sysfs
// path.
func (m *Manager) LookupSysfs(path string) (*bolt.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, dev := range m.devices {
		if dev.SysfsPath == path {
			cpy := *dev
			return &cpy, nil
		}
	}
	return nil, ErrDeviceNotFound
}

func (m *Manager) update(uid string, f func(dev *bolt.Device)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if dev := m.devices[uid]; dev != nil {
		f(dev)
	}
}

func (m *Manager) deviceLock(uid string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()

	l := m.locks[uid]
	if l == nil {
		l = &sync.Mutex{}
		m.locks[uid] = l
	}
	return l
}

// Authorize authorizes the connected device with the given unique id at
// the security level of its domain. Authorizations of the same device are
// serialized.
func (m *Manager) Authorize(uid string) (*auth.Result, error) {
	l := m.deviceLock(uid)
	l.Lock()
	defer l.Unlock()

	dev, err := m.Lookup(uid)
	if err != nil {
		return nil, err
	}
	if !dev.Connected() {
		return nil, &NotConnectedError{UID: uid}
	}

	m.update(uid, func(dev *bolt.Device) { dev.Status = bolt.StatusAuthorizing })

	req := &auth.Request{
		UID:       dev.UID,
		SysfsPath: dev.SysfsPath,
		Level:     m.SecurityLevel(dev),
	}
	res, err := authorizeDevice(req, m.keys, &auth.Options{FreshKey: m.cfg.FreshKey})
	if err != nil {
		m.update(uid, func(dev *bolt.Device) { dev.Status = bolt.StatusAuthError })
		logger.Noticef("cannot authorize device %s: %v", uid, err)
		return nil, err
	}

	m.update(uid, func(dev *bolt.Device) {
		switch {
		case res.Level == bolt.SecuritySecure:
			dev.Status = bolt.StatusAuthorizedSecure
		case res.KeyCreated:
			dev.Status = bolt.StatusAuthorizedNewKey
		default:
			dev.Status = bolt.StatusAuthorized
		}
		if res.KeyCreated {
			dev.Key = bolt.KeyNew
		}
	})
	logger.Noticef("authorized device %s (%s) at level %s", uid, dev.Name, res.Level)
	return res, nil
}

// AutoAuthorize authorizes the device if it is stored with the auto
// policy. Otherwise nothing is done, done is false and reason says why.
func (m *Manager) AutoAuthorize(uid string) (done bool, reason string, err error) {
	dev, err := m.Lookup(uid)
	if err != nil {
		return false, "", err
	}
	if !dev.Stored {
		return false, fmt.Sprintf("thunderbolt device %s not in store", uid), nil
	}
	if dev.Policy != bolt.PolicyAuto {
		return false, fmt.Sprintf("thunderbolt device %s not setup for auto authorization", uid), nil
	}
	if _, err := m.Authorize(uid); err != nil {
		return false, "", err
	}
	return true, "", nil
}

// AutoAuthorizeAll authorizes every connected and unauthorized device
// that is stored with the auto policy. Failures are logged.
func (m *Manager) AutoAuthorizeAll() (authorized []string) {
	for _, dev := range m.Devices() {
		if !dev.Connected() || dev.Status.IsAuthorized() {
			continue
		}
		if !dev.Stored || dev.Policy != bolt.PolicyAuto {
			continue
		}
		if _, err := m.Authorize(dev.UID); err != nil {
			continue
		}
		authorized = append(authorized, dev.UID)
	}
	return authorized
}

// Store remembers the device with the given policy.
func (m *Manager) Store(uid string, policy bolt.Policy) error {
	dev, err := m.Lookup(uid)
	if err != nil {
		return err
	}
	rec := &store.Record{
		UID:    dev.UID,
		Name:   dev.Name,
		Vendor: dev.Vendor,
		Policy: policy.String(),
	}
	if err := m.db.Put(rec); err != nil {
		return fmt.Errorf("cannot store device %s: %v", uid, err)
	}
	m.update(uid, func(dev *bolt.Device) {
		dev.Stored = true
		dev.Policy = policy
	})
	logger.Debugf("stored device %s with policy %s", uid, policy)
	return nil
}

// Forget removes the device from the store and deletes its key.
func (m *Manager) Forget(uid string) error {
	l := m.deviceLock(uid)
	l.Lock()
	defer l.Unlock()

	if _, err := m.Lookup(uid); err != nil {
		return err
	}
	if err := m.db.Delete(uid); err != nil && err != store.ErrNotFound {
		return fmt.Errorf("cannot forget device %s: %v", uid, err)
	}
	if err := m.keys.RemoveKey(uid); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if dev := m.devices[uid]; dev != nil && dev.Connected() {
		dev.Stored = false
		dev.Policy = bolt.PolicyDefault
		dev.Key = bolt.KeyMissing
	} else {
		delete(m.devices, uid)
	}
	logger.Noticef("forgot device %s", uid)
	return nil
}
