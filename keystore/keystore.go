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

// Package keystore keeps the secret keys used to authorize devices at
// the secure security level. There is one key file per device, named
// after the device's unique id.
package keystore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/boltauth/boltd/bolt"
	"github.com/boltauth/boltd/osutil"
	"github.com/boltauth/boltd/randutil"
)

// ErrNoKey is returned when a device has no key and creating one was not
// allowed.
var ErrNoKey = errors.New("no key for device")

const lockName = ".lock"

var cryptoHexToken = randutil.CryptoHexToken

// Store is a directory of device keys.
type Store struct {
	dir string

	// serializes key creation within the process, the flock on
	// dir/.lock does the same across processes
	mu sync.Mutex
}

// New returns a key store backed by the given directory. The directory
// is created on first use.
func New(dir string) *Store {
	return &Store{dir: dir}
}

func validateUID(uid string) error {
	if uid == "" || uid == "." || uid == ".." || uid == lockName || strings.ContainsRune(uid, '/') {
		return fmt.Errorf("invalid device uid %q", uid)
	}
	return nil
}

// KeyPath returns the path of the key file for the given uid.
func (s *Store) KeyPath(uid string) string {
	return filepath.Join(s.dir, uid)
}

// HasKey returns true if there is a key for the given uid.
func (s *Store) HasKey(uid string) bool {
	if validateUID(uid) != nil {
		return false
	}
	return osutil.FileExists(s.KeyPath(uid))
}

func (s *Store) lock() (unlock func(), err error) {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return nil, fmt.Errorf("cannot create key directory: %v", err)
	}
	flock, err := osutil.NewFileLock(filepath.Join(s.dir, lockName))
	if err != nil {
		return nil, fmt.Errorf("cannot open key store lock: %v", err)
	}
	if err := flock.Lock(); err != nil {
		flock.Close()
		return nil, fmt.Errorf("cannot lock key store: %v", err)
	}
	return func() { flock.Close() }, nil
}

// EnsureKey returns the path to the key of the device with the given uid.
// If there is no key and allowCreate is set a new one is generated and
// created is true, otherwise ErrNoKey is returned.
func (s *Store) EnsureKey(uid string, allowCreate bool) (path string, created bool, err error) {
	if err := validateUID(uid); err != nil {
		return "", false, err
	}
	path = s.KeyPath(uid)

	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lock()
	if err != nil {
		return "", false, err
	}
	defer unlock()

	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	} else if !os.IsNotExist(err) {
		return "", false, fmt.Errorf("cannot check key for %s: %v", uid, err)
	}

	if !allowCreate {
		return "", false, ErrNoKey
	}

	key, err := cryptoHexToken(bolt.KeyChars / 2)
	if err != nil {
		return "", false, fmt.Errorf("cannot generate key for %s: %v", uid, err)
	}
	defer clear(key)

	if err := osutil.AtomicWriteFile(path, key, 0600); err != nil {
		return "", false, fmt.Errorf("cannot store key for %s: %v", uid, err)
	}
	return path, true, nil
}

// RemoveKey removes the key of the device with the given uid, if any.
func (s *Store) RemoveKey(uid string) error {
	if err := validateUID(uid); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.Remove(s.KeyPath(uid)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cannot remove key for %s: %v", uid, err)
	}
	return nil
}
