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

// Package store persists the devices known to boltd.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"
	"go.etcd.io/bbolt"

	"github.com/boltauth/boltd/bolt"
)

// ErrNotFound is returned when no record exists for a device.
var ErrNotFound = errors.New("device not stored")

var devicesBucket = []byte("devices")

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("store: cannot set up cbor encoder: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("store: cannot set up cbor decoder: " + err.Error())
	}
}

var timeNow = time.Now

// Record is what is remembered about a device across reboots.
type Record struct {
	UID      string    `cbor:"1,keyasint"`
	Name     string    `cbor:"2,keyasint,omitempty"`
	Vendor   string    `cbor:"3,keyasint,omitempty"`
	Policy   string    `cbor:"4,keyasint"`
	StoredAt time.Time `cbor:"5,keyasint"`
}

// DevicePolicy returns the parsed policy of the record.
func (r *Record) DevicePolicy() bolt.Policy {
	p, err := bolt.ParsePolicy(r.Policy)
	if err != nil {
		return bolt.PolicyDefault
	}
	return p
}

// Store is a database of device records. The database is only opened,
// and locked, for the duration of each operation so that boltd and
// boltctl can share it.
type Store struct {
	path string
}

// Open prepares the database at path, creating it if needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	s := &Store{path: path}
	if err := s.update(func(*bbolt.Bucket) error { return nil }); err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases the store.
func (s *Store) Close() error {
	return nil
}

func (s *Store) open(readOnly bool) (*bbolt.DB, error) {
	db, err := bbolt.Open(s.path, 0600, &bbolt.Options{
		Timeout:  1 * time.Second,
		ReadOnly: readOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot open device database: %v", err)
	}
	return db, nil
}

func (s *Store) update(f func(b *bbolt.Bucket) error) error {
	db, err := s.open(false)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(devicesBucket)
		if err != nil {
			return fmt.Errorf("cannot create devices bucket: %v", err)
		}
		return f(b)
	})
}

func (s *Store) view(f func(b *bbolt.Bucket) error) error {
	db, err := s.open(true)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(devicesBucket)
		if b == nil {
			return fmt.Errorf("device database has no devices bucket")
		}
		return f(b)
	})
}

// Put stores rec, replacing any previous record of the same device. A
// zero StoredAt is set to the current time.
func (s *Store) Put(rec *Record) error {
	if rec.UID == "" {
		return fmt.Errorf("cannot store device without unique id")
	}
	if rec.StoredAt.IsZero() {
		rec.StoredAt = timeNow().UTC()
	}
	data, err := encMode.Marshal(rec)
	if err != nil {
		return fmt.Errorf("cannot encode record of %s: %v", rec.UID, err)
	}
	return s.update(func(b *bbolt.Bucket) error {
		return b.Put([]byte(rec.UID), data)
	})
}

// Get returns the record of the given device or ErrNotFound.
func (s *Store) Get(uid string) (*Record, error) {
	var rec Record
	err := s.view(func(b *bbolt.Bucket) error {
		data := b.Get([]byte(uid))
		if data == nil {
			return ErrNotFound
		}
		return decMode.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Delete removes the record of the given device, it returns ErrNotFound
// if there was none.
func (s *Store) Delete(uid string) error {
	return s.update(func(b *bbolt.Bucket) error {
		if b.Get([]byte(uid)) == nil {
			return ErrNotFound
		}
		return b.Delete([]byte(uid))
	})
}

// List returns all records sorted by unique id.
func (s *Store) List() ([]*Record, error) {
	var recs []*Record
	err := s.view(func(b *bbolt.Bucket) error {
		return b.ForEach(func(k, v []byte) error {
			var rec Record
			if err := decMode.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("cannot decode record of %s: %v", k, err)
			}
			recs = append(recs, &rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].UID < recs[j].UID })
	return recs, nil
}
