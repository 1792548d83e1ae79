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


package main_test

import (
	"os"
	"path/filepath"

	. "gopkg.in/check.v1"

	main "github.com/boltauth/boltd/cmd/boltctl"
	"github.com/boltauth/boltd/bolt"
	"github.com/boltauth/boltd/dirs"
	"github.com/boltauth/boltd/store"
	"github.com/boltauth/boltd/testutil"
)

type authorizeSuite struct {
	BaseBoltctlSuite
}

var _ = Suite(&authorizeSuite{})

func (s *authorizeSuite) storedRecord(c *C, uid string) *store.Record {
	st, err := store.Open(dirs.BoltDevicesDB)
	c.Assert(err, IsNil)
	defer st.Close()
	rec, err := st.Get(uid)
	c.Assert(err, IsNil)
	return rec
}

func (s *authorizeSuite) TestAuthorizeUser(c *C) {
	mockDomain(c, "0", "user")
	dir := mockDevice(c, "0-1", uidDock)

	_, err := main.Parser().ParseArgs([]string{"authorize", uidDock})
	c.Assert(err, IsNil)
	c.Check(s.Stdout(), Equals, uidDock+" authorized (user)\n")
	c.Check(s.Stderr(), Equals, "")
	c.Check(filepath.Join(dir, "authorized"), testutil.FileEquals, "1")
	c.Check(filepath.Join(dir, "key"), testutil.FileEquals, "")

	st, err := store.Open(dirs.BoltDevicesDB)
	c.Assert(err, IsNil)
	defer st.Close()
	_, err = st.Get(uidDock)
	c.Check(err, Equals, store.ErrNotFound)
}

func (s *authorizeSuite) TestAuthorizeSecureTwice(c *C) {
	mockDomain(c, "0", "secure")
	dir := mockDevice(c, "0-1", uidDock)

	_, err := main.Parser().ParseArgs([]string{"authorize", uidDock})
	c.Assert(err, IsNil)
	c.Check(s.Stdout(), Equals, uidDock+" authorized (user)\n")
	c.Check(filepath.Join(dir, "authorized"), testutil.FileEquals, "1")

	key, err := os.ReadFile(filepath.Join(dirs.BoltKeysDir, uidDock))
	c.Assert(err, IsNil)
	c.Check(key, HasLen, bolt.KeyChars)
	c.Check(filepath.Join(dir, "key"), testutil.FileEquals, string(key))

	s.ResetStdStreams()
	c.Assert(os.WriteFile(filepath.Join(dir, "authorized"), []byte("0"), 0644), IsNil)

	_, err = main.Parser().ParseArgs([]string{"authorize", uidDock})
	c.Assert(err, IsNil)
	c.Check(s.Stdout(), Equals, uidDock+" authorized (secure)\n")
	c.Check(filepath.Join(dir, "authorized"), testutil.FileEquals, "2")
}

func (s *authorizeSuite) TestAuthorizeStore(c *C) {
	mockDomain(c, "0", "user")
	mockDevice(c, "0-1", uidDock)

	_, err := main.Parser().ParseArgs([]string{"authorize", "--store", uidDock})
	c.Assert(err, IsNil)

	rec := s.storedRecord(c, uidDock)
	c.Check(rec.Name, Equals, "Thunderbolt Dock")
	c.Check(rec.Vendor, Equals, "Lenovo")
	c.Check(rec.DevicePolicy(), Equals, bolt.PolicyDefault)
}

func (s *authorizeSuite) TestAuthorizeAutoImpliesStore(c *C) {
	mockDomain(c, "0", "user")
	mockDevice(c, "0-1", uidDock)

	_, err := main.Parser().ParseArgs([]string{"authorize", "--auto", uidDock})
	c.Assert(err, IsNil)

	rec := s.storedRecord(c, uidDock)
	c.Check(rec.DevicePolicy(), Equals, bolt.PolicyAuto)
}

func (s *authorizeSuite) TestAuthorizeStoreKeepsPolicy(c *C) {
	mockDomain(c, "0", "user")
	mockDevice(c, "0-1", uidDock)

	_, err := main.Parser().ParseArgs([]string{"authorize", "--auto", uidDock})
	c.Assert(err, IsNil)
	_, err = main.Parser().ParseArgs([]string{"authorize", "--store", uidDock})
	c.Assert(err, IsNil)

	rec := s.storedRecord(c, uidDock)
	c.Check(rec.DevicePolicy(), Equals, bolt.PolicyAuto)
}

func (s *authorizeSuite) TestAuthorizeNotFound(c *C) {
	mockDomain(c, "0", "user")

	_, err := main.Parser().ParseArgs([]string{"authorize", uidDock})
	c.Check(err, ErrorMatches, "cannot find device "+uidDock+": device not found")
}

func (s *authorizeSuite) TestAuthorizeShortKey(c *C) {
	mockDomain(c, "0", "secure")
	dir := mockDevice(c, "0-1", uidDock)
	c.Assert(os.MkdirAll(dirs.BoltKeysDir, 0700), IsNil)
	c.Assert(os.WriteFile(filepath.Join(dirs.BoltKeysDir, uidDock), []byte("abcd"), 0600), IsNil)

	_, err := main.Parser().ParseArgs([]string{"authorize", "--store", uidDock})
	c.Check(err, ErrorMatches, `cannot authorize device: .* \[2\]`)
	c.Check(filepath.Join(dir, "authorized"), testutil.FileEquals, "0")
	c.Check(filepath.Join(dir, "key"), testutil.FileEquals, "")
	c.Check(s.Stdout(), Equals, "")

	st, err := store.Open(dirs.BoltDevicesDB)
	c.Assert(err, IsNil)
	defer st.Close()
	_, err = st.Get(uidDock)
	c.Check(err, Equals, store.ErrNotFound)
}

func (s *authorizeSuite) TestAuthorizeMissingAttribute(c *C) {
	mockDomain(c, "0", "user")
	dir := mockDevice(c, "0-1", uidDock)
	c.Assert(os.Remove(filepath.Join(dir, "authorized")), IsNil)

	_, err := main.Parser().ParseArgs([]string{"authorize", uidDock})
	c.Check(err, ErrorMatches, `cannot authorize device: cannot open authorized attribute: .* \[2\]`)
}

func (s *authorizeSuite) TestAuto(c *C) {
	mockDomain(c, "0", "user")
	dir := mockDevice(c, "0-1", uidDock)

	_, err := main.Parser().ParseArgs([]string{"auto", uidDock})
	c.Assert(err, IsNil)
	c.Check(s.Stdout(), Equals, "thunderbolt device "+uidDock+" not in store\n")
	c.Check(filepath.Join(dir, "authorized"), testutil.FileEquals, "0")

	s.ResetStdStreams()
	_, err = main.Parser().ParseArgs([]string{"authorize", "--store", uidDock})
	c.Assert(err, IsNil)
	c.Assert(os.WriteFile(filepath.Join(dir, "authorized"), []byte("0"), 0644), IsNil)

	s.ResetStdStreams()
	_, err = main.Parser().ParseArgs([]string{"auto", uidDock})
	c.Assert(err, IsNil)
	c.Check(s.Stdout(), Equals, "thunderbolt device "+uidDock+" not setup for auto authorization\n")
	c.Check(filepath.Join(dir, "authorized"), testutil.FileEquals, "0")

	_, err = main.Parser().ParseArgs([]string{"authorize", "--auto", uidDock})
	c.Assert(err, IsNil)
	c.Assert(os.WriteFile(filepath.Join(dir, "authorized"), []byte("0"), 0644), IsNil)

	s.ResetStdStreams()
	_, err = main.Parser().ParseArgs([]string{"auto", uidDock})
	c.Assert(err, IsNil)
	c.Check(s.Stdout(), Equals, uidDock+" authorized\n")
	c.Check(filepath.Join(dir, "authorized"), testutil.FileEquals, "1")
}

func (s *authorizeSuite) TestAutoNotFound(c *C) {
	_, err := main.Parser().ParseArgs([]string{"auto", uidDock})
	c.Check(err, ErrorMatches, "cannot find device "+uidDock+": device not found")
}

func (s *authorizeSuite) TestForget(c *C) {
	mockDomain(c, "0", "secure")
	mockDevice(c, "0-1", uidDock)

	_, err := main.Parser().ParseArgs([]string{"authorize", "--auto", uidDock})
	c.Assert(err, IsNil)
	c.Check(filepath.Join(dirs.BoltKeysDir, uidDock), testutil.FilePresent)

	s.ResetStdStreams()
	_, err = main.Parser().ParseArgs([]string{"forget", uidDock})
	c.Assert(err, IsNil)
	c.Check(s.Stdout(), Equals, uidDock+" forgotten\n")
	c.Check(filepath.Join(dirs.BoltKeysDir, uidDock), testutil.FileAbsent)

	st, err := store.Open(dirs.BoltDevicesDB)
	c.Assert(err, IsNil)
	defer st.Close()
	_, err = st.Get(uidDock)
	c.Check(err, Equals, store.ErrNotFound)
}

func (s *authorizeSuite) TestList(c *C) {
	mockDomain(c, "0", "user")
	mockDevice(c, "0-1", uidDock)

	st, err := store.Open(dirs.BoltDevicesDB)
	c.Assert(err, IsNil)
	c.Assert(st.Put(&store.Record{UID: uidDrive, Name: "Drive", Policy: "manual"}), IsNil)
	c.Assert(st.Close(), IsNil)

	_, err = main.Parser().ParseArgs([]string{"list"})
	c.Assert(err, IsNil)
	c.Check(s.Stdout(), Equals, ""+
		"UID                                   Name              Vendor  Status        Policy   Stored\n"+
		"c6030000-0060-6c0e-0300-a48d90a80d21  Drive             -       disconnected  manual   yes\n"+
		"d2010000-0000-8f18-2386-a1a60a112108  Thunderbolt Dock  Lenovo  connected     default  no\n")
}

func (s *authorizeSuite) TestListEmpty(c *C) {
	_, err := main.Parser().ParseArgs([]string{"list"})
	c.Assert(err, IsNil)
	c.Check(s.Stdout(), Equals, "No thunderbolt devices.\n")
}

func (s *authorizeSuite) TestListTruncatesNames(c *C) {
	st, err := store.Open(dirs.BoltDevicesDB)
	c.Assert(err, IsNil)
	c.Assert(st.Put(&store.Record{UID: uidDrive, Name: "Thunderbolt 3 Dock Gen 2 Professional", Policy: "auto"}), IsNil)
	c.Assert(st.Close(), IsNil)

	_, err = main.Parser().ParseArgs([]string{"list"})
	c.Assert(err, IsNil)
	c.Check(s.Stdout(), Equals, ""+
		"UID                                   Name                      Vendor  Status        Policy  Stored\n"+
		"c6030000-0060-6c0e-0300-a48d90a80d21  Thunderbolt 3 Dock Ge...  -       disconnected  auto    yes\n")
}

func (s *authorizeSuite) TestInfoConnected(c *C) {
	mockDomain(c, "0", "secure")
	dir := mockDevice(c, "0-1", uidDock)

	_, err := main.Parser().ParseArgs([]string{"info", uidDock})
	c.Assert(err, IsNil)
	c.Check(s.Stdout(), Equals, ""+
		"uid: "+uidDock+"\n"+
		"name: Thunderbolt Dock\n"+
		"vendor: Lenovo\n"+
		"status: connected\n"+
		"security: secure\n"+
		"policy: default\n"+
		"stored: false\n"+
		"key: missing\n"+
		"sysfs-path: "+dir+"\n")
}

func (s *authorizeSuite) TestInfoStored(c *C) {
	st, err := store.Open(dirs.BoltDevicesDB)
	c.Assert(err, IsNil)
	c.Assert(st.Put(&store.Record{UID: uidDrive, Policy: "manual"}), IsNil)
	c.Assert(st.Close(), IsNil)

	_, err = main.Parser().ParseArgs([]string{"info", uidDrive})
	c.Assert(err, IsNil)
	c.Check(s.Stdout(), Equals, ""+
		"uid: "+uidDrive+"\n"+
		"status: disconnected\n"+
		"policy: manual\n"+
		"stored: true\n"+
		"key: missing\n")
}

func (s *authorizeSuite) TestInfoNotFound(c *C) {
	_, err := main.Parser().ParseArgs([]string{"info", uidDock})
	c.Check(err, ErrorMatches, "cannot find device "+uidDock+": device not found")
}
