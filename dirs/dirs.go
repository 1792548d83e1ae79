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

package dirs

import (
	"os"
	"path/filepath"
)

// the various file paths
var (
	GlobalRootDir string

	SysfsDir        string
	SysfsDevicesDir string
	BoltStateDir    string
	BoltKeysDir     string
	BoltDevicesDB   string
	BoltConfigFile  string
	LocaleDir       string
)

const (
	defaultRootDir = "/"

	// sysfs bus directory holding thunderbolt domains and devices
	thunderboltBusDir = "/sys/bus/thunderbolt/devices"
)

func init() {
	// init the global directories at startup
	root := os.Getenv("BOLTD_ROOT")

	SetRootDir(root)
}

// SetRootDir allows settings a new global root directory, this is useful
// for e.g. chroot operations
func SetRootDir(rootdir string) {
	if rootdir == "" {
		rootdir = defaultRootDir
	}
	GlobalRootDir = rootdir

	SysfsDir = filepath.Join(rootdir, "/sys")
	SysfsDevicesDir = filepath.Join(rootdir, thunderboltBusDir)

	BoltStateDir = filepath.Join(rootdir, "/var/lib/boltd")
	BoltKeysDir = filepath.Join(BoltStateDir, "keys")
	BoltDevicesDB = filepath.Join(BoltStateDir, "devices.db")

	BoltConfigFile = filepath.Join(rootdir, "/etc/boltd/boltd.conf")

	LocaleDir = filepath.Join(rootdir, "/usr/share/locale")
}
