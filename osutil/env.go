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


package osutil

import (
	"os"
	"strconv"
	"strings"
)

// GetenvBool reports whether the environment variable key holds a true
// value, as understood by strconv.ParseBool. An unset or unparsable
// variable yields the optional default, or false.
func GetenvBool(key string, dflt ...bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return len(dflt) > 0 && dflt[0]
	}
	return b
}

// IsTestBinary returns true when running as a "go test" binary.
func IsTestBinary() bool {
	return len(os.Args) > 0 && strings.HasSuffix(os.Args[0], ".test")
}
