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

// Package config reads the boltd configuration file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/mvo5/goconfigparser"

	"github.com/boltauth/boltd/auth"
)

const section = "boltd"

// Config is the boltd configuration.
type Config struct {
	// FreshKey is the level asserted when a device key is created.
	FreshKey auth.FreshKeyPolicy
	// AutoAuthorize makes the daemon authorize connected devices with
	// the auto policy when it starts.
	AutoAuthorize bool
	// Debug enables debug logging.
	Debug bool
}

// Default returns the configuration used when there is no config file.
func Default() *Config {
	return &Config{
		FreshKey:      auth.FreshKeyAssertUser,
		AutoAuthorize: true,
	}
}

// Load reads the config file at path. A missing file gives the defaults,
// so do missing options.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("cannot parse %s: %v", path, err)
	}
	return cfg, nil
}

// Parse parses the content of a config file.
func Parse(content string) (*Config, error) {
	parser := goconfigparser.New()
	if err := parser.ReadString(content); err != nil {
		return nil, err
	}

	cfg := Default()
	if v, err := parser.Get(section, "fresh-key-level"); err == nil {
		cfg.FreshKey, err = auth.ParseFreshKeyPolicy(v)
		if err != nil {
			return nil, err
		}
	}
	if err := getBool(parser, "auto-authorize", &cfg.AutoAuthorize); err != nil {
		return nil, err
	}
	if err := getBool(parser, "debug", &cfg.Debug); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getBool(parser *goconfigparser.ConfigParser, option string, dst *bool) error {
	v, err := parser.Get(section, option)
	if err != nil {
		// unset
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid value %q for %s", v, option)
	}
	*dst = b
	return nil
}
