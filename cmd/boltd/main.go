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


package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	sddaemon "github.com/coreos/go-systemd/daemon"

	"github.com/boltauth/boltd/config"
	"github.com/boltauth/boltd/daemon"
	"github.com/boltauth/boltd/dirs"
	"github.com/boltauth/boltd/logger"
	"github.com/boltauth/boltd/manager"
)

var (
	sdWatchdogEnabled = sddaemon.SdWatchdogEnabled
	sdNotify          = sddaemon.SdNotify
)

func init() {
	logger.SimpleSetup(nil)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runWatchdog(dying <-chan struct{}) (*time.Ticker, error) {
	interval, err := sdWatchdogEnabled(false)
	if err != nil {
		return nil, err
	}
	// not running under systemd
	if interval == 0 {
		return nil, nil
	}
	dur := interval / 2
	logger.Debugf("Setting up sd_notify() watchdog timer every %s", dur)
	wt := time.NewTicker(dur)

	go func() {
		for {
			select {
			case <-wt.C:
				if _, err := sdNotify(false, "WATCHDOG=1"); err != nil {
					logger.Noticef("cannot notify watchdog: %v", err)
				}
			case <-dying:
				return
			}
		}
	}()

	return wt, nil
}

func run() error {
	t0 := time.Now().Truncate(time.Millisecond)

	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	cfg, err := config.Load(dirs.BoltConfigFile)
	if err != nil {
		return err
	}
	if cfg.Debug {
		logger.SimpleSetup(&logger.LoggerOptions{ForceDebug: true})
	}

	mgr, err := manager.New(cfg)
	if err != nil {
		return err
	}
	defer mgr.Close()

	if err := mgr.WaitForDomains(); err != nil {
		// devices can still show up via hotplug
		logger.Noticef("%v", err)
	}

	d := daemon.New(mgr, cfg)
	if err := d.Init(); err != nil {
		return err
	}
	d.Start()

	watchdog, err := runWatchdog(d.Dying())
	if err != nil {
		d.Stop()
		return fmt.Errorf("cannot run software watchdog: %v", err)
	}
	if watchdog != nil {
		defer watchdog.Stop()
	}

	logger.Debugf("activation done in %v", time.Now().Truncate(time.Millisecond).Sub(t0))

	select {
	case sig := <-ch:
		logger.Noticef("Exiting on %s signal.\n", sig)
	case <-d.Dying():
		// something called Stop()
	}

	return d.Stop()
}
