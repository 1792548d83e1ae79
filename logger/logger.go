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


// Package logger is the process wide logger of boltd and boltctl.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/boltauth/boltd/osutil"
)

// A Logger receives the messages of the package level functions.
type Logger interface {
	// Notice is for messages the administrator should see.
	Notice(msg string)
	// Debug is for messages that help when debugging boltd.
	Debug(msg string)
}

// DefaultFlags are used for the console logger when running in a
// terminal.
const DefaultFlags = log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile

type nullLogger struct{}

func (nullLogger) Notice(string) {}
func (nullLogger) Debug(string)  {}

var (
	lock   sync.Mutex
	logger Logger = nullLogger{}
)

// SetLogger replaces the global logger.
func SetLogger(l Logger) {
	lock.Lock()
	defer lock.Unlock()

	logger = l
}

// Noticef logs a notice.
func Noticef(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)

	lock.Lock()
	defer lock.Unlock()

	logger.Notice(msg)
}

// Debugf logs a debug message, shown only when debugging is enabled.
func Debugf(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)

	lock.Lock()
	defer lock.Unlock()

	logger.Debug(msg)
}

// Panicf logs the message as a notice and panics with it.
func Panicf(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)

	lock.Lock()
	defer lock.Unlock()

	logger.Notice("PANIC " + msg)
	panic(msg)
}

// LoggerOptions tweak the behavior of a new Logger.
type LoggerOptions struct {
	// ForceDebug enables debug output regardless of BOLTD_DEBUG,
	// e.g. when debug was turned on in the configuration file.
	ForceDebug bool
}

type consoleLogger struct {
	log   *log.Logger
	debug bool
}

// frames between log.Output and the caller of Noticef or Debugf
const calldepth = 3

func (l *consoleLogger) Notice(msg string) {
	l.log.Output(calldepth, msg)
}

func (l *consoleLogger) Debug(msg string) {
	if l.debug || osutil.GetenvBool("BOLTD_DEBUG") {
		l.log.Output(calldepth, "DEBUG: "+msg)
	}
}

// New returns a Logger writing to w with the given log flags.
func New(w io.Writer, flags int, opts *LoggerOptions) Logger {
	if opts == nil {
		opts = &LoggerOptions{}
	}
	return &consoleLogger{
		log:   log.New(w, "", flags),
		debug: opts.ForceDebug,
	}
}

// SimpleSetup logs to stderr. The journal adds timestamps on its own,
// they are only added when running in a terminal.
func SimpleSetup(opts *LoggerOptions) {
	flags := log.Lshortfile
	if os.Getenv("TERM") != "" {
		flags = DefaultFlags
	}
	SetLogger(New(os.Stderr, flags, opts))
}

// MockLogger replaces the global logger with one writing to the returned
// buffer.
func MockLogger() (buf *bytes.Buffer, restore func()) {
	return MockDebugLogger(false)
}

// MockDebugLogger is MockLogger with debug output forced on when
// forceDebug is set.
func MockDebugLogger(forceDebug bool) (buf *bytes.Buffer, restore func()) {
	buf = &bytes.Buffer{}
	lock.Lock()
	old := logger
	lock.Unlock()

	SetLogger(New(buf, DefaultFlags, &LoggerOptions{ForceDebug: forceDebug}))
	return buf, func() {
		SetLogger(old)
	}
}
