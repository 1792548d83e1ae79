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
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// ErrAlreadyLocked is returned by TryLock when another open file
// description holds the lock.
var ErrAlreadyLocked = errors.New("cannot acquire lock, already locked")

var unixFlock = unix.Flock

// FileLock is an advisory flock(2) lock on a file. It serializes
// processes, and goroutines that open the lock file independently.
type FileLock struct {
	file *os.File
}

// NewFileLock creates and opens the lock file at path with mode 0600.
func NewFileLock(path string) (*FileLock, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0600)
	if err != nil {
		return nil, err
	}
	return &FileLock{file: file}, nil
}

// Close closes the lock file, releasing the lock if held.
func (l *FileLock) Close() error {
	return l.file.Close()
}

func (l *FileLock) flock(how int) error {
	for {
		err := unixFlock(int(l.file.Fd()), how)
		if err != unix.EINTR {
			return err
		}
	}
}

// Lock takes the exclusive lock, waiting for it to be released if needed.
func (l *FileLock) Lock() error {
	return l.flock(unix.LOCK_EX)
}

// TryLock takes the exclusive lock or fails with ErrAlreadyLocked.
func (l *FileLock) TryLock() error {
	err := l.flock(unix.LOCK_EX | unix.LOCK_NB)
	if err == unix.EWOULDBLOCK {
		return ErrAlreadyLocked
	}
	return err
}

// Unlock releases the lock.
func (l *FileLock) Unlock() error {
	return l.flock(unix.LOCK_UN)
}
