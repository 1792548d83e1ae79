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

package auth

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/boltauth/boltd/osutil"
)

// ErrorKind classifies authorization failures.
type ErrorKind int

const (
	// ErrorKindIO is a failed open, read, write or close.
	ErrorKindIO ErrorKind = iota + 1
	// ErrorKindIncomplete is a read or write that transferred fewer
	// bytes than required.
	ErrorKindIncomplete
	// ErrorKindIdentityMismatch means the device directory does not
	// belong to the device that was asked to be authorized.
	ErrorKindIdentityMismatch
	// ErrorKindKey is a failure to obtain the device key.
	ErrorKindKey
	// ErrorKindInvalid is a malformed request.
	ErrorKindInvalid
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindIO:
		return "io"
	case ErrorKindIncomplete:
		return "incomplete"
	case ErrorKindIdentityMismatch:
		return "identity-mismatch"
	case ErrorKindKey:
		return "key"
	case ErrorKindInvalid:
		return "invalid"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is the error returned by Authorize.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Code returns the system error code behind the failure if there is one,
// otherwise the numeric error kind.
func (e *Error) Code() int {
	var errno unix.Errno
	if errors.As(e.Err, &errno) {
		return int(errno)
	}
	return int(e.Kind)
}

// IsKind returns true if err is an authorization error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func ioError(msg string, err error) *Error {
	kind := ErrorKindIO
	if osutil.IsIncomplete(err) {
		kind = ErrorKindIncomplete
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}
