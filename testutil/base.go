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

package testutil

import (
	"reflect"

	"gopkg.in/check.v1"
)

// BaseTest is a structure used as a base test suite for many of the tests.
type BaseTest struct {
	cleanupHandlers []func()
}

// SetUpTest prepares the cleanup
func (s *BaseTest) SetUpTest(c *check.C) {
	s.cleanupHandlers = nil
}

// TearDownTest runs the cleanup handlers
func (s *BaseTest) TearDownTest(c *check.C) {
	// run cleanup handlers in reverse order and clear the list
	for i := len(s.cleanupHandlers) - 1; i >= 0; i-- {
		s.cleanupHandlers[i]()
	}
	s.cleanupHandlers = nil
}

// AddCleanup adds a new cleanup function to the test
func (s *BaseTest) AddCleanup(f func()) {
	s.cleanupHandlers = append(s.cleanupHandlers, f)
}

// Backup remembers the current value of the given variables and
// returns a function that restores them.
func Backup(mockablesByPtr ...interface{}) (restore func()) {
	type saved struct {
		ptr reflect.Value
		val reflect.Value
	}
	backup := make([]saved, 0, len(mockablesByPtr))
	for _, ptr := range mockablesByPtr {
		rv := reflect.ValueOf(ptr)
		if rv.Type().Kind() != reflect.Ptr {
			panic("Backup: parameter must be a pointer")
		}
		elem := rv.Elem()
		val := reflect.New(elem.Type()).Elem()
		val.Set(elem)
		backup = append(backup, saved{ptr: elem, val: val})
	}

	return func() {
		for _, b := range backup {
			b.ptr.Set(b.val)
		}
	}
}

// Mock sets the mockable variable pointed to by mockablePtr to mocked
// and returns a function that restores the original value.
func Mock[T any](mockablePtr *T, mocked T) (restore func()) {
	old := *mockablePtr
	*mockablePtr = mocked
	return func() {
		*mockablePtr = old
	}
}
