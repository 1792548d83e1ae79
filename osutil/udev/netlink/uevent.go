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

package netlink

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// KObjAction is the action of a uevent.
type KObjAction string

const (
	ADD     KObjAction = "add"
	REMOVE  KObjAction = "remove"
	CHANGE  KObjAction = "change"
	MOVE    KObjAction = "move"
	ONLINE  KObjAction = "online"
	OFFLINE KObjAction = "offline"
	BIND    KObjAction = "bind"
	UNBIND  KObjAction = "unbind"
)

func (a KObjAction) String() string {
	return string(a)
}

// ParseKObjAction parses the action of a uevent.
func ParseKObjAction(raw string) (KObjAction, error) {
	a := KObjAction(raw)
	switch a {
	case ADD, REMOVE, CHANGE, MOVE, ONLINE, OFFLINE, BIND, UNBIND:
		return a, nil
	}
	return "", fmt.Errorf("unknown kobject action %q", raw)
}

// UEvent is a kernel object event.
type UEvent struct {
	Action KObjAction
	KObj   string
	Env    map[string]string
}

func (e UEvent) String() string {
	keys := make([]string, 0, len(e.Env))
	for k := range e.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "%s@%s", e.Action, e.KObj)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, e.Env[k])
	}
	return b.String()
}

// ParseUEvent parses a kernel uevent message, that is
// "<action>@<devpath>" followed by NUL separated KEY=VALUE pairs.
func ParseUEvent(raw []byte) (*UEvent, error) {
	if bytes.HasPrefix(raw, []byte("libudev")) {
		return nil, fmt.Errorf("cannot parse udev monitor message")
	}
	fields := bytes.Split(bytes.TrimRight(raw, "\x00"), []byte{0})
	if len(fields) == 0 || len(fields[0]) == 0 {
		return nil, fmt.Errorf("empty uevent")
	}

	header := strings.SplitN(string(fields[0]), "@", 2)
	if len(header) != 2 {
		return nil, fmt.Errorf("invalid uevent header %q", fields[0])
	}
	action, err := ParseKObjAction(header[0])
	if err != nil {
		return nil, err
	}

	ev := &UEvent{
		Action: action,
		KObj:   header[1],
		Env:    make(map[string]string, len(fields)-1),
	}
	for _, field := range fields[1:] {
		kv := strings.SplitN(string(field), "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid uevent variable %q", field)
		}
		ev.Env[kv[0]] = kv[1]
	}
	return ev, nil
}
