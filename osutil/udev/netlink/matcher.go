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
	"fmt"
	"regexp"
)

// Matcher filters uevents.
type Matcher interface {
	Compile() error
	Evaluate(e UEvent) bool
}

// RuleDefinition matches events whose action matches Action, any action
// when nil, and whose environment values all match the regular
// expressions in Env. Expressions match whole values.
type RuleDefinition struct {
	Action *string
	Env    map[string]string

	action *regexp.Regexp
	env    map[string]*regexp.Regexp
}

func anchored(expr string) (*regexp.Regexp, error) {
	return regexp.Compile("^(?:" + expr + ")$")
}

// Compile prepares the rule, it must be called before Evaluate.
func (r *RuleDefinition) Compile() error {
	if r.Action != nil {
		re, err := anchored(*r.Action)
		if err != nil {
			return fmt.Errorf("invalid action expression: %v", err)
		}
		r.action = re
	}
	r.env = make(map[string]*regexp.Regexp, len(r.Env))
	for k, expr := range r.Env {
		re, err := anchored(expr)
		if err != nil {
			return fmt.Errorf("invalid expression for %s: %v", k, err)
		}
		r.env[k] = re
	}
	return nil
}

// Evaluate returns true if the event matches the rule.
func (r *RuleDefinition) Evaluate(e UEvent) bool {
	if r.action != nil && !r.action.MatchString(e.Action.String()) {
		return false
	}
	for k, re := range r.env {
		v, ok := e.Env[k]
		if !ok || !re.MatchString(v) {
			return false
		}
	}
	return true
}

// RuleDefinitions matches events matched by any of its rules.
type RuleDefinitions struct {
	Rules []RuleDefinition
}

func (rs *RuleDefinitions) Compile() error {
	for i := range rs.Rules {
		if err := rs.Rules[i].Compile(); err != nil {
			return err
		}
	}
	return nil
}

func (rs *RuleDefinitions) Evaluate(e UEvent) bool {
	for i := range rs.Rules {
		if rs.Rules[i].Evaluate(e) {
			return true
		}
	}
	return false
}
