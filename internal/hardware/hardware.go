// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package hardware models hotplugged devices and the policy groups used
// to decide whether a device is interesting to the managed instance.
// Consumers only see the boolean predicate; enumeration and cgroup rule
// generation live outside caretaker.
package hardware

import "strings"

// Device is one kernel device as reported by the host's event source.
type Device struct {
	SysName    string
	DevPath    string
	Subsystem  string
	Properties map[string]string
}

// PolicyGroup names a class of devices the instance may claim.
type PolicyGroup string

const (
	PolicyUART  PolicyGroup = "uart"
	PolicyUSB   PolicyGroup = "usb"
	PolicyGPIO  PolicyGroup = "gpio"
	PolicyVideo PolicyGroup = "video"
	PolicyAudio PolicyGroup = "audio"
)

// Policy decides whether a device belongs to a policy group.
type Policy interface {
	Matches(group PolicyGroup, device Device) bool
}

// RulePolicy is the default Policy: subsystem plus sysname-prefix rules
// per group.
type RulePolicy struct{}

var groupRules = map[PolicyGroup][]rule{
	PolicyUART: {
		{subsystem: "tty", prefixes: []string{"ttyUSB", "ttyACM", "ttyAMA", "ttyS"}},
	},
	PolicyUSB: {
		{subsystem: "usb"},
	},
	PolicyGPIO: {
		{subsystem: "gpio"},
		{subsystem: "gpiomem"},
	},
	PolicyVideo: {
		{subsystem: "video4linux"},
		{subsystem: "media"},
	},
	PolicyAudio: {
		{subsystem: "sound"},
	},
}

type rule struct {
	subsystem string
	prefixes  []string
}

// Matches implements Policy.
func (RulePolicy) Matches(group PolicyGroup, device Device) bool {
	for _, r := range groupRules[group] {
		if r.subsystem != device.Subsystem {
			continue
		}
		if len(r.prefixes) == 0 {
			return true
		}
		for _, p := range r.prefixes {
			if strings.HasPrefix(device.SysName, p) {
				return true
			}
		}
	}
	return false
}
