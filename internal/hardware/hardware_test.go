// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package hardware

import "testing"

func TestRulePolicy_UART(t *testing.T) {
	p := RulePolicy{}

	uart := Device{SysName: "ttyUSB0", Subsystem: "tty"}
	if !p.Matches(PolicyUART, uart) {
		t.Error("ttyUSB0 should match UART group")
	}

	console := Device{SysName: "tty1", Subsystem: "tty"}
	if p.Matches(PolicyUART, console) {
		t.Error("tty1 should not match UART group")
	}

	disk := Device{SysName: "sda", Subsystem: "block"}
	if p.Matches(PolicyUART, disk) {
		t.Error("block device should not match UART group")
	}
}

func TestRulePolicy_SubsystemOnlyGroups(t *testing.T) {
	p := RulePolicy{}

	if !p.Matches(PolicyUSB, Device{SysName: "1-1.2", Subsystem: "usb"}) {
		t.Error("usb subsystem should match USB group")
	}
	if !p.Matches(PolicyVideo, Device{SysName: "video0", Subsystem: "video4linux"}) {
		t.Error("video4linux should match video group")
	}
	if p.Matches(PolicyGPIO, Device{SysName: "video0", Subsystem: "video4linux"}) {
		t.Error("video4linux should not match gpio group")
	}
}
