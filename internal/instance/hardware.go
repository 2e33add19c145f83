// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package instance

import (
	"context"

	"grimm.is/caretaker/internal/hardware"
)

// minUSBScanVersion is the first instance version implementing the
// usb/scan command.
const minUSBScanVersion = "2021.9.0"

// usbComponent is the instance feature that must be loaded for a rescan
// to be meaningful.
const usbComponent = "usb"

// OnDeviceArrived reacts to a hardware-arrival notification. When the
// device belongs to the UART policy group, the instance is new enough
// and reports the usb component loaded, a live rescan is triggered.
// Every failed guard is a silent no-op; there are no retries, a failed
// query simply suppresses the rescan for this occurrence.
func (i *Instance) OnDeviceArrived(ctx context.Context, device hardware.Device) {
	if !i.policy.Matches(hardware.PolicyUART, device) {
		return
	}
	if !i.versionAtLeast(minUSBScanVersion) {
		return
	}

	qctx, cancel := context.WithTimeout(ctx, i.cmdTimeout)
	defer cancel()

	config, err := i.channel.SendCommand(qctx, NewCommand(CmdGetConfig))
	if err != nil {
		i.logger.Debug("Instance config query failed, skipping rescan",
			"device", device.SysName, "error", err)
		return
	}
	if !hasComponent(config, usbComponent) {
		return
	}

	if err := i.channel.SendMessage(NewCommand(CmdUSBScan)); err != nil {
		i.logger.Debug("Rescan command failed", "device", device.SysName, "error", err)
		return
	}
	i.metrics.RescanCommands.Inc()
	i.logger.Info("Triggered instance USB rescan", "device", device.SysName)
}

func hasComponent(config map[string]any, name string) bool {
	components, ok := config["components"].([]any)
	if !ok {
		return false
	}
	for _, c := range components {
		if s, ok := c.(string); ok && s == name {
			return true
		}
	}
	return false
}
