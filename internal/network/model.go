// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package network holds the declarative network-interface model that
// caretaker translates into NetworkManager connection profiles. The model
// is owned by the caller; encoders borrow it read-only.
package network

import (
	"net/netip"

	"grimm.is/caretaker/internal/errors"
)

// InterfaceType identifies the medium of an interface.
type InterfaceType string

const (
	TypeEthernet InterfaceType = "ethernet"
	TypeWireless InterfaceType = "wireless"
	TypeVLAN     InterfaceType = "vlan"
)

// Method is the addressing method of one IP family.
type Method string

const (
	MethodAuto     Method = "auto"
	MethodDisabled Method = "disabled"
	MethodManual   Method = "manual"
)

// AuthMode is the wireless authentication mode.
type AuthMode string

const (
	AuthOpen   AuthMode = "open"
	AuthWEP    AuthMode = "wep"
	AuthWPAPSK AuthMode = "wpa-psk"
)

// Interface describes one network interface to be applied to the host.
type Interface struct {
	Name    string
	Type    InterfaceType
	Enabled bool

	IPv4 *IPConfig
	IPv6 *IPConfig

	VLAN *VLANConfig
	Wifi *WifiConfig
}

// IPConfig is the per-family address block. Addresses, Gateway and
// Nameservers are only meaningful when Method is manual.
type IPConfig struct {
	Method      Method
	Addresses   []netip.Prefix
	Gateway     netip.Addr
	Nameservers []netip.Addr
}

// VLANConfig carries the 802.1Q parameters for a VLAN interface.
type VLANConfig struct {
	ID     uint32
	Parent string
}

// WifiConfig carries the wireless parameters for a wireless interface.
type WifiConfig struct {
	SSID string
	Auth AuthMode
	PSK  string
}

// Clone returns a deep copy of the wifi block. Renderers that rewrite
// the SSID for presentation work on a copy so the caller's retained
// object survives repeated calls.
func (w *WifiConfig) Clone() *WifiConfig {
	if w == nil {
		return nil
	}
	c := *w
	return &c
}

// Validate checks the structural invariants of the model.
func (i *Interface) Validate() error {
	if i.Name == "" {
		return errors.New(errors.KindValidation, "interface name is required")
	}
	if i.Type == TypeVLAN && i.VLAN == nil {
		return errors.Errorf(errors.KindValidation, "interface %s: vlan type requires a vlan block", i.Name)
	}
	if i.Type == TypeWireless && i.Wifi == nil {
		return errors.Errorf(errors.KindValidation, "interface %s: wireless type requires a wifi block", i.Name)
	}
	if err := i.IPv4.validate("ipv4"); err != nil {
		return errors.Attr(err, "interface", i.Name)
	}
	if err := i.IPv6.validate("ipv6"); err != nil {
		return errors.Attr(err, "interface", i.Name)
	}
	return nil
}

func (c *IPConfig) validate(family string) error {
	if c == nil {
		return nil
	}
	switch c.Method {
	case MethodAuto, MethodDisabled:
		return nil
	case MethodManual:
		if len(c.Addresses) == 0 {
			return errors.Errorf(errors.KindValidation, "%s: manual method requires at least one address", family)
		}
		return nil
	default:
		return errors.Errorf(errors.KindValidation, "%s: unknown method %q", family, c.Method)
	}
}
