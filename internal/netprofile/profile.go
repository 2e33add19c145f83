// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package netprofile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"

	"grimm.is/caretaker/internal/errors"
	"grimm.is/caretaker/internal/network"
)

// ProfileNamePrefix marks connection profiles owned by caretaker. Name
// derivation guarantees every profile we create carries it, so profiles
// can be found and updated by name on later applies instead of
// accumulating duplicates.
const ProfileNamePrefix = "Supervisor"

// ConnectionProfile is a NetworkManager settings document: section name
// to field name to typed value. Every field carries the exact D-Bus
// signature the NetworkManager schema declares (a{sa{sv}} on the wire).
type ConnectionProfile map[string]map[string]dbus.Variant

// Sections returns the section names in sorted order.
func (p ConnectionProfile) Sections() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Canonical renders the profile as a stable, sorted text dump. Two
// profiles are equal exactly when their canonical forms are equal; used
// for logging and determinism checks.
func (p ConnectionProfile) Canonical() string {
	var b strings.Builder
	for _, section := range p.Sections() {
		fmt.Fprintf(&b, "[%s]\n", section)
		fields := make([]string, 0, len(p[section]))
		for f := range p[section] {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			v := p[section][f]
			fmt.Fprintf(&b, "%s=%s:%v\n", f, v.Signature().String(), v.Value())
		}
	}
	return b.String()
}

// Typed variant constructors. Signatures are explicit so a mismatch
// against the NetworkManager schema is caught at construction.
func vString(s string) dbus.Variant { return dbus.MakeVariant(s) }
func vInt32(i int32) dbus.Variant   { return dbus.MakeVariant(i) }
func vUint32(u uint32) dbus.Variant { return dbus.MakeVariant(u) }
func vBytes(b []byte) dbus.Variant  { return dbus.MakeVariant(b) }

func vUint32Array(u []uint32) dbus.Variant {
	return dbus.MakeVariantWithSignature(u, dbus.ParseSignatureMust("au"))
}

func vBytesArray(b [][]byte) dbus.Variant {
	return dbus.MakeVariantWithSignature(b, dbus.ParseSignatureMust("aay"))
}

func vDictArray(d []map[string]dbus.Variant) dbus.Variant {
	return dbus.MakeVariantWithSignature(d, dbus.ParseSignatureMust("aa{sv}"))
}

// DeriveName computes the supervisor-owned profile name for an
// interface. A caller-supplied name is kept only when it already carries
// the prefix; VLANs get the vlan id appended so parent and vlan profiles
// never collide.
func DeriveName(iface *network.Interface, name string) string {
	if name == "" || !strings.HasPrefix(name, ProfileNamePrefix) {
		name = fmt.Sprintf("%s %s", ProfileNamePrefix, iface.Name)
	}
	if iface.Type == network.TypeVLAN && iface.VLAN != nil {
		name = fmt.Sprintf("%s.%d", name, iface.VLAN.ID)
	}
	return name
}

// mediumType maps the model's interface type to NetworkManager's
// connection type. Unknown kinds pass through verbatim so newer media
// do not need an encoder change.
func mediumType(t network.InterfaceType) string {
	switch t {
	case network.TypeEthernet:
		return "802-3-ethernet"
	case network.TypeWireless:
		return "802-11-wireless"
	default:
		return string(t)
	}
}

// BuildProfile assembles the typed settings document for one interface.
// An empty name or uuid is derived/generated; callers applying a stored
// profile pass the previously stored uuid to avoid duplication. For
// fixed inputs (including uuid) the output is reproducible.
func BuildProfile(iface *network.Interface, name, profileUUID string) (ConnectionProfile, error) {
	if err := iface.Validate(); err != nil {
		return nil, err
	}

	name = DeriveName(iface, name)
	if profileUUID == "" {
		profileUUID = uuid.NewString()
	}

	conn := ConnectionProfile{
		"connection": {
			"id":             vString(name),
			"interface-name": vString(iface.Name),
			"type":           vString(mediumType(iface.Type)),
			"uuid":           vString(profileUUID),
			"llmnr":          vInt32(2),
			"mdns":           vInt32(2),
		},
	}

	ipv4, err := buildIPv4(iface.IPv4)
	if err != nil {
		return nil, errors.Attr(err, "interface", iface.Name)
	}
	conn["ipv4"] = ipv4

	ipv6, err := buildIPv6(iface.IPv6)
	if err != nil {
		return nil, errors.Attr(err, "interface", iface.Name)
	}
	conn["ipv6"] = ipv6

	switch iface.Type {
	case network.TypeEthernet:
		conn["802-3-ethernet"] = map[string]dbus.Variant{
			"assigned-mac-address": vString("preserve"),
		}
	case network.TypeVLAN:
		conn["vlan"] = map[string]dbus.Variant{
			"id":     vUint32(iface.VLAN.ID),
			"parent": vString(iface.VLAN.Parent),
		}
	case network.TypeWireless:
		wireless := map[string]dbus.Variant{
			"assigned-mac-address": vString("preserve"),
			"ssid":                 vBytes([]byte(iface.Wifi.SSID)),
			"mode":                 vString("infrastructure"),
			"powersave":            vInt32(1),
		}
		conn["802-11-wireless"] = wireless

		if iface.Wifi.Auth != network.AuthOpen {
			wireless["security"] = vString("802-11-wireless-security")

			security := map[string]dbus.Variant{}
			switch iface.Wifi.Auth {
			case network.AuthWEP:
				security["auth-alg"] = vString("none")
				security["key-mgmt"] = vString("open")
			case network.AuthWPAPSK:
				security["auth-alg"] = vString("open")
				security["key-mgmt"] = vString("wpa-psk")
			}
			if iface.Wifi.PSK != "" {
				security["psk"] = vString(iface.Wifi.PSK)
			}
			conn["802-11-wireless-security"] = security
		}
	}

	return conn, nil
}

func buildIPv4(cfg *network.IPConfig) (map[string]dbus.Variant, error) {
	ipv4 := map[string]dbus.Variant{}
	if cfg == nil || cfg.Method == network.MethodAuto {
		ipv4["method"] = vString("auto")
		return ipv4, nil
	}
	if cfg.Method == network.MethodDisabled {
		ipv4["method"] = vString("disabled")
		return ipv4, nil
	}

	ipv4["method"] = vString("manual")

	dns := make([]uint32, 0, len(cfg.Nameservers))
	for _, ns := range cfg.Nameservers {
		enc, err := EncodeIPv4ForWire(ns)
		if err != nil {
			return nil, err
		}
		dns = append(dns, enc)
	}
	ipv4["dns"] = vUint32Array(dns)

	addressData := make([]map[string]dbus.Variant, 0, len(cfg.Addresses))
	for _, prefix := range cfg.Addresses {
		if !prefix.Addr().Is4() {
			return nil, errors.Errorf(errors.KindInvalidAddress, "not an IPv4 prefix: %s", prefix)
		}
		addressData = append(addressData, map[string]dbus.Variant{
			"address": vString(prefix.Addr().String()),
			"prefix":  vUint32(uint32(prefix.Bits())),
		})
	}
	ipv4["address-data"] = vDictArray(addressData)

	if cfg.Gateway.IsValid() {
		ipv4["gateway"] = vString(cfg.Gateway.String())
	}
	return ipv4, nil
}

func buildIPv6(cfg *network.IPConfig) (map[string]dbus.Variant, error) {
	ipv6 := map[string]dbus.Variant{}
	if cfg == nil || cfg.Method == network.MethodAuto {
		ipv6["method"] = vString("auto")
		return ipv6, nil
	}
	if cfg.Method == network.MethodDisabled {
		ipv6["method"] = vString("disabled")
		return ipv6, nil
	}

	ipv6["method"] = vString("manual")

	dns := make([][]byte, 0, len(cfg.Nameservers))
	for _, ns := range cfg.Nameservers {
		enc, err := EncodeIPv6ForWire(ns)
		if err != nil {
			return nil, err
		}
		dns = append(dns, enc[:])
	}
	ipv6["dns"] = vBytesArray(dns)

	// Link-local addresses are never user-managed interface addresses;
	// they stay out of the profile.
	addressData := make([]map[string]dbus.Variant, 0, len(cfg.Addresses))
	for _, prefix := range cfg.Addresses {
		if !prefix.Addr().Is6() || prefix.Addr().Is4In6() {
			return nil, errors.Errorf(errors.KindInvalidAddress, "not an IPv6 prefix: %s", prefix)
		}
		if prefix.Addr().IsLinkLocalUnicast() {
			continue
		}
		addressData = append(addressData, map[string]dbus.Variant{
			"address": vString(prefix.Addr().String()),
			"prefix":  vUint32(uint32(prefix.Bits())),
		})
	}
	ipv6["address-data"] = vDictArray(addressData)

	if cfg.Gateway.IsValid() {
		ipv6["gateway"] = vString(cfg.Gateway.String())
	}
	return ipv6, nil
}
