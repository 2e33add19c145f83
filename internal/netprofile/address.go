// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package netprofile encodes the declarative interface model into
// NetworkManager connection profiles, either as a typed D-Bus settings
// document or as flat key-file text rendered from a template. Both paths
// share the same name/UUID derivation so profiles stay re-adoptable.
package netprofile

import (
	"encoding/binary"
	"net/netip"

	"grimm.is/caretaker/internal/errors"
)

// EncodeIPv4ForWire converts an IPv4 address to the 32-bit integer
// NetworkManager expects in scalar and array address fields: the value
// whose native (little-endian) memory layout is the address in network
// byte order.
func EncodeIPv4ForWire(addr netip.Addr) (uint32, error) {
	if !addr.IsValid() || !addr.Is4() {
		return 0, errors.Errorf(errors.KindInvalidAddress, "not an IPv4 address: %q", addr)
	}
	a4 := addr.As4()
	return binary.LittleEndian.Uint32(a4[:]), nil
}

// EncodeIPv6ForWire converts an IPv6 address to its raw 16-byte
// network-order representation.
func EncodeIPv6ForWire(addr netip.Addr) ([16]byte, error) {
	if !addr.IsValid() || !addr.Is6() || addr.Is4In6() {
		return [16]byte{}, errors.Errorf(errors.KindInvalidAddress, "not an IPv6 address: %q", addr)
	}
	return addr.As16(), nil
}
