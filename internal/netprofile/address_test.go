// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package netprofile

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"

	"grimm.is/caretaker/internal/errors"
)

func TestEncodeIPv4ForWire(t *testing.T) {
	// 192.168.1.1 in network byte order, read as a little-endian uint32.
	v, err := EncodeIPv4ForWire(netip.MustParseAddr("192.168.1.1"))
	assert.NoError(t, err)
	assert.Equal(t, uint32(0x0101a8c0), v)

	v, err = EncodeIPv4ForWire(netip.MustParseAddr("1.0.0.127"))
	assert.NoError(t, err)
	assert.Equal(t, uint32(0x7f000001), v)
}

func TestEncodeIPv4ForWire_RejectsNonIPv4(t *testing.T) {
	_, err := EncodeIPv4ForWire(netip.Addr{})
	assert.Equal(t, errors.KindInvalidAddress, errors.GetKind(err))

	_, err = EncodeIPv4ForWire(netip.MustParseAddr("2001:db8::1"))
	assert.Equal(t, errors.KindInvalidAddress, errors.GetKind(err))
}

func TestEncodeIPv6ForWire(t *testing.T) {
	raw, err := EncodeIPv6ForWire(netip.MustParseAddr("2001:db8::1"))
	assert.NoError(t, err)
	assert.Equal(t, byte(0x20), raw[0])
	assert.Equal(t, byte(0x01), raw[1])
	assert.Equal(t, byte(0x0d), raw[2])
	assert.Equal(t, byte(0xb8), raw[3])
	assert.Equal(t, byte(0x01), raw[15])
}

func TestEncodeIPv6ForWire_RejectsNonIPv6(t *testing.T) {
	_, err := EncodeIPv6ForWire(netip.MustParseAddr("10.0.0.1"))
	assert.Equal(t, errors.KindInvalidAddress, errors.GetKind(err))

	_, err = EncodeIPv6ForWire(netip.MustParseAddr("::ffff:10.0.0.1"))
	assert.Equal(t, errors.KindInvalidAddress, errors.GetKind(err))

	_, err = EncodeIPv6ForWire(netip.Addr{})
	assert.Equal(t, errors.KindInvalidAddress, errors.GetKind(err))
}
