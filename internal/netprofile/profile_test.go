// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package netprofile

import (
	"net/netip"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/caretaker/internal/network"
)

func ethInterface() *network.Interface {
	return &network.Interface{
		Name:    "eth0",
		Type:    network.TypeEthernet,
		Enabled: true,
		IPv4:    &network.IPConfig{Method: network.MethodAuto},
		IPv6:    &network.IPConfig{Method: network.MethodAuto},
	}
}

func TestBuildProfile_EthernetSections(t *testing.T) {
	profile, err := BuildProfile(ethInterface(), "", "fixed-uuid")
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"802-3-ethernet", "connection", "ipv4", "ipv6"},
		profile.Sections())
	assert.NotContains(t, profile, "vlan")
	assert.NotContains(t, profile, "802-11-wireless")
	assert.NotContains(t, profile, "802-11-wireless-security")
}

func TestBuildProfile_NameDerivation(t *testing.T) {
	profile, err := BuildProfile(ethInterface(), "", "fixed-uuid")
	require.NoError(t, err)
	assert.Equal(t, "Supervisor eth0", profile["connection"]["id"].Value())

	// A foreign name is replaced; a supervisor-owned one is kept.
	profile, err = BuildProfile(ethInterface(), "Wired connection 1", "fixed-uuid")
	require.NoError(t, err)
	assert.Equal(t, "Supervisor eth0", profile["connection"]["id"].Value())

	profile, err = BuildProfile(ethInterface(), "Supervisor eth0", "fixed-uuid")
	require.NoError(t, err)
	assert.Equal(t, "Supervisor eth0", profile["connection"]["id"].Value())
}

func TestBuildProfile_VLANName(t *testing.T) {
	iface := &network.Interface{
		Name: "eth0",
		Type: network.TypeVLAN,
		VLAN: &network.VLANConfig{ID: 10, Parent: "eth0"},
	}
	profile, err := BuildProfile(iface, "", "fixed-uuid")
	require.NoError(t, err)

	assert.Equal(t, "Supervisor eth0.10", profile["connection"]["id"].Value())
	assert.Equal(t, "vlan", profile["connection"]["type"].Value())
	assert.Equal(t, uint32(10), profile["vlan"]["id"].Value())
	assert.Equal(t, "eth0", profile["vlan"]["parent"].Value())
}

func TestBuildProfile_GeneratesUUIDWhenEmpty(t *testing.T) {
	p1, err := BuildProfile(ethInterface(), "", "")
	require.NoError(t, err)
	p2, err := BuildProfile(ethInterface(), "", "")
	require.NoError(t, err)

	u1 := p1["connection"]["uuid"].Value().(string)
	u2 := p2["connection"]["uuid"].Value().(string)
	assert.NotEmpty(t, u1)
	assert.NotEqual(t, u1, u2)
}

func TestBuildProfile_Deterministic(t *testing.T) {
	iface := &network.Interface{
		Name: "eth0",
		Type: network.TypeEthernet,
		IPv4: &network.IPConfig{
			Method: network.MethodManual,
			Addresses: []netip.Prefix{
				netip.MustParsePrefix("192.168.1.5/24"),
				netip.MustParsePrefix("10.0.0.5/8"),
			},
			Gateway:     netip.MustParseAddr("192.168.1.1"),
			Nameservers: []netip.Addr{netip.MustParseAddr("1.1.1.1")},
		},
		IPv6: &network.IPConfig{Method: network.MethodAuto},
	}

	p1, err := BuildProfile(iface, "", "11111111-2222-3333-4444-555555555555")
	require.NoError(t, err)
	p2, err := BuildProfile(iface, "", "11111111-2222-3333-4444-555555555555")
	require.NoError(t, err)

	assert.Equal(t, p1.Canonical(), p2.Canonical())
}

func TestBuildProfile_IPv4Manual(t *testing.T) {
	iface := ethInterface()
	iface.IPv4 = &network.IPConfig{
		Method: network.MethodManual,
		Addresses: []netip.Prefix{
			netip.MustParsePrefix("192.168.1.5/24"),
		},
		Gateway: netip.MustParseAddr("192.168.1.1"),
		Nameservers: []netip.Addr{
			netip.MustParseAddr("192.168.1.1"),
			netip.MustParseAddr("1.1.1.1"),
		},
	}

	profile, err := BuildProfile(iface, "", "fixed-uuid")
	require.NoError(t, err)

	ipv4 := profile["ipv4"]
	assert.Equal(t, "manual", ipv4["method"].Value())
	assert.Equal(t, "au", ipv4["dns"].Signature().String())
	assert.Equal(t, []uint32{0x0101a8c0, 0x01010101}, ipv4["dns"].Value())
	assert.Equal(t, "192.168.1.1", ipv4["gateway"].Value())

	assert.Equal(t, "aa{sv}", ipv4["address-data"].Signature().String())
	addrs := ipv4["address-data"].Value().([]map[string]dbus.Variant)
	require.Len(t, addrs, 1)
	assert.Equal(t, "192.168.1.5", addrs[0]["address"].Value())
	assert.Equal(t, uint32(24), addrs[0]["prefix"].Value())
}

func TestBuildProfile_IPv4AutoOnlyMethod(t *testing.T) {
	profile, err := BuildProfile(ethInterface(), "", "fixed-uuid")
	require.NoError(t, err)
	assert.Len(t, profile["ipv4"], 1)
	assert.Equal(t, "auto", profile["ipv4"]["method"].Value())
}

func TestBuildProfile_IPv6ManualFiltersLinkLocal(t *testing.T) {
	iface := ethInterface()
	iface.IPv6 = &network.IPConfig{
		Method: network.MethodManual,
		Addresses: []netip.Prefix{
			netip.MustParsePrefix("2001:db8::5/64"),
			netip.MustParsePrefix("fe80::1234/64"),
			netip.MustParsePrefix("2001:db8::6/64"),
		},
		Gateway:     netip.MustParseAddr("2001:db8::1"),
		Nameservers: []netip.Addr{netip.MustParseAddr("2001:4860:4860::8888")},
	}

	profile, err := BuildProfile(iface, "", "fixed-uuid")
	require.NoError(t, err)

	ipv6 := profile["ipv6"]
	assert.Equal(t, "manual", ipv6["method"].Value())

	// The IPv6 section carries its own address-data and gateway.
	assert.NotContains(t, profile["ipv4"], "address-data")
	assert.NotContains(t, profile["ipv4"], "gateway")

	addrs := ipv6["address-data"].Value().([]map[string]dbus.Variant)
	require.Len(t, addrs, 2)
	assert.Equal(t, "2001:db8::5", addrs[0]["address"].Value())
	assert.Equal(t, "2001:db8::6", addrs[1]["address"].Value())
	assert.Equal(t, "2001:db8::1", ipv6["gateway"].Value())

	assert.Equal(t, "aay", ipv6["dns"].Signature().String())
	dns := ipv6["dns"].Value().([][]byte)
	require.Len(t, dns, 1)
	assert.Equal(t, byte(0x20), dns[0][0])
	assert.Equal(t, byte(0x88), dns[0][15])
}

func TestBuildProfile_WirelessOpen(t *testing.T) {
	iface := &network.Interface{
		Name: "wlan0",
		Type: network.TypeWireless,
		Wifi: &network.WifiConfig{SSID: "shed", Auth: network.AuthOpen},
	}

	profile, err := BuildProfile(iface, "", "fixed-uuid")
	require.NoError(t, err)

	wireless := profile["802-11-wireless"]
	assert.Equal(t, "preserve", wireless["assigned-mac-address"].Value())
	assert.Equal(t, []byte("shed"), wireless["ssid"].Value())
	assert.Equal(t, "ay", wireless["ssid"].Signature().String())
	assert.Equal(t, "infrastructure", wireless["mode"].Value())
	assert.Equal(t, int32(1), wireless["powersave"].Value())

	assert.NotContains(t, wireless, "security")
	assert.NotContains(t, profile, "802-11-wireless-security")
}

func TestBuildProfile_WirelessSecurityTable(t *testing.T) {
	cases := []struct {
		auth    network.AuthMode
		authAlg string
		keyMgmt string
	}{
		{network.AuthWEP, "none", "open"},
		{network.AuthWPAPSK, "open", "wpa-psk"},
	}

	for _, tc := range cases {
		iface := &network.Interface{
			Name: "wlan0",
			Type: network.TypeWireless,
			Wifi: &network.WifiConfig{SSID: "shed", Auth: tc.auth, PSK: "hunter22"},
		}
		profile, err := BuildProfile(iface, "", "fixed-uuid")
		require.NoError(t, err)

		assert.Equal(t, "802-11-wireless-security",
			profile["802-11-wireless"]["security"].Value())

		security := profile["802-11-wireless-security"]
		assert.Equal(t, tc.authAlg, security["auth-alg"].Value(), "auth=%s", tc.auth)
		assert.Equal(t, tc.keyMgmt, security["key-mgmt"].Value(), "auth=%s", tc.auth)
		assert.Equal(t, "hunter22", security["psk"].Value())
	}
}

func TestBuildProfile_PSKOmittedWhenUnset(t *testing.T) {
	iface := &network.Interface{
		Name: "wlan0",
		Type: network.TypeWireless,
		Wifi: &network.WifiConfig{SSID: "shed", Auth: network.AuthWPAPSK},
	}
	profile, err := BuildProfile(iface, "", "fixed-uuid")
	require.NoError(t, err)
	assert.NotContains(t, profile["802-11-wireless-security"], "psk")
}

func TestBuildProfile_UnknownTypePassesThrough(t *testing.T) {
	iface := &network.Interface{
		Name: "can0",
		Type: network.InterfaceType("can"),
	}
	profile, err := BuildProfile(iface, "", "fixed-uuid")
	require.NoError(t, err)
	assert.Equal(t, "can", profile["connection"]["type"].Value())
}

func TestBuildProfile_ConnectionDefaults(t *testing.T) {
	profile, err := BuildProfile(ethInterface(), "", "fixed-uuid")
	require.NoError(t, err)

	conn := profile["connection"]
	assert.Equal(t, "eth0", conn["interface-name"].Value())
	assert.Equal(t, "802-3-ethernet", conn["type"].Value())
	assert.Equal(t, "fixed-uuid", conn["uuid"].Value())
	assert.Equal(t, int32(2), conn["llmnr"].Value())
	assert.Equal(t, int32(2), conn["mdns"].Value())
}

func TestBuildProfile_InvalidModelRejected(t *testing.T) {
	iface := &network.Interface{Name: "eth0.10", Type: network.TypeVLAN}
	_, err := BuildProfile(iface, "", "fixed-uuid")
	assert.Error(t, err)
}
