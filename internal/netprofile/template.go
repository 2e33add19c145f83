// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package netprofile

import (
	_ "embed"
	"fmt"
	"net/netip"
	"strings"
	"text/template"

	"github.com/google/uuid"

	"grimm.is/caretaker/internal/errors"
	"grimm.is/caretaker/internal/network"
)

//go:embed interface_update.tmpl
var interfaceUpdateTmpl string

type templateData struct {
	Interface *network.Interface
	Name      string
	UUID      string
	Type      string
}

var profileTemplate = template.Must(
	template.New("interface_update").Funcs(template.FuncMap{
		// ipv4ToInt renders an IPv4 address as the decimal form of its
		// network-order integer encoding.
		"ipv4ToInt": func(addr netip.Addr) (string, error) {
			v, err := EncodeIPv4ForWire(addr)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d", v), nil
		},
		// ipv6ToBytes renders an IPv6 address as a bracketed byte-literal
		// sequence: [byte 0x20, 0x01, ...].
		"ipv6ToBytes": func(addr netip.Addr) (string, error) {
			raw, err := EncodeIPv6ForWire(addr)
			if err != nil {
				return "", err
			}
			parts := make([]string, len(raw))
			for i, b := range raw {
				parts[i] = fmt.Sprintf("0x%02x", b)
			}
			return fmt.Sprintf("[byte %s]", strings.Join(parts, ", ")), nil
		},
		// manageable drops link-local addresses, matching the typed path.
		"manageable": func(prefixes []netip.Prefix) []netip.Prefix {
			out := make([]netip.Prefix, 0, len(prefixes))
			for _, p := range prefixes {
				if p.Addr().Is6() && p.Addr().IsLinkLocalUnicast() {
					continue
				}
				out = append(out, p)
			}
			return out
		},
		"inc": func(i int) int { return i + 1 },
	}).Parse(interfaceUpdateTmpl),
)

// RenderProfileText renders the key-file form of a connection profile.
// Name and UUID derivation match BuildProfile, so either encoding path
// produces a profile adoptable by the other.
func RenderProfileText(iface *network.Interface, name, profileUUID string) (string, error) {
	if err := iface.Validate(); err != nil {
		return "", err
	}

	name = DeriveName(iface, name)
	if profileUUID == "" {
		profileUUID = uuid.NewString()
	}

	// An SSID with bytes outside printable ASCII is embedded as a hex
	// byte literal. The rewrite happens on a copy; the caller's model
	// must stay intact across calls.
	if iface.Wifi != nil && !isASCIISafe(iface.Wifi.SSID) {
		clone := *iface
		clone.Wifi = iface.Wifi.Clone()
		clone.Wifi.SSID = hexJoinSSID(clone.Wifi.SSID)
		iface = &clone
	}

	data := templateData{
		Interface: iface,
		Name:      name,
		UUID:      profileUUID,
		Type:      mediumType(iface.Type),
	}

	var b strings.Builder
	if err := profileTemplate.Execute(&b, data); err != nil {
		return "", errors.Wrapf(err, errors.KindInternal, "rendering profile for %s", iface.Name)
	}
	return b.String(), nil
}

func isASCIISafe(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return false
		}
	}
	return true
}

// hexJoinSSID rewrites an SSID to comma-joined 0x-prefixed hex bytes,
// e.g. "ab" -> "0x61, 0x62".
func hexJoinSSID(s string) string {
	parts := make([]string, len(s))
	for i := 0; i < len(s); i++ {
		parts[i] = fmt.Sprintf("0x%02x", s[i])
	}
	return strings.Join(parts, ", ")
}
