// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package config loads and validates the caretakerd configuration file.
package config

import (
	"fmt"
	"net/netip"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"grimm.is/caretaker/internal/errors"
	"grimm.is/caretaker/internal/logging"
	"grimm.is/caretaker/internal/network"
)

// Duration wraps time.Duration for yaml values like "10s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the root caretakerd configuration.
type Config struct {
	Instance InstanceConfig `yaml:"instance" validate:"required"`
	Network  NetworkConfig  `yaml:"network"`
	Logging  logging.Config `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// InstanceConfig configures the managed application instance.
type InstanceConfig struct {
	WebsocketURL   string   `yaml:"websocket_url" validate:"required,url"`
	ConfigDir      string   `yaml:"config_dir" validate:"required"`
	BackupDir      string   `yaml:"backup_dir" validate:"required"`
	CommandTimeout Duration `yaml:"command_timeout"`
	BackupExcludes []string `yaml:"backup_excludes"`
}

// NetworkConfig declares the interfaces caretaker manages through
// NetworkManager.
type NetworkConfig struct {
	ManageProfiles bool              `yaml:"manage_profiles"`
	Interfaces     []InterfaceConfig `yaml:"interfaces" validate:"dive"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// InterfaceConfig is the on-disk form of one network interface.
type InterfaceConfig struct {
	Name string `yaml:"name" validate:"required"`
	Type string `yaml:"type" validate:"required"`

	IPv4 *IPConfig `yaml:"ipv4"`
	IPv6 *IPConfig `yaml:"ipv6"`

	VLAN *VLANConfig `yaml:"vlan"`
	Wifi *WifiConfig `yaml:"wifi"`
}

// IPConfig is the on-disk form of one address block.
type IPConfig struct {
	Method      string   `yaml:"method" validate:"required,oneof=auto disabled manual"`
	Addresses   []string `yaml:"addresses"`
	Gateway     string   `yaml:"gateway"`
	Nameservers []string `yaml:"nameservers"`
}

// VLANConfig is the on-disk form of the vlan block.
type VLANConfig struct {
	ID     uint32 `yaml:"id"`
	Parent string `yaml:"parent" validate:"required"`
}

// WifiConfig is the on-disk form of the wifi block.
type WifiConfig struct {
	SSID string `yaml:"ssid" validate:"required"`
	Auth string `yaml:"auth" validate:"required,oneof=open wep wpa-psk"`
	PSK  string `yaml:"psk"`
}

// Load reads, decodes and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindNotFound, "reading config %s", path)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, errors.KindValidation, "parsing config %s", path)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrapf(err, errors.KindValidation, "validating config %s", path)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Instance.CommandTimeout == 0 {
		c.Instance.CommandTimeout = Duration(10 * time.Second)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		c.Metrics.Listen = "127.0.0.1:9107"
	}
}

// ToModel converts the on-disk interface form to the domain model,
// parsing all address literals. Malformed addresses fail fast.
func (ic *InterfaceConfig) ToModel() (*network.Interface, error) {
	iface := &network.Interface{
		Name:    ic.Name,
		Type:    network.InterfaceType(ic.Type),
		Enabled: true,
	}

	var err error
	if iface.IPv4, err = ic.IPv4.toModel(); err != nil {
		return nil, errors.Attr(err, "interface", ic.Name)
	}
	if iface.IPv6, err = ic.IPv6.toModel(); err != nil {
		return nil, errors.Attr(err, "interface", ic.Name)
	}

	if ic.VLAN != nil {
		iface.VLAN = &network.VLANConfig{ID: ic.VLAN.ID, Parent: ic.VLAN.Parent}
	}
	if ic.Wifi != nil {
		iface.Wifi = &network.WifiConfig{
			SSID: ic.Wifi.SSID,
			Auth: network.AuthMode(ic.Wifi.Auth),
			PSK:  ic.Wifi.PSK,
		}
	}

	if err := iface.Validate(); err != nil {
		return nil, err
	}
	return iface, nil
}

func (c *IPConfig) toModel() (*network.IPConfig, error) {
	if c == nil {
		return nil, nil
	}
	out := &network.IPConfig{Method: network.Method(c.Method)}

	for _, a := range c.Addresses {
		prefix, err := netip.ParsePrefix(a)
		if err != nil {
			return nil, errors.Wrapf(err, errors.KindInvalidAddress, "address %q", a)
		}
		out.Addresses = append(out.Addresses, prefix)
	}
	if c.Gateway != "" {
		gw, err := netip.ParseAddr(c.Gateway)
		if err != nil {
			return nil, errors.Wrapf(err, errors.KindInvalidAddress, "gateway %q", c.Gateway)
		}
		out.Gateway = gw
	}
	for _, ns := range c.Nameservers {
		addr, err := netip.ParseAddr(ns)
		if err != nil {
			return nil, errors.Wrapf(err, errors.KindInvalidAddress, "nameserver %q", ns)
		}
		out.Nameservers = append(out.Nameservers, addr)
	}
	return out, nil
}
