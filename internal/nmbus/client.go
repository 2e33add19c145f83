// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package nmbus applies connection profiles to NetworkManager over
// D-Bus. The wrapper is intentionally thin: transport, service
// discovery and retry stay with the bus and the caller; this package
// only issues the typed settings calls.
package nmbus

import (
	"context"

	"github.com/godbus/dbus/v5"

	"grimm.is/caretaker/internal/errors"
	"grimm.is/caretaker/internal/logging"
	"grimm.is/caretaker/internal/metrics"
	"grimm.is/caretaker/internal/netprofile"
	"grimm.is/caretaker/internal/network"
)

const (
	nmDest         = "org.freedesktop.NetworkManager"
	nmSettingsPath = "/org/freedesktop/NetworkManager/Settings"

	settingsIface   = "org.freedesktop.NetworkManager.Settings"
	connectionIface = "org.freedesktop.NetworkManager.Settings.Connection"
)

// objecter is the slice of *dbus.Conn the client needs; tests inject a
// fake.
type objecter interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
}

// Client issues NetworkManager settings calls.
type Client struct {
	bus     objecter
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// New wraps an established bus connection (normally the system bus).
func New(bus objecter, logger *logging.Logger, m *metrics.Metrics) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	if m == nil {
		m = metrics.NewMetrics()
	}
	return &Client{bus: bus, logger: logger, metrics: m}
}

// AddConnection persists a new connection profile and returns its
// settings object path.
func (c *Client) AddConnection(ctx context.Context, profile netprofile.ConnectionProfile) (dbus.ObjectPath, error) {
	obj := c.bus.Object(nmDest, nmSettingsPath)

	var path dbus.ObjectPath
	err := obj.CallWithContext(ctx, settingsIface+".AddConnection", 0, map[string]map[string]dbus.Variant(profile)).Store(&path)
	if err != nil {
		return "", errors.Wrap(err, errors.KindUnavailable, "adding connection profile")
	}
	return path, nil
}

// UpdateConnection replaces the settings of an existing profile.
func (c *Client) UpdateConnection(ctx context.Context, path dbus.ObjectPath, profile netprofile.ConnectionProfile) error {
	obj := c.bus.Object(nmDest, path)
	err := obj.CallWithContext(ctx, connectionIface+".Update", 0, map[string]map[string]dbus.Variant(profile)).Err
	if err != nil {
		return errors.Wrapf(err, errors.KindUnavailable, "updating connection profile %s", path)
	}
	return nil
}

// FindConnectionByName looks up a stored profile by its connection id.
// Returns the object path and the stored uuid when found.
func (c *Client) FindConnectionByName(ctx context.Context, name string) (dbus.ObjectPath, string, bool, error) {
	obj := c.bus.Object(nmDest, nmSettingsPath)

	var paths []dbus.ObjectPath
	if err := obj.CallWithContext(ctx, settingsIface+".ListConnections", 0).Store(&paths); err != nil {
		return "", "", false, errors.Wrap(err, errors.KindUnavailable, "listing connection profiles")
	}

	for _, path := range paths {
		conn := c.bus.Object(nmDest, path)
		var settings map[string]map[string]dbus.Variant
		if err := conn.CallWithContext(ctx, connectionIface+".GetSettings", 0).Store(&settings); err != nil {
			// A profile can disappear between list and read.
			continue
		}
		id, _ := settings["connection"]["id"].Value().(string)
		if id != name {
			continue
		}
		uuid, _ := settings["connection"]["uuid"].Value().(string)
		return path, uuid, true, nil
	}
	return "", "", false, nil
}

// Apply builds the profile for iface and either updates the existing
// supervisor-owned profile of the same derived name (reusing its stored
// uuid, so NetworkManager keeps one profile per interface) or adds a
// new one.
func (c *Client) Apply(ctx context.Context, iface *network.Interface) (dbus.ObjectPath, error) {
	name := netprofile.DeriveName(iface, "")

	path, storedUUID, found, err := c.FindConnectionByName(ctx, name)
	if err != nil {
		return "", err
	}

	profile, err := netprofile.BuildProfile(iface, name, storedUUID)
	if err != nil {
		return "", err
	}
	c.metrics.ProfilesBuilt.Inc()

	if found {
		c.logger.Info("Updating connection profile", "name", name, "path", path)
		return path, c.UpdateConnection(ctx, path, profile)
	}

	c.logger.Info("Adding connection profile", "name", name)
	return c.AddConnection(ctx, profile)
}
