// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package metrics holds caretaker's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all caretaker Prometheus metrics.
type Metrics struct {
	BackupsTotal    prometheus.Counter
	BackupFailures  prometheus.Counter
	RestoresTotal   prometheus.Counter
	RestoreFailures prometheus.Counter

	ChannelTimeouts    prometheus.Counter
	ChannelUnavailable prometheus.Counter

	ProfilesBuilt    prometheus.Counter
	ProfilesRendered prometheus.Counter
	RescanCommands   prometheus.Counter
}

// NewMetrics creates the caretaker metrics set.
func NewMetrics() *Metrics {
	return &Metrics{
		BackupsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "caretaker_backups_total",
			Help: "Total number of instance backups attempted",
		}),
		BackupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "caretaker_backup_failures_total",
			Help: "Total number of instance backups that failed to write",
		}),
		RestoresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "caretaker_restores_total",
			Help: "Total number of instance restores attempted",
		}),
		RestoreFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "caretaker_restore_failures_total",
			Help: "Total number of instance restores that failed",
		}),
		ChannelTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "caretaker_channel_timeouts_total",
			Help: "Total number of command-channel requests that timed out",
		}),
		ChannelUnavailable: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "caretaker_channel_unavailable_total",
			Help: "Total number of command-channel requests against a disconnected channel",
		}),
		ProfilesBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "caretaker_profiles_built_total",
			Help: "Total number of typed connection profiles built",
		}),
		ProfilesRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "caretaker_profiles_rendered_total",
			Help: "Total number of key-file connection profiles rendered",
		}),
		RescanCommands: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "caretaker_rescan_commands_total",
			Help: "Total number of live rescan commands sent to the instance",
		}),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.BackupsTotal,
		m.BackupFailures,
		m.RestoresTotal,
		m.RestoreFailures,
		m.ChannelTimeouts,
		m.ChannelUnavailable,
		m.ProfilesBuilt,
		m.ProfilesRendered,
		m.RescanCommands,
	)
}
