// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package instance

import (
	"context"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"grimm.is/caretaker/internal/errors"
	"grimm.is/caretaker/internal/hardware"
	"grimm.is/caretaker/internal/logging"
	"grimm.is/caretaker/internal/metrics"
)

// DefaultBackupExcludes are the glob patterns skipped when archiving the
// instance config directory: caches, rotating logs and corrupt database
// leftovers that only bloat the archive.
var DefaultBackupExcludes = []string{
	"*.db-shm",
	"*.corrupt.*",
	"__pycache__/*",
	"*.log",
	"*.log.*",
	"OZW_Log.txt",
}

// Options collects the collaborators and settings of an Instance.
type Options struct {
	Channel        CommandChannel
	Policy         hardware.Policy
	Logger         *logging.Logger
	Metrics        *metrics.Metrics
	ConfigDir      string
	BackupExcludes []string
	CommandTimeout time.Duration
}

// Instance is the control object for the managed application instance.
// All global-ish state the coordinators consume (installed version,
// hardware policy) is carried here explicitly so each guard chain is
// independently testable.
type Instance struct {
	channel    CommandChannel
	policy     hardware.Policy
	logger     *logging.Logger
	metrics    *metrics.Metrics
	configDir  string
	excludes   []string
	cmdTimeout time.Duration

	version string
}

// New creates an Instance from options, filling defaults.
func New(opts Options) *Instance {
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewMetrics()
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = 10 * time.Second
	}
	excludes := opts.BackupExcludes
	if excludes == nil {
		excludes = DefaultBackupExcludes
	}
	return &Instance{
		channel:    opts.Channel,
		policy:     opts.Policy,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		configDir:  opts.ConfigDir,
		excludes:   excludes,
		cmdTimeout: opts.CommandTimeout,
	}
}

// SetVersion records the installed instance version, e.g. "2021.12.1".
func (i *Instance) SetVersion(v string) { i.version = v }

// Version returns the recorded instance version, or "" when unknown.
func (i *Instance) Version() string { return i.version }

// versionAtLeast reports whether the recorded version is known, valid
// and not older than min (both in plain "YYYY.M.P" form).
func (i *Instance) versionAtLeast(min string) bool {
	v := canonVersion(i.version)
	if !semver.IsValid(v) {
		return false
	}
	return semver.Compare(v, canonVersion(min)) >= 0
}

func canonVersion(v string) string {
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// notifyBestEffort sends a control command and waits for the
// acknowledgement with a bounded timeout. Failure is logged, counted
// and swallowed: control signaling never decides the outcome of the
// data operation it brackets.
func (i *Instance) notifyBestEffort(ctx context.Context, tag, warn string) {
	// Detached from the caller's cancellation: the instance must get
	// its resume signal even when the surrounding call was cancelled.
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), i.cmdTimeout)
	defer cancel()

	if _, err := i.channel.SendCommand(nctx, NewCommand(tag)); err != nil {
		switch {
		case errors.IsKind(err, errors.KindChannelTimeout):
			i.metrics.ChannelTimeouts.Inc()
		case errors.IsKind(err, errors.KindChannelUnavailable):
			i.metrics.ChannelUnavailable.Inc()
		}
		i.logger.Warn(warn, "command", tag, "error", err)
	}
}

// runBlocking executes a filesystem-bound operation on its own
// goroutine and waits for it. The coordinator imposes no timeout here;
// archive size is bounded by disk, not by protocol.
func runBlocking(fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()
	return <-done
}
