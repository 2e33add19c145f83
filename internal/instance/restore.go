// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package instance

import (
	"context"

	"grimm.is/caretaker/internal/archive"
	"grimm.is/caretaker/internal/errors"
)

// Restore extracts a previously produced archive into the instance
// config directory. Every archive member is validated before anything
// is written, so a malicious or corrupt archive leaves the directory as
// it was. Failures are contained and reported as KindRestoreFailed;
// the caller decides whether that is fatal to its larger workflow.
func (i *Instance) Restore(ctx context.Context, r *archive.Reader) error {
	i.metrics.RestoresTotal.Inc()
	i.logger.Info("Restoring instance config directory", "archive", r.Path(), "destination", i.configDir)

	err := runBlocking(func() error {
		return r.ExtractTo(i.configDir)
	})
	if err != nil {
		i.metrics.RestoreFailures.Inc()
		i.logger.Warn("Restoring instance config directory failed", "error", err)
		return errors.Wrap(err, errors.KindRestoreFailed, "restoring instance config")
	}

	i.logger.Info("Restore of instance config directory done")
	return nil
}
