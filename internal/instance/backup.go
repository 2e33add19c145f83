// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package instance

import (
	"context"

	"grimm.is/caretaker/internal/archive"
)

// Backup archives the instance config directory into w, bracketing the
// write with backup/start and backup/end control commands.
//
// Both notifications are best-effort: the instance may be stopped or
// unhealthy and a backup must still be taken. backup/end is attempted
// on every exit path, including population failure, so the instance
// never stays paused for a backup that already ended. Only the archive
// population error is ever returned.
func (i *Instance) Backup(ctx context.Context, w *archive.Writer) (err error) {
	i.metrics.BackupsTotal.Inc()

	i.notifyBestEffort(ctx, CmdBackupStart,
		"Preparing instance for backup failed, continuing anyway")
	defer i.notifyBestEffort(ctx, CmdBackupEnd,
		"Resuming instance after backup failed")

	defer func() {
		if err != nil {
			w.Discard()
			i.metrics.BackupFailures.Inc()
			i.logger.Error("Backing up instance config failed", "error", err)
		}
	}()

	i.logger.Info("Backing up instance config directory", "source", i.configDir, "archive", w.Path())

	err = runBlocking(func() error {
		if addErr := w.AddDir(i.configDir, i.excludes); addErr != nil {
			return addErr
		}
		return w.Commit()
	})
	if err != nil {
		return err
	}

	i.logger.Info("Backup of instance config directory done", "archive", w.Path())
	return nil
}
