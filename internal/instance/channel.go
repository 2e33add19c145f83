// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package instance coordinates the managed application instance: the
// command channel to it, the backup/restore lifecycle around its config
// directory, and hardware-driven live reconfiguration.
package instance

import "context"

// Command tags understood by the instance.
const (
	CmdBackupStart = "backup/start"
	CmdBackupEnd   = "backup/end"
	CmdGetConfig   = "get_config"
	CmdUSBScan     = "usb/scan"
)

// Command is one message to the instance. The "type" field carries the
// command tag; remaining fields are command-specific.
type Command map[string]any

// NewCommand builds a command with the given tag.
func NewCommand(tag string) Command {
	return Command{"type": tag}
}

// CommandChannel is the bidirectional messaging primitive to the
// instance. Implementations are safe for concurrent use; caretaker
// issues at most one outstanding request per coordinator call and does
// not pipeline.
type CommandChannel interface {
	// SendCommand sends a request and waits for its response. The wait
	// is bounded by ctx; expiry is reported as KindChannelTimeout, a
	// disconnected channel as KindChannelUnavailable.
	SendCommand(ctx context.Context, cmd Command) (map[string]any, error)

	// SendMessage sends a fire-and-forget message.
	SendMessage(cmd Command) error
}
