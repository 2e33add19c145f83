// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package logging

import (
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"
)

// SyslogConfig controls forwarding of log records to a remote syslog
// collector.
type SyslogConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Protocol string `yaml:"protocol"` // udp or tcp
	Tag      string `yaml:"tag"`
	Facility int    `yaml:"facility"`
}

// DefaultSyslogConfig returns the default (disabled) syslog configuration.
func DefaultSyslogConfig() SyslogConfig {
	return SyslogConfig{
		Enabled:  false,
		Port:     514,
		Protocol: "udp",
		Tag:      "caretaker",
		Facility: 1,
	}
}

// SyslogWriter forwards each written line as an RFC 3164 message.
type SyslogWriter struct {
	cfg      SyslogConfig
	hostname string

	mu   sync.Mutex
	conn net.Conn
}

// NewSyslogWriter creates a writer for the given config. The connection
// is established lazily on first write so a temporarily unreachable
// collector does not block startup.
func NewSyslogWriter(cfg SyslogConfig) (*SyslogWriter, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("syslog: host is required")
	}
	if cfg.Protocol == "" {
		cfg.Protocol = "udp"
	}
	if cfg.Port == 0 {
		cfg.Port = 514
	}
	if cfg.Tag == "" {
		cfg.Tag = "caretaker"
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	return &SyslogWriter{cfg: cfg, hostname: hostname}, nil
}

// Write implements io.Writer. Each call is forwarded as one message;
// delivery failures are swallowed (syslog forwarding is best-effort).
func (w *SyslogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		conn, err := net.DialTimeout(
			w.cfg.Protocol,
			fmt.Sprintf("%s:%d", w.cfg.Host, w.cfg.Port),
			5*time.Second,
		)
		if err != nil {
			return len(p), nil
		}
		w.conn = conn
	}

	// facility*8 + severity(info)
	pri := w.cfg.Facility*8 + 6
	msg := fmt.Sprintf("<%d>%s %s %s: %s",
		pri,
		time.Now().Format(time.Stamp),
		w.hostname,
		w.cfg.Tag,
		strings.TrimRight(string(p), "\n"),
	)

	if _, err := w.conn.Write([]byte(msg)); err != nil {
		w.conn.Close()
		w.conn = nil
	}
	return len(p), nil
}

// Close closes the underlying connection if one is open.
func (w *SyslogWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		err := w.conn.Close()
		w.conn = nil
		return err
	}
	return nil
}
