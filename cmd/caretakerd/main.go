// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command caretakerd drives the host's network manager and the managed
// application instance: it applies declarative connection profiles over
// D-Bus and coordinates instance backups and restores over the command
// channel.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grimm.is/caretaker/internal/archive"
	"grimm.is/caretaker/internal/config"
	"grimm.is/caretaker/internal/hardware"
	"grimm.is/caretaker/internal/instance"
	"grimm.is/caretaker/internal/logging"
	"grimm.is/caretaker/internal/metrics"
	"grimm.is/caretaker/internal/netprofile"
	"grimm.is/caretaker/internal/nmbus"
)

func main() {
	configPath := flag.String("config", "/etc/caretaker/caretaker.yaml", "Path to YAML config file")
	flag.Parse()

	args := flag.Args()
	subcmd := "run"
	if len(args) > 0 {
		subcmd = args[0]
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "caretakerd: %v\n", err)
		os.Exit(1)
	}

	logger := logging.WithSyslog(os.Stderr, cfg.Logging)

	m := metrics.NewMetrics()
	m.Register(prometheus.DefaultRegisterer)

	channel := instance.NewWSChannel(
		cfg.Instance.WebsocketURL,
		time.Duration(cfg.Instance.CommandTimeout),
		logger,
	)
	inst := instance.New(instance.Options{
		Channel:        channel,
		Policy:         hardware.RulePolicy{},
		Logger:         logger,
		Metrics:        m,
		ConfigDir:      cfg.Instance.ConfigDir,
		BackupExcludes: cfg.Instance.BackupExcludes,
		CommandTimeout: time.Duration(cfg.Instance.CommandTimeout),
	})

	var exitErr error
	switch subcmd {
	case "run":
		exitErr = runDaemon(cfg, logger, channel, m)
	case "backup":
		exitErr = runBackup(cfg, logger, channel, inst, args[1:])
	case "restore":
		exitErr = runRestore(logger, inst, args[1:])
	case "apply-network":
		exitErr = applyNetwork(cfg, logger, m)
	case "render-network":
		exitErr = renderNetwork(cfg, m)
	default:
		exitErr = fmt.Errorf("unknown command: %s", subcmd)
	}
	if exitErr != nil {
		logger.Error("caretakerd failed", "command", subcmd, "error", exitErr)
		os.Exit(1)
	}
}

// connectChannel dials the instance, tolerating failure: coordinators
// degrade to best-effort signaling when the instance is unreachable.
func connectChannel(ctx context.Context, logger *logging.Logger, channel *instance.WSChannel) {
	if err := channel.Connect(ctx); err != nil {
		logger.Warn("Instance command channel unavailable", "error", err)
	}
}

func runDaemon(cfg *config.Config, logger *logging.Logger, channel *instance.WSChannel, m *metrics.Metrics) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectChannel(ctx, logger, channel)
	defer channel.Close()

	if cfg.Metrics.Enabled {
		go func() {
			logger.Info("Serving metrics", "listen", cfg.Metrics.Listen)
			if err := http.ListenAndServe(cfg.Metrics.Listen, promhttp.Handler()); err != nil {
				logger.Error("Metrics endpoint failed", "error", err)
			}
		}()
	}

	if cfg.Network.ManageProfiles {
		if err := applyNetwork(cfg, logger, m); err != nil {
			logger.Error("Applying network profiles failed", "error", err)
		}
	}

	logger.Info("caretakerd running")
	<-ctx.Done()
	logger.Info("caretakerd shutting down")
	return nil
}

func runBackup(cfg *config.Config, logger *logging.Logger, channel *instance.WSChannel, inst *instance.Instance, args []string) error {
	ctx := context.Background()
	connectChannel(ctx, logger, channel)
	defer channel.Close()

	dst := filepath.Join(cfg.Instance.BackupDir,
		fmt.Sprintf("core-%s.tar.gz", time.Now().Format("20060102-150405")))
	if len(args) > 0 {
		dst = args[0]
	}

	w, err := archive.NewWriter(dst)
	if err != nil {
		return err
	}
	defer w.Discard()

	if err := inst.Backup(ctx, w); err != nil {
		return err
	}
	logger.Info("Backup written", "archive", dst)
	return nil
}

func runRestore(logger *logging.Logger, inst *instance.Instance, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: caretakerd restore <archive>")
	}
	r, err := archive.NewReader(args[0])
	if err != nil {
		return err
	}
	return inst.Restore(context.Background(), r)
}

func applyNetwork(cfg *config.Config, logger *logging.Logger, m *metrics.Metrics) error {
	conn, err := dbus.SystemBus()
	if err != nil {
		return fmt.Errorf("connecting to system bus: %w", err)
	}

	client := nmbus.New(conn, logger, m)
	for _, ic := range cfg.Network.Interfaces {
		iface, err := ic.ToModel()
		if err != nil {
			return err
		}
		if _, err := client.Apply(context.Background(), iface); err != nil {
			return err
		}
	}
	return nil
}

// renderNetwork prints the key-file form of every configured profile,
// for inspection without touching NetworkManager.
func renderNetwork(cfg *config.Config, m *metrics.Metrics) error {
	for _, ic := range cfg.Network.Interfaces {
		iface, err := ic.ToModel()
		if err != nil {
			return err
		}
		text, err := netprofile.RenderProfileText(iface, "", "")
		if err != nil {
			return err
		}
		m.ProfilesRendered.Inc()
		fmt.Println(text)
	}
	return nil
}
