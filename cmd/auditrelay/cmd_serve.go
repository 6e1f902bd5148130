package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/user/auditrelay/internal/forwarder"
	"github.com/user/auditrelay/internal/health"
	"github.com/user/auditrelay/internal/heartbeat"
	"github.com/user/auditrelay/internal/inspector"
	"github.com/user/auditrelay/internal/ledger"
	"github.com/user/auditrelay/internal/pipeline"
	"github.com/user/auditrelay/internal/telegram"
	"github.com/user/auditrelay/internal/uptime"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the auditrelay daemon",
	RunE:  runServe,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, "auditrelay.pid")
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required (config telegram.token or TELEGRAM_BOT_TOKEN)")
	}
	if cfg.Audit.ChatID == 0 {
		return fmt.Errorf("audit chat ID is required (config audit.chat_id or AUDIT_CHAT_ID)")
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	clock := uptime.NewClock()
	led := ledger.New()

	adapter, err := telegram.New(cfg.Telegram.Token)
	if err != nil {
		return fmt.Errorf("create telegram adapter: %w", err)
	}

	pipe := pipeline.New(
		led,
		clock,
		forwarder.New(adapter, cfg.Audit.ChatID),
		inspector.New(adapter),
		adapter,
		adapter,
		cfg.Audit.OwnerID,
	)

	httpServer := &http.Server{
		Addr:    cfg.HTTP.Listen,
		Handler: health.NewServer(clock),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slog.Info("auditrelay started",
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"audit_chat_id", cfg.Audit.ChatID,
		"listen", cfg.HTTP.Listen,
		"pid_file", pidPath,
	)

	if cfg.Heartbeat.Schedule != "" {
		hb, err := heartbeat.New(cfg.Heartbeat.Schedule, clock, led)
		if err != nil {
			return fmt.Errorf("start heartbeat: %w", err)
		}
		hb.Start()
		defer hb.Stop()
		slog.Info("heartbeat started", "schedule", cfg.Heartbeat.Schedule)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("telegram pipeline started")
		adapter.Start(gctx, pipe)
		return nil
	})

	g.Go(func() error {
		slog.Info("health server started", "listen", cfg.HTTP.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return httpServer.Close()
	})

	g.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		defer signal.Stop(sigChan)
		for {
			select {
			case <-gctx.Done():
				return nil
			case sig := <-sigChan:
				if sig == syscall.SIGHUP {
					slog.Info("received SIGHUP, restarting")
					execPath, err := os.Executable()
					if err != nil {
						slog.Error("failed to get executable path", "error", err)
						continue
					}
					os.Remove(pidPath)
					if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
						slog.Error("failed to re-exec", "error", err)
						if _, writeErr := writePIDFile(cfg.DataDir); writeErr != nil {
							slog.Error("failed to re-write PID file", "error", writeErr)
						}
						continue
					}
				}
				slog.Info("shutting down", "signal", sig)
				cancel()
				return nil
			}
		}
	})

	return g.Wait()
}
