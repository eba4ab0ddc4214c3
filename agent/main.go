package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pc-insight/agent/internal/analyzer"
	"pc-insight/agent/internal/api"
	"pc-insight/agent/internal/config"
	"pc-insight/agent/internal/executor"
	"pc-insight/agent/internal/logger"
	"pc-insight/agent/internal/service"
	"pc-insight/agent/internal/store"
	"pc-insight/agent/internal/sysinfo"
)

func main() {
	cfg := config.Init()
	if err := logger.Init(cfg.LogPath); err != nil {
		fmt.Fprintln(os.Stderr, "cannot open log file:", err)
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:           "pc-insight",
		Short:         "pc-insight device agent",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(linkCmd(cfg), agentCmd(cfg), runCmd(), outboxCmd(cfg))

	if err := root.Execute(); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func linkCmd(cfg config.AppConfig) *cobra.Command {
	var server string
	cmd := &cobra.Command{
		Use:   "link <token>",
		Short: "Link this device using an enrollment token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			info := sysinfo.Collect(ctx, cfg.AgentVersion)
			logger.Infof("Linking device %q to %s", info.DeviceName, server)

			result, err := api.NewClient().Enroll(ctx, server, args[0], info)
			if err != nil {
				return fmt.Errorf("enroll: %w", err)
			}
			ids := store.NewIdentityStore(cfg.DataDir)
			normalized, err := api.NormalizeServerURL(server)
			if err != nil {
				return err
			}
			if err := ids.Save(&store.Identity{
				ServerURL:   normalized,
				DeviceID:    result.DeviceID,
				DeviceToken: result.DeviceToken,
				LinkedAt:    time.Now().UTC(),
			}); err != nil {
				return fmt.Errorf("save identity: %w", err)
			}
			logger.Infof("Device linked, id=%s", result.DeviceID)
			logger.Info("Run \"pc-insight agent\" to start receiving commands")
			return nil
		},
	}
	cmd.Flags().StringVarP(&server, "server", "s", cfg.ServerURL, "API server URL")
	return cmd
}

func agentCmd(cfg config.AppConfig) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Start the agent in polling mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := store.NewIdentityStore(cfg.DataDir)
			identity, err := ids.Load()
			if err != nil {
				return err
			}
			if identity == nil {
				return fmt.Errorf("%w; run \"pc-insight link <token>\" first", store.ErrNotLinked)
			}
			logger.Infof("Device: %s", identity.DeviceID)
			logger.Infof("Server: %s", identity.ServerURL)

			db, err := store.Open(cfg.DataDir)
			if err != nil {
				return err
			}
			ledger := store.NewLedger(db, store.DefaultLedgerCap)
			outbox := store.NewOutbox(db)
			outbox.OnPermanentFailure = func(item store.OutboxItem) {
				logger.Errorf("Report for command %q dropped after %d delivery attempts", item.CommandID, item.RetryCount)
			}

			client := api.NewClient()
			exec := executor.New(client, ledger, outbox, analyzer.NewSystemProducer())
			daemon := service.NewDaemon(client, exec, outbox, ids, identity, interval)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := daemon.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			logger.Info("Shutdown signal received, exiting")
			return nil
		},
	}
	cmd.Flags().DurationVarP(&interval, "interval", "i", cfg.PollInterval, "Polling interval")
	return cmd
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [profile]",
		Short: "Run local analysis without uploading",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile := analyzer.ProfileFull
			if len(args) == 1 {
				profile = analyzer.Profile(args[0])
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			report, err := analyzer.NewSystemProducer().Run(ctx, profile)
			if err != nil {
				return fmt.Errorf("analysis: %w", err)
			}
			logger.Infof("Health score: %d/100", report.HealthScore)
			logger.Infof("Disk free: %.1f%%", report.DiskFreePercent)
			logger.Infof("Summary: %s", report.OneLiner)
			for _, f := range report.Storage.Folders {
				logger.Infof("  %s: %d files, %d bytes", f.Name, f.FileCount, f.Bytes)
			}
			return nil
		},
	}
}

func outboxCmd(cfg config.AppConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "outbox",
		Short: "List reports pending delivery",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := store.Open(cfg.DataDir)
			if err != nil {
				return err
			}
			items, err := store.NewOutbox(db).List()
			if err != nil {
				return err
			}
			if len(items) == 0 {
				logger.Info("Outbox is empty")
				return nil
			}
			for _, item := range items {
				logger.Infof("%s command=%s retries=%d created=%s", item.ID, item.CommandID, item.RetryCount, item.CreatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
}
