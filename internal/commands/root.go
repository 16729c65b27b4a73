package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"studynote/internal/config"
	"studynote/internal/email"
	"studynote/internal/repository"
	"studynote/internal/service"
	"studynote/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "studynote",
	Short: "A personal study planner",
	Long: `studynote keeps study, work and personal tasks in one place.
It runs a Telegram bot with reminders, recurring tasks, a calendar view
and a daily email digest.`,
}

// app bundles everything a command needs once the store is open.
type app struct {
	cfg    config.Config
	kv     *repository.KV
	store  *store.TaskStore
	tasks  *service.TaskService
	digest *service.Digest
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	kv := repository.NewKV(db)
	taskStore, err := store.New(ctx, kv, cfg.StoreLatency)
	if err != nil {
		return nil, fmt.Errorf("open task store: %w", err)
	}

	// The sender itself rejects sends while SMTP is unconfigured, so the
	// digest degrades to an error instead of taking the process down.
	sender := email.NewSender(email.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})

	return &app{
		cfg:    cfg,
		kv:     kv,
		store:  taskStore,
		tasks:  service.NewTaskService(taskStore),
		digest: service.NewDigest(taskStore, kv, sender, cfg.DigestTo),
	}, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(digestCmd)
	rootCmd.AddCommand(listCmd)
}
