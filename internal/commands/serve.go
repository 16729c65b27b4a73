package commands

import (
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"studynote/internal/assistant"
	"studynote/internal/bot"
	"studynote/internal/config"
	"studynote/internal/scheduler"
	"studynote/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot with the reminder sweep and daily digest",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		if a.cfg.TelegramToken == "" {
			return fmt.Errorf("TELEGRAM_TOKEN is not set")
		}

		expander := service.NewExpander(a.store)
		chat := assistant.NewClient(a.cfg.GeminiAPIKey)

		tgBot, err := bot.New(a.cfg.TelegramToken, a.tasks, expander, a.digest, chat, a.kv)
		if err != nil {
			return fmt.Errorf("start bot: %w", err)
		}

		reconciler := service.NewReconciler(a.store, tgBot, tgBot)
		tgBot.BindReconciler(reconciler)

		sched := scheduler.New(time.Local)
		if _, err := sched.Every(a.cfg.SweepInterval, func() {
			if err := reconciler.Sweep(ctx); err != nil {
				log.Printf("[error] sweep: %v", err)
			}
		}); err != nil {
			return fmt.Errorf("schedule sweep: %w", err)
		}

		clock, err := config.ParseClock(a.cfg.DigestTime)
		if err != nil {
			return err
		}
		if _, err := sched.Daily(clock[0], clock[1], func() {
			if err := a.digest.SendDaily(ctx); err != nil {
				log.Printf("[error] daily digest: %v", err)
			}
		}); err != nil {
			return fmt.Errorf("schedule digest: %w", err)
		}

		sched.Start()
		defer sched.Stop()

		log.Printf("[info] studynote is running, sweep every %s, digest at %s", a.cfg.SweepInterval, a.cfg.DigestTime)
		return tgBot.Start(ctx)
	},
}
