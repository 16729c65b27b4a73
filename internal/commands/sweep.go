package commands

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"studynote/internal/service"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one reminder sweep and exit",
	Long: `Runs a single reconciliation pass over all tasks: promotes missed
tasks to overdue, emits upcoming reminders and imminent-completion
prompts. Without the bot running, messages go to the log.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}

		sink := logSink{}
		return service.NewReconciler(a.store, sink, sink).Sweep(ctx)
	},
}

// logSink routes sweep output to the process log when no chat surface is
// attached.
type logSink struct{}

func (logSink) Notify(_ context.Context, message string, severity service.Severity) {
	log.Printf("[%s] %s", severity, message)
}

func (logSink) RequestConfirmation(_ context.Context, prompt service.ConfirmationPrompt) {
	log.Printf("[prompt] %s", prompt.Message)
}
