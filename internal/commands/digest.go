package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Send today's email digest now",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		if !a.cfg.MailConfigured() {
			return fmt.Errorf("mail is not configured, set SMTP_HOST, SMTP_FROM and DIGEST_TO")
		}
		if err := a.digest.SendNow(ctx); err != nil {
			return err
		}
		fmt.Printf("Digest sent to %s\n", a.cfg.DigestTo)
		return nil
	},
}
