package cmd

import (
	"context"
	"fmt"
	"time"

	"nichecast/internal/redisclient"
	"nichecast/internal/storage"
	"nichecast/internal/whatsapp"
	"nichecast/worker"

	"github.com/spf13/cobra"
)

var notifyTenant string

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Send pending-news summaries over the messaging channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		rdb := redisclient.New(cfg.Redis)
		defer rdb.Close()
		store := storage.NewRedisStore(rdb)

		waCli, err := whatsapp.NewClient(cfg.WhatsApp)
		if err != nil {
			return err
		}

		notifier := &worker.Notifier{Store: store, Messenger: waCli}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if notifyTenant != "" {
			sent, err := notifier.RunTenant(ctx, notifyTenant)
			if err != nil {
				return err
			}
			if !sent {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to send")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Summary sent for tenant %s\n", notifyTenant)
			return nil
		}
		notifier.RunOnce(ctx)
		return nil
	},
}

func init() {
	notifyCmd.Flags().StringVar(&notifyTenant, "tenant", "", "notify a single tenant instead of all")
	rootCmd.AddCommand(notifyCmd)
}
