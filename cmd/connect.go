package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nichecast/internal/redisclient"
	"nichecast/internal/storage"
	"nichecast/internal/whatsapp"

	"github.com/spf13/cobra"
)

var connectCmd = &cobra.Command{
	Use:   "connect <tenant_id>",
	Short: "Provision a WhatsApp instance for a tenant and print its QR code",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 {
			return errors.New("requires <tenant_id>")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		rdb := redisclient.New(cfg.Redis)
		defer rdb.Close()
		store := storage.NewRedisStore(rdb)

		client, err := whatsapp.NewClient(cfg.WhatsApp)
		if err != nil {
			return err
		}
		mgr := whatsapp.NewManager(store, client, client.ServerURL(), cfg.WhatsApp.WebhookURL)

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		res, err := mgr.Connect(ctx, args[0])
		if err != nil {
			return err
		}
		if res.AlreadyConnected {
			fmt.Fprintf(cmd.OutOrStdout(), "Instance %s already connected as %s\n", res.InstanceID, res.Phone)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Instance %s created\n", res.InstanceID)
		if res.QRCode != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "QR (base64):\n%s\n", res.QRCode)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "QR not ready yet, poll the status endpoint")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
}
