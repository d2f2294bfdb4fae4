package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nichecast/internal/redisclient"
	"nichecast/internal/social"
	"nichecast/internal/storage"
	"nichecast/worker"

	"github.com/spf13/cobra"
)

var publishCmd = &cobra.Command{
	Use:   "publish <post_id>",
	Short: "Publish an approved post to the configured platforms",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 {
			return errors.New("requires <post_id>")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		rdb := redisclient.New(cfg.Redis)
		defer rdb.Close()
		store := storage.NewRedisStore(rdb)

		pub := &social.Publisher{}
		if cfg.Instagram.AccessToken != "" || cfg.Instagram.AccountID != "" {
			ig, err := social.NewInstagram(cfg.Instagram)
			if err != nil {
				return err
			}
			pub.Instagram = ig
		}
		if cfg.LinkedIn.AccessToken != "" || cfg.LinkedIn.OrganizationID != "" {
			li, err := social.NewLinkedIn(cfg.LinkedIn)
			if err != nil {
				return err
			}
			pub.LinkedIn = li
		}

		w := &worker.Publisher{Store: store, Social: pub}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		res, err := w.RunPost(ctx, args[0])
		if err != nil && len(res.Errors) == 0 {
			return err
		}
		if res.OK() {
			fmt.Fprintf(cmd.OutOrStdout(), "Published post %s (instagram=%s linkedin=%s)\n", args[0], res.InstagramID, res.LinkedInID)
			return nil
		}
		for _, e := range res.Errors {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %s\n", e)
		}
		return fmt.Errorf("publishing partially failed for post %s", args[0])
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)
}
