package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nichecast/internal/lifecycle"
	"nichecast/internal/redisclient"
	"nichecast/internal/storage"

	"github.com/spf13/cobra"
)

var approveCmd = &cobra.Command{
	Use:   "approve <post_id>",
	Short: "Approve a post that is waiting for review",
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

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		p, err := store.TransitionPost(ctx, args[0], lifecycle.StatusApproved, nil)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Post %s approved (%s)\n", p.ID, p.SourceTitle)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(approveCmd)
}
