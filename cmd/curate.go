package cmd

import (
	"context"
	"fmt"
	"time"

	"nichecast/internal/ai"
	"nichecast/internal/redisclient"
	"nichecast/internal/search"
	"nichecast/internal/storage"
	"nichecast/worker"

	"github.com/spf13/cobra"
)

var curateTenant string

var curateCmd = &cobra.Command{
	Use:   "curate",
	Short: "Run one discovery pass over active niches",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		rdb := redisclient.New(cfg.Redis)
		defer rdb.Close()
		store := storage.NewRedisStore(rdb)

		searchCli, err := search.NewClient(cfg.Search)
		if err != nil {
			return err
		}
		rewriter, err := ai.NewOpenAI(cfg.OpenAI)
		if err != nil {
			return err
		}

		curator := &worker.Curator{Store: store, Search: searchCli, Rewriter: rewriter}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
		defer cancel()

		if curateTenant != "" {
			n, err := curator.RunTenant(ctx, curateTenant)
			if err != nil {
				return err
			}
			if n < 0 {
				return fmt.Errorf("tenant %s has no active niches", curateTenant)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Curated %d news item(s) for tenant %s\n", n, curateTenant)
			return nil
		}
		curator.RunOnce(ctx)
		return nil
	},
}

func init() {
	curateCmd.Flags().StringVar(&curateTenant, "tenant", "", "curate a single tenant instead of all")
	rootCmd.AddCommand(curateCmd)
}
