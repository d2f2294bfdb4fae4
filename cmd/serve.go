package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nichecast/internal/ai"
	"nichecast/internal/command"
	"nichecast/internal/httpapi"
	"nichecast/internal/imagegen"
	"nichecast/internal/redisclient"
	"nichecast/internal/search"
	"nichecast/internal/social"
	"nichecast/internal/storage"
	"nichecast/internal/whatsapp"
	"nichecast/worker"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server and batch workers",
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
		imgCli, err := imagegen.NewClient(cfg.ImageGen)
		if err != nil {
			return err
		}
		cache := imagegen.NewCache(cfg.ImageGen.CacheDir, cfg.ImageGen.WebPQuality)

		waCli, err := whatsapp.NewClient(cfg.WhatsApp)
		if err != nil {
			return err
		}
		instances := whatsapp.NewManager(store, waCli, waCli.ServerURL(), cfg.WhatsApp.WebhookURL)

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

		curateInterval, err := time.ParseDuration(cfg.Workers.CurateInterval)
		if err != nil {
			return err
		}
		notifyInterval, err := time.ParseDuration(cfg.Workers.NotifyInterval)
		if err != nil {
			return err
		}

		curator := &worker.Curator{Store: store, Search: searchCli, Rewriter: rewriter, Interval: curateInterval}
		notifier := &worker.Notifier{Store: store, Messenger: waCli, Interval: notifyInterval}

		srv := &httpapi.Server{
			Interpreter: command.NewInterpreter(store, waCli),
			Instances:   instances,
			Store:       store,
			Editor:      &worker.Editor{Store: store, Rewriter: rewriter},
			Designer:    &worker.Designer{Store: store, Generator: imgCli, Cache: cache},
			Publisher:   &worker.Publisher{Store: store, Social: pub},
			Notifier:    notifier,
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		httpSrv := &http.Server{Addr: cfg.HTTP.Addr, Handler: srv.Routes()}
		go func() {
			slog.Info("http: listening", "addr", cfg.HTTP.Addr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("http: server stopped", "err", err)
				cancel()
			}
		}()

		// Signal handling for systemd
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			s := <-sigc
			slog.Info("received signal, shutting down", "signal", s.String())
			shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
			defer stop()
			_ = httpSrv.Shutdown(shutdownCtx)
			cancel()
		}()

		mgr := worker.NewManager(curator, notifier)
		return mgr.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
