package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/UkralStul/studyabroad-realtime/internal/api"
	"github.com/UkralStul/studyabroad-realtime/internal/auth"
	"github.com/UkralStul/studyabroad-realtime/internal/events"
	"github.com/UkralStul/studyabroad-realtime/internal/logging"
	"github.com/UkralStul/studyabroad-realtime/internal/metrics"
	"github.com/UkralStul/studyabroad-realtime/internal/moderation"
	"github.com/UkralStul/studyabroad-realtime/internal/poll"
	"github.com/UkralStul/studyabroad-realtime/internal/realtime"
	"github.com/UkralStul/studyabroad-realtime/internal/service"
)

// serveCmd запускает HTTP и websocket сервер
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the realtime server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&cfg.Port, "port", cfg.Port, "HTTP port")
	serveCmd.Flags().BoolVar(&cfg.Seed, "seed", cfg.Seed, "Fill the store with demo data on start")
	serveCmd.Flags().IntVar(&cfg.HideThreshold, "hide-threshold", cfg.HideThreshold, "Reports that hide a visible post")
}

func runServe(ctx context.Context) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, os.Stdout)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithField("storage", cfg.Storage).Info("starting server")
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	verifier := auth.NewJWTVerifier(cfg.JWTSecret)

	gateway := realtime.NewGateway(realtime.NewRegistry(), verifier, log, m, realtime.Options{
		SendBuffer:   cfg.SendBuffer,
		WriteTimeout: cfg.WriteTimeout,
		PingInterval: cfg.PingInterval,
		ReadLimit:    cfg.ReadLimit,
	})

	forumEvents := events.NewForum(gateway, log)
	notifications := service.NewNotifications(store, events.NewNotifications(gateway, log), log)
	forum := service.NewForum(store, forumEvents, notifications, log)

	router := api.NewRouter(api.Deps{
		Store:         store,
		Verifier:      verifier,
		Gateway:       gateway,
		Gatherer:      reg,
		Forum:         forum,
		Chat:          service.NewChat(store, events.NewChat(gateway, log), log),
		Notifications: notifications,
		Applications:  service.NewApplications(store, events.NewApplications(gateway, log), notifications, log),
		Moderation:    moderation.NewService(store, forumEvents, notifications, m, log, cfg.HideThreshold),
		Polls:         poll.NewService(store, gateway, m, log),
		Log:           log,
	})

	if cfg.Seed {
		// Заполним данными для тестов
		if err := fillWithMockData(ctx, forum, log); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
