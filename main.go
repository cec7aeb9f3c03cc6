package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smack-integrations/config"
	"smack-integrations/handlers"
	"smack-integrations/middleware"
	"smack-integrations/store"

	log "github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
	"github.com/spf13/cobra"
)

func main() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	var cfg *config.Config

	cmd := &cobra.Command{
		Use:          "smack",
		Short:        "Chat server with incoming webhook integrations",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load()
			if err != nil {
				return err
			}
			cfg = c
			log.SetLevel(cfg.Level())
			return nil
		},
	}

	cmd.AddCommand(serveCommand(&cfg))
	cmd.AddCommand(postCommand())

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCommand(cfg **config.Config) *cobra.Command {
	var port string
	var dbPath string

	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"server", "s"},
		Short:   "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := *cfg
			if cmd.Flags().Changed("port") {
				c.Port = port
			}
			if cmd.Flags().Changed("db") {
				c.DBPath = dbPath
			}
			return serve(cmd.Context(), c)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "port to listen on")
	cmd.Flags().StringVar(&dbPath, "db", "", "path to the sqlite database")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	middleware.SetSecret(cfg.JWTSecret)

	s, err := store.New(cfg.DBPath)
	if err != nil {
		log.WithError(err).Error("failed to initialize database")
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := handlers.NewServer(s, cfg)
	srv.Start(ctx)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{"port": cfg.Port, "db": cfg.DBPath}).Info("smack server starting")
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// postCommand sends a message through an incoming webhook, the same way a
// Slack client would.
func postCommand() *cobra.Command {
	var msg slack.WebhookMessage

	cmd := &cobra.Command{
		Use:   "post <hook-url>",
		Short: "Post a message to an incoming webhook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if msg.Text == "" {
				return errors.New("--text is required")
			}
			if err := slack.PostWebhookContext(cmd.Context(), args[0], &msg); err != nil {
				return err
			}
			log.WithField("url", args[0]).Info("message posted")
			return nil
		},
	}

	cmd.Flags().StringVar(&msg.Text, "text", "", "message text")
	cmd.Flags().StringVar(&msg.Username, "username", "", "override the poster's display name")
	cmd.Flags().StringVar(&msg.IconURL, "icon-url", "", "override the poster's avatar")
	return cmd
}
