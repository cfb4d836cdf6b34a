// Command opsdesk runs the IT support portal API server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/opsdesk/opsdesk/internal/api"
	"github.com/opsdesk/opsdesk/internal/auth"
	"github.com/opsdesk/opsdesk/internal/cache"
	"github.com/opsdesk/opsdesk/internal/config"
	"github.com/opsdesk/opsdesk/internal/database"
	"github.com/opsdesk/opsdesk/internal/realtime"
	"github.com/opsdesk/opsdesk/internal/repository"
	"github.com/opsdesk/opsdesk/internal/scheduler"
	"github.com/opsdesk/opsdesk/internal/service"
)

var version = "0.3.0"

func main() {
	root := &cobra.Command{
		Use:          "opsdesk",
		Short:        "OpsDesk IT support portal",
		SilenceUsage: true,
	}

	var configPath string
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(configPath)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("opsdesk %s\n", version)
		},
	}

	root.AddCommand(serveCmd, migrateCmd, versionCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMigrate(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	log.Printf("migrate: schema up to date (%s)", cfg.Database.Driver)
	return nil
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := log.Default()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	counts, err := cache.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer counts.Close()

	sqlDB := db.DB
	users := repository.NewUserRepository(sqlDB)
	companies := repository.NewCompanyRepository(sqlDB)
	directory := repository.NewDirectoryRepository(sqlDB)
	tickets := repository.NewTicketRepository(sqlDB)
	chats := repository.NewChatRepository(sqlDB)
	notifications := repository.NewNotificationRepository(db)

	jwt := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	hub := realtime.NewHub(logger)

	unreadSvc := service.NewUnreadService(chats, notifications, counts)
	authSvc := service.NewAuthService(users, directory, jwt, logger)
	notifSvc := service.NewNotificationService(notifications, unreadSvc, hub, logger)
	chatSvc := service.NewChatService(chats, tickets, directory, unreadSvc, hub, logger)
	ticketSvc := service.NewTicketService(tickets, directory, notifSvc, hub, logger)

	sched := scheduler.New(unreadSvc, hub, logger)
	if err := sched.Start(cfg.Scheduler.RefreshInterval); err != nil {
		return err
	}

	router := api.NewRouter(api.Deps{
		Auth:          authSvc,
		Tickets:       ticketSvc,
		Chats:         chatSvc,
		Notifications: notifSvc,
		Unread:        unreadSvc,
		Companies:     companies,
		Directory:     directory,
		JWT:           jwt,
		Hub:           hub,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Engine(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("serve: listening on %s", cfg.Server.Addr())
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Printf("serve: received %s, shutting down", sig)
	}

	sched.Stop()
	hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
