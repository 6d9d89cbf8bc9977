package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ak/millboard/internal/app"
	"github.com/ak/millboard/internal/infrastructure/config"
	"github.com/ak/millboard/internal/infrastructure/database"
	"github.com/ak/millboard/internal/infrastructure/repositories"
	"github.com/ak/millboard/internal/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version   = "0.1.0"
	buildTime = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "millboard",
		Short: "Millboard - textile back-office admin panel",
		Long: `Millboard tracks party orders, fabric qualities, lab samples and
finished output returned by mills. It serves a JSON API under /api and
the admin pages that use it.`,
	}

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("millboard version %s (built %s)\n", version, buildTime)
		},
	})

	// Serve command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the millboard server",
		RunE:  runServe,
	})

	// Create admin command
	adminCmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin user",
		RunE:  runCreateAdmin,
	}
	adminCmd.Flags().String("name", "Administrator", "display name")
	adminCmd.Flags().String("username", "admin", "login username")
	adminCmd.Flags().String("password", "", "login password (or MILLBOARD_ADMIN_PASSWORD)")
	rootCmd.AddCommand(adminCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// bootstrap loads config, the logger and a connected MongoDB client
func bootstrap(ctx context.Context) (*config.Config, *logger.Logger, *database.MongoDB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetGlobal(log)

	mongodb, err := database.NewMongoDB(cfg.MongoDB, log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create MongoDB client: %w", err)
	}
	if err := mongodb.Connect(ctx); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	return cfg, log, mongodb, nil
}

func closeMongo(log *logger.Logger, mongodb *database.MongoDB) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := mongodb.Close(shutdownCtx); err != nil {
		log.Error("Failed to close MongoDB connection", zap.Error(err))
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, log, mongodb, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer log.Sync()
	defer closeMongo(log, mongodb)

	log.Info("Starting millboard",
		zap.String("version", version),
		zap.String("environment", cfg.App.Env),
	)

	application, err := app.New(ctx, cfg, log, mongodb)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	server := &http.Server{
		Addr:         cfg.GetAddress(),
		Handler:      application.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("address", cfg.GetAddress()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))
	}

	log.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server shutdown complete")
	return nil
}

func runCreateAdmin(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		password = os.Getenv("MILLBOARD_ADMIN_PASSWORD")
	}
	if password == "" {
		return errors.New("a password is required: pass --password or set MILLBOARD_ADMIN_PASSWORD")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, log, mongodb, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer log.Sync()
	defer closeMongo(log, mongodb)

	svc := app.NewServices(repositories.NewProvider(mongodb), nil, cfg, log)
	user, err := svc.Users.EnsureAdmin(ctx, name, username, password)
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	log.Info("Admin user created", zap.String("username", user.Username), zap.String("id", user.ID.Hex()))
	fmt.Printf("Admin %q created\n", user.Username)
	return nil
}
