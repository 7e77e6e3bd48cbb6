package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"hospitaldesk/internal/config"
	"hospitaldesk/internal/database"
	"hospitaldesk/internal/repositories"
	"hospitaldesk/internal/server"
	"hospitaldesk/internal/services"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "hospitaldesk",
		Short:        "Hospital information desk API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(createAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func createAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			name, _ := cmd.Flags().GetString("name")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			db, err := database.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
			if err != nil {
				return err
			}
			defer db.Close(context.Background())

			userRepo := repositories.NewUserRepository(db)
			if err := userRepo.EnsureIndexes(ctx); err != nil {
				return fmt.Errorf("ensure users indexes: %w", err)
			}

			tokens := services.NewTokenService(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenExpiry, cfg.RefreshTokenExpiry)
			admin, err := services.NewUserService(userRepo, tokens, cfg.PhoneCountryCode).CreateAdmin(ctx, email, password, name)
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}

			log.Info().Str("user_id", admin.ID.Hex()).Str("email", admin.Email).Msg("Admin account created")
			return nil
		},
	}
	cmd.Flags().String("email", "", "Admin email address")
	cmd.Flags().String("password", "", "Admin password (at least 8 characters)")
	cmd.Flags().String("name", "", "Display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	setupLogger(cfg)
	return cfg, nil
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDev() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("Failed to disconnect from MongoDB")
		}
	}()

	// Without the doctor directory the chatbot still answers hospital questions.
	var doctorPool *pgxpool.Pool
	if pool, err := database.NewDoctorPool(ctx, cfg.DoctorDatabaseURL, cfg.DBMaxConns, cfg.DBMinConns); err != nil {
		log.Warn().Err(err).Msg("Doctor directory unavailable, continuing without it")
	} else {
		doctorPool = pool
	}
	if doctorPool != nil {
		defer doctorPool.Close()
	}

	s, err := server.NewServer(ctx, cfg, db, doctorPool)
	if err != nil {
		return err
	}

	done := make(chan bool, 1)

	go s.GracefulShutdown(done)

	err = s.Start()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}

	<-done
	log.Info().Msg("Graceful shutdown complete.")
	return nil
}
