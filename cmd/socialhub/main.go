package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"socialhub/internal/auth"
	"socialhub/internal/config"
	"socialhub/internal/database"
	"socialhub/internal/httpapi"
	"socialhub/internal/logging"
	"socialhub/internal/migration"
	"socialhub/internal/migration/commands"
	_ "socialhub/internal/migrations"
	"socialhub/internal/models"
	"socialhub/internal/seed"
	"socialhub/internal/server"
	"socialhub/internal/social"
	"socialhub/internal/telemetry"
)

const serviceName = "socialhub"

func init() {
	migration.GlobalModelRegistry = models.Registry{}
}

type app struct {
	cfg    config.Config
	logger *zap.Logger
	debug  bool
	db     *gorm.DB
}

func (a *app) open(ctx context.Context) (*gorm.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	if err := a.cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	db, err := database.Open(ctx, a.cfg.DatabaseURL, database.Options{
		MaxOpenConns:    a.cfg.DBMaxOpenConns,
		MaxIdleConns:    a.cfg.DBMaxOpenConns / 2,
		ConnMaxLifetime: 30 * time.Minute,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = db
	return db, nil
}

func (a *app) close() {
	if a.db != nil {
		_ = database.Close(a.db)
		a.db = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Social network backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg

			logger, err := logging.New(cfg.LogLevel, a.debug)
			if err != nil {
				return err
			}
			a.logger = logger
			zap.ReplaceGlobals(logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}
	migrateCmd.AddCommand(
		commands.RegisterCmd(),
		commands.InitCmd(a.open),
		commands.CreateCmd(),
		commands.GenerateCmd(),
		commands.UpCmd(a.open),
		commands.DownCmd(a.open),
		commands.StatusCmd(a.open),
		commands.HistoryCmd(a.open),
		commands.ValidateCmd(),
	)

	rootCmd.AddCommand(
		serveCmd(a),
		seedCmd(a),
		tokenCmd(a),
		migrateCmd,
	)
	return rootCmd
}

func serveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.RequireAuth(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdownTracing, err := telemetry.Setup(ctx, serviceName, a.cfg.OTelEndpoint)
			if err != nil {
				return fmt.Errorf("failed to set up tracing: %w", err)
			}
			defer func() {
				if err := shutdownTracing(context.Background()); err != nil {
					a.logger.Warn("failed to flush traces", zap.Error(err))
				}
			}()

			db, err := a.open(ctx)
			if err != nil {
				return err
			}

			migrateFirst, _ := cmd.Flags().GetBool("migrate")
			if migrateFirst {
				if _, err := migration.NewMigrator(db, a.logger).Up(ctx); err != nil {
					return err
				}
			}

			verifier := auth.NewVerifier(a.cfg.JWTSecret, a.cfg.JWTIssuer, a.cfg.JWTAudience)
			handler := httpapi.NewHandler(social.NewService(db, a.logger), func(ctx context.Context) error {
				return database.Ping(ctx, db)
			}, a.logger)

			return server.Run(ctx, server.Config{
				Addr:            a.cfg.HTTPAddr,
				ShutdownTimeout: a.cfg.ShutdownTimeout,
			}, handler.Routes(verifier), a.logger)
		},
	}
	cmd.Flags().Bool("migrate", false, "Apply pending migrations before serving")
	return cmd
}

func seedCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo users, posts and follows",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")

			var fixtures *seed.Fixtures
			var err error
			if file == "" {
				fixtures, err = seed.Default()
			} else {
				var f *os.File
				f, err = os.Open(file)
				if err != nil {
					return fmt.Errorf("failed to open fixtures: %w", err)
				}
				defer f.Close()
				fixtures, err = seed.Load(f)
			}
			if err != nil {
				return err
			}

			db, err := a.open(cmd.Context())
			if err != nil {
				return err
			}

			sum, err := seed.Apply(cmd.Context(), social.NewService(db, a.logger), fixtures, a.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d users, %d posts, %d comments, %d likes, %d follows\n",
				sum.Users, sum.Posts, sum.Comments, sum.Likes, sum.Follows)
			return nil
		},
	}
	cmd.Flags().String("file", "", "YAML fixtures file (defaults to the built-in demo data)")
	return cmd
}

func tokenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token [subject]",
		Short: "Sign a development session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.RequireAuth(); err != nil {
				return err
			}
			email, _ := cmd.Flags().GetString("email")
			username, _ := cmd.Flags().GetString("username")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			verifier := auth.NewVerifier(a.cfg.JWTSecret, a.cfg.JWTIssuer, a.cfg.JWTAudience)
			token, err := verifier.Sign(auth.Identity{
				Subject:  args[0],
				Email:    email,
				Username: username,
			}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().String("email", "", "Email claim")
	cmd.Flags().String("username", "", "Username claim")
	cmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
