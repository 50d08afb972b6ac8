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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"timetable-service/internal/auth"
	"timetable-service/internal/config"
	"timetable-service/internal/logging"
	"timetable-service/internal/realtime"
	"timetable-service/internal/server"
	"timetable-service/internal/timeline"
	"timetable-service/internal/view"
	"timetable-service/internal/wizard"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "timetable"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		envFile  string
		logLevel string
	)

	serve := func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(envFile, logLevel)
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck
		return runServe(cmd.Context(), cfg, logger)
	}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Universal Timeline Maker service",
		Long: `Serves the timeline wizard, the timeline API and the timeline pages.

Configuration is read from the environment and an optional .env file.`,
		SilenceUsage: true,
		RunE:         serve,
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path of an optional .env file")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE:  serve,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(envFile, logLevel)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			pool, err := pgxpool.New(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			if err := migrate(cmd.Context(), pool); err != nil {
				return err
			}
			logger.Info("schema up to date")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func setup(envFile, logLevel string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if err := auth.AutoMigrate(ctx, pool); err != nil {
		return fmt.Errorf("migrate auth: %w", err)
	}
	if err := timeline.AutoMigrate(ctx, pool); err != nil {
		return fmt.Errorf("migrate timelines: %w", err)
	}
	return nil
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func runServe(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	if err := migrate(ctx, pool); err != nil {
		return err
	}

	rdb, err := connectRedis(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		logger.Info("connected to redis")
	} else {
		logger.Warn("REDIS_URL not set: drafts kept in memory, live updates disabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.SessionTTL)
	users := auth.NewPostgresUserStore(pool)
	provider := auth.NewGoogleProvider(auth.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL(),
	}, &http.Client{Timeout: 10 * time.Second})

	// A nil *redis.Client must not end up inside the interface.
	var publisher timeline.Publisher
	if rdb != nil {
		publisher = rdb
	}
	svc := timeline.NewService(timeline.NewPostgresStore(pool), users, publisher, timeline.NewMetrics(reg), logger)

	var (
		drafts wizard.DraftStore = wizard.NewMemoryDraftStore(cfg.WizardDraftTTL)
		locker wizard.Locker     = wizard.NewMemoryLocker()
	)
	if rdb != nil {
		drafts = wizard.NewRedisDraftStore(rdb, cfg.WizardDraftTTL)
		locker = wizard.NewRedisLocker(rdb, cfg.SaveLockTTL)
	}
	saver := wizard.NewSaver(svc, drafts, locker, wizard.NewMetrics(reg), logger)

	pages, err := view.NewPages(svc, cfg.SiteURL, cfg.Location(), logger)
	if err != nil {
		return err
	}

	checks := map[string]server.Check{
		"postgres": pool.Ping,
	}

	var live *realtime.Server
	if rdb != nil {
		hub := realtime.NewHub(realtime.NewMetrics(reg))
		go hub.Run(ctx)

		live = realtime.NewServer(hub, rdb, svc, append([]string{cfg.SiteURL}, cfg.CORSAllowedOrigins...), logger)
		go func() {
			if err := live.RunRedisSubscriber(ctx); err != nil {
				logger.Error("redis subscriber stopped", zap.Error(err))
			}
		}()

		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	router := server.NewRouter(server.Deps{
		Logger:             logger,
		Tokens:             tokens,
		Auth:               auth.NewHandler(provider, users, tokens, cfg.SecureCookies(), logger),
		Timelines:          timeline.NewHandler(svc),
		Wizard:             wizard.NewHandler(drafts, saver, logger),
		Pages:              pages,
		Realtime:           live,
		Gatherer:           reg,
		Checks:             checks,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		CreateRateWindow:   cfg.CreateRateWindow,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("site", cfg.SiteURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server exited")
	return nil
}
