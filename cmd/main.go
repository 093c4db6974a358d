package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
	"gorm.io/gorm"

	citasv1 "github.com/Leganyst/clinic-platform/internal/api/citas/v1"
	"github.com/Leganyst/clinic-platform/internal/auth"
	"github.com/Leganyst/clinic-platform/internal/calendar"
	"github.com/Leganyst/clinic-platform/internal/config"
	"github.com/Leganyst/clinic-platform/internal/db"
	"github.com/Leganyst/clinic-platform/internal/httpapi"
	"github.com/Leganyst/clinic-platform/internal/lock"
	"github.com/Leganyst/clinic-platform/internal/metrics"
	"github.com/Leganyst/clinic-platform/internal/model"
	"github.com/Leganyst/clinic-platform/internal/repository"
	"github.com/Leganyst/clinic-platform/internal/scheduling"
	"github.com/Leganyst/clinic-platform/internal/service"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "clinica-core",
		Short:        "Clinic appointment scheduling core (HTTP + gRPC)",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(usuarioCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and gRPC servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Для миграций JWT и прочее не нужны: только БД.
			config.LoadDotEnv()
			dbCfg, err := config.LoadDBConfig()
			if err != nil {
				return fmt.Errorf("load db config: %w", err)
			}
			gormDB, err := db.NewGormDB(dbCfg)
			if err != nil {
				return fmt.Errorf("init db: %w", err)
			}
			if sqlDB, err := gormDB.DB(); err == nil {
				defer sqlDB.Close()
			}

			if err := model.AutoMigrate(gormDB); err != nil {
				return fmt.Errorf("auto migrate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema migrated (%s)\n", dbCfg.Driver)
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup()
			if err != nil {
				return err
			}
			gormDB, closeDB, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			u, err := calendar.ValidateUser(cmd.Context(), repository.NewGormUsuarioRepository(gormDB), userID)
			if err != nil {
				return fmt.Errorf("validate user %q: %w", userID, err)
			}
			tok, err := auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpiration).Issue(u)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func usuarioCmd() *cobra.Command {
	var (
		email, nombre, rol   string
		pacienteID, medicoID string
	)
	cmd := &cobra.Command{
		Use:   "usuario",
		Short: "Create a user with a role",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !calendar.UserRole(rol).Valid() {
				return fmt.Errorf("unknown role %q", rol)
			}
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			gormDB, closeDB, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			repo := repository.NewGormUsuarioRepository(gormDB)
			u := &model.Usuario{Email: email, Nombre: nombre}
			if pacienteID != "" {
				u.PacienteID = &pacienteID
			}
			if medicoID != "" {
				u.MedicoID = &medicoID
			}
			if err := repo.Create(cmd.Context(), u); err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			if err := repo.SetRol(cmd.Context(), u.ID, rol); err != nil {
				return fmt.Errorf("set role: %w", err)
			}
			logger.Info().Str("usuario_id", u.ID).Str("rol", rol).Msg("user created")
			fmt.Fprintln(cmd.OutOrStdout(), u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringVar(&nombre, "nombre", "", "display name")
	cmd.Flags().StringVar(&rol, "rol", "", "paciente | asistente | doctor")
	cmd.Flags().StringVar(&pacienteID, "paciente-id", "", "linked patient id")
	cmd.Flags().StringVar(&medicoID, "medico-id", "", "linked practitioner id")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("rol")
	return cmd
}

// setup читает .env и окружение и настраивает логгер.
func setup() (*config.Config, zerolog.Logger, error) {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	return cfg, newLogger(cfg), nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

func openDB(cfg *config.Config) (*gorm.DB, func(), error) {
	gormDB, err := db.NewGormDB(&cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("init db: %w", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("sql DB: %w", err)
	}
	return gormDB, func() { _ = sqlDB.Close() }, nil
}

func runServer() error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	// 1. БД и миграции.
	gormDB, closeDB, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB()
	if err := model.AutoMigrate(gormDB); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	logger.Info().Str("driver", cfg.DB.Driver).Msg("connected to database")

	// 2. Репозитории.
	citaRepo := repository.NewGormCitaRepository(gormDB)
	usuarioRepo := repository.NewGormUsuarioRepository(gormDB)
	eventoRepo := repository.NewGormEventoRepository(gormDB)
	medicoRepo := repository.NewGormMedicoRepository(gormDB)
	directory := scheduling.NewDirectory(repository.NewGormPacienteRepository(gormDB), medicoRepo)

	// 3. Блокировка слотов: Redis, если задан, иначе внутри процесса.
	var locker lock.SlotLocker = lock.NewKeyedMutex()
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err := lock.NewRedis(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, cfg.LockTTL)
		logger.Info().Msg("using redis slot lock")
	}

	// 4. Ядро.
	m := metrics.New()
	policy := scheduling.Policy{
		Guard:         scheduling.Guard(cfg.Scheduling.Guard),
		RejectPast:    cfg.Scheduling.RejectPast,
		PastGrace:     cfg.Scheduling.PastGrace,
		CheckOnUpdate: cfg.Scheduling.CheckOnUpdate,
		PageSize:      cfg.Scheduling.PageSize,
	}
	sched := scheduling.NewScheduler(citaRepo, policy,
		scheduling.WithDirectory(directory),
		scheduling.WithAudit(eventoRepo),
		scheduling.WithLocker(locker),
		scheduling.WithMetrics(m),
		scheduling.WithLogger(logger.With().Str("component", "scheduling").Logger()),
	)
	dash := scheduling.NewDashboard(citaRepo, loc, time.Now)
	catalog := scheduling.NewCatalog(medicoRepo, eventoRepo)

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpiration)
	authenticator := auth.NewAuthenticator(tokens, usuarioRepo)

	// 5. HTTP.
	sqlDB, err := gormDB.DB()
	if err != nil {
		return fmt.Errorf("sql DB: %w", err)
	}
	e := httpapi.NewServer(httpapi.Deps{
		Handler: httpapi.NewHandler(sched, dash, catalog, cfg.Scheduling.TodayMax),
		Auth:    authenticator,
		Metrics: m,
		Health:  sqlDB.PingContext,
		Logger:  logger,
	})

	// 6. gRPC.
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(
		service.LoggingInterceptor(logger.With().Str("component", "grpc").Logger()),
		auth.UnaryInterceptor(authenticator),
	))
	citasv1.RegisterCitasServiceServer(grpcServer,
		service.NewCitasService(sched, dash, catalog, cfg.Scheduling.TodayMax, logger.With().Str("component", "grpc").Logger()))
	citasv1.RegisterIdentidadServiceServer(grpcServer, service.NewIdentidadService(usuarioRepo))
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info().Str("addr", cfg.GRPCAddr).Msg("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	// 7. Грейсфул-шатдаун по сигналу или падению одного из серверов.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	var runErr error
	select {
	case <-quit:
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("server failed")
	}

	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
	grpcServer.GracefulStop()
	logger.Info().Msg("servers stopped")
	return runErr
}
