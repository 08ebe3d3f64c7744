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
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"github.com/ponyo877/bingo/server/adaptor"
	"github.com/ponyo877/bingo/server/config"
	"github.com/ponyo877/bingo/server/domain"
	"github.com/ponyo877/bingo/server/repository"
	"github.com/ponyo877/bingo/server/usecase"
)

const (
	healthInterval  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

var (
	envFile    string
	configFile string
)

var rootCmd = &cobra.Command{
	Use:           "bingo-server",
	Short:         "Multiplayer bingo room server",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(viper.GetViper(), envFile, configFile)
		if err != nil {
			return err
		}
		setupLogger(cfg)
		return run(cmd.Context(), cfg)
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file to load")
	flags.StringVar(&configFile, "config", "", "config file (yaml, toml or json)")
	flags.String("http-addr", ":8080", "websocket and health listen address")
	flags.String("grpc-addr", ":50051", "grpc health listen address")
	flags.String("store", config.StoreMemory, "room store: memory, sqlite or postgres")
	flags.String("sqlite-path", "./bingo.db", "sqlite database file")
	flags.String("postgres-url", "", "postgres connection string")
	flags.String("log-level", "info", "log level")
	flags.String("log-format", "json", "log format: json or console")
	flags.Bool("auto-start", true, "start a game once two players are seated")

	for key, flag := range map[string]string{
		config.HTTPAddrKey:    "http-addr",
		config.GRPCAddrKey:    "grpc-addr",
		config.StoreKey:       "store",
		config.SQLitePathKey:  "sqlite-path",
		config.PostgresURLKey: "postgres-url",
		config.LogLevelKey:    "log-level",
		config.LogFormatKey:   "log-format",
		config.AutoStartKey:   "auto-start",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			log.Fatal().Err(err).Str("flag", flag).Msg("failed to bind flag")
		}
	}
}

func setupLogger(cfg config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func openRepository(ctx context.Context, cfg config.Config) (usecase.Repository, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		return repository.OpenSQLite(cfg.SQLitePath)
	case config.StorePostgres:
		return repository.OpenPostgres(ctx, cfg.PostgresURL)
	default:
		return repository.NewMemoryRepository(), nil
	}
}

func run(ctx context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Store, err)
	}
	registry := usecase.NewRoomRegistry(repo, cfg.StoreTimeout)
	if err := registry.Open(ctx); err != nil {
		repo.Close()
		return err
	}
	defer func() {
		if err := registry.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("failed to close room store")
		}
	}()

	gateway := usecase.NewGateway(registry, domain.NewHub(), usecase.WithAutoStart(cfg.AutoStart))
	ad := adaptor.NewAdaptor(gateway, adaptor.Options{
		OutboxSize:     cfg.OutboxSize,
		RateLimit:      cfg.RateLimit,
		RateBurst:      cfg.RateBurst,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           adaptor.NewRouter(ad),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	var grpcServer *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddr, err)
		}
		hs := health.NewServer()
		grpcServer = adaptor.NewGRPCServer(hs)
		go adaptor.WatchHealth(ctx, gateway, hs, healthInterval)
		go func() {
			log.Info().Str("addr", cfg.GRPCAddr).Msg("grpc health server is running")
			if err := grpcServer.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("store", cfg.Store).Msg("bingo server is running")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err = <-errCh:
		log.Error().Err(err).Msg("server stopped unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := httpServer.Shutdown(shutdownCtx); serr != nil {
		log.Warn().Err(serr).Msg("http shutdown incomplete")
	}
	if serr := ad.Shutdown(shutdownCtx); serr != nil {
		log.Warn().Err(serr).Msg("websocket sessions did not finish")
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("bingo server failed")
	}
}
