// Package cmd wires the oracle-backend process together: cobra command
// tree, zerolog setup, dependency graph construction (adapters, aggregator,
// cache, history store, health tracker, HTTP router), and graceful
// shutdown -- in the same shape as the teacher's own cmd/price-feeder.go
// (persistent log-level/log-format flags, a serve subcommand that builds
// the graph and blocks on an errgroup.Group, trapSignal for OS signal
// handling).
package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kujira-labs/oracle-backend/config"
	"github.com/kujira-labs/oracle-backend/oracle"
	"github.com/kujira-labs/oracle-backend/oracle/adapter"
	"github.com/kujira-labs/oracle-backend/oracle/aggregator"
	"github.com/kujira-labs/oracle-backend/oracle/cache"
	"github.com/kujira-labs/oracle-backend/oracle/health"
	"github.com/kujira-labs/oracle-backend/oracle/history"
	"github.com/kujira-labs/oracle-backend/oracle/rpcclient"
	v1 "github.com/kujira-labs/oracle-backend/router/v1"
)

const (
	logFormatJSON = "json"
	logFormatText = "text"

	flagLogLevel    = "log-level"
	flagLogFormat   = "log-format"
	flagFeedsFile   = "feeds-file"
	defaultFeedsCfg = "feeds.toml"

	// version is bumped on release; reported by the version subcommand the
	// same way the teacher's price-feeder reports its own build version.
	version = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   "oracle-backend",
	Short: "oracle-backend serves consensus asset prices over HTTP",
	Long: `oracle-backend combines readings from several independent on-chain
oracle feeds into a single consensus price per symbol, persists every served
reading and oracle health transition, and exposes both over an HTTP API.`,
}

func init() {
	rootCmd.PersistentFlags().String(flagLogLevel, zerolog.InfoLevel.String(), "logging level")
	rootCmd.PersistentFlags().String(flagLogFormat, logFormatText, "logging format; must be either json or text")

	rootCmd.AddCommand(getServeCmd())
	rootCmd.AddCommand(getVersionCmd())
}

// Execute adds all child commands to the root command. Called once from
// main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func getVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the oracle-backend version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version)
			return nil
		},
	}
}

func buildLogger(cmd *cobra.Command) (zerolog.Logger, error) {
	logLvlStr, err := cmd.Flags().GetString(flagLogLevel)
	if err != nil {
		return zerolog.Logger{}, err
	}
	logLvl, err := zerolog.ParseLevel(logLvlStr)
	if err != nil {
		return zerolog.Logger{}, err
	}

	logFormatStr, err := cmd.Flags().GetString(flagLogFormat)
	if err != nil {
		return zerolog.Logger{}, err
	}

	var logWriter io.Writer
	switch strings.ToLower(logFormatStr) {
	case logFormatJSON:
		logWriter = os.Stderr
	case logFormatText:
		logWriter = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.StampMilli}
	default:
		return zerolog.Logger{}, fmt.Errorf("invalid logging format: %s", logFormatStr)
	}

	zerolog.TimeFieldFormat = time.StampMilli
	return zerolog.New(logWriter).Level(logLvl).With().Timestamp().Logger(), nil
}

func getServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the oracle-backend HTTP server",
		RunE:  serveCmdHandler,
	}
	serveCmd.Flags().String(flagFeedsFile, defaultFeedsCfg, "path to the static feed registry TOML file")
	return serveCmd
}

func serveCmdHandler(cmd *cobra.Command, args []string) error {
	logger, err := buildLogger(cmd)
	if err != nil {
		return err
	}

	feedsPath, err := cmd.Flags().GetString(flagFeedsFile)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	feeds, err := config.LoadFeedRegistry(feedsPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	g, ctx := errgroup.WithContext(ctx)

	// listen for and trap any OS signal to gracefully shutdown and exit,
	// the same as the teacher's own trapSignal.
	trapSignal(cancel, logger)

	rpc := rpcclient.New(cfg.SolanaRPCURL, logger)

	pythAdapter := adapter.NewPythAdapter(rpc, logger)
	for _, f := range feeds.Pyth {
		if err := pythAdapter.Register(f.Symbol, f.Address); err != nil {
			return fmt.Errorf("failed to register pyth feed %s: %w", f.Symbol, err)
		}
	}

	switchboardAdapter := adapter.NewSwitchboardAdapter(rpc, logger)
	for _, f := range feeds.Switchboard {
		if err := switchboardAdapter.Register(f.Symbol, f.Address); err != nil {
			return fmt.Errorf("failed to register switchboard feed %s: %w", f.Symbol, err)
		}
	}

	tracker := health.New()

	store, err := history.Open(cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	recorder := health.NewPersistentRecorder(tracker, store, logger)

	agg := aggregator.New(
		[]adapter.Adapter{pythAdapter, switchboardAdapter},
		recorder,
		aggregator.Config{
			MaxPriceAgeSeconds: cfg.Oracle.MaxPriceAgeSeconds,
			MaxConfidenceBps:   cfg.Oracle.MaxConfidenceBps,
			MaxDeviationBps:    cfg.Oracle.MaxDeviationBps,
		},
		logger,
	)

	cacheBackend, err := buildCache(cfg, logger)
	if err != nil {
		return err
	}
	fetcher := cache.NewFetcher(cacheBackend, logger)

	svc := oracle.New(agg, fetcher, cacheBackend, store, tracker, logger)

	g.Go(func() error {
		return svc.RunRetentionSweep(ctx, config.DefaultRetentionInterval, config.DefaultRetentionMaxAge)
	})

	g.Go(func() error {
		return serveHTTP(ctx, logger, cfg, svc)
	})

	// Block main process until all spawned goroutines have gracefully
	// exited and the shutdown signal has been captured.
	return g.Wait()
}

func buildCache(cfg config.Config, logger zerolog.Logger) (cache.Cache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("invalid redis url, falling back to in-process cache")
		return cache.NewMemory(config.DefaultCacheTTL), nil
	}
	client := redis.NewClient(opts)
	return cache.NewRedis(client, config.DefaultCacheTTL), nil
}

// trapSignal listens for SIGTERM/SIGINT and cancels the process's root
// context, allowing every goroutine in the errgroup to exit gracefully.
func trapSignal(cancel context.CancelFunc, logger zerolog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM)
	signal.Notify(sigCh, syscall.SIGINT)

	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("caught signal; shutting down...")
		cancel()
	}()
}

func serveHTTP(ctx context.Context, logger zerolog.Logger, cfg config.Config, svc *oracle.Service) error {
	rtr := mux.NewRouter()
	v1Router := v1.New(logger, svc, cfg.CORS)
	v1Router.RegisterRoutes(rtr, v1.APIPathPrefix)

	srvErrCh := make(chan error, 1)
	srv := &http.Server{
		Handler:           rtr,
		Addr:              cfg.Server.ListenAddr(),
		WriteTimeout:      15 * time.Second,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info().Str("listen_addr", cfg.Server.ListenAddr()).Msg("starting oracle-backend server...")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			srvErrCh <- err
			return
		}
		srvErrCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		logger.Info().Str("listen_addr", cfg.Server.ListenAddr()).Msg("shutting down oracle-backend server...")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to gracefully shutdown oracle-backend server")
			return err
		}
		return nil

	case err := <-srvErrCh:
		if err != nil {
			logger.Error().Err(err).Msg("oracle-backend server failed")
		}
		return err
	}
}
