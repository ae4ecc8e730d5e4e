// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/tvchannel/internal/api/connect"
	"github.com/osa030/tvchannel/internal/api/rest"
	"github.com/osa030/tvchannel/internal/app/channel"
	"github.com/osa030/tvchannel/internal/app/store"
	infrachannel "github.com/osa030/tvchannel/internal/infra/channel"
	"github.com/osa030/tvchannel/internal/infra/config"
	"github.com/osa030/tvchannel/internal/infra/logger"
	"github.com/osa030/tvchannel/internal/infra/metrics"
)

var (
	app        = kingpin.New("tvchannel-server", "tvchannel playlist cursor server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// check-source command
	checkSourceCmd = app.Command("check-source", "Fetch and validate a channel source document, then exit")
	checkSourceRef = checkSourceCmd.Arg("source", "Source URL or path (default: channel.source from config)").String()
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	if command == checkSourceCmd.FullCommand() {
		if err := checkSource(*checkSourceRef); err != nil {
			fmt.Fprintf(os.Stderr, "check-source: %v\n", err)
			os.Exit(1)
		}
		return
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	met := metrics.New()

	ch, err := channel.NewFromConfig(cfg, met)
	if err != nil {
		return fmt.Errorf("failed to create channel: %w", err)
	}
	defer ch.Close()

	r := chi.NewRouter()
	r.Use(logger.RequestLogger())
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", met.Handler(func() {
		met.SetSubscribers(ch.Notifier().SubscriberCount())
	}).ServeHTTP)
	rest.NewHandler(ch).Routes(r)

	servicePath, serviceHandler := apiconnect.NewChannelServiceHandler(
		apiconnect.NewChannelService(ch),
		connect.WithInterceptors(apiconnect.NewLoggingInterceptor()),
	)
	r.Handle(servicePath+"*", serviceHandler)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Grpc-Status", "Grpc-Message", "Connect-Protocol-Version"},
	})

	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h2c.NewHandler(corsHandler.Handler(r), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// The initial load may fail; polling continues and Reload can recover.
	if err := ch.Start(context.Background()); err != nil {
		zlog.Error().Msgf("Initial load failed: source=%s error=%v", cfg.Channel.Source, err)
	}

	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close the channel first to end subscription streams.
	ch.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")

	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return nil
}

// checkSource loads a source document the way the server does and prints
// its items. When ref is empty the configured source is used.
func checkSource(ref string) error {
	timeout := 10 * time.Second
	if ref == "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			return fmt.Errorf("no source given and config failed: %w", err)
		}
		ref = cfg.Channel.Source
		timeout = cfg.FetchTimeout()
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s := store.New(infrachannel.New(infrachannel.Config{Timeout: timeout}), infrachannel.Parse)
	p, err := s.Load(ctx, ref)
	if err != nil {
		return err
	}

	fmt.Printf("Source: %s\n", ref)
	fmt.Printf("Items:  %d\n", p.Len())
	if !p.IsEmpty() {
		last, _ := p.At(p.Len() - 1)
		fmt.Printf("Last:   %s (%.0fs)\n", last.FormatTimecode(), p.LastTimecode())
	}
	for i, it := range p.Items() {
		fmt.Printf("  %3d  %8s  %s", i, it.FormatTimecode(), it.Title)
		if it.Presenter != "" {
			fmt.Printf(" (%s)", it.Presenter)
		}
		fmt.Println()
		if it.HasMediaSource() {
			fmt.Printf("       media: %s\n", it.MediaSource)
		}
	}
	return nil
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
