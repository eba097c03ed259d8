package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dirgate/dirgate/internal/logging"
	"github.com/dirgate/dirgate/internal/permission"
	"github.com/dirgate/dirgate/internal/scope"
	"github.com/dirgate/dirgate/internal/server"
)

var (
	servePort     int
	serveHostname string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dirgate HTTP server",
	Long: `Start dirgate as a server that exposes the permission API.

The file manager preflights actions through the API; prompts queue up
until a UI answers them over the same API.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on")
	serveCmd.Flags().StringVar(&serveHostname, "hostname", "", "Hostname to listen on")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, store, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Keep the in-memory scope cache in step with edits made by other
	// dirgate processes sharing the data directory.
	go store.Watch(ctx)

	engine := scope.NewEngine(store, cfg.Rules)
	queue := permission.NewQueue(cfg.PromptTimeout())
	client := permission.NewClient(engine, store, queue)

	serverConfig := server.DefaultConfig()
	if cfg.Server != nil {
		if cfg.Server.Port > 0 {
			serverConfig.Port = cfg.Server.Port
		}
		if cfg.Server.Hostname != "" {
			serverConfig.Hostname = cfg.Server.Hostname
		}
		if cfg.Server.EnableCORS != nil {
			serverConfig.EnableCORS = *cfg.Server.EnableCORS
		}
	}
	if servePort > 0 {
		serverConfig.Port = servePort
	}
	if serveHostname != "" {
		serverConfig.Hostname = serveHostname
	}

	srv := server.New(serverConfig, store, client)

	go func() {
		logging.Info().
			Str("hostname", serverConfig.Hostname).
			Int("port", serverConfig.Port).
			Str("version", Version).
			Msg("dirgate server listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("server shutdown error")
	}

	logging.Info().Msg("server stopped")
	return nil
}
