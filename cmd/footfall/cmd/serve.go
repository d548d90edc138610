// v0
// cmd/footfall/cmd/serve.go
package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/handlers"
	"github.com/spf13/cobra"

	"it.uniroma2.dicii/nrg-champ/footfall/internal/api"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/generator"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/metrics"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/sink"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the generator over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.load(os.Stdout)
			if err != nil {
				return err
			}
			defer logger.Close()
			log := logger.Logger
			if err := cfg.Validate(); err != nil {
				log.Error("config error", "err", err)
				return err
			}
			if listen != "" {
				cfg.HTTP.ListenAddress = listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			m := metrics.New()
			sinks, err := sink.Build(ctx, cfg.Sinks, log, m)
			if err != nil {
				return err
			}
			defer sinks.Close()

			holidays, err := cfg.Holidays(ctx)
			if err != nil {
				return err
			}
			defaults := cfg.Request(cfg.Metrics[0], holidays)
			server := api.NewServer(generator.NewRunner(log, m), sinks, defaults, log)
			router := api.NewRouter(server, m)

			srv := &http.Server{
				Addr:         cfg.HTTP.ListenAddress,
				Handler:      handlers.RecoveryHandler()(handlers.LoggingHandler(os.Stdout, router)),
				ReadTimeout:  cfg.HTTP.ReadTimeout,
				WriteTimeout: cfg.HTTP.WriteTimeout,
			}
			errCh := make(chan error, 1)
			go func() {
				log.Info("http listening", "addr", cfg.HTTP.ListenAddress)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					log.Error("http server error", "err", err)
					return err
				}
			case <-ctx.Done():
				log.Info("shutdown signal received")
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("http shutdown error", "err", err)
				return err
			}
			log.Info("shutdown complete")
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides http.listen_address)")
	return cmd
}
