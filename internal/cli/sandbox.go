package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/sandbox"
)

func newSandboxCmd(o *options) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Serve an in-memory copy of the shop backend",
		Long: `sandbox serves every backend route the client uses from memory, seeded
with a small catalog and an administrator account. Point api_url at it for
demos and manual testing. State is lost on exit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Sandbox.Addr
			}
			log := logging.New(cfg.LogLevel)

			s, err := sandbox.New(sandbox.Options{
				JWTSecret:     cfg.Sandbox.JWTSecret,
				AdminUsername: cfg.AdminUsername,
				AdminPassword: cfg.Sandbox.AdminPassword,
				Logger:        log,
			})
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:         addr,
				Handler:      s.Echo(),
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()
			log.Info("sandbox_started", "addr", addr, "admin", cfg.AdminUsername)
			fmt.Fprintf(cmd.OutOrStdout(), "Sandbox backend listening on %s (admin %s)\n", addr, cfg.AdminUsername)

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}

			log.Info("sandbox_shutting_down")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				log.Error("sandbox_shutdown_failed", "error", err)
				return err
			}
			log.Info("sandbox_stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default sandbox.addr)")
	return cmd
}
