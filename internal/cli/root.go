// Package cli is the storefront command line. Every command builds the app
// container, restores the session and cart, runs, and flushes on exit.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Skotchmaster/storefront/internal/app"
	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/logging"
)

const closeTimeout = 30 * time.Second

type options struct {
	cfgFile   string
	ephemeral bool
}

func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "storefront",
		Short: "Storefront client for the beauty products shop",
		Long: `storefront talks to the shop backend: browse the catalog, keep a cart
in sync across devices, place orders for approval, pay for approved orders
and, for the shop administrator, approve or reject pending orders.

Session, cart and shuffle state persist in the local store between runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default ./storefront.yaml)")
	root.PersistentFlags().BoolVar(&opts.ephemeral, "ephemeral", false, "keep state in memory for this run only")

	root.AddCommand(
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newRegisterCmd(opts),
		newWhoamiCmd(opts),
		newProfileCmd(opts),
		newPasswordCmd(opts),
		newProductsCmd(opts),
		newCartCmd(opts),
		newOrderCmd(opts),
		newAdminCmd(opts),
		newSandboxCmd(opts),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure. SIGINT and
// SIGTERM cancel the command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errorText(err))
		os.Exit(1)
	}
}

func errorText(err error) string {
	if apperr.KindOf(err) != "" {
		return apperr.UserMessage(err)
	}
	return err.Error()
}

func (o *options) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.cfgFile != "" {
		cfg, err = config.LoadFrom(viper.New(), o.cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if o.ephemeral {
		cfg.Store.Driver = "memory"
	}
	return cfg, nil
}

type runFunc func(ctx context.Context, d *app.Deps, out io.Writer, args []string) error

// withDeps adapts fn into a cobra RunE that owns the container's lifecycle.
func withDeps(o *options, fn runFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := o.loadConfig()
		if err != nil {
			return err
		}
		log := logging.New(cfg.LogLevel)
		ctx := logging.IntoContext(cmd.Context(), log)

		d, err := app.New(ctx, cfg, log)
		if err != nil {
			return err
		}
		d.Start(ctx)

		runErr := fn(ctx, d, cmd.OutOrStdout(), args)

		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		if err := d.Close(closeCtx); err != nil {
			log.Warn("shutdown_failed", "error", err)
		}
		return runErr
	}
}
