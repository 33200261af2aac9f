package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/storefront/internal/app"
	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/service"
)

func newCartCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Manage the shopping cart",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the cart",
		Args:  cobra.NoArgs,
		RunE: withDeps(o, func(_ context.Context, d *app.Deps, out io.Writer, _ []string) error {
			return printCart(out, d.Cart.Lines(), d.Cart.Subtotal())
		}),
	}

	var qty int
	add := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: withDeps(o, func(ctx context.Context, d *app.Deps, out io.Writer, args []string) error {
			id, err := parseID("cart.add", args[0])
			if err != nil {
				return err
			}
			if qty < 1 {
				return apperr.Validation("cart.add", "quantity must be at least 1")
			}
			p, err := d.Catalog.GetProduct(ctx, id)
			if err != nil {
				return err
			}
			line := d.Cart.AddLine(ctx, *p)
			if qty > 1 {
				d.Cart.UpdateQuantity(ctx, id, line.Quantity+qty-1)
			}
			fmt.Fprintf(out, "Added %s.\n", p.Name)
			return printCart(out, d.Cart.Lines(), d.Cart.Subtotal())
		}),
	}
	add.Flags().IntVarP(&qty, "qty", "q", 1, "units to add")

	remove := &cobra.Command{
		Use:   "remove <product-id>",
		Short: "Remove a product from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: withDeps(o, func(ctx context.Context, d *app.Deps, out io.Writer, args []string) error {
			id, err := parseID("cart.remove", args[0])
			if err != nil {
				return err
			}
			if !d.Cart.RemoveLine(ctx, id) {
				_, err := fmt.Fprintf(out, "Product %d is not in your cart.\n", id)
				return err
			}
			return printCart(out, d.Cart.Lines(), d.Cart.Subtotal())
		}),
	}

	set := &cobra.Command{
		Use:   "set <product-id> <quantity>",
		Short: "Set a line's quantity; zero or less removes it",
		Args:  cobra.ExactArgs(2),
		RunE: withDeps(o, func(ctx context.Context, d *app.Deps, out io.Writer, args []string) error {
			id, err := parseID("cart.set", args[0])
			if err != nil {
				return err
			}
			d.Cart.UpdateQuantity(ctx, id, service.ParseQuantity(args[1]))
			return printCart(out, d.Cart.Lines(), d.Cart.Subtotal())
		}),
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: withDeps(o, func(ctx context.Context, d *app.Deps, out io.Writer, _ []string) error {
			d.Cart.Clear(ctx)
			_, err := fmt.Fprintln(out, "Cart cleared.")
			return err
		}),
	}

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Replace the server cart with the local one now",
		Args:  cobra.NoArgs,
		RunE: withDeps(o, func(ctx context.Context, d *app.Deps, out io.Writer, _ []string) error {
			d.Cart.Cancel()
			report, err := d.Cart.SyncToRemote(ctx)
			if perr := printReport(out, report); perr != nil {
				return perr
			}
			return err
		}),
	}

	pull := &cobra.Command{
		Use:   "pull",
		Short: "Merge server-only lines into the local cart",
		Args:  cobra.NoArgs,
		RunE: withDeps(o, func(ctx context.Context, d *app.Deps, out io.Writer, _ []string) error {
			if err := d.Cart.LoadFromRemote(ctx); err != nil {
				return err
			}
			return printCart(out, d.Cart.Lines(), d.Cart.Subtotal())
		}),
	}

	cmd.AddCommand(show, add, remove, set, clearCmd, syncCmd, pull)
	return cmd
}
