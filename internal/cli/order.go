package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Skotchmaster/storefront/internal/app"
	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
)

func newOrderCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Place and follow orders",
	}

	var (
		discounted string
		clearCart  bool
	)
	place := &cobra.Command{
		Use:   "place",
		Short: "Submit the cart for approval",
		Args:  cobra.NoArgs,
		RunE: withDeps(o, func(ctx context.Context, d *app.Deps, out io.Writer, _ []string) error {
			var total *decimal.Decimal
			if discounted != "" {
				v, err := decimal.NewFromString(discounted)
				if err != nil {
					return apperr.Validation("order.place", fmt.Sprintf("%q is not an amount", discounted))
				}
				total = &v
			}
			ord, err := d.Orders.Place(ctx, d.Cart.Lines(), total)
			if err != nil {
				return err
			}
			if clearCart {
				d.Cart.Clear(ctx)
			}
			fmt.Fprintln(out, "Order placed. It is waiting for approval.")
			return printOrder(out, ord)
		}),
	}
	place.Flags().StringVar(&discounted, "discounted-total", "", "total after coupon discounts")
	place.Flags().BoolVar(&clearCart, "clear-cart", false, "empty the cart once the order is placed")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the current order",
		Args:  cobra.NoArgs,
		RunE: withDeps(o, func(ctx context.Context, d *app.Deps, out io.Writer, _ []string) error {
			ord, err := d.Orders.GetStatus(ctx)
			if err != nil {
				return err
			}
			if ord == nil {
				_, err := fmt.Fprintln(out, "No current order.")
				return err
			}
			return printOrder(out, ord)
		}),
	}

	var timeout time.Duration
	watch := &cobra.Command{
		Use:   "watch",
		Short: "Wait for the current order to be approved or rejected",
		Args:  cobra.NoArgs,
		RunE: withDeps(o, func(ctx context.Context, d *app.Deps, out io.Writer, _ []string) error {
			ord, err := d.Orders.GetStatus(ctx)
			if err != nil {
				return err
			}
			if ord == nil {
				_, err := fmt.Fprintln(out, "No current order.")
				return err
			}
			if ord.Status == models.OrderStatusPending {
				fmt.Fprintf(out, "Order #%d is pending approval. Waiting...\n", ord.ID)
				if timeout > 0 {
					var cancel context.CancelFunc
					ctx, cancel = context.WithTimeout(ctx, timeout)
					defer cancel()
				}
				w := d.Orders.WatchStatus(ctx)
				for u := range w.Updates() {
					fmt.Fprintf(out, "%s  order #%d is %s\n", time.Now().Format("15:04:05"), u.ID, u.Status)
				}
				if err := ctx.Err(); errors.Is(err, context.DeadlineExceeded) {
					fmt.Fprintln(out, "Still pending.")
				}
				if cur := d.Orders.Current(); cur != nil {
					ord = cur
				}
			}
			return printOrder(out, ord)
		}),
	}
	watch.Flags().DurationVar(&timeout, "timeout", 0, "give up after this long (0 waits until interrupted)")

	checkout := &cobra.Command{
		Use:   "checkout <order-id>",
		Short: "Create the payment for an approved order",
		Args:  cobra.ExactArgs(1),
		RunE: withDeps(o, func(ctx context.Context, d *app.Deps, out io.Writer, args []string) error {
			id, err := parseID("order.checkout", args[0])
			if err != nil {
				return err
			}
			if _, err := d.Orders.GetStatus(ctx); err != nil {
				return err
			}
			h, err := d.Orders.ProceedToCheckout(ctx, id)
			if err != nil {
				return err
			}
			w := table(out)
			fmt.Fprintf(w, "Order\t#%d\n", h.OrderID)
			fmt.Fprintf(w, "Gateway order\t%s\n", h.GatewayOrderID)
			fmt.Fprintf(w, "Amount\t%s %s\n", decimal.New(h.Amount, -2).StringFixed(2), h.Currency)
			fmt.Fprintf(w, "Key\t%s\n", h.KeyID)
			if err := w.Flush(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "Pay with the gateway, then run: storefront order pay %d --payment-id <id>\n", h.OrderID)
			return err
		}),
	}

	var paymentID string
	pay := &cobra.Command{
		Use:   "pay <order-id>",
		Short: "Confirm a completed gateway payment",
		Args:  cobra.ExactArgs(1),
		RunE: withDeps(o, func(ctx context.Context, d *app.Deps, out io.Writer, args []string) error {
			id, err := parseID("order.pay", args[0])
			if err != nil {
				return err
			}
			if _, err := d.Orders.GetStatus(ctx); err != nil {
				return err
			}
			ord, err := d.Orders.CompletePayment(ctx, id, paymentID)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Payment received. Thank you!")
			return printOrder(out, ord)
		}),
	}
	pay.Flags().StringVar(&paymentID, "payment-id", "", "payment confirmation id from the gateway")

	history := &cobra.Command{
		Use:   "history",
		Short: "List your recent orders",
		Args:  cobra.NoArgs,
		RunE: withDeps(o, func(ctx context.Context, d *app.Deps, out io.Writer, _ []string) error {
			orders, err := d.Orders.History(ctx)
			if err != nil {
				return err
			}
			return printOrders(out, orders, "No orders yet.")
		}),
	}

	cmd.AddCommand(place, status, watch, checkout, pay, history)
	return cmd
}

func newAdminCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Review pending orders (administrator only)",
	}

	pending := &cobra.Command{
		Use:   "pending",
		Short: "List orders waiting for a decision",
		Args:  cobra.NoArgs,
		RunE: withDeps(o, func(ctx context.Context, d *app.Deps, out io.Writer, _ []string) error {
			orders, err := d.Orders.ListPendingOrders(ctx)
			if err != nil {
				return err
			}
			return printOrders(out, orders, "No pending orders.")
		}),
	}

	decide := func(action string) *cobra.Command {
		var (
			comment  string
			shipping int
		)
		short := "Approve a pending order"
		if action == service.ActionReject {
			short = "Reject a pending order"
		}
		c := &cobra.Command{
			Use:   action + " <order-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
		}
		c.RunE = withDeps(o, func(ctx context.Context, d *app.Deps, out io.Writer, args []string) error {
			id, err := parseID("admin."+action, args[0])
			if err != nil {
				return err
			}
			dec := service.Decision{Action: action, Comment: comment}
			if action == service.ActionApprove && c.Flags().Changed("shipping") {
				dec.ShippingCharge = &shipping
			}
			resp, err := d.Orders.Decide(ctx, id, dec)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "Order #%d %s. %s\n", resp.OrderID, resp.Status, resp.Comment)
			return err
		})
		c.Flags().StringVar(&comment, "comment", "", "note shown to the customer")
		if action == service.ActionApprove {
			c.Flags().IntVar(&shipping, "shipping", 0, "shipping charge in rupees")
		}
		return c
	}

	cmd.AddCommand(pending, decide(service.ActionApprove), decide(service.ActionReject))
	return cmd
}
