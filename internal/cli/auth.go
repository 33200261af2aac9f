package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/storefront/internal/app"
	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/transport"
)

func newLoginCmd(o *options) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Sign in and merge the server cart into the local one",
		Args:  cobra.ExactArgs(1),
		RunE: withDeps(o, func(ctx context.Context, d *app.Deps, out io.Writer, args []string) error {
			s, err := d.Auth.Login(ctx, args[0], password)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Signed in as %s.\n", s.Username())
			if n := d.Cart.Count(); n > 0 {
				fmt.Fprintf(out, "Your cart has %d item(s).\n", n)
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session on this device",
		Args:  cobra.NoArgs,
		RunE: withDeps(o, func(ctx context.Context, d *app.Deps, out io.Writer, _ []string) error {
			if d.Auth.Session() == nil {
				_, err := fmt.Fprintln(out, "Not signed in.")
				return err
			}
			d.Auth.Logout(ctx)
			_, err := fmt.Fprintln(out, "Signed out.")
			return err
		}),
	}
}

func newRegisterCmd(o *options) *cobra.Command {
	var req transport.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: withDeps(o, func(ctx context.Context, d *app.Deps, out io.Writer, _ []string) error {
			s, err := d.Auth.Register(ctx, req)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "Welcome, %s. You are signed in.\n", s.Username())
			return err
		}),
	}
	f := cmd.Flags()
	f.StringVar(&req.Username, "username", "", "letters and digits, starting with a letter")
	f.StringVar(&req.Email, "email", "", "email address")
	f.StringVar(&req.Password, "password", "", "password")
	f.StringVar(&req.Phone, "phone", "", "10 digit phone number")
	f.StringVar(&req.AltPhone, "alt-phone", "", "optional second phone number")
	f.StringVar(&req.Salon, "salon", "", "salon name")
	f.StringVar(&req.Address, "address", "", "delivery address")
	f.StringVar(&req.City, "city", "", "city")
	return cmd
}

func newWhoamiCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in account",
		Args:  cobra.NoArgs,
		RunE: withDeps(o, func(_ context.Context, d *app.Deps, out io.Writer, _ []string) error {
			s := d.Auth.Session()
			if s == nil {
				_, err := fmt.Fprintln(out, "Not signed in.")
				return err
			}
			return printProfile(out, &s.Profile, s.IsAdmin())
		}),
	}
}

func newProfileCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage your profile",
	}

	var p models.Profile
	var update *cobra.Command
	update = &cobra.Command{
		Use:   "update",
		Short: "Change profile fields; unset flags keep their value",
		Args:  cobra.NoArgs,
		RunE: withDeps(o, func(ctx context.Context, d *app.Deps, out io.Writer, _ []string) error {
			cur, err := d.Auth.Profile()
			if err != nil {
				return err
			}
			next := *cur
			changed := 0
			set := func(flag string, dst *string, v string) {
				if update.Flags().Changed(flag) {
					*dst = v
					changed++
				}
			}
			set("email", &next.Email, p.Email)
			set("phone", &next.Phone, p.Phone)
			set("alt-phone", &next.AltPhone, p.AltPhone)
			set("salon", &next.Salon, p.Salon)
			set("address", &next.Address, p.Address)
			set("city", &next.City, p.City)
			if changed == 0 {
				return apperr.Validation("profile.update", "nothing to update")
			}

			updated, err := d.Auth.UpdateProfile(ctx, next)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Profile updated.")
			return printProfile(out, updated, false)
		}),
	}
	f := update.Flags()
	f.StringVar(&p.Email, "email", "", "email address")
	f.StringVar(&p.Phone, "phone", "", "10 digit phone number")
	f.StringVar(&p.AltPhone, "alt-phone", "", "second phone number")
	f.StringVar(&p.Salon, "salon", "", "salon name")
	f.StringVar(&p.Address, "address", "", "delivery address")
	f.StringVar(&p.City, "city", "", "city")

	cmd.AddCommand(update)
	return cmd
}

func newPasswordCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Reset a forgotten password",
	}

	var frontend string
	reset := &cobra.Command{
		Use:   "reset <username-or-email>",
		Short: "Email a password reset link",
		Args:  cobra.ExactArgs(1),
		RunE: withDeps(o, func(ctx context.Context, d *app.Deps, out io.Writer, args []string) error {
			msg, err := d.Auth.RequestPasswordReset(ctx, args[0], frontend)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, msg)
			return err
		}),
	}
	reset.Flags().StringVar(&frontend, "frontend-url", "", "base URL the reset link points at")

	var uid, token, newPassword string
	confirm := &cobra.Command{
		Use:   "confirm",
		Short: "Set a new password using the uid and token from the reset link",
		Args:  cobra.NoArgs,
		RunE: withDeps(o, func(ctx context.Context, d *app.Deps, out io.Writer, _ []string) error {
			msg, err := d.Auth.ConfirmPasswordReset(ctx, uid, token, newPassword)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, msg)
			return err
		}),
	}
	confirm.Flags().StringVar(&uid, "uid", "", "uid from the reset link")
	confirm.Flags().StringVar(&token, "token", "", "token from the reset link")
	confirm.Flags().StringVar(&newPassword, "new-password", "", "new password")

	cmd.AddCommand(reset, confirm)
	return cmd
}
