package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/storefront/internal/app"
	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/service"
)

func parseID(op, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation(op, fmt.Sprintf("%q is not a valid id", raw))
	}
	return id, nil
}

func newProductsCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "products",
		Aliases: []string{"p"},
		Short:   "Browse the catalog",
	}

	var (
		filter   service.Filter
		sort     string
		selected bool
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List products with optional filtering and sorting",
		Args:  cobra.NoArgs,
		RunE: withDeps(o, func(ctx context.Context, d *app.Deps, out io.Writer, _ []string) error {
			order, err := service.ParseSort(sort)
			if err != nil {
				return err
			}
			f := filter
			f.Sort = order
			if selected && f.Brand == "" {
				f.Brand = d.Catalog.SelectedBrand(ctx)
			}
			products, err := d.Catalog.ListProducts(ctx, f)
			if err != nil {
				return err
			}
			return printProducts(out, products)
		}),
	}
	lf := list.Flags()
	lf.StringVarP(&filter.Search, "search", "s", "", "match product names containing this text")
	lf.StringVar(&filter.Category, "category", "", "only this category")
	lf.StringVar(&filter.Brand, "brand", "", "only this brand")
	lf.StringVar(&sort, "sort", "default", "default, price-low, price-high, name or random")
	lf.BoolVar(&selected, "selected", false, "only the selected brand (see products brand)")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: withDeps(o, func(ctx context.Context, d *app.Deps, out io.Writer, args []string) error {
			id, err := parseID("products.show", args[0])
			if err != nil {
				return err
			}
			p, err := d.Catalog.GetProduct(ctx, id)
			if err != nil {
				return err
			}
			return printProduct(out, p)
		}),
	}

	brands := &cobra.Command{
		Use:   "brands",
		Short: "List the brands in the catalog",
		Args:  cobra.NoArgs,
		RunE: withDeps(o, func(ctx context.Context, d *app.Deps, out io.Writer, _ []string) error {
			names, err := d.Catalog.Brands(ctx)
			if err != nil {
				return err
			}
			current := d.Catalog.SelectedBrand(ctx)
			for _, b := range names {
				mark := " "
				if strings.EqualFold(b, current) {
					mark = "*"
				}
				fmt.Fprintf(out, "%s %s\n", mark, b)
			}
			return nil
		}),
	}

	brand := &cobra.Command{
		Use:   "brand [name]",
		Short: "Show or change the selected brand",
		Args:  cobra.MaximumNArgs(1),
		RunE: withDeps(o, func(ctx context.Context, d *app.Deps, out io.Writer, args []string) error {
			if len(args) == 1 {
				if err := d.Catalog.SelectBrand(ctx, args[0]); err != nil {
					return err
				}
			}
			_, err := fmt.Fprintln(out, d.Catalog.SelectedBrand(ctx))
			return err
		}),
	}

	var page, size int
	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text product search",
		Args:  cobra.MinimumNArgs(1),
		RunE: withDeps(o, func(ctx context.Context, d *app.Deps, out io.Writer, args []string) error {
			products, err := d.Catalog.Search(ctx, strings.Join(args, " "), page, size)
			if err != nil {
				return err
			}
			return printProducts(out, products)
		}),
	}
	search.Flags().IntVar(&page, "page", 1, "result page, starting at 1")
	search.Flags().IntVar(&size, "size", 10, "results per page")

	cmd.AddCommand(list, show, brands, brand, search)
	return cmd
}
