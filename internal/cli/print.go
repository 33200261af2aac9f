package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
)

func money(d decimal.Decimal) string {
	return "₹" + d.StringFixed(2)
}

func table(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
}

func printProducts(out io.Writer, products []models.Product) error {
	if len(products) == 0 {
		_, err := fmt.Fprintln(out, "No products found.")
		return err
	}
	w := table(out)
	fmt.Fprintln(w, "ID\tNAME\tBRAND\tPRICE\tSTOCK")
	for _, p := range products {
		price := money(p.EffectivePrice())
		if p.OriginalPrice != nil && p.OriginalPrice.GreaterThan(p.EffectivePrice()) {
			price += " (was " + money(*p.OriginalPrice) + ")"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", p.ID, p.Name, p.Brand(), price, p.Stock)
	}
	return w.Flush()
}

func printProduct(out io.Writer, p *models.Product) error {
	w := table(out)
	fmt.Fprintf(w, "ID\t%d\n", p.ID)
	fmt.Fprintf(w, "Name\t%s\n", p.Name)
	fmt.Fprintf(w, "Brand\t%s\n", p.Brand())
	fmt.Fprintf(w, "Category\t%s\n", p.Category)
	fmt.Fprintf(w, "Price\t%s\n", money(p.EffectivePrice()))
	if p.OriginalPrice != nil {
		fmt.Fprintf(w, "List price\t%s\n", money(*p.OriginalPrice))
	}
	if p.DiscountPercent != nil && *p.DiscountPercent > 0 {
		fmt.Fprintf(w, "Discount\t%d%%\n", *p.DiscountPercent)
	}
	fmt.Fprintf(w, "Stock\t%d\n", p.Stock)
	if p.Description != "" {
		fmt.Fprintf(w, "Description\t%s\n", p.Description)
	}
	return w.Flush()
}

func printCart(out io.Writer, lines []models.CartLine, subtotal decimal.Decimal) error {
	if len(lines) == 0 {
		_, err := fmt.Fprintln(out, "Your cart is empty.")
		return err
	}
	w := table(out)
	fmt.Fprintln(w, "ID\tNAME\tQTY\tPRICE\tTOTAL")
	for _, l := range lines {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", l.ProductID, l.Name, l.Quantity, money(l.Price), money(l.LineTotal()))
	}
	fmt.Fprintf(w, "\t\t\tSubtotal\t%s\n", money(subtotal))
	return w.Flush()
}

func printOrder(out io.Writer, o *models.Order) error {
	w := table(out)
	fmt.Fprintf(w, "Order\t#%d\n", o.ID)
	fmt.Fprintf(w, "Status\t%s\n", o.Status)
	if o.Username != "" {
		fmt.Fprintf(w, "Customer\t%s\n", o.Username)
	}
	for _, it := range o.Items {
		fmt.Fprintf(w, "  %s\tx%d\n", it.Product.Name, it.Quantity)
	}
	fmt.Fprintf(w, "Total\t%s\n", money(o.Total))
	if o.ShippingCharge > 0 {
		fmt.Fprintf(w, "Shipping\t%s\n", money(decimal.NewFromInt(int64(o.ShippingCharge))))
		fmt.Fprintf(w, "Grand total\t%s\n", money(o.GrandTotal()))
	}
	if o.Address != "" {
		fmt.Fprintf(w, "Address\t%s\n", o.Address)
	}
	if o.AdminComment != "" {
		fmt.Fprintf(w, "Comment\t%s\n", o.AdminComment)
	}
	if o.TransactionID != "" {
		fmt.Fprintf(w, "Payment\t%s (%s)\n", o.TransactionID, o.PaymentStatus)
	}
	fmt.Fprintf(w, "Placed\t%s\n", o.CreatedAt.Local().Format("02 Jan 2006 15:04"))
	return w.Flush()
}

func printOrders(out io.Writer, orders []models.Order, empty string) error {
	if len(orders) == 0 {
		_, err := fmt.Fprintln(out, empty)
		return err
	}
	w := table(out)
	fmt.Fprintln(w, "ID\tCUSTOMER\tSTATUS\tITEMS\tTOTAL\tPLACED")
	for _, o := range orders {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\n",
			o.ID, o.Username, o.Status, len(o.Items), money(o.GrandTotal()), o.CreatedAt.Local().Format("02 Jan 2006"))
	}
	return w.Flush()
}

func printProfile(out io.Writer, p *models.Profile, admin bool) error {
	w := table(out)
	fmt.Fprintf(w, "Username\t%s\n", p.Username)
	if admin {
		fmt.Fprintln(w, "Role\tadministrator")
	}
	fmt.Fprintf(w, "Email\t%s\n", p.Email)
	fmt.Fprintf(w, "Phone\t%s\n", p.Phone)
	if p.AltPhone != "" {
		fmt.Fprintf(w, "Alt phone\t%s\n", p.AltPhone)
	}
	if p.Salon != "" {
		fmt.Fprintf(w, "Salon\t%s\n", p.Salon)
	}
	if addr := strings.Trim(p.Address+", "+p.City, ", "); addr != "" {
		fmt.Fprintf(w, "Address\t%s\n", addr)
	}
	return w.Flush()
}

func printReport(out io.Writer, r service.SyncReport) error {
	_, err := fmt.Fprintf(out, "Cart synced: %d removed, %d added, %d failed.\n", r.Deleted, r.Created, r.Failed)
	return err
}
