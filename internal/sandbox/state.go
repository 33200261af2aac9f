package sandbox

import (
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/models"
)

type user struct {
	ID           int64
	Profile      models.Profile
	PasswordHash string
	Staff        bool
}

type cartItem struct {
	ID        int64
	Owner     string
	ProductID int64
	Quantity  int
	AddedAt   time.Time
}

type resetGrant struct {
	UserID  int64
	Expires time.Time
}

// Mail is a message the sandbox would have emailed.
type Mail struct {
	To      string
	Subject string
	Body    string
}

type state struct {
	mu sync.Mutex

	nextUserID  int64
	nextCartID  int64
	nextOrderID int64

	users    map[string]*user
	products map[int64]*models.Product
	cart     []*cartItem
	orders   []*models.Order
	resets   map[string]resetGrant
	outbox   []Mail
}

func newState(products []models.Product) *state {
	st := &state{
		users:    make(map[string]*user),
		products: make(map[int64]*models.Product, len(products)),
		resets:   make(map[string]resetGrant),
	}
	for i := range products {
		p := products[i]
		st.products[p.ID] = &p
	}
	return st
}

func (st *state) userByID(id int64) *user {
	for _, u := range st.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (st *state) userByEmail(email string) *user {
	if email == "" {
		return nil
	}
	for _, u := range st.users {
		if u.Profile.Email == email {
			return u
		}
	}
	return nil
}

func (st *state) productList() []models.Product {
	out := make([]models.Product, 0, len(st.products))
	for _, p := range st.products {
		out = append(out, *p)
	}
	slices.SortFunc(out, func(a, b models.Product) int { return int(a.ID - b.ID) })
	return out
}

func (st *state) cartOf(username string) []*cartItem {
	var out []*cartItem
	for _, it := range st.cart {
		if it.Owner == username {
			out = append(out, it)
		}
	}
	return out
}

// ordersOf returns username's orders newest first.
func (st *state) ordersOf(username string) []*models.Order {
	var out []*models.Order
	for i := len(st.orders) - 1; i >= 0; i-- {
		if st.orders[i].Username == username {
			out = append(out, st.orders[i])
		}
	}
	return out
}

func (st *state) order(id int64) *models.Order {
	for _, o := range st.orders {
		if o.ID == id {
			return o
		}
	}
	return nil
}

// SeedProducts is the catalog served when Options.Products is empty.
func SeedProducts() []models.Product {
	price := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }
	discounted := func(orig string, pct int) (decimal.Decimal, *decimal.Decimal, *int) {
		o := price(orig)
		d := o.Sub(o.Mul(decimal.NewFromInt(int64(pct))).Div(decimal.NewFromInt(100))).Round(2)
		return d, &o, &pct
	}

	out := []models.Product{
		{ID: 1, Name: "Orane Fruit Facial Kit", Category: "Orane", Stock: 25, Description: "Six step fruit facial kit for salon use."},
		{ID: 2, Name: "Orane Gold Facial Kit", Category: "Orane", Stock: 12, Description: "Gold facial kit with peel-off mask."},
		{ID: 3, Name: "Orane Hair Spa Cream", Category: "Orane", Stock: 40, Description: "Deep conditioning hair spa cream, 1kg."},
		{ID: 4, Name: "Orane Bleach Cream", Category: "Orane", Stock: 0, Description: "Oxy bleach cream."},
		{ID: 5, Name: "Lotus Herbals Sunscreen SPF 50", Category: "Lotus", Stock: 30, Description: "Matte gel sunscreen."},
		{ID: 6, Name: "Lotus Radiant Gold Cellular Glow", Category: "Lotus", Stock: 8, Description: "Gold facial kit."},
		{ID: 7, Name: "VLCC Anti Tan Facial Kit", Category: "VLCC", Stock: 15, Description: "Anti tan single facial kit."},
		{ID: 8, Name: "VLCC Insta Glow Bleach", Category: "VLCC", Stock: 20, Description: "Herbal bleach cream."},
	}
	prices := []struct {
		orig string
		pct  int
	}{
		{"1200.00", 25}, {"1800.00", 20}, {"950.00", 0}, {"400.00", 10},
		{"650.00", 15}, {"2200.00", 30}, {"499.00", 0}, {"320.00", 5},
	}
	for i := range out {
		d, o, pct := discounted(prices[i].orig, prices[i].pct)
		out[i].Price = d
		out[i].DiscountedPrice = &d
		out[i].OriginalPrice = o
		out[i].DiscountPercent = pct
		out[i].Image = "products/" + slugify(out[i].Name) + ".jpg"
		out[i].ImageURL = "/media/" + out[i].Image
	}
	return out
}

func slugify(s string) string {
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9':
			b = append(b, ch)
		case ch >= 'A' && ch <= 'Z':
			b = append(b, ch+'a'-'A')
		default:
			if len(b) > 0 && b[len(b)-1] != '-' {
				b = append(b, '-')
			}
		}
	}
	for len(b) > 0 && b[len(b)-1] == '-' {
		b = b[:len(b)-1]
	}
	return string(b)
}
