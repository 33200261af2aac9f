// Package sandbox is an in-memory stand-in for the storefront backend. It
// serves the same routes and enforces the same order rules, which makes it
// usable for local demos (`storefront sandbox`) and as the remote double in
// tests.
package sandbox

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/storefront/internal/hash"
	"github.com/Skotchmaster/storefront/internal/logging"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	loggingmw "github.com/Skotchmaster/storefront/internal/middleware/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type Options struct {
	JWTSecret     string
	AdminUsername string
	// AdminPassword seeds a staff account named AdminUsername. Empty skips it.
	AdminPassword string
	TokenTTL      time.Duration
	BcryptCost    int
	Products      []models.Product
	Logger        *slog.Logger
	Now           func() time.Time
}

type Server struct {
	st     *state
	secret []byte
	admin  string
	ttl    time.Duration
	cost   int
	log    *slog.Logger
	now    func() time.Time
}

func New(opts Options) (*Server, error) {
	if opts.JWTSecret == "" {
		return nil, fmt.Errorf("sandbox: jwt secret is required")
	}
	if opts.AdminUsername == "" {
		opts.AdminUsername = "skadmin"
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	products := opts.Products
	if len(products) == 0 {
		products = SeedProducts()
	}

	s := &Server{
		st:     newState(products),
		secret: []byte(opts.JWTSecret),
		admin:  opts.AdminUsername,
		ttl:    opts.TokenTTL,
		cost:   opts.BcryptCost,
		log:    opts.Logger.With("component", "sandbox"),
		now:    opts.Now,
	}

	if opts.AdminPassword != "" {
		pwHash, err := s.hashPassword(opts.AdminPassword)
		if err != nil {
			return nil, err
		}
		s.st.nextUserID++
		s.st.users[opts.AdminUsername] = &user{
			ID:           s.st.nextUserID,
			Profile:      models.Profile{Username: opts.AdminUsername, Email: opts.AdminUsername + "@sandbox.local"},
			PasswordHash: pwHash,
			Staff:        true,
		}
	}
	return s, nil
}

// Echo builds an echo instance with the sandbox routes and middleware.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(s.log))
	s.Register(e)
	return e
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	requireAuth := authmw.RequireBearer(s.secret, s.now)

	a := e.Group("/auth")
	a.POST("/register", s.register)
	a.POST("/login", s.login)
	a.GET("/profile", s.getProfile, requireAuth)
	a.PUT("/profile", s.updateProfile, requireAuth)
	a.POST("/password-reset", s.requestPasswordReset)
	a.POST("/password-reset-confirm", s.confirmPasswordReset)

	p := e.Group("/api/products")
	p.GET("", s.listProducts)
	p.GET("/:id", s.getProduct)

	cart := e.Group("/api/cart", requireAuth)
	cart.GET("/cart", s.getCart)
	cart.POST("/cart", s.addCartItem)
	cart.DELETE("/cart/:id", s.deleteCartItem)

	cart.POST("/orders", s.placeOrder)
	cart.GET("/order-status", s.orderStatus)
	cart.GET("/order-history", s.orderHistory)
	cart.POST("/checkout/:id", s.checkout)
	cart.POST("/orders/:id/razorpay-order", s.createPaymentOrder)
	cart.POST("/orders/:id/complete-payment", s.completePayment)

	cart.GET("/admin/orders", s.adminOrders)
	cart.POST("/admin/orders/:id/approve", s.adminDecide)
}

// Mail returns every message the sandbox has "sent", oldest first.
func (s *Server) Mail() []Mail {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	out := make([]Mail, len(s.st.outbox))
	copy(out, s.st.outbox)
	return out
}

// SetStock overrides a product's stock level.
func (s *Server) SetStock(productID int64, stock int) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	p, ok := s.st.products[productID]
	if !ok {
		return fmt.Errorf("sandbox: product %d not found", productID)
	}
	p.Stock = stock
	return nil
}

// Stock reports a product's current stock level.
func (s *Server) Stock(productID int64) (int, bool) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	p, ok := s.st.products[productID]
	if !ok {
		return 0, false
	}
	return p.Stock, true
}

func (s *Server) hashPassword(password string) (string, error) {
	return hash.HashPassword(password, s.cost)
}

func checkPassword(h, password string) bool {
	return hash.CheckPassword(h, password)
}

func (s *Server) isAdmin(u *user) bool {
	return u != nil && (u.Staff || u.Profile.Username == s.admin)
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, transport.ErrorResponse{Error: msg})
}

// invalid mirrors the list-of-messages body produced by a DRF ValidationError.
func invalid(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, []string{msg})
}

func notFound(c echo.Context) error {
	return c.JSON(http.StatusNotFound, transport.ErrorResponse{Detail: "Not found."})
}
