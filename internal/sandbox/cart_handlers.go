package sandbox

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/transport"
)

func (s *Server) cartItemDTO(it *cartItem) transport.CartItem {
	out := transport.CartItem{ID: it.ID, Quantity: it.Quantity, AddedAt: it.AddedAt}
	if p, ok := s.st.products[it.ProductID]; ok {
		out.Product = *p
	}
	return out
}

func (s *Server) getCart(c echo.Context) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	items := s.st.cartOf(authmw.Username(c))
	out := make([]transport.CartItem, 0, len(items))
	for _, it := range items {
		out = append(out, s.cartItemDTO(it))
	}
	return c.JSON(http.StatusOK, out)
}

// addCartItem always creates a new row, matching the backend. The client is
// responsible for keeping product ids unique.
func (s *Server) addCartItem(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "cart_add")

	var req transport.AddCartItemRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_cart_error", "status", 400, "error", err)
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if _, ok := s.st.products[req.ProductID]; !ok {
		l.Warn("add_cart_failed", "status", 400, "product_id", req.ProductID)
		return c.JSON(http.StatusBadRequest, map[string][]string{
			"product_id": {fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", req.ProductID)},
		})
	}

	s.st.nextCartID++
	it := &cartItem{
		ID:        s.st.nextCartID,
		Owner:     authmw.Username(c),
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		AddedAt:   s.now().UTC(),
	}
	s.st.cart = append(s.st.cart, it)

	return c.JSON(http.StatusCreated, s.cartItemDTO(it))
}

func (s *Server) deleteCartItem(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	owner := authmw.Username(c)
	for i, it := range s.st.cart {
		if it.ID == id && it.Owner == owner {
			s.st.cart = append(s.st.cart[:i], s.st.cart[i+1:]...)
			return c.NoContent(http.StatusNoContent)
		}
	}
	return notFound(c)
}
