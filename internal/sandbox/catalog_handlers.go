package sandbox

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

func (s *Server) listProducts(c echo.Context) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	return c.JSON(http.StatusOK, s.st.productList())
}

func (s *Server) getProduct(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return notFound(c)
	}

	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	p, ok := s.st.products[id]
	if !ok {
		return notFound(c)
	}
	return c.JSON(http.StatusOK, p)
}
