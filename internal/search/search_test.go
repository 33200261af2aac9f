package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/logging"
)

func fakeES(t *testing.T, search http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/_search") {
			search(w, r)
			return
		}
		_, _ = io.WriteString(w, `{"version":{"number":"9.0.0"},"tagline":"You Know, for Search"}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		page, size     int
		wantFrom, want int
	}{
		{1, 10, 0, 10},
		{0, 10, 0, 10},
		{3, 20, 40, 20},
		{2, 0, 10, DefaultPageSize},
		{1, 500, 0, DefaultPageSize},
	}
	for _, tt := range tests {
		from, size := Page(tt.page, tt.size)
		assert.Equal(t, tt.wantFrom, from)
		assert.Equal(t, tt.want, size)
	}
}

func TestSearch(t *testing.T) {
	t.Parallel()

	srv := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/product/_search", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mm := body["query"].(map[string]any)["multi_match"].(map[string]any)
		assert.Equal(t, "serum", mm["query"])
		assert.Equal(t, "AUTO", mm["fuzziness"])
		assert.EqualValues(t, 5, body["size"])

		_, _ = io.WriteString(w, `{"hits":{"total":{"value":2},"hits":[
			{"_source":{"id":1,"name":"Vitamin C Serum","category":"Orane","price":"450.00","stock":3}},
			{"_source":{"id":2,"name":"Hair Serum","category":"Lotus","price":"199.50","stock":0}}
		]}}`)
	})

	c, err := NewClient(context.Background(), config.ESConfig{URL: srv.URL, Index: "product"}, logging.Discard())
	require.NoError(t, err)

	res, err := c.Search(context.Background(), " serum ", 0, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Total)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "Vitamin C Serum", res.Items[0].Name)
	assert.Equal(t, "Orane", res.Items[0].Brand())
	assert.Equal(t, "199.5", res.Items[1].Price.String())
}

func TestSearchEmptyQuery(t *testing.T) {
	t.Parallel()

	srv := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("search must not be issued for an empty query")
	})

	c, err := NewClient(context.Background(), config.ESConfig{URL: srv.URL}, logging.Discard())
	require.NoError(t, err)

	res, err := c.Search(context.Background(), "   ", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestSearchErrorStatus(t *testing.T) {
	t.Parallel()

	srv := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"unavailable"}`)
	})

	c, err := NewClient(context.Background(), config.ESConfig{URL: srv.URL}, logging.Discard())
	require.NoError(t, err)

	_, err = c.Search(context.Background(), "serum", 0, 10)
	require.Error(t, err)
}
