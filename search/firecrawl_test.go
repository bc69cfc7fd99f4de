package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirecrawlSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("joins markdown snippets", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "Bearer fc-test", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"data":[{"markdown":"第一条结果"},{"markdown":"  "},{"markdown":"第二条结果"}]}`))
		}))
		defer srv.Close()

		c := NewFirecrawlClient("fc-test", srv.URL, nil)
		got := c.Search(ctx, "校历 下学期")
		assert.Equal(t, "第一条结果\n\n第二条结果", got)
	})

	t.Run("http error degrades to empty", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		c := NewFirecrawlClient("bad-key", srv.URL, nil)
		assert.Empty(t, c.Search(ctx, "anything"))
	})

	t.Run("unreachable endpoint degrades to empty", func(t *testing.T) {
		c := NewFirecrawlClient("fc-test", "http://127.0.0.1:1", nil)
		assert.Empty(t, c.Search(ctx, "anything"))
	})

	t.Run("empty payload degrades to empty", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"data":[]}`))
		}))
		defer srv.Close()

		c := NewFirecrawlClient("fc-test", srv.URL, nil)
		assert.Empty(t, c.Search(ctx, "anything"))
	})
}

func TestNopSearcher(t *testing.T) {
	assert.Empty(t, NopSearcher{}.Search(context.Background(), "whatever"))
}
