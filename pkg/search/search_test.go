package search_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byteai/builder/pkg/search"
)

func firecrawl(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v1/search", r.URL.Path)
		assert.Equal(t, "Bearer fc-key", r.Header.Get("Authorization"))

		var req struct {
			Query         string `json:"query"`
			Limit         int    `json:"limit"`
			ScrapeOptions struct {
				Formats []string `json:"formats"`
			} `json:"scrapeOptions"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 10, req.Limit)
		assert.Equal(t, []string{"markdown", "screenshot"}, req.ScrapeOptions.Formats)

		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestSearch_EmptyQuery(t *testing.T) {
	t.Parallel()

	_, err := search.New(search.Config{}).Search(context.Background(), "   ")
	require.ErrorIs(t, err, search.ErrEmptyQuery)
}

func TestSearch_NoAPIKey(t *testing.T) {
	t.Parallel()

	resp, err := search.New(search.Config{}).Search(context.Background(), "pricing page")
	require.NoError(t, err)
	assert.True(t, resp.Fallback)
	assert.Empty(t, resp.Error)
	require.Len(t, resp.Results, 5)
	assert.Equal(t, "https://tailwindui.com", resp.Results[0].URL)
	assert.Nil(t, resp.Results[0].Screenshot)
}

func TestSearch_Results(t *testing.T) {
	t.Parallel()

	srv, calls := firecrawl(t, http.StatusOK, `{"success":true,"data":[
		{"url":"https://a.example","title":"A","description":"first","screenshot":"https://shots/a.png","markdown":"# A"},
		{"url":"https://b.example"}
	]}`)
	c := search.New(search.Config{APIKey: "fc-key", APIURL: srv.URL})

	resp, err := c.Search(context.Background(), "landing pages")
	require.NoError(t, err)
	assert.False(t, resp.Fallback)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "A", resp.Results[0].Title)
	require.NotNil(t, resp.Results[0].Screenshot)
	assert.Equal(t, "https://shots/a.png", *resp.Results[0].Screenshot)
	assert.Equal(t, "https://b.example", resp.Results[1].Title, "title defaults to url")
	assert.Nil(t, resp.Results[1].Screenshot)

	_, err = c.Search(context.Background(), " landing pages ")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "second call is served from cache")
}

func TestSearch_Fallbacks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"upstream error", http.StatusTooManyRequests, `{"error":"rate limited"}`, ""},
		{"empty data", http.StatusOK, `{"success":true,"data":[]}`, ""},
		{"malformed body", http.StatusOK, `not json`, search.ServiceErrorMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv, calls := firecrawl(t, tt.status, tt.body)
			c := search.New(search.Config{APIKey: "fc-key", APIURL: srv.URL})

			resp, err := c.Search(context.Background(), "dashboards")
			require.NoError(t, err)
			assert.True(t, resp.Fallback)
			assert.Equal(t, tt.wantErr, resp.Error)
			assert.Len(t, resp.Results, 5)

			_, err = c.Search(context.Background(), "dashboards")
			require.NoError(t, err)
			assert.Equal(t, int32(2), calls.Load(), "fallbacks are not cached")
		})
	}
}

func TestSearch_TransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	resp, err := search.New(search.Config{APIKey: "fc-key", APIURL: srv.URL}).Search(context.Background(), "blogs")
	require.NoError(t, err)
	assert.True(t, resp.Fallback)
	assert.Equal(t, search.ServiceErrorMessage, resp.Error)
}

func TestSearch_CallerCancelDoesNotFailSharedRequest(t *testing.T) {
	t.Parallel()

	hit := make(chan struct{}, 4)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit <- struct{}{}
		<-release
		_, _ = w.Write([]byte(`{"success":true,"data":[{"url":"https://a.example","title":"A"}]}`))
	}))
	t.Cleanup(srv.Close)
	c := search.New(search.Config{APIKey: "fc-key", APIURL: srv.URL})

	ctx, cancel := context.WithCancel(context.Background())
	var (
		wg          sync.WaitGroup
		first, next search.Response
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		first, _ = c.Search(ctx, "dashboards")
	}()
	<-hit
	go func() {
		defer wg.Done()
		next, _ = c.Search(context.Background(), "dashboards")
	}()

	cancel()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, resp := range []search.Response{first, next} {
		assert.False(t, resp.Fallback)
		assert.Empty(t, resp.Error)
		require.Len(t, resp.Results, 1)
		assert.Equal(t, "A", resp.Results[0].Title)
	}
}

func TestSearch_CancelledContext(t *testing.T) {
	t.Parallel()

	srv, _ := firecrawl(t, http.StatusOK, `{"success":true,"data":[{"url":"https://a.example","title":"A"}]}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := search.New(search.Config{APIKey: "fc-key", APIURL: srv.URL}).Search(ctx, "portfolios")
	require.NoError(t, err)
	assert.False(t, resp.Fallback)
	require.Len(t, resp.Results, 1)
}
