package discovery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHintsDeliversEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/directory" && r.Method == http.MethodGet {
			json.NewEncoder(w).Encode([]directoryEntry{
				{DisplayHint: "Alice", IP: "127.0.0.1", Port: 6666},
			})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d := NewHTTPDirectory(srv.URL, "bob")
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	hints, err := d.Hints(ctx)
	require.NoError(t, err)

	select {
	case h := <-hints:
		require.Equal(t, "Alice", h.DisplayHint)
		require.Equal(t, 6666, h.Port)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for hint")
	}
}

func TestPublishAndWithdraw(t *testing.T) {
	var published, withdrawn bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			published = true
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			withdrawn = true
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	d := NewHTTPDirectory(srv.URL, "bob")
	require.NoError(t, d.Publish(context.Background(), 6666, "Bob"))
	require.True(t, published)

	require.NoError(t, d.Withdraw(context.Background()))
	require.True(t, withdrawn)
}
