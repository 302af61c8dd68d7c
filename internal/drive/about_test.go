package drive

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAbout_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/about", r.URL.Path)
		fmt.Fprint(w, `{"user":{"displayName":"Alice","emailAddress":"alice@example.com"},
			"storageQuota":{"limit":"16106127360","usage":"1024"}}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	about, err := client.About(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Alice", about.DisplayName)
	assert.Equal(t, "alice@example.com", about.Email)
	assert.Equal(t, int64(1024), about.QuotaUsed)
	assert.Equal(t, int64(16106127360), about.QuotaLimit)
}

func TestAbout_UnlimitedQuota(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"user":{"displayName":"Org"},"storageQuota":{"usage":"5"}}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	about, err := client.About(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(QuotaUnlimited), about.QuotaLimit)
}

func TestAbout_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.About(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}
