package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/drive-assess/drive-assess/internal/drive"
)

// driveBaseURL is the API root; tests point it at an httptest server.
var driveBaseURL = drive.DefaultBaseURL

const keepAlive = 30 * time.Second

// newHTTPClient returns a client whose dial and TLS handshake are bounded by
// connectTimeout. Response bodies are not time-limited since large listings
// can stream slowly.
func newHTTPClient(connectTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connectTimeout, KeepAlive: keepAlive}).DialContext
	transport.TLSHandshakeTimeout = connectTimeout

	return &http.Client{Transport: transport}
}

// newDriveClient loads the cached token and returns an authenticated client.
// Authentication problems surface here, before any traversal starts.
func newDriveClient(ctx context.Context, cc *CLIContext) (*drive.Client, error) {
	ts, err := drive.TokenSourceFromPath(ctx, cc.Cfg.CredentialsFile, cc.Cfg.TokenFile, cc.Logger)
	if err != nil {
		if errors.Is(err, drive.ErrNotLoggedIn) {
			return nil, fmt.Errorf("not logged in, run 'drive-assess login' first: %w", err)
		}

		return nil, err
	}

	client := drive.NewClient(driveBaseURL, newHTTPClient(cc.Cfg.ConnectTimeoutDuration()), ts, cc.Logger)
	client.SetPageSize(cc.Cfg.PageSize)

	return client, nil
}
