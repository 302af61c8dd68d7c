package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
)

// QuotaUnlimited marks an account without a storage limit.
const QuotaUnlimited = -1

// About describes the authenticated user and their storage quota.
type About struct {
	DisplayName string
	Email       string
	QuotaUsed   int64
	QuotaLimit  int64 // QuotaUnlimited if the account has no limit
}

type aboutResponse struct {
	User struct {
		DisplayName  string `json:"displayName"`
		EmailAddress string `json:"emailAddress"`
	} `json:"user"`
	StorageQuota struct {
		Limit string `json:"limit"`
		Usage string `json:"usage"`
	} `json:"storageQuota"`
}

// About returns the authenticated user's profile and quota. It doubles as
// the authentication self-test: a successful call proves the token works.
func (c *Client) About(ctx context.Context) (*About, error) {
	resp, err := c.Do(ctx, http.MethodGet,
		"/about?fields=user(displayName,emailAddress),storageQuota(limit,usage)", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var ar aboutResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return nil, fmt.Errorf("drive: decoding about response: %w", err)
	}

	about := &About{
		DisplayName: ar.User.DisplayName,
		Email:       ar.User.EmailAddress,
		QuotaLimit:  QuotaUnlimited,
	}

	if ar.StorageQuota.Usage != "" {
		if used, parseErr := strconv.ParseInt(ar.StorageQuota.Usage, 10, 64); parseErr == nil {
			about.QuotaUsed = used
		}
	}

	if ar.StorageQuota.Limit != "" {
		if limit, parseErr := strconv.ParseInt(ar.StorageQuota.Limit, 10, 64); parseErr == nil {
			about.QuotaLimit = limit
		}
	}

	c.logger.Debug("fetched account info", slog.String("email", about.Email))

	return about, nil
}
