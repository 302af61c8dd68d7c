package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drive-assess/drive-assess/internal/drive"
)

type stubAbout struct {
	about *drive.About
	err   error
}

func (s stubAbout) About(context.Context) (*drive.About, error) {
	return s.about, s.err
}

func TestPrintWhoami_Text(t *testing.T) {
	cc, out := newTestCLIContext(t, "", "")

	err := printWhoami(context.Background(), cc, stubAbout{about: &drive.About{
		DisplayName: "Ada Lovelace",
		Email:       "ada@example.com",
		QuotaUsed:   1 << 30,
		QuotaLimit:  15 << 30,
	}})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "User:    Ada Lovelace <ada@example.com>")
	assert.Contains(t, out.String(), "Storage: 1.0 GiB of 15 GiB used")
}

func TestPrintWhoami_Unlimited(t *testing.T) {
	cc, out := newTestCLIContext(t, "", "")

	err := printWhoami(context.Background(), cc, stubAbout{about: &drive.About{
		DisplayName: "Team",
		QuotaUsed:   2048,
		QuotaLimit:  drive.QuotaUnlimited,
	}})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Storage: 2.0 KiB used (unlimited)")
}

func TestPrintWhoami_JSON(t *testing.T) {
	cc, out := newTestCLIContext(t, "", "")
	cc.Flags.JSON = true

	err := printWhoami(context.Background(), cc, stubAbout{about: &drive.About{
		DisplayName: "Ada", Email: "ada@example.com", QuotaUsed: 1, QuotaLimit: 2,
	}})
	require.NoError(t, err)

	var got whoamiOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, whoamiOutput{DisplayName: "Ada", Email: "ada@example.com", QuotaUsed: 1, QuotaLimit: 2}, got)
}

func TestPrintWhoami_Error(t *testing.T) {
	cc, _ := newTestCLIContext(t, "", "")

	err := printWhoami(context.Background(), cc, stubAbout{err: drive.ErrUnauthorized})
	assert.True(t, errors.Is(err, drive.ErrUnauthorized))
}
