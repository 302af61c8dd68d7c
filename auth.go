package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/drive-assess/drive-assess/internal/drive"
	"github.com/drive-assess/drive-assess/internal/tokenfile"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authorize access to Google Drive in the browser",
		Long: `Open the Google consent page and cache the resulting token in token_file.
The OAuth client comes from credentials_file (an "installed app" client
downloaded from the Google Cloud console).`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the cached authentication token",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Display the authenticated user and storage quota",
		Args:  cobra.NoArgs,
		RunE:  runWhoami,
	}
}

func runLogin(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	logger := cc.Logger

	ctx, cancel := shutdownContext(cmd.Context(), logger)
	defer cancel()

	logger.Info("login started", "credentials", cc.Cfg.CredentialsFile)

	ts, err := drive.Login(ctx, cc.Cfg.CredentialsFile, cc.Cfg.TokenFile, openBrowser, logger)
	if err != nil {
		return err
	}

	client := drive.NewClient(driveBaseURL, newHTTPClient(cc.Cfg.ConnectTimeoutDuration()), ts, logger)

	about, err := client.About(ctx)
	if err != nil {
		return fmt.Errorf("verifying login: %w", err)
	}

	if err := tokenfile.SetAccount(cc.Cfg.TokenFile, about.Email); err != nil {
		logger.Warn("could not record account in token file", "error", err)
	}

	logger.Info("login successful", "email", about.Email)
	fmt.Fprintf(cc.Out, "Authentication successful. Authenticated as: %s\n", about.DisplayName)

	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	if err := drive.Logout(cc.Cfg.TokenFile, cc.Logger); err != nil {
		return err
	}

	cc.Statusf("Logged out.\n")

	return nil
}

// whoamiOutput is the JSON schema for `whoami --json`.
type whoamiOutput struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	QuotaUsed   int64  `json:"quota_used"`
	QuotaLimit  int64  `json:"quota_limit"`
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	client, err := newDriveClient(cmd.Context(), cc)
	if err != nil {
		return err
	}

	return printWhoami(cmd.Context(), cc, client)
}

type aboutSource interface {
	About(ctx context.Context) (*drive.About, error)
}

func printWhoami(ctx context.Context, cc *CLIContext, src aboutSource) error {
	about, err := src.About(ctx)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		enc := json.NewEncoder(cc.Out)
		enc.SetIndent("", "  ")

		return enc.Encode(whoamiOutput{
			DisplayName: about.DisplayName,
			Email:       about.Email,
			QuotaUsed:   about.QuotaUsed,
			QuotaLimit:  about.QuotaLimit,
		})
	}

	fmt.Fprintf(cc.Out, "User:    %s <%s>\n", about.DisplayName, about.Email)

	if about.QuotaLimit == drive.QuotaUnlimited {
		fmt.Fprintf(cc.Out, "Storage: %s used (unlimited)\n", formatSize(about.QuotaUsed))
	} else {
		fmt.Fprintf(cc.Out, "Storage: %s of %s used\n", formatSize(about.QuotaUsed), formatSize(about.QuotaLimit))
	}

	return nil
}

// openBrowser opens url with the platform's default handler.
func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}

	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launching browser: %w", err)
	}

	// Reap the child without blocking the login flow.
	go func() { _ = cmd.Wait() }()

	return nil
}
