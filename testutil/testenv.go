// Package testutil provides environment helpers for the end-to-end tests,
// which run the built binary against a real Drive account.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by the end-to-end suite.
const (
	EnvAllowedAccounts = "DRIVE_ASSESS_ALLOWED_TEST_ACCOUNTS"
	EnvTestAccount     = "DRIVE_ASSESS_TEST_ACCOUNT"
	EnvTestSource      = "DRIVE_ASSESS_TEST_SOURCE"
	EnvTestScratch     = "DRIVE_ASSESS_TEST_SCRATCH"
)

// LoadDotEnv loads KEY=VALUE pairs from envPath. A missing file is not an
// error (CI sets env vars directly) and existing env vars take precedence.
func LoadDotEnv(envPath string) {
	if _, err := os.Stat(envPath); err != nil {
		return
	}

	if err := godotenv.Load(envPath); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: parsing %s: %v\n", envPath, err)
		os.Exit(1)
	}
}

// ValidateAllowlist exits the process unless the test account is listed in
// DRIVE_ASSESS_ALLOWED_TEST_ACCOUNTS. The copy test writes into the account,
// so it must never run against a personal Drive by accident.
func ValidateAllowlist() string {
	allowlist := os.Getenv(EnvAllowedAccounts)
	if allowlist == "" {
		fmt.Fprintf(os.Stderr, "FATAL: %s not set\n", EnvAllowedAccounts)
		fmt.Fprintf(os.Stderr, "Example: %s=drive-assess-ci@example.com\n", EnvAllowedAccounts)
		os.Exit(1)
	}

	account := os.Getenv(EnvTestAccount)
	if account == "" {
		fmt.Fprintf(os.Stderr, "FATAL: %s not set\n", EnvTestAccount)
		os.Exit(1)
	}

	for _, a := range strings.Split(allowlist, ",") {
		if strings.TrimSpace(a) == account {
			return account
		}
	}

	fmt.Fprintf(os.Stderr, "FATAL: %s=%q is not in %s=%q\n", EnvTestAccount, account, EnvAllowedAccounts, allowlist)
	os.Exit(1)

	return ""
}

// RequireEnv returns the value of key or exits if it is empty.
func RequireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		fmt.Fprintf(os.Stderr, "FATAL: %s not set\n", key)
		os.Exit(1)
	}

	return v
}

// FindModuleRoot walks up from the current directory to find go.mod.
// Returns the fallback if the root is not found.
func FindModuleRoot(fallback string) string {
	dir, err := os.Getwd()
	if err != nil {
		return fallback
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return fallback
		}

		dir = parent
	}
}

// FindTestCredentialDir locates .testdata/ under the module root, which must
// hold credentials.json and token.json for the test account.
func FindTestCredentialDir(moduleRoot string) string {
	dir := filepath.Join(moduleRoot, ".testdata")

	for _, name := range []string{"credentials.json", "token.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %s not found in %s\n", name, dir)
			fmt.Fprintln(os.Stderr, "Run 'drive-assess login' with token_file pointing there to create it.")
			os.Exit(1)
		}
	}

	return dir
}

// CopyFile copies src to dst with the given permissions, exiting on failure.
func CopyFile(src, dst string, perm os.FileMode) {
	data, err := os.ReadFile(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: cannot read %s: %v\n", src, err)
		os.Exit(1)
	}

	if err := os.WriteFile(dst, data, perm); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: writing %s: %v\n", dst, err)
		os.Exit(1)
	}
}
