package commands_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"optask/internal/commands"
	"optask/internal/config"
	"optask/internal/exitcode"
)

const testOAuthClient = `{"installed":{"client_id":"test","client_secret":"test","redirect_uris":["http://localhost"]}}`

func writeConfigFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoginCommand_NoOAuthClient(t *testing.T) {
	cmd := &commands.LoginCmd{}

	var outBuf, errBuf bytes.Buffer
	cfg := &config.Config{Dir: t.TempDir()}

	code := cmd.Run(context.Background(), cfg, nil, nil, &outBuf, &errBuf)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if outBuf.String() != "" {
		t.Errorf("expected no stdout, got %q", outBuf.String())
	}
	if !strings.Contains(errBuf.String(), "oauth_client.json not found") {
		t.Errorf("expected setup instructions, got %q", errBuf.String())
	}
}

// A stored token that cannot be refreshed must not count as logged in.
func TestLoginCommand_UnusableToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"no refresh token", `{"access_token":"expired","token_type":"Bearer"}`},
		{"expired without refresh token", `{"access_token":"test","token_type":"Bearer","expiry":"2020-01-01T00:00:00Z"}`},
		{"corrupt", `{not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfigFile(t, dir, config.OAuthClientFile, testOAuthClient)
			writeConfigFile(t, dir, config.TokenFile, tt.token)

			var outBuf, errBuf bytes.Buffer
			cfg := &config.Config{Dir: dir}

			// Canceled up front so the command never waits for a browser.
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			code := (&commands.LoginCmd{}).Run(ctx, cfg, nil, nil, &outBuf, &errBuf)

			if outBuf.String() == "already logged in\n" {
				t.Error("should not say 'already logged in'")
			}
			if code != exitcode.AuthError {
				t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
			}
		})
	}
}

func TestLogoutCommand_OnlyRemovesToken(t *testing.T) {
	dir := t.TempDir()
	oauthPath := writeConfigFile(t, dir, config.OAuthClientFile, testOAuthClient)
	tokenPath := writeConfigFile(t, dir, config.TokenFile, `{"access_token":"test","refresh_token":"test"}`)

	var outBuf, errBuf bytes.Buffer
	cfg := &config.Config{Dir: dir}

	code := (&commands.LogoutCmd{}).Run(context.Background(), cfg, nil, nil, &outBuf, &errBuf)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if errBuf.String() != "" {
		t.Errorf("expected no stderr, got %q", errBuf.String())
	}
	if outBuf.String() != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", outBuf.String())
	}
	if _, err := os.Stat(tokenPath); !os.IsNotExist(err) {
		t.Error("token.json should have been deleted")
	}
	if _, err := os.Stat(oauthPath); err != nil {
		t.Error("oauth_client.json should NOT have been deleted")
	}
}

func TestLogoutCommand_NotLoggedIn(t *testing.T) {
	tests := []struct {
		name  string
		quiet bool
		want  string
	}{
		{"verbose", false, "not logged in\n"},
		{"quiet", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var outBuf, errBuf bytes.Buffer
			cfg := &config.Config{Dir: t.TempDir(), Quiet: tt.quiet}

			code := (&commands.LogoutCmd{}).Run(context.Background(), cfg, nil, nil, &outBuf, &errBuf)

			if code != exitcode.Success {
				t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
			}
			if errBuf.String() != "" {
				t.Errorf("expected no stderr, got %q", errBuf.String())
			}
			if outBuf.String() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, outBuf.String())
			}
		})
	}
}
