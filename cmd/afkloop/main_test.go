package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/afkloop/internal/audit"
	"github.com/nerrad567/afkloop/internal/auth"
	"github.com/nerrad567/afkloop/internal/control"
	"github.com/nerrad567/afkloop/internal/infrastructure/config"
	"github.com/nerrad567/afkloop/internal/infrastructure/logging"
	"github.com/nerrad567/afkloop/internal/infrastructure/mqtt"
)

// ─── Mock Dependencies ─────────────────────────────────────────────

type mockCommander struct {
	mu      sync.Mutex
	actions []string
	origins []control.Origin
	err     error
}

func (m *mockCommander) Do(ctx context.Context, action string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = append(m.actions, action)
	m.origins = append(m.origins, control.OriginFrom(ctx))
	return m.err
}

func (m *mockCommander) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.actions...)
}

type mockCommandSource struct {
	mu      sync.Mutex
	qos     byte
	handler mqtt.CommandHandler
	err     error
}

func (m *mockCommandSource) SubscribeCommands(qos byte, handler mqtt.CommandHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.qos, m.handler = qos, handler
	return m.err
}

// ─── Helpers ───────────────────────────────────────────────────────

const testSecret = "test-secret-for-development-only-0123456789"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func execute(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// ─── Tests ─────────────────────────────────────────────────────────

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, runOptions{configPath: "/nonexistent/path/config.yaml"})
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("run() error = %v, want loading config error", err)
	}
}

// TestRun_InvalidRole verifies validation errors surface before any device is touched.
func TestRun_InvalidRole(t *testing.T) {
	path := writeConfig(t, "runtime:\n  role: spectator\n")

	err := run(context.Background(), runOptions{configPath: path})
	if err == nil {
		t.Fatal("run() should fail with an invalid role")
	}
	if !strings.Contains(err.Error(), "runtime.role") {
		t.Errorf("run() error = %v, want runtime.role validation error", err)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("AFKLOOP_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("AFKLOOP_CONFIG", "/etc/afkloop/config.yaml")
	if got := getConfigPath(); got != "/etc/afkloop/config.yaml" {
		t.Errorf("getConfigPath() = %q, want env override", got)
	}
}

func TestLint(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		quiet      bool
		wantErr    bool
		wantOutput []string
	}{
		{
			name:       "valid script",
			text:       "指定 -> 逃生者\n随机移动(2)\n",
			wantOutput: []string{"指定 -> 逃生者", "随机移动(2)"},
		},
		{
			name:       "unknown action",
			text:       "指定 -> 逃生者\nfly_away(2)\n",
			wantErr:    true,
			wantOutput: []string{"error: line 2"},
		},
		{
			name:  "quiet valid script prints nothing",
			text:  "指定 -> 逃生者\n随机移动(2)\n",
			quiet: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := lint(&buf, tt.text, tt.quiet)
			if (err != nil) != tt.wantErr {
				t.Fatalf("lint() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, errLintFailed) {
				t.Errorf("lint() error = %v, want errLintFailed", err)
			}
			for _, want := range tt.wantOutput {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("lint() output = %q, want it to contain %q", buf.String(), want)
				}
			}
			if tt.quiet && !tt.wantErr && buf.Len() != 0 {
				t.Errorf("lint() quiet output = %q, want empty", buf.String())
			}
		})
	}
}

func TestLintCmd_MissingFile(t *testing.T) {
	_, _, err := execute(t, "", "lint", filepath.Join(t.TempDir(), "missing.txt"))
	if err == nil {
		t.Fatal("lint of a missing file should fail")
	}
}

func TestReadPassword(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"newline terminated", "hunter2\n", "hunter2", false},
		{"crlf terminated", "hunter2\r\n", "hunter2", false},
		{"no newline", "hunter2", "hunter2", false},
		{"only first line", "first\nsecond\n", "first", false},
		{"empty", "", "", true},
		{"blank line", "\n", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readPassword(strings.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("readPassword() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("readPassword() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHashPasswordCmd(t *testing.T) {
	stdout, _, err := execute(t, "correct horse\n", "hash-password")
	if err != nil {
		t.Fatalf("hash-password error = %v", err)
	}

	hash := strings.TrimSpace(stdout)
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("hash = %q, want argon2id PHC string", hash)
	}
	ok, err := auth.VerifyPassword("correct horse", hash)
	if err != nil || !ok {
		t.Errorf("VerifyPassword(hash) = %v, %v, want true, nil", ok, err)
	}
}

func TestTokenCmd(t *testing.T) {
	t.Setenv("AFKLOOP_JWT_SECRET", "")
	path := writeConfig(t, "security:\n  jwt:\n    secret: \""+testSecret+"\"\n")

	stdout, stderr, err := execute(t, "", "token", "--config", path, "--role", "operator", "--ttl", "5m")
	if err != nil {
		t.Fatalf("token error = %v", err)
	}
	if !strings.Contains(stderr, "expires") {
		t.Errorf("stderr = %q, want expiry line", stderr)
	}

	a := auth.NewAuthenticator(config.SecurityConfig{JWT: config.JWTConfig{Secret: testSecret}})
	claims, err := a.Verify(strings.TrimSpace(stdout))
	if err != nil {
		t.Fatalf("Verify(issued token) error = %v", err)
	}
	if claims.Role != auth.RoleOperator {
		t.Errorf("claims.Role = %q, want %q", claims.Role, auth.RoleOperator)
	}
}

func TestTokenCmd_Errors(t *testing.T) {
	t.Setenv("AFKLOOP_JWT_SECRET", "")
	withSecret := writeConfig(t, "security:\n  jwt:\n    secret: \""+testSecret+"\"\n")
	noSecret := writeConfig(t, "runtime:\n  role: survivor\n")

	tests := []struct {
		name string
		args []string
	}{
		{"unknown role", []string{"token", "--config", withSecret, "--role", "admin"}},
		{"no secret", []string{"token", "--config", noSecret}},
		{"missing config", []string{"token", "--config", "/nonexistent/config.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := execute(t, "", tt.args...); err == nil {
				t.Errorf("execute(%v) error = nil, want error", tt.args)
			}
		})
	}
}

func TestSubscribeCommands(t *testing.T) {
	sub := &mockCommandSource{}
	cmd := &mockCommander{}

	if err := subscribeCommands(context.Background(), sub, cmd, 1, logging.Default()); err != nil {
		t.Fatalf("subscribeCommands() error = %v", err)
	}
	if sub.qos != 1 {
		t.Errorf("qos = %d, want 1", sub.qos)
	}

	if err := sub.handler(mqtt.CommandPause); err != nil {
		t.Fatalf("handler(pause) error = %v", err)
	}
	if got := cmd.calls(); len(got) != 1 || got[0] != "pause" {
		t.Errorf("commander calls = %v, want [pause]", got)
	}
	if got := cmd.origins[0].Source; got != audit.SourceMQTT {
		t.Errorf("origin source = %q, want %q", got, audit.SourceMQTT)
	}
}

func TestSubscribeCommands_Error(t *testing.T) {
	sub := &mockCommandSource{err: errors.New("not connected")}
	err := subscribeCommands(context.Background(), sub, &mockCommander{}, 1, logging.Default())
	if err == nil {
		t.Fatal("subscribeCommands() error = nil, want error")
	}
}

func TestCommandHandler(t *testing.T) {
	tests := []struct {
		name    string
		action  string
		doErr   error
		wantErr bool
	}{
		{"stop", mqtt.CommandStop, nil, false},
		{"dispatcher rejects", mqtt.CommandSuspend, control.ErrUnknownAction, true},
		{"after stop is ignored", mqtt.CommandPause, control.ErrStopped, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &mockCommander{err: tt.doErr}
			handler := commandHandler(context.Background(), cmd, logging.Default())

			err := handler(tt.action)
			if (err != nil) != tt.wantErr {
				t.Errorf("handler() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := cmd.calls(); len(got) != 1 || got[0] != tt.action {
				t.Errorf("commander calls = %v, want [%s]", got, tt.action)
			}
		})
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	want := []string{"run", "lint", "hash-password", "token"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("Find(%q) = %v, %v, want the %s command", name, cmd, err, name)
		}
	}
}
