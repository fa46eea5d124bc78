// afkloop drives a game client unattended: it watches the screen through
// OCR, walks the match lifecycle and plays each match with scripted or
// built-in input routines.
//
// Subcommands:
//   - run: start the control loop (default)
//   - lint: parse a custom command script and report errors
//   - hash-password: produce an operator password hash for the config
//   - token: issue an API token signed with the configured secret
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/afkloop/internal/auth"
	"github.com/nerrad567/afkloop/internal/infrastructure/config"
	"github.com/nerrad567/afkloop/internal/script"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on Ctrl+C or SIGTERM; the control loop treats it as a clean stop.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. The root runs the control loop when
// no subcommand is given.
func newRootCmd() *cobra.Command {
	opts := runOptions{}

	root := &cobra.Command{
		Use:           "afkloop",
		Short:         "Unattended match loop driven by screen text recognition",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", getConfigPath(), "path to the YAML config file")
	addRunFlags(root, &opts)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start the control loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	addRunFlags(runCmd, &opts)

	root.AddCommand(runCmd, newLintCmd(), newHashPasswordCmd(), newTokenCmd(&opts.configPath))
	return root
}

func addRunFlags(cmd *cobra.Command, opts *runOptions) {
	cmd.Flags().IntVar(&opts.suspendPID, "suspend-pid", 0, "also SIGSTOP/SIGCONT this process on suspend")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "skip the ready stage and ignore disconnects")
}

// newLintCmd parses a script file and prints the normalised program.
// It exits non-zero when any line fails to parse.
func newLintCmd() *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "lint <script>",
		Short: "Check a custom command script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading script: %w", err)
			}
			return lint(cmd.OutOrStdout(), string(data), quiet)
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "only print errors")
	return cmd
}

// errLintFailed is returned by lint when the script has parse errors.
var errLintFailed = errors.New("script has errors")

func lint(w io.Writer, text string, quiet bool) error {
	prog := script.Parse(text)
	if !quiet {
		fmt.Fprint(w, prog.Format())
	}
	errs := prog.Errors()
	for _, e := range errs {
		fmt.Fprintf(w, "error: %v\n", e)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %d line(s)", errLintFailed, len(errs))
	}
	return nil
}

// newHashPasswordCmd reads a password from stdin and prints its argon2id hash.
func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Hash an operator password read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return fmt.Errorf("hashing password: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("empty password")
	}
	return password, nil
}

// newTokenCmd issues a token without a password, for scripts and MQTT-less
// setups that already hold the signing secret.
func newTokenCmd(configPath *string) *cobra.Command {
	var (
		role string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			r, ok := auth.ParseRole(role)
			if !ok {
				return fmt.Errorf("unknown role %q", role)
			}
			token, expires, err := auth.NewAuthenticator(cfg.Security).Issue(r, ttl)
			if err != nil {
				return fmt.Errorf("issuing token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", string(auth.RoleViewer), "token role: viewer or operator")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default from config)")
	return cmd
}

// getConfigPath returns the configuration file path.
// Uses AFKLOOP_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("AFKLOOP_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
