package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/compresr/glm-usage-monitor/internal/app"
	"github.com/compresr/glm-usage-monitor/internal/config"
	"github.com/compresr/glm-usage-monitor/internal/glm"
	"github.com/compresr/glm-usage-monitor/internal/monitoring"
	"github.com/compresr/glm-usage-monitor/internal/tui"
	"github.com/compresr/glm-usage-monitor/internal/utils"
)

// minTickRate keeps the loop from spinning.
const minTickRate = 10 * time.Millisecond

type rootOptions struct {
	configPath string
	refreshSec uint64
	timeoutSec uint64
	tickRateMs uint64
	debug      bool
	logFile    string
	once       bool
	noEnvFiles bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   config.AppName,
		Short: "Live terminal dashboard for GLM Coding Plan quota usage",
		Long: `Shows the prompt-token window and monthly tool-call quota of a GLM Coding
Plan, refreshed in the background. Credentials come from ANTHROPIC_BASE_URL and
ANTHROPIC_AUTH_TOKEN, .env files, or ` + config.DefaultPath() + `.

Keys: q / Esc / Ctrl-C quit, r refresh now.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "config file (default "+config.DefaultPath()+")")
	f.Uint64VarP(&opts.refreshSec, "refresh-sec", "r", config.DefaultRefreshSec, "seconds between quota refreshes")
	f.Uint64VarP(&opts.timeoutSec, "timeout-sec", "t", config.DefaultHTTPTimeoutSec, "HTTP timeout per refresh, in seconds")
	f.Uint64Var(&opts.tickRateMs, "tick-rate", uint64(config.DefaultTickRate/time.Millisecond), "render and input cadence, in milliseconds")
	f.BoolVarP(&opts.debug, "debug", "d", false, "debug logging")
	f.StringVar(&opts.logFile, "log-file", "", "append logs to this file (default: discard)")
	f.BoolVar(&opts.once, "once", false, "fetch once, print the snapshot as JSON and exit")
	f.BoolVar(&opts.noEnvFiles, "no-env-files", false, "do not read .env files")

	return cmd
}

// configError marks failures that happen before the dashboard starts, so
// main can print a setup hint.
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

func run(cmd *cobra.Command, opts *rootOptions) error {
	logOut, err := openLogOutput(opts.logFile)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = logOut.Close() }()
	setupLogging(opts.debug, logOut)

	if !opts.noEnvFiles {
		loadEnvFiles(envFiles()...)
	}

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return &configError{err: err}
	}
	tickRate := time.Duration(opts.tickRateMs) * time.Millisecond
	if tickRate < minTickRate {
		return &configError{err: fmt.Errorf("--tick-rate must be at least %d ms", minTickRate/time.Millisecond)}
	}

	client, err := glm.NewClient(cfg.BaseURL, cfg.AuthToken,
		glm.WithTimeout(cfg.HTTPTimeout()),
		glm.WithBearer(cfg.AuthScheme == config.AuthSchemeBearer))
	if err != nil {
		return &configError{err: err}
	}

	log.Info().
		Str("version", version).
		Str("monitor", client.MonitorRoot()).
		Str("region", client.Region()).
		Str("token", utils.MaskKey(cfg.AuthToken)).
		Uint64("refresh_sec", cfg.RefreshSec).
		Uint64("timeout_sec", cfg.HTTPTimeoutSec).
		Msg("main: config loaded")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.once {
		return runOnce(ctx, client, cfg.HTTPTimeout(), cmd.OutOrStdout())
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("stdin and stdout must be a terminal; use --once for scripted output")
	}
	return runDashboard(ctx, app.SettingsFromConfig(cfg, tickRate), client)
}

// loadConfig loads the config and applies flags the user actually set.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	return cfg.WithOverrides(overridesFromFlags(cmd, opts))
}

func overridesFromFlags(cmd *cobra.Command, opts *rootOptions) config.Overrides {
	var o config.Overrides
	if cmd.Flags().Changed("refresh-sec") {
		o.RefreshSec = &opts.refreshSec
	}
	if cmd.Flags().Changed("timeout-sec") {
		o.HTTPTimeoutSec = &opts.timeoutSec
	}
	return o
}

func runDashboard(ctx context.Context, settings app.Settings, fetcher app.Fetcher) error {
	t, err := tui.OpenTerminal(os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	// Restore the terminal even if the runtime panics.
	defer func() { _ = t.Close() }()

	rt := app.New(settings, fetcher,
		tui.NewRenderer(os.Stdout, tui.WithSize(t.Size)),
		t.Events(),
		app.WithMetrics(monitoring.NewRefreshMetrics()))

	runErr := rt.Run(ctx)
	if err := t.Close(); err != nil && runErr == nil {
		return fmt.Errorf("restore terminal: %w", err)
	}
	return runErr
}

// runOnce fetches a single snapshot and prints it as JSON.
func runOnce(ctx context.Context, fetcher app.Fetcher, timeout time.Duration, out io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	snap, err := fetcher.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch usage: %w", err)
	}

	data, err := utils.MarshalIndentNoEscape(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

// reportError prints err, plus a setup hint for configuration problems.
func reportError(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)

	var cfgErr *configError
	if errors.As(err, &cfgErr) {
		_, _ = fmt.Fprintf(w, "Hint: set %s and %s (shell or .env), or write %s\n",
			config.EnvBaseURL, config.EnvAuthToken, config.DefaultPath())
	}
}
