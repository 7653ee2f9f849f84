package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"voxclone/internal/browser"
	"voxclone/internal/config"
	"voxclone/internal/logging"
	"voxclone/internal/provider/minimax"
)

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string
	timeout    time.Duration

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "voxclone",
	Short: "voxclone - batch voice cloning through the MiniMax web UI",
	Long: `voxclone drives the MiniMax voices-cloning page with a real browser:
it signs in with Google, uploads a reference audio, and turns a text file
into one cloned audio file per line.

Credentials come from MINIMAX_GOOGLE_EMAIL / MINIMAX_GOOGLE_PASSWORD or the
config file under .voxclone/config.yaml.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if err := logging.Initialize(workspace); err != nil {
			logger.Warn("file logging unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", ".", "Workspace directory holding .voxclone/")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default <workspace>/.voxclone/config.yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Overall command timeout (0 = none)")
}

// loadConfig resolves and loads the effective configuration.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath(workspace)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// browserConfig maps the config file's browser section onto the session layer.
func browserConfig(cfg *config.Config) browser.Config {
	bc := browser.Config{
		DebuggerURL:         cfg.Browser.DebuggerURL,
		Launch:              cfg.Browser.Launch,
		Headless:            cfg.Browser.Headless,
		ViewportWidth:       cfg.Browser.ViewportWidth,
		ViewportHeight:      cfg.Browser.ViewportHeight,
		NavigationTimeoutMs: cfg.Browser.NavigationTimeoutMs,
		SessionStore:        resolvePath(cfg.Browser.SessionStore),
		ScreenshotDir:       resolvePath(cfg.Browser.ScreenshotDir),
	}
	// A long-lived session launched with `voxclone session launch` leaves
	// its control URL behind; attach to it when present.
	if bc.DebuggerURL == "" {
		if url := readControlURL(); url != "" {
			bc.DebuggerURL = url
		}
	}
	return bc
}

// newProvider wires a provider over a fresh browser manager.
func newProvider(cfg *config.Config) *minimax.Provider {
	return minimax.New(cfg, browser.NewManager(browserConfig(cfg)))
}

// resolvePath anchors a relative config path at the workspace.
func resolvePath(path string) string {
	if path == "" || os.IsPathSeparator(path[0]) {
		return path
	}
	return workspace + string(os.PathSeparator) + path
}

// commandContext derives the working context for a command, honoring the
// --timeout flag.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(cmd.Context(), timeout)
	}
	return context.WithCancel(cmd.Context())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
