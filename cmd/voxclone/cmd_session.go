package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/spf13/cobra"

	"voxclone/internal/browser"
	"voxclone/internal/config"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage a long-lived browser session",
	Long: `A long-lived session keeps one Chrome alive across voxclone invocations,
so the Google login and the uploaded reference audio survive between
commands. Other commands attach to it automatically.`,
}

var sessionLaunchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Launch a browser and keep it alive until interrupted",
	RunE:  runSessionLaunch,
}

var sessionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a long-lived session is available",
	RunE:  runSessionStatus,
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the long-lived session and the persisted login state",
	RunE:  runSessionClear,
}

func init() {
	sessionCmd.AddCommand(sessionLaunchCmd, sessionStatusCmd, sessionClearCmd)
	rootCmd.AddCommand(sessionCmd)
}

// controlURLPath is where a launched session advertises its DevTools URL.
func controlURLPath() string {
	return filepath.Join(workspace, ".voxclone", "browser", "control_url")
}

func readControlURL() string {
	data, err := os.ReadFile(controlURLPath())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func runSessionLaunch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	bc := browserConfig(cfg)
	bc.DebuggerURL = "" // always launch fresh, never attach to ourselves
	m := browser.NewManager(bc)

	if err := m.Start(cmd.Context()); err != nil {
		return err
	}

	path := controlURLPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(m.ControlURL()), 0600); err != nil {
		return err
	}

	fmt.Printf("Browser session running (control url: %s)\n", m.ControlURL())
	fmt.Println("Press Ctrl-C to stop; login state is persisted on shutdown.")

	// Browser settings only take effect at launch; tell the user when the
	// config changes under a running session.
	cfgFile := configPath
	if cfgFile == "" {
		cfgFile = config.DefaultPath(workspace)
	}
	watcher, err := config.NewWatcher(cfgFile, func(next *config.Config) {
		if !reflect.DeepEqual(next.Browser, cfg.Browser) {
			fmt.Println("Browser settings changed; restart the session to apply them.")
		}
	})
	if err == nil {
		if err := watcher.Start(cmd.Context()); err == nil {
			defer watcher.Stop()
		}
	}

	<-cmd.Context().Done()

	_ = os.Remove(path)
	// The command context is already canceled here; persistence needs a
	// live one.
	return m.Shutdown(context.Background())
}

func runSessionStatus(cmd *cobra.Command, args []string) error {
	url := readControlURL()
	if url == "" {
		fmt.Println("No long-lived session.")
		return nil
	}
	fmt.Printf("Session control url: %s\n", url)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if store := resolvePath(cfg.Browser.SessionStore); store != "" {
		if _, err := os.Stat(store); err == nil {
			fmt.Printf("Persisted login state: %s\n", store)
		}
	}
	return nil
}

func runSessionClear(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	removed := false
	if err := os.Remove(controlURLPath()); err == nil {
		removed = true
	}
	if store := resolvePath(cfg.Browser.SessionStore); store != "" {
		if err := os.Remove(store); err == nil {
			removed = true
		}
	}

	if removed {
		fmt.Println("Session state cleared.")
	} else {
		fmt.Println("Nothing to clear.")
	}
	return nil
}
