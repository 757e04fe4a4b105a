// Package cli provides the command-line interface for dsbrowse.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/proactive/dataspace-browser/internal/config"
	inthttp "github.com/proactive/dataspace-browser/internal/http"
	"github.com/proactive/dataspace-browser/internal/logging"
	"github.com/proactive/dataspace-browser/internal/version"
)

var (
	// Global flags
	cfgFile       string
	baseURL       string
	sessionID     string
	dataspaceName string
	proxyMode     string
	assumeYes     bool
	verbose       bool
	debug         bool

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dsbrowse",
		Short: "Browse, select and transfer files in a remote dataspace",
		Long: `dsbrowse ` + version.Version + ` - Built: ` + version.BuildTime + `
Client for the user and global dataspaces of a workflow server.

Interactive mode:
  dsbrowse browse            open a browsing shell at the dataspace root
  dsbrowse browse --select-folder --var INPUT_DIR

One-shot commands:
  ls, upload, download, rm, mkdir

The session id is taken from --session, DSBROWSE_SESSION_ID or the
session_file entry of the configuration file.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewDefaultCLILogger()
			if verbose || debug {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				logging.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Server base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&sessionID, "session", "", "Session id (overrides all other sources)")
	rootCmd.PersistentFlags().StringVarP(&dataspaceName, "dataspace", "d", "", "Dataspace to browse: user or global")
	rootCmd.PersistentFlags().StringVar(&proxyMode, "proxy-mode", "", "Proxy mode: no-proxy, system, basic or ntlm")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "Answer yes to confirmation prompts")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output (same as --verbose)")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	// Create a context that can be cancelled by signals
	rootContext, cancelFunc = context.WithCancel(context.Background())
	defer cancelFunc()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling operations...\n", sig)
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newBrowseCmd())
	rootCmd.AddCommand(newLsCmd())
	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newDownloadCmd())
	rootCmd.AddCommand(newRmCmd())
	rootCmd.AddCommand(newMkdirCmd())
	rootCmd.AddCommand(newConfigCmd())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the global CLI context with signal handling.
// This context will be cancelled when the user presses Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}

// loadConfig merges the config file, environment and global flags, then
// validates the result and resolves the session credential.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg.MergeWithFlags(baseURL, sessionID, dataspaceName, proxyMode)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := cfg.ResolveSession(); err != nil {
		return nil, err
	}

	// Proxy password is never stored; ask for it when a terminal is available
	if inthttp.NeedsProxyPassword(cfg) && isTerminal(os.Stdin) {
		fmt.Fprintf(os.Stderr, "Proxy password for %s@%s: ", cfg.ProxyUser, cfg.ProxyHost)
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("failed to read proxy password: %w", err)
		}
		cfg.ProxyPassword = string(password)
	}
	return cfg, nil
}
