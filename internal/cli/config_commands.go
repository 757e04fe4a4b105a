// Package cli provides configuration management commands.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/proactive/dataspace-browser/internal/config"
	"github.com/proactive/dataspace-browser/internal/constants"
	"github.com/proactive/dataspace-browser/internal/diskspace"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage dsbrowse configuration",
		Long: `Configuration management commands for dsbrowse.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  test  - Test the connection to the dataspace
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigTestCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// configPath returns --config or the default location.
func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.DefaultConfigPath()
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup for dsbrowse.

The configuration is saved to ~/.config/dsbrowse/config.yaml (or --config).
The session id itself is never stored; point session_file at a file holding it.

Use --force to overwrite existing configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
			}

			cfg := config.New()
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "dsbrowse configuration")
			fmt.Fprintln(out, "======================")
			fmt.Fprintln(out, "Press Enter to keep the value in brackets.")
			fmt.Fprintln(out)

			cfg.BaseURL = ask(in, out, "Server base URL", "https://try.activeeon.com")
			cfg.Dataspace = strings.ToLower(ask(in, out, "Dataspace (user/global)", cfg.Dataspace))
			cfg.SessionFile = ask(in, out, "Session file", "")
			cfg.DownloadDir = ask(in, out, "Download directory", cfg.DownloadDir)
			cfg.ProxyMode = ask(in, out, "Proxy mode (no-proxy/system/basic/ntlm)", cfg.ProxyMode)
			if cfg.ProxyMode == "basic" || cfg.ProxyMode == "ntlm" {
				cfg.ProxyHost = ask(in, out, "Proxy host", "")
				if port, err := strconv.Atoi(ask(in, out, "Proxy port", strconv.Itoa(cfg.ProxyPort))); err == nil {
					cfg.ProxyPort = port
				}
				cfg.ProxyUser = ask(in, out, "Proxy user", "")
			}

			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.Save(path); err != nil {
				return err
			}

			GetLogger().Info().Str("path", path).Msg("Configuration saved")
			fmt.Fprintf(out, "\nConfiguration saved to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")

	return cmd
}

// ask prints a question and returns the trimmed answer, or def when empty.
func ask(in *bufio.Reader, out io.Writer, question, def string) string {
	if def != "" {
		fmt.Fprintf(out, "%s [%s]: ", question, def)
	} else {
		fmt.Fprintf(out, "%s: ", question)
	}
	line, _ := in.ReadString('\n')
	if line = strings.TrimSpace(line); line != "" {
		return line
	}
	return def
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the current configuration settings.

This command shows the merged configuration from:
  1. Configuration file (~/.config/dsbrowse/config.yaml)
  2. Environment variables (DSBROWSE_BASE_URL, DSBROWSE_SESSION_ID, ...)
  3. Command-line flags (--base-url, --session, --dataspace, --proxy-mode)

Priority: flags > environment > config file > defaults`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg.MergeWithFlags(baseURL, sessionID, dataspaceName, proxyMode)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Current Configuration")
			fmt.Fprintln(out, "=====================")
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Server:")
			fmt.Fprintf(out, "  Base URL:   %s\n", cfg.BaseURL)
			fmt.Fprintf(out, "  Dataspace:  %s\n", cfg.Dataspace)
			if cfg.BaseURL != "" {
				fmt.Fprintf(out, "  REST root:  %s\n", cfg.DataspaceURL(constants.DataspaceRestPath))
			}
			if cfg.SessionID != "" {
				// Never display any portion of the session id
				fmt.Fprintf(out, "  Session:    <set (%d chars)>\n", len(cfg.SessionID))
			} else if cfg.SessionFile != "" {
				fmt.Fprintf(out, "  Session:    from %s\n", cfg.SessionFile)
			} else {
				fmt.Fprintln(out, "  Session:    <not set>")
			}
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Proxy Settings:")
			fmt.Fprintf(out, "  Proxy Mode: %s\n", cfg.ProxyMode)
			if cfg.ProxyHost != "" {
				fmt.Fprintf(out, "  Proxy Host: %s\n", cfg.ProxyHost)
				fmt.Fprintf(out, "  Proxy Port: %d\n", cfg.ProxyPort)
			}
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Transport:")
			fmt.Fprintf(out, "  Request Timeout: %s\n", cfg.RequestTimeout)
			fmt.Fprintf(out, "  Max Retries:     %d\n", cfg.MaxRetries)
			fmt.Fprintf(out, "  Rate Limit:      %.1f/s (burst %.0f)\n", cfg.RatePerSec, cfg.RateBurst)
			if free := diskspace.GetAvailableSpace(cfg.DownloadDir); free > 0 {
				fmt.Fprintf(out, "  Download Dir:    %s (%s free)\n", cfg.DownloadDir, humanize.IBytes(uint64(free)))
			} else {
				fmt.Fprintf(out, "  Download Dir:    %s\n", cfg.DownloadDir)
			}
			fmt.Fprintln(out)

			fmt.Fprintf(out, "Configuration file: %s\n", path)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Fprintln(out, "  (file does not exist - using defaults)")
			}
			return nil
		},
	}

	return cmd
}

// newConfigTestCmd creates the 'config test' command.
func newConfigTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test the dataspace connection",
		Long: `List the root of the configured dataspace with the current settings.

Use this to verify your session id and network connectivity.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()
			out := cmd.OutOrStdout()

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			fmt.Fprintf(out, "Dataspace: %s\n", cfg.DataspaceURL(constants.DataspaceRestPath))
			fmt.Fprintln(out, "Testing connection...")

			s, err := newSession(cfg, sessionOptions{})
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := context.WithTimeout(GetContext(), 10*time.Second)
			defer cancel()

			if err := s.Open(ctx); err != nil {
				logger.Error().Err(err).Msg("Connection test failed")
				fmt.Fprintln(out, "✗ Connection FAILED")
				fmt.Fprintf(out, "  Error: %v\n", err)
				return fmt.Errorf("connection test failed")
			}

			logger.Info().Msg("Connection test successful")
			l := s.Listing()
			fmt.Fprintln(out, "✓ Connection SUCCESSFUL")
			fmt.Fprintf(out, "  %s: %d folders, %d files at the root\n",
				s.Dataspace().Location(), len(l.Directories), len(l.Files))
			return nil
		},
	}

	return cmd
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Long:  `Display the path to the configuration file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path, err := configPath()
			if err != nil {
				return err
			}
			if cfgFile == "" {
				fmt.Fprintln(out, "Default configuration path:")
			} else {
				fmt.Fprintln(out, "Configuration path (from --config flag):")
			}
			fmt.Fprintf(out, "  %s\n\n", path)

			if info, err := os.Stat(path); err == nil {
				fmt.Fprintln(out, "Status: ✓ File exists")
				fmt.Fprintf(out, "Size:   %d bytes\n", info.Size())
				fmt.Fprintf(out, "Modified: %s\n", info.ModTime().Format("2006-01-02 15:04:05"))
			} else {
				fmt.Fprintln(out, "Status: File does not exist")
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Create a configuration file with: dsbrowse config init")
			}
			return nil
		},
	}

	return cmd
}
