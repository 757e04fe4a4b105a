package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/proactive/dataspace-browser/internal/browser"
	"github.com/proactive/dataspace-browser/internal/localfs"
)

// newLsCmd creates the 'ls' command.
func newLsCmd() *cobra.Command {
	var filter string
	var all bool

	cmd := &cobra.Command{
		Use:   "ls [remote-dir]",
		Short: "List a dataspace directory",
		Long: `List the files and folders of a dataspace directory.

Examples:
  # List the root of the user dataspace
  dsbrowse ls

  # List a sub-directory of the global dataspace
  dsbrowse ls inputs/meshes --dataspace global

  # Only entries matching a pattern, hidden ones included
  dsbrowse ls results --filter "*.csv" --all`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			s, err := newSession(cfg, sessionOptions{filter: filter, showHidden: all})
			if err != nil {
				return err
			}
			defer s.Close()

			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			if err := s.OpenAt(GetContext(), dir); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			renderHeader(out, s)
			renderListing(out, s.Listing(), nil)
			return nil
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Include pattern (default \"*\")")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Show hidden files")

	return cmd
}

// newUploadCmd creates the 'upload' command.
func newUploadCmd() *cobra.Command {
	var remoteDir string
	var name string

	cmd := &cobra.Command{
		Use:   "upload <file> [file...]",
		Short: "Upload local files into a dataspace directory",
		Long: `Upload one or more local files. Files are sent one at a time and the
directory listing is refreshed after each one.

Examples:
  # Upload into the dataspace root
  dsbrowse upload model.tar.gz

  # Upload several files into a sub-directory
  dsbrowse upload *.dat --to inputs/run1

  # Upload under another name
  dsbrowse upload local.csv --to results --name summary.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name != "" && len(args) > 1 {
				return fmt.Errorf("--name can only be used with a single file")
			}

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			s, err := newSession(cfg, sessionOptions{})
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := GetContext()
			if err := s.OpenAt(ctx, remoteDir); err != nil {
				return err
			}

			w := watchProgress(s.Events(), isTerminal(os.Stderr))
			defer w.stop()

			out := cmd.OutOrStdout()
			for _, path := range args {
				if err := uploadFile(ctx, s, path, name); err != nil {
					return err
				}
				fmt.Fprintf(out, "Uploaded %s to %s\n", path, displayDir(s.CurrentPath()))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&remoteDir, "to", "", "Remote directory (default: dataspace root)")
	cmd.Flags().StringVar(&name, "name", "", "Remote file name (single file only)")

	return cmd
}

// newDownloadCmd creates the 'download' command.
func newDownloadCmd() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "download <remote-path>",
		Short: "Download a file, or a folder as a zip archive",
		Long: `Download a dataspace file. A folder is downloaded as "<name>.zip" after
confirmation. Existing local files are never overwritten; a numbered name
is chosen instead.

Examples:
  # Download a file into the configured download directory
  dsbrowse download results/summary.csv

  # Download a whole folder as results.zip into /tmp
  dsbrowse download results/ --output /tmp --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			s, err := newSession(cfg, sessionOptions{
				confirmer:  stdinConfirmer(cmd.ErrOrStderr()),
				saveDir:    outputDir,
				showHidden: true,
			})
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := GetContext()
			if _, err := selectRemote(ctx, s, args[0]); err != nil {
				return err
			}

			w := watchProgress(s.Events(), isTerminal(os.Stderr))
			location, err := s.Download(ctx)
			w.stop()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to %s\n", args[0], location)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Local directory (default: download_dir from config)")

	return cmd
}

// newRmCmd creates the 'rm' command.
func newRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <remote-path>",
		Short: "Delete a dataspace file or folder",
		Long: `Permanently delete a dataspace file, or a folder and everything in it.
The deletion must be confirmed, or approved up front with --yes.

Examples:
  dsbrowse rm results/old.csv
  dsbrowse rm scratch/ --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			s, err := newSession(cfg, sessionOptions{
				confirmer:  stdinConfirmer(cmd.ErrOrStderr()),
				showHidden: true,
			})
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := GetContext()
			entry, err := selectRemote(ctx, s, args[0])
			if err != nil {
				return err
			}
			if err := s.Delete(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", entry.Path)
			return nil
		},
	}

	return cmd
}

// newMkdirCmd creates the 'mkdir' command.
func newMkdirCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mkdir [remote-dir]",
		Short: "Create a dataspace folder",
		Long: `Create a folder. Without an argument the folder is named "untitled-folder"
and created in the dataspace root.

Examples:
  dsbrowse mkdir inputs/run2
  dsbrowse mkdir --dataspace global`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			s, err := newSession(cfg, sessionOptions{})
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := GetContext()
			if err := s.Open(ctx); err != nil {
				return err
			}

			var name string
			if len(args) == 1 {
				name = strings.Trim(args[0], "/")
			}
			path, err := s.CreateFolder(ctx, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			return nil
		},
	}

	return cmd
}

// uploadFile sends the local file at path into the session's current
// directory, under remoteName when given.
func uploadFile(ctx context.Context, s *browser.BrowserSession, path, remoteName string) error {
	src, err := localfs.OpenSource(path)
	if err != nil {
		return err
	}
	defer src.Close()

	if remoteName == "" {
		remoteName = src.Name
	}
	err = s.Upload(ctx, remoteName, src, src.Size)
	if errors.Is(err, browser.ErrUploadCancelled) {
		return fmt.Errorf("upload of %s cancelled", path)
	}
	return err
}

// displayDir renders a remote directory for messages; the root is "/".
func displayDir(dir string) string {
	if dir == "" {
		return "/"
	}
	return "/" + dir
}
