package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/proactive/dataspace-browser/internal/browser"
	"github.com/proactive/dataspace-browser/internal/events"
	"github.com/proactive/dataspace-browser/internal/localfs"
)

// newBrowseCmd creates the 'browse' command.
func newBrowseCmd() *cobra.Command {
	var selectFolder bool
	var varKey string
	var workflow bool
	var startDir string

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Open an interactive dataspace browser",
		Long: `Open an interactive shell on a dataspace. Navigate with cd/up/jump,
select an entry and run 'ok' to pick it as the value of --var.

Uploads run in the background; 'cancel' aborts the one in flight.
Type 'help' inside the shell for the list of commands.

Examples:
  # Pick an input file for the variable INPUT_FILE
  dsbrowse browse --var INPUT_FILE

  # Pick a folder of the global dataspace for a workflow variable
  dsbrowse browse --dataspace global --select-folder --var OUTPUT_DIR --workflow`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			in := bufio.NewReader(cmd.InOrStdin())
			out := &syncWriter{w: cmd.OutOrStdout()}
			vars := browser.NewVariables(workflow)

			opts := sessionOptions{
				selectFolder: selectFolder,
				varKey:       varKey,
				confirmer:    newConfirmer(in, out),
			}
			if varKey != "" {
				opts.host = vars
			}
			s, err := newSession(cfg, opts)
			if err != nil {
				return err
			}

			ctx := GetContext()
			s.CloseWhenDone(ctx)

			sh := newShell(s, in, out, vars)
			sh.progress = isTerminal(os.Stderr)
			return sh.run(ctx, startDir)
		},
	}

	cmd.Flags().BoolVar(&selectFolder, "select-folder", false, "Pick a folder instead of a regular file")
	cmd.Flags().StringVar(&varKey, "var", "", "Variable receiving the chosen path")
	cmd.Flags().BoolVar(&workflow, "workflow", false, "Deliver to workflow variables instead of job variables")
	cmd.Flags().StringVar(&startDir, "dir", "", "Directory to start in")

	return cmd
}

// syncWriter serializes writes from the command loop and background uploads.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// shell is the interactive presentation layer over one browser session.
type shell struct {
	s        *browser.BrowserSession
	in       *bufio.Reader
	out      io.Writer
	vars     *browser.Variables
	progress bool

	uploads sync.WaitGroup

	mu       sync.Mutex
	lastSeen *events.ProgressEvent
}

func newShell(s *browser.BrowserSession, in *bufio.Reader, out io.Writer, vars *browser.Variables) *shell {
	return &shell{s: s, in: in, out: out, vars: vars}
}

var errQuit = errors.New("quit")

// run opens the session, then reads and executes commands until quit, end of
// input, resolution or cancellation of ctx.
func (sh *shell) run(ctx context.Context, startDir string) error {
	defer sh.wait()
	defer sh.s.Close()

	progressCh := sh.s.Events().Subscribe(events.EventProgress)
	go sh.trackProgress(progressCh)

	fmt.Fprintln(sh.out, sh.s.Dataspace().Description())
	if err := sh.s.OpenAt(ctx, startDir); err != nil {
		return err
	}
	sh.show()

	for {
		if sh.s.Closed() {
			return nil
		}
		fmt.Fprintf(sh.out, "%s:%s> ", sh.s.Dataspace(), displayDir(sh.s.CurrentPath()))

		line, readErr := sh.in.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			err := sh.exec(ctx, line)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				sh.report(err)
			}
		}

		if readErr != nil {
			if readErr == io.EOF {
				fmt.Fprintln(sh.out)
				return nil
			}
			return readErr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// wait blocks until background uploads have finished.
func (sh *shell) wait() {
	sh.uploads.Wait()
}

// exec runs one command line.
func (sh *shell) exec(ctx context.Context, line string) error {
	args, err := splitArgs(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}
	cmd, args := args[0], args[1:]

	switch cmd {
	case "help", "?":
		sh.help()
		return nil
	case "quit", "exit", "q":
		return errQuit

	case "ls", "refresh":
		if err := sh.s.Refresh(ctx); err != nil {
			return err
		}
		sh.show()
		return nil
	case "cd":
		if len(args) == 0 {
			return sh.navigate(sh.s.Enter(ctx, ""))
		}
		return sh.cd(ctx, args[0])
	case "up", "..":
		return sh.navigate(sh.s.Up(ctx))
	case "crumbs":
		for i, c := range sh.s.Breadcrumbs() {
			fmt.Fprintf(sh.out, "%d  %s\n", i, c.Name)
		}
		return nil
	case "jump":
		if len(args) != 1 {
			return fmt.Errorf("usage: jump <crumb-number>")
		}
		return sh.jump(ctx, args[0])
	case "filter":
		pattern := ""
		if len(args) > 0 {
			pattern = args[0]
		}
		return sh.navigate(sh.s.SetFilter(ctx, pattern))
	case "hidden":
		show := !sh.s.ShowHidden()
		if len(args) > 0 {
			show = args[0] == "on" || args[0] == "true" || args[0] == "yes"
		}
		return sh.navigate(sh.s.SetShowHidden(ctx, show))

	case "select", "sel":
		if len(args) != 1 {
			return fmt.Errorf("usage: select <name>")
		}
		e, err := sh.lookup(args[0])
		if err != nil {
			return err
		}
		if err := sh.s.Select(e); err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "Selected %s\n", e.Path)
		return nil
	case "toggle":
		if len(args) != 1 {
			return fmt.Errorf("usage: toggle <name>")
		}
		e, err := sh.lookup(args[0])
		if err != nil {
			return err
		}
		selected, err := sh.s.Toggle(e)
		if err != nil {
			return err
		}
		if selected {
			fmt.Fprintf(sh.out, "Selected %s\n", e.Path)
		} else {
			fmt.Fprintln(sh.out, "Selection cleared")
		}
		return nil
	case "deselect":
		return sh.s.Deselect()
	case "ok", "resolve":
		if len(args) == 1 {
			if err := sh.selectName(args[0]); err != nil {
				return err
			}
		}
		return sh.resolve()

	case "upload", "put":
		if len(args) < 1 || len(args) > 2 {
			return fmt.Errorf("usage: upload <local-file> [remote-name]")
		}
		name := ""
		if len(args) == 2 {
			name = args[1]
		}
		return sh.upload(ctx, args[0], name)
	case "cancel":
		if sh.s.Cancel() {
			fmt.Fprintln(sh.out, "Cancelling upload")
		} else {
			fmt.Fprintln(sh.out, "No upload in progress")
		}
		return nil
	case "status":
		sh.status()
		return nil
	case "mkdir":
		name := ""
		if len(args) > 0 {
			name = args[0]
		}
		path, err := sh.s.CreateFolder(ctx, name)
		if err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "Created %s\n", path)
		sh.show()
		return nil
	case "download", "get":
		if len(args) == 1 {
			if err := sh.selectName(args[0]); err != nil {
				return err
			}
		}
		return sh.download(ctx)
	case "rm", "delete":
		if len(args) == 1 {
			if err := sh.selectName(args[0]); err != nil {
				return err
			}
		}
		if err := sh.s.Delete(ctx); err != nil {
			return err
		}
		fmt.Fprintln(sh.out, "Deleted")
		sh.show()
		return nil

	case "lls":
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		return sh.localList(dir)
	case "vars":
		sh.printVars()
		return nil
	}

	return fmt.Errorf("unknown command %q (type 'help')", cmd)
}

// navigate shows the new listing after a successful navigation command.
func (sh *shell) navigate(err error) error {
	if err != nil {
		return err
	}
	sh.show()
	return nil
}

func (sh *shell) cd(ctx context.Context, target string) error {
	switch {
	case target == "..":
		return sh.navigate(sh.s.Up(ctx))
	case strings.HasPrefix(target, "/"):
		return sh.navigate(sh.s.Enter(ctx, target))
	}

	e, ok := sh.s.Listing().Lookup(strings.TrimSuffix(target, "/") + "/")
	if !ok {
		return fmt.Errorf("%s: no such folder", target)
	}
	return sh.navigate(sh.s.Enter(ctx, e.Path))
}

func (sh *shell) jump(ctx context.Context, arg string) error {
	crumbs := sh.s.Breadcrumbs()
	i, err := strconv.Atoi(arg)
	if err != nil || i < 0 || i >= len(crumbs) {
		return fmt.Errorf("no breadcrumb %q (see 'crumbs')", arg)
	}
	return sh.navigate(sh.s.AscendTo(ctx, crumbs[i].Path))
}

func (sh *shell) lookup(name string) (browser.Entry, error) {
	e, ok := sh.s.Listing().Lookup(name)
	if !ok {
		return browser.Entry{}, fmt.Errorf("%s: not in the current listing", name)
	}
	return e, nil
}

func (sh *shell) selectName(name string) error {
	e, err := sh.lookup(name)
	if err != nil {
		return err
	}
	return sh.s.Select(e)
}

func (sh *shell) resolve() error {
	path, err := sh.s.Resolve()
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Chosen: %s\n", path)
	sh.printVars()
	return errQuit
}

// upload starts a background upload into the current directory.
func (sh *shell) upload(ctx context.Context, localPath, name string) error {
	src, err := localfs.OpenSource(localPath)
	if err != nil {
		return err
	}
	if name == "" {
		name = src.Name
	}

	sh.uploads.Add(1)
	go func() {
		defer sh.uploads.Done()
		defer src.Close()

		err := sh.s.Upload(ctx, name, src, src.Size)
		switch {
		case err == nil:
			fmt.Fprintf(sh.out, "\nUploaded %s\n", name)
		case errors.Is(err, browser.ErrUploadCancelled):
			fmt.Fprintf(sh.out, "\nUpload of %s cancelled\n", name)
		default:
			sh.report(err)
		}
	}()

	fmt.Fprintf(sh.out, "Uploading %s in the background ('status' to follow, 'cancel' to abort)\n", name)
	return nil
}

func (sh *shell) download(ctx context.Context) error {
	w := watchProgress(sh.s.Events(), sh.progress)
	location, err := sh.s.Download(ctx)
	w.stop()
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Saved to %s\n", location)
	return nil
}

// trackProgress keeps the latest upload progress for 'status'.
func (sh *shell) trackProgress(ch <-chan events.Event) {
	for ev := range ch {
		if pe, ok := ev.(*events.ProgressEvent); ok && pe.Direction == "upload" {
			sh.mu.Lock()
			sh.lastSeen = pe
			sh.mu.Unlock()
		}
	}
}

func (sh *shell) status() {
	if !sh.s.Uploading() {
		fmt.Fprintln(sh.out, "No upload in progress")
		return
	}
	sh.mu.Lock()
	pe := sh.lastSeen
	sh.mu.Unlock()
	if pe == nil {
		fmt.Fprintln(sh.out, "Upload starting")
		return
	}
	if pe.BytesTotal > 0 {
		fmt.Fprintf(sh.out, "Uploading %s: %s of %s (%.0f%%)\n", pe.Name,
			humanize.IBytes(uint64(pe.BytesCurrent)), humanize.IBytes(uint64(pe.BytesTotal)), pe.Progress*100)
		return
	}
	fmt.Fprintf(sh.out, "Uploading %s: %s\n", pe.Name, humanize.IBytes(uint64(pe.BytesCurrent)))
}

func (sh *shell) localList(dir string) error {
	entries, err := localfs.ListDirectory(dir, localfs.ListOptions{IncludeHidden: sh.s.ShowHidden()})
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir {
			fmt.Fprintf(sh.out, "  %s/\n", e.Name)
			continue
		}
		fmt.Fprintf(sh.out, "  %-40s %s\n", e.Name, humanize.IBytes(uint64(e.Size)))
	}
	return nil
}

func (sh *shell) printVars() {
	if sh.vars == nil {
		return
	}
	target, values := "job", sh.vars.Job()
	if sh.vars.WorkflowVariablesShown() {
		target, values = "workflow", sh.vars.Workflow()
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(sh.out, "%s variable %s=%s\n", target, k, values[k])
	}
}

func (sh *shell) show() {
	renderHeader(sh.out, sh.s)
	var selected *browser.Entry
	if e, ok := sh.s.Selected(); ok {
		selected = &e
	}
	renderListing(sh.out, sh.s.Listing(), selected)
}

// report prints err under its title, the way a dialog would.
func (sh *shell) report(err error) {
	switch {
	case errors.Is(err, browser.ErrNotConfirmed):
		fmt.Fprintln(sh.out, "Cancelled")
	case errors.Is(err, browser.ErrStaleListing):
		GetLogger().Debug().Err(err).Msg("Ignoring superseded listing")
	default:
		fmt.Fprintf(sh.out, "%s: %v\n", browser.Title(err), err)
	}
}

func (sh *shell) help() {
	fmt.Fprint(sh.out, `Navigation:
  ls | refresh          reload the current directory
  cd <dir> | cd /path   enter a folder (cd with no argument goes to the root)
  up | cd ..            go to the parent folder
  crumbs / jump <n>     show the breadcrumb trail / jump to one of its entries
  filter [pattern]      list only matching entries ("*" when empty)
  hidden [on|off]       show or hide hidden entries
Selection:
  select <name>         select an entry (names ending in / are folders)
  toggle <name>         select or deselect an entry
  deselect              clear the selection
  ok [name]             choose the selected entry and leave
Transfers:
  upload <file> [name]  upload a local file in the background
  status | cancel       follow or abort the running upload
  mkdir [name]          create a folder (default untitled-folder)
  download [name]       download the selection (folders as .zip)
  rm [name]             delete the selection
Local:
  lls [dir]             list a local directory
  vars                  show delivered variables
  quit                  leave without choosing
`)
}

// splitArgs splits a command line on spaces, honoring double quotes.
func splitArgs(line string) ([]string, error) {
	var args []string
	var cur strings.Builder
	inQuotes, hasToken := false, false
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			hasToken = true
		case (r == ' ' || r == '\t') && !inQuotes:
			if hasToken {
				args = append(args, cur.String())
				cur.Reset()
				hasToken = false
			}
		default:
			cur.WriteRune(r)
			hasToken = true
		}
	}
	if inQuotes {
		return nil, fmt.Errorf("unterminated quote")
	}
	if hasToken {
		args = append(args, cur.String())
	}
	return args, nil
}
