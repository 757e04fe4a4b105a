package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/proactive/dataspace-browser/internal/browser"
	"github.com/proactive/dataspace-browser/internal/config"
	"github.com/proactive/dataspace-browser/internal/dataspace"
	"github.com/proactive/dataspace-browser/internal/events"
	"github.com/proactive/dataspace-browser/internal/localfs"
	"github.com/proactive/dataspace-browser/internal/progress"
)

// sessionOptions are the per-command parts of a browser session.
type sessionOptions struct {
	selectFolder bool
	varKey       string
	host         browser.Host
	confirmer    browser.Confirmer
	saveDir      string // overrides the configured download directory
	filter       string
	showHidden   bool
}

// newSession builds a dataspace client from cfg and wraps it in a session.
func newSession(cfg *config.Config, opts sessionOptions) (*browser.BrowserSession, error) {
	ds, err := dataspace.Parse(cfg.Dataspace)
	if err != nil {
		return nil, err
	}

	client, err := dataspace.NewClient(cfg, GetLogger().Named("dataspace"))
	if err != nil {
		return nil, fmt.Errorf("failed to create dataspace client: %w", err)
	}

	saveDir := opts.saveDir
	if saveDir == "" {
		saveDir = cfg.DownloadDir
	}
	saveDir, err = localfs.ResolvePath(saveDir)
	if err != nil {
		return nil, fmt.Errorf("invalid download directory: %w", err)
	}

	return browser.NewSession(client, browser.Options{
		Dataspace:    ds,
		Credential:   dataspace.Credential{SessionID: cfg.SessionID},
		SelectFolder: opts.selectFolder,
		VarKey:       opts.varKey,
		Host:         opts.host,
		Confirmer:    opts.confirmer,
		Saver:        localfs.NewSaver(saveDir),
		Filter:       opts.filter,
		ShowHidden:   opts.showHidden,
		Logger:       GetLogger().Named("session"),
	}), nil
}

// splitRemote splits a remote path into its parent directory and the last
// name. A trailing "/" marks the name as a directory and is kept.
func splitRemote(path string) (dir, name string) {
	path = strings.TrimPrefix(strings.TrimSpace(path), "/")
	trimmed := strings.TrimSuffix(path, "/")
	i := strings.LastIndex(trimmed, "/")
	if i < 0 {
		return "", path
	}
	return trimmed[:i+1], path[i+1:]
}

// selectRemote opens s at the parent of path and selects the entry there.
// Sessions used for this are created with showHidden so that an exact
// path names a hidden entry as well as any other.
func selectRemote(ctx context.Context, s *browser.BrowserSession, path string) (browser.Entry, error) {
	dir, name := splitRemote(path)
	if name == "" || name == "/" {
		return browser.Entry{}, errors.New("a file or folder name is required")
	}
	if err := s.OpenAt(ctx, dir); err != nil {
		return browser.Entry{}, err
	}
	entry, ok := s.Listing().Lookup(name)
	if !ok {
		return browser.Entry{}, fmt.Errorf("%s: no such file or folder", path)
	}
	if err := s.Select(entry); err != nil {
		return browser.Entry{}, err
	}
	return entry, nil
}

// progressWatcher renders the progress events of a session as CLI bars.
type progressWatcher struct {
	bus  *events.EventBus
	ch   <-chan events.Event
	done chan struct{}
	out  io.Writer

	mu  sync.Mutex
	bar *progress.CLIProgress
	key string
}

// watchProgress starts drawing bars for transfers on bus. It does nothing
// unless stderr is a terminal. Call stop when the command returns.
func watchProgress(bus *events.EventBus, enabled bool) *progressWatcher {
	return watchProgressTo(bus, enabled, os.Stderr)
}

func watchProgressTo(bus *events.EventBus, enabled bool, out io.Writer) *progressWatcher {
	w := &progressWatcher{bus: bus, done: make(chan struct{}), out: out}
	if !enabled {
		close(w.done)
		return w
	}
	w.ch = bus.Subscribe(events.EventProgress)
	go w.run()
	return w
}

func (w *progressWatcher) run() {
	defer close(w.done)
	for ev := range w.ch {
		pe, ok := ev.(*events.ProgressEvent)
		if !ok {
			continue
		}
		w.mu.Lock()
		key := pe.Direction + ":" + pe.Name
		if pe.Err != nil {
			if w.key == key {
				w.abortLocked()
			}
			w.mu.Unlock()
			continue
		}
		if w.bar == nil || w.key != key {
			w.finishLocked()
			w.bar = progress.NewCLIProgressTo(w.out)
			w.bar.Start(pe.BytesTotal, pe.Direction+" "+pe.Name)
			w.key = key
		}
		w.bar.Update(pe.BytesCurrent)
		if pe.BytesTotal > 0 && pe.BytesCurrent >= pe.BytesTotal {
			w.finishLocked()
		}
		w.mu.Unlock()
	}
}

func (w *progressWatcher) finishLocked() {
	if w.bar != nil {
		w.bar.Finish()
		w.bar = nil
		w.key = ""
	}
}

// abortLocked clears the bar of a transfer that did not complete. The
// command reports the error itself.
func (w *progressWatcher) abortLocked() {
	if w.bar != nil {
		w.bar.Error(nil)
		w.bar = nil
		w.key = ""
	}
}

// stop unsubscribes and completes any bar still on screen.
func (w *progressWatcher) stop() {
	if w.ch != nil {
		w.bus.Unsubscribe(events.EventProgress, w.ch)
	}
	<-w.done
	w.mu.Lock()
	w.finishLocked()
	w.mu.Unlock()
}
