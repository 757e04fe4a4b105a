package browser

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/proactive/dataspace-browser/internal/constants"
	"github.com/proactive/dataspace-browser/internal/dataspace"
	"github.com/proactive/dataspace-browser/internal/events"
	"github.com/proactive/dataspace-browser/internal/logging"
)

// Options configures a BrowserSession.
type Options struct {
	Dataspace    dataspace.Dataspace
	Credential   dataspace.Credential
	SelectFolder bool   // a directory (true) or a regular file (false) must be chosen
	VarKey       string // variable receiving the chosen path
	Host         Host
	Confirmer    Confirmer
	Saver        Saver
	Filter       string           // initial include pattern, "*" when empty
	ShowHidden   bool             // list hidden entries from the first fetch
	EventBus     *events.EventBus // created and owned by the session when nil
	Logger       *logging.Logger
}

// BrowserSession is one open-to-close browsing interaction. Commands block
// until their network calls complete and are safe to call from several
// goroutines; results are returned and also published on the event bus.
type BrowserSession struct {
	opts     Options
	fetcher  *Fetcher
	transfer *TransferController
	bus      *events.EventBus
	ownsBus  bool
	logger   *logging.Logger

	mu         sync.Mutex
	path       *PathModel
	filter     string
	showHidden bool
	listing    *Listing
	selection  *SelectionModel
	lastError  string
	closed     bool

	done      chan struct{}
	closeOnce sync.Once
}

// NewSession creates a session at the dataspace root. Call Open to load the
// first listing.
func NewSession(remote Remote, opts Options) *BrowserSession {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	bus := opts.EventBus
	ownsBus := false
	if bus == nil {
		bus = events.NewEventBus(constants.EventBusDefaultBuffer)
		ownsBus = true
	}

	filter := opts.Filter
	if filter == "" {
		filter = constants.DefaultFilterPattern
	}

	return &BrowserSession{
		opts:       opts,
		fetcher:    NewFetcher(remote, opts.Credential),
		transfer:   NewTransferController(remote, opts.Credential, opts.Confirmer, opts.Saver, bus, logger),
		bus:        bus,
		ownsBus:    ownsBus,
		logger:     logger,
		path:       NewPathModel(),
		filter:     filter,
		showHidden: opts.ShowHidden,
		selection:  NewSelectionModel(opts.SelectFolder),
		done:       make(chan struct{}),
	}
}

// Events returns the bus the session publishes on.
func (s *BrowserSession) Events() *events.EventBus { return s.bus }

// Dataspace returns the dataspace this session browses.
func (s *BrowserSession) Dataspace() dataspace.Dataspace { return s.opts.Dataspace }

// SelectFolder reports the session mode.
func (s *BrowserSession) SelectFolder() bool { return s.opts.SelectFolder }

// Done is closed when the session closes.
func (s *BrowserSession) Done() <-chan struct{} { return s.done }

// CloseWhenDone closes the session when ctx ends, as when the enclosing
// dialog goes away.
func (s *BrowserSession) CloseWhenDone(ctx context.Context) {
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()
}

// Open resets the path to the root and loads its listing.
func (s *BrowserSession) Open(ctx context.Context) error {
	return s.OpenAt(ctx, "")
}

// OpenAt sets the path to dir and loads its listing with a single fetch.
func (s *BrowserSession) OpenAt(ctx context.Context, dir string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.path.Enter(dir)
	path := s.path.Current()
	s.mu.Unlock()

	s.logger.Info().
		Str("dataspace", string(s.opts.Dataspace)).
		Str("path", path).
		Bool("select_folder", s.opts.SelectFolder).
		Msg("Session opened")
	return s.Refresh(ctx)
}

// Enter moves to dir and refreshes.
func (s *BrowserSession) Enter(ctx context.Context, dir string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.path.Enter(dir)
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// AscendTo jumps to an ancestor of the current directory and refreshes.
func (s *BrowserSession) AscendTo(ctx context.Context, dir string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	err := s.path.AscendTo(dir)
	s.mu.Unlock()
	if err != nil {
		return &ValidationError{Title: "Error", Message: err.Error(), Err: err}
	}
	return s.Refresh(ctx)
}

// Up moves to the parent directory and refreshes. At the root it only refreshes.
func (s *BrowserSession) Up(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.path.Up()
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// SetFilter changes the include pattern and refreshes. An empty pattern means "*".
func (s *BrowserSession) SetFilter(ctx context.Context, pattern string) error {
	if pattern == "" {
		pattern = constants.DefaultFilterPattern
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.filter = pattern
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// SetShowHidden changes whether hidden entries are listed. It refreshes only
// when the flag actually changes.
func (s *BrowserSession) SetShowHidden(ctx context.Context, show bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.showHidden == show {
		s.mu.Unlock()
		return nil
	}
	s.showHidden = show
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// Refresh fetches the current directory. On success the listing is replaced
// and the selection cleared. On failure the previous listing stays. A result
// overtaken by a later fetch or a path change is dropped with ErrStaleListing.
func (s *BrowserSession) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	path, filter, hidden := s.path.Current(), s.filter, s.showHidden
	s.mu.Unlock()

	start := time.Now()
	listing, seq, err := s.fetcher.Fetch(ctx, path, filter, hidden)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if !s.fetcher.Latest(seq) || s.path.Current() != path {
		s.mu.Unlock()
		s.logger.Debug().Str("path", path).Msg("Discarding stale listing")
		return ErrStaleListing
	}
	if err != nil {
		s.lastError = err.Error()
		s.mu.Unlock()
		s.publishError(err)
		return err
	}
	s.listing = listing
	s.selection.Deselect()
	s.mu.Unlock()

	s.logger.Debug().
		Str("path", path).
		Str("filter", filter).
		Int("files", len(listing.Files)).
		Int("directories", len(listing.Directories)).
		Dur("elapsed", time.Since(start)).
		Msg("Listing installed")

	s.bus.Publish(&events.ListingReadyEvent{
		BaseEvent:   events.BaseEvent{EventType: events.EventListingReady, Time: time.Now()},
		Path:        path,
		Filter:      filter,
		Files:       len(listing.Files),
		Directories: len(listing.Directories),
	})
	s.publishSelection(Entry{}, false)
	return nil
}

// Select makes e the only selected entry. e must belong to the current listing.
// A successful selection clears the last error message.
func (s *BrowserSession) Select(e Entry) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if !s.listing.Contains(e) {
		s.mu.Unlock()
		return &ValidationError{Title: "Error", Message: "Entry " + e.Path + " is not part of the current listing."}
	}
	s.selection.Select(e)
	s.lastError = ""
	s.mu.Unlock()

	s.publishSelection(e, true)
	return nil
}

// Toggle deselects e when it is selected and selects it otherwise.
func (s *BrowserSession) Toggle(e Entry) (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrSessionClosed
	}
	if !s.listing.Contains(e) {
		s.mu.Unlock()
		return false, &ValidationError{Title: "Error", Message: "Entry " + e.Path + " is not part of the current listing."}
	}
	selected := s.selection.Toggle(e)
	if selected {
		s.lastError = ""
	}
	s.mu.Unlock()

	s.publishSelection(e, selected)
	return selected, nil
}

// Deselect clears the selection.
func (s *BrowserSession) Deselect() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.selection.Deselect()
	s.mu.Unlock()

	s.publishSelection(Entry{}, false)
	return nil
}

// Selected returns the current selection, if it still belongs to the listing.
func (s *BrowserSession) Selected() (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.Reconcile(s.listing)
	return s.selection.Current()
}

// Resolve validates the selection against the session mode, delivers the
// chosen path to the host as {VarKey: path} and closes the session.
func (s *BrowserSession) Resolve() (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrSessionClosed
	}
	s.selection.Reconcile(s.listing)
	path, err := s.selection.Resolve()
	if err != nil {
		s.lastError = err.Error()
		s.mu.Unlock()
		return "", err
	}
	s.mu.Unlock()

	deliver(s.opts.Host, s.opts.VarKey, path)
	s.logger.Info().Str("var", s.opts.VarKey).Str("path", path).Msg("Path resolved")
	s.bus.Publish(&events.ResolvedEvent{
		BaseEvent: events.BaseEvent{EventType: events.EventResolved, Time: time.Now()},
		VarKey:    s.opts.VarKey,
		Path:      path,
	})
	s.Close()
	return path, nil
}

// Upload sends body as name into the current directory, then refreshes.
// Once the server accepted the file Upload succeeds even if the refresh fails.
func (s *BrowserSession) Upload(ctx context.Context, name string, body io.Reader, size int64) error {
	dir, err := s.currentDir()
	if err != nil {
		return err
	}
	if err := s.transfer.Upload(ctx, dir, name, body, size); err != nil {
		s.fail(err)
		return err
	}
	s.refreshAfterMutation(ctx)
	return nil
}

// CreateFolder creates name in the current directory, then refreshes.
// An empty name creates "untitled-folder".
func (s *BrowserSession) CreateFolder(ctx context.Context, name string) (string, error) {
	dir, err := s.currentDir()
	if err != nil {
		return "", err
	}
	path, err := s.transfer.CreateFolder(ctx, dir, name)
	if err != nil {
		s.fail(err)
		return "", err
	}
	s.refreshAfterMutation(ctx)
	return path, nil
}

// Download saves the selected entry through the Saver and returns its location.
func (s *BrowserSession) Download(ctx context.Context) (string, error) {
	entry, err := s.selectedForTransfer()
	if err != nil {
		return "", err
	}
	location, err := s.transfer.Download(ctx, entry)
	if err != nil {
		s.fail(err)
		return "", err
	}
	return location, nil
}

// Delete removes the selected entry after confirmation, then refreshes.
func (s *BrowserSession) Delete(ctx context.Context) error {
	entry, err := s.selectedForTransfer()
	if err != nil {
		return err
	}
	if err := s.transfer.Delete(ctx, entry); err != nil {
		s.fail(err)
		return err
	}
	s.refreshAfterMutation(ctx)
	return nil
}

// Cancel aborts the in-flight upload, if any.
func (s *BrowserSession) Cancel() bool {
	return s.transfer.Cancel()
}

// Close cancels any upload, announces the end of the session and releases
// listeners. It is idempotent.
func (s *BrowserSession) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		if s.transfer.Cancel() {
			s.logger.Info().Msg("Cancelled in-flight upload on close")
		}

		s.bus.Publish(&events.BaseEvent{EventType: events.EventSessionClosed, Time: time.Now()})
		if s.ownsBus {
			s.bus.Close()
		}
		close(s.done)
		s.logger.Debug().Msg("Session closed")
	})
}

// Closed reports whether Close has been called.
func (s *BrowserSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Uploading reports whether an upload is in flight.
func (s *BrowserSession) Uploading() bool { return s.transfer.Uploading() }

// Listing returns the installed listing, nil before the first successful fetch.
func (s *BrowserSession) Listing() *Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listing
}

// CurrentPath returns the current directory.
func (s *BrowserSession) CurrentPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path.Current()
}

// Breadcrumbs returns the trail from the root to the current directory.
func (s *BrowserSession) Breadcrumbs() []Crumb {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path.Breadcrumbs()
}

// Filter returns the include pattern.
func (s *BrowserSession) Filter() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// ShowHidden reports whether hidden entries are listed.
func (s *BrowserSession) ShowHidden() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.showHidden
}

// LastError returns the last user-facing error message, empty once cleared by a selection.
func (s *BrowserSession) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

func (s *BrowserSession) currentDir() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrSessionClosed
	}
	return s.path.Current(), nil
}

func (s *BrowserSession) selectedForTransfer() (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	s.selection.Reconcile(s.listing)
	e, ok := s.selection.Current()
	if !ok {
		return nil, nil
	}
	return &e, nil
}

// refreshAfterMutation re-fetches the current directory once the server has
// acknowledged a change. The change stands whatever the refresh does: a
// failed refresh is left in LastError and on the event bus, not returned.
func (s *BrowserSession) refreshAfterMutation(ctx context.Context) {
	err := s.Refresh(ctx)
	if err == nil || errors.Is(err, ErrStaleListing) || errors.Is(err, ErrSessionClosed) {
		return
	}
	s.logger.Warn().Err(err).Str("path", s.CurrentPath()).Msg("Refresh after change failed")
}

// fail records and publishes err unless it is a quiet outcome.
func (s *BrowserSession) fail(err error) {
	if errors.Is(err, ErrNotConfirmed) || errors.Is(err, ErrUploadCancelled) || errors.Is(err, ErrSessionClosed) {
		return
	}
	s.mu.Lock()
	s.lastError = err.Error()
	s.mu.Unlock()
	s.publishError(err)
}

func (s *BrowserSession) publishError(err error) {
	s.bus.PublishError(Title(err), err.Error(), err)
}

func (s *BrowserSession) publishSelection(e Entry, selected bool) {
	ev := &events.SelectionEvent{BaseEvent: events.BaseEvent{EventType: events.EventSelection, Time: time.Now()}}
	if selected {
		ev.Path = e.Path
		ev.IsDir = e.IsDir()
	}
	s.bus.Publish(ev)
}
