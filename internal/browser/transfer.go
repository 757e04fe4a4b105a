package browser

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/proactive/dataspace-browser/internal/constants"
	"github.com/proactive/dataspace-browser/internal/dataspace"
	"github.com/proactive/dataspace-browser/internal/events"
	"github.com/proactive/dataspace-browser/internal/logging"
	"github.com/proactive/dataspace-browser/internal/progress"
	"github.com/proactive/dataspace-browser/internal/validation"
)

// Upload outcomes carried by UploadStateEvent.
const (
	OutcomeStarted   = "started"
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// TransferController runs the mutating operations of a session. It tracks a
// single in-flight upload; downloads, deletions and folder creation keep no
// state beyond their own request.
type TransferController struct {
	remote  Remote
	cred    dataspace.Credential
	confirm Confirmer
	saver   Saver
	bus     *events.EventBus
	logger  *logging.Logger

	mu         sync.Mutex
	uploading  bool
	uploadName string
	cancel     context.CancelFunc
	cancelled  bool
}

// NewTransferController creates a controller. confirm and saver may be nil, in
// which case confirmations are declined and downloads fail.
func NewTransferController(remote Remote, cred dataspace.Credential, confirm Confirmer, saver Saver, bus *events.EventBus, logger *logging.Logger) *TransferController {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &TransferController{
		remote:  remote,
		cred:    cred,
		confirm: confirm,
		saver:   saver,
		bus:     bus,
		logger:  logger,
	}
}

// Uploading reports whether an upload is in flight.
func (t *TransferController) Uploading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.uploading
}

// Upload sends body as dir+name. It is rejected without a request when name
// contains a colon or an upload is already running.
func (t *TransferController) Upload(ctx context.Context, dir, name string, body io.Reader, size int64) error {
	if validation.HasColon(name) {
		return &ValidationError{
			Title:   "Error",
			Message: fmt.Sprintf(`Uploading failed: the uploaded file name "%s" should not contain colon.`, name),
			Err:     validation.ErrColon,
		}
	}
	if err := validation.ValidateFilename(name); err != nil {
		return &ValidationError{Title: "Error", Message: "Uploading failed: " + err.Error(), Err: err}
	}

	uctx, err := t.beginUpload(ctx, name)
	if err != nil {
		return err
	}

	reporter := progress.NewEventProgress(t.bus, name, "upload")
	reporter.Start(size, name)
	path := dir + name
	t.logger.Info().Str("path", path).Int64("size", size).Msg("Uploading")

	err = t.remote.Put(uctx, t.cred, path, progress.NewProgressReader(body, reporter), size)

	if cancelled := t.finishUpload(uctx, err); cancelled {
		t.logger.Info().Str("path", path).Msg("Upload cancelled")
		reporter.Error(ErrUploadCancelled)
		return ErrUploadCancelled
	}
	if err != nil {
		t.logger.Warn().Err(err).Str("path", path).Msg("Upload failed")
		reporter.Error(err)
		return &OperationError{
			Title:   "Error",
			Message: "Failed to upload the file " + name + ": " + dataspace.Detail(err),
			Err:     err,
		}
	}
	reporter.Finish()
	return nil
}

func (t *TransferController) beginUpload(ctx context.Context, name string) (context.Context, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.uploading {
		return nil, &ValidationError{
			Title:   "Error",
			Message: fmt.Sprintf(`Uploading failed: "%s" is still being uploaded.`, t.uploadName),
			Err:     ErrUploadInProgress,
		}
	}

	uctx, cancel := context.WithCancel(ctx)
	t.uploading = true
	t.uploadName = name
	t.cancel = cancel
	t.cancelled = false
	t.bus.PublishUploadState(true, name, OutcomeStarted)
	return uctx, nil
}

// finishUpload leaves the uploading state and announces the outcome. It
// reports whether the upload ended because it was cancelled.
func (t *TransferController) finishUpload(uctx context.Context, err error) bool {
	t.mu.Lock()
	name := t.uploadName
	cancelled := t.cancelled || (err != nil && uctx.Err() != nil)
	t.cancel()
	t.uploading = false
	t.uploadName = ""
	t.cancel = nil
	t.cancelled = false
	t.mu.Unlock()

	outcome := OutcomeCompleted
	switch {
	case cancelled:
		outcome = OutcomeCancelled
	case err != nil:
		outcome = OutcomeFailed
	}
	t.bus.PublishUploadState(false, name, outcome)
	return cancelled
}

// Cancel aborts the in-flight upload. It reports false when nothing was running.
func (t *TransferController) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.uploading {
		return false
	}
	t.cancelled = true
	t.cancel()
	return true
}

// CreateFolder creates dir+name and returns its path. An empty name creates
// the default "untitled-folder".
func (t *TransferController) CreateFolder(ctx context.Context, dir, name string) (string, error) {
	if name == "" {
		name = constants.DefaultNewFolderName
	}
	path := dir + name

	if validation.HasColon(path) {
		return "", &ValidationError{
			Title:   "Create New Folder",
			Message: fmt.Sprintf(`Failed to create the new folder "%s": it should not contain colon.`, path),
			Err:     validation.ErrColon,
		}
	}
	if err := validation.ValidateRemotePath(path); err != nil {
		return "", &ValidationError{
			Title:   "Create New Folder",
			Message: fmt.Sprintf(`Failed to create the new folder "%s": %v`, path, err),
			Err:     err,
		}
	}

	if err := t.remote.CreateFolder(ctx, t.cred, path); err != nil {
		return "", &OperationError{
			Title:   "Create New Folder",
			Message: "Failed to create the new folder " + path + ": " + dataspace.StatusText(err),
			Err:     err,
		}
	}
	t.logger.Info().Str("path", path).Msg("Folder created")
	return path, nil
}

// DownloadName returns the local name and request encoding for e.
func DownloadName(e Entry) (name, encoding string) {
	if e.IsDir() {
		return e.Name + constants.ZipSuffix, constants.EncodingZip
	}
	return e.Name, constants.EncodingIdentity
}

// Download fetches e and hands it to the Saver. Directories are fetched as a
// zip archive after the user confirms. It returns where the bytes were saved.
func (t *TransferController) Download(ctx context.Context, e *Entry) (string, error) {
	if e == nil {
		return "", &ValidationError{Title: "Download", Message: "No file chosen to be downloaded."}
	}

	name, encoding := DownloadName(*e)
	if e.IsDir() {
		msg := fmt.Sprintf(`You are about to download the folder "%s" as a zip archive "%s", proceed ?`, e.Name, name)
		if err := t.confirmed(ctx, msg); err != nil {
			return "", err
		}
	}
	if t.saver == nil {
		return "", errors.New("no destination configured for downloads")
	}

	rc, size, err := t.remote.Download(ctx, t.cred, e.Path, encoding)
	if err != nil {
		return "", &OperationError{
			Title:   "Download",
			Message: "Failed to download the file " + e.Path + ": " + dataspace.StatusText(err),
			Err:     err,
		}
	}
	defer rc.Close()

	reporter := progress.NewEventProgress(t.bus, name, "download")
	reporter.Start(size, name)

	location, err := t.saver.Save(ctx, name, progress.NewProgressReader(rc, reporter), size)
	if err != nil {
		t.logger.Warn().Err(err).Str("path", e.Path).Msg("Download failed")
		reporter.Error(err)
		return "", &OperationError{
			Title:   "Download",
			Message: "Failed to download the file " + e.Path + ": " + err.Error(),
			Err:     err,
		}
	}
	reporter.Finish()
	t.logger.Info().Str("path", e.Path).Str("saved", location).Msg("Downloaded")
	return location, nil
}

// DeleteMessage is the confirmation shown before deleting e.
func DeleteMessage(e Entry) string {
	if e.IsDir() {
		return fmt.Sprintf(`Are you sure you want to permanently delete the folder "%s" and all the files in it ?`, e.Path)
	}
	return fmt.Sprintf(`Are you sure you want to permanently delete the file "%s" ?`, e.Path)
}

// Delete removes e after the user confirms.
func (t *TransferController) Delete(ctx context.Context, e *Entry) error {
	if e == nil {
		return &ValidationError{Title: "Delete", Message: "No file chosen to be deleted."}
	}
	if err := t.confirmed(ctx, DeleteMessage(*e)); err != nil {
		return err
	}

	if err := t.remote.Delete(ctx, t.cred, e.Path); err != nil {
		return &OperationError{
			Title:   "Delete",
			Message: "Failed to delete the file " + e.Path + ": " + dataspace.StatusText(err),
			Err:     err,
		}
	}
	t.logger.Info().Str("path", e.Path).Msg("Deleted")
	return nil
}

func (t *TransferController) confirmed(ctx context.Context, message string) error {
	if t.confirm == nil {
		return ErrNotConfirmed
	}
	ok, err := t.confirm.Confirm(ctx, message)
	if err != nil {
		return errors.Wrap(err, "confirmation failed")
	}
	if !ok {
		return ErrNotConfirmed
	}
	return nil
}
