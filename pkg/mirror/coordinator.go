// Package mirror contains the download coordinator that drives a mirror run:
// planning already done by pkg/channel, it fetches missing or corrupt
// artifacts concurrently, verifies every byte it places, and aggregates the
// per-record outcomes for the reporter.
package mirror

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/glorpus-work/chanmirror/internal/logger"
	"github.com/glorpus-work/chanmirror/pkg/channel"
	"github.com/glorpus-work/chanmirror/pkg/errors"
	"github.com/glorpus-work/chanmirror/pkg/fsutil"
	"github.com/glorpus-work/chanmirror/pkg/hashutil"
	"github.com/glorpus-work/chanmirror/pkg/model"
	"golang.org/x/sync/errgroup"
)

// Default option values, applied by Run when the corresponding option is zero.
const (
	DefaultConcurrency = 4
	DefaultRetries     = 2
	DefaultBackoff     = 500 * time.Millisecond
)

// Options control a mirror run. Concurrency is deliberately a first-class
// knob: the shared storage some mirrors are synced to degrades under heavy
// concurrent small-file I/O, so operators need to be able to lower it easily.
type Options struct {
	Concurrency int           // max simultaneous fetches
	Retries     int           // additional attempts after the first failure
	Backoff     time.Duration // delay before the first retry, doubled each attempt
	Force       bool          // re-download even when a valid artifact is present
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.Retries < 0 {
		o.Retries = DefaultRetries
	}
	if o.Backoff <= 0 {
		o.Backoff = DefaultBackoff
	}
	return o
}

// Event represents a progress notification for one record.
type Event struct {
	Phase model.MirrorStatus
	ID    string // record id (subdir/filename), empty for run-level events
	Msg   string
	Bytes int64
}

// Hooks carries callbacks for progress events. All callbacks may be nil.
type Hooks struct {
	OnEvent func(Event)
}

func (h Hooks) emit(e Event) {
	if h.OnEvent != nil {
		h.OnEvent(e)
	}
}

// Coordinator runs the per-record state machine
// Pending -> Skipped | Fetching -> Verifying -> {Complete | Retrying | Failed}
// across a whole layout.
type Coordinator struct {
	root    string
	fetcher Fetcher
	opts    Options
	hooks   Hooks
}

// New creates a coordinator writing into root, which must be an absolute path.
func New(root string, fetcher Fetcher, opts Options, hooks Hooks) *Coordinator {
	return &Coordinator{root: root, fetcher: fetcher, opts: opts.withDefaults(), hooks: hooks}
}

// Run processes every record in the layout with bounded concurrency and
// returns the manifest of per-record outcomes. Individual record failures are
// collected in the manifest, never returned as an error; the returned error
// covers run-level conditions only (bad root, cancellation).
func (c *Coordinator) Run(ctx context.Context, layout *channel.Layout) (*model.MirrorManifest, error) {
	if c.root == "" || !filepath.IsAbs(c.root) {
		return nil, errors.Wrapf(errors.ErrInvalidPath, "mirror root must be absolute: %q", c.root)
	}
	if err := fsutil.EnsureDir(c.root); err != nil {
		return nil, errors.Wrap(err, "could not create mirror root")
	}

	// Orphans from an interrupted earlier run are unreachable by consumers
	// but waste space; sweep them before fetching.
	if swept, err := channel.SweepTemp(c.root); err != nil {
		logger.Warnf("temp sweep failed: %v", err)
	} else if swept > 0 {
		logger.Info("swept orphaned temp files", logger.Fields{"count": swept})
	}

	records := layout.Records()
	results := make(chan model.MirrorResult, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for _, rec := range records {
		g.Go(func() error {
			results <- c.processRecord(gctx, rec)
			return nil
		})
	}

	// Workers never return errors, so Wait only reflects goroutine scheduling.
	_ = g.Wait()
	close(results)

	manifest := &model.MirrorManifest{}
	for res := range results {
		manifest.Add(res)
	}
	return manifest, ctx.Err()
}

// processRecord runs the full state machine for one record.
func (c *Coordinator) processRecord(ctx context.Context, rec *model.PackageRecord) model.MirrorResult {
	finalPath := channel.AbsPath(c.root, rec.Subdir, rec.Filename)

	if !c.opts.Force {
		switch classifyExisting(finalPath, rec.SHA256) {
		case model.StatusSkipped:
			c.hooks.emit(Event{Phase: model.StatusSkipped, ID: rec.ID(), Msg: "already valid"})
			return model.MirrorResult{Record: rec, Status: model.StatusSkipped}
		case model.StatusCorrupt:
			// Re-fetch rather than abort: the lock file is the source of
			// truth and the file below it is expendable.
			c.hooks.emit(Event{Phase: model.StatusCorrupt, ID: rec.ID(), Msg: "on-disk hash mismatch, re-fetching"})
		}
	}

	backoff := c.opts.Backoff
	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= c.opts.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		attempts++

		c.hooks.emit(Event{Phase: model.StatusFetching, ID: rec.ID(), Msg: rec.URL.String()})
		written, err := c.fetchAndPlace(ctx, rec, finalPath)
		if err == nil {
			c.hooks.emit(Event{Phase: model.StatusComplete, ID: rec.ID(), Bytes: written})
			return model.MirrorResult{Record: rec, Status: model.StatusComplete, Attempts: attempts, Bytes: written}
		}
		lastErr = err

		if attempt < c.opts.Retries && ctx.Err() == nil {
			c.hooks.emit(Event{Phase: model.StatusRetrying, ID: rec.ID(), Msg: err.Error()})
			if serr := sleepCtx(ctx, backoff); serr != nil {
				lastErr = serr
				break
			}
			backoff *= 2
		}
	}

	c.hooks.emit(Event{Phase: model.StatusFailed, ID: rec.ID(), Msg: lastErr.Error()})
	return model.MirrorResult{Record: rec, Status: model.StatusFailed, Attempts: attempts, Err: lastErr}
}

// fetchAndPlace performs one attempt: stream into a temp file next to the
// final path, verify the hash, then move atomically into place. The final
// path never holds unverified bytes.
func (c *Coordinator) fetchAndPlace(ctx context.Context, rec *model.PackageRecord, finalPath string) (int64, error) {
	dir := filepath.Dir(finalPath)
	if err := fsutil.EnsureDir(dir); err != nil {
		return 0, errors.Wrap(err, "could not create platform directory")
	}

	tmp, err := os.CreateTemp(dir, channel.TempPattern)
	if err != nil {
		return 0, errors.Wrap(err, "could not create temp file")
	}
	tmpPath := tmp.Name()
	discard := func() { _ = os.Remove(tmpPath) }

	written, err := c.fetcher.Fetch(ctx, rec.URL, tmp)
	if err != nil {
		_ = tmp.Close()
		discard()
		return 0, err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		discard()
		return 0, errors.Wrap(err, "could not sync file")
	}
	if err := tmp.Close(); err != nil {
		discard()
		return 0, errors.Wrap(err, "could not close file")
	}

	c.hooks.emit(Event{Phase: model.StatusVerifying, ID: rec.ID()})
	ok, err := hashutil.Verify(tmpPath, rec.SHA256)
	if err != nil {
		discard()
		return 0, err
	}
	if !ok {
		discard()
		return 0, errors.Wrapf(errors.ErrFileHashMismatch, "downloaded %s", rec.URL)
	}

	if err := fsutil.Move(tmpPath, finalPath); err != nil {
		discard()
		return 0, errors.Wrap(err, "could not finalize file")
	}
	if err := os.Chmod(finalPath, fsutil.FileModeDefault); err != nil {
		return written, errors.Wrap(err, "could not set permissions")
	}
	return written, nil
}

// classifyExisting performs the cheap idempotence check against an on-disk
// file. Returns StatusSkipped (valid), StatusCorrupt (present but wrong) or
// StatusMissing.
func classifyExisting(path, wantSHA256 string) model.MirrorStatus {
	st, err := os.Stat(path)
	if err != nil || st.Size() == 0 {
		return model.StatusMissing
	}
	ok, err := hashutil.Verify(path, wantSHA256)
	if err != nil || !ok {
		return model.StatusCorrupt
	}
	return model.StatusSkipped
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
