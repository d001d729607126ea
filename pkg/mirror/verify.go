package mirror

import (
	"context"
	"io"
	"io/fs"

	"github.com/glorpus-work/chanmirror/pkg/channel"
	"github.com/glorpus-work/chanmirror/pkg/errors"
	"github.com/glorpus-work/chanmirror/pkg/model"
	"github.com/mholt/archives"
	"golang.org/x/sync/errgroup"
)

// VerifyOptions control an offline verification pass.
type VerifyOptions struct {
	// Deep additionally opens every valid artifact as an archive and walks
	// its entries. Conda artifacts are zip or tar.bz2 containers, so an
	// unreadable archive with a correct hash points at a bad lock entry.
	Deep bool
}

// VerifyOnly classifies every record in the layout against the on-disk state
// without touching the network: StatusSkipped for valid artifacts,
// StatusCorrupt for hash mismatches, StatusMissing for absent files.
func (c *Coordinator) VerifyOnly(ctx context.Context, layout *channel.Layout, opts VerifyOptions) (*model.MirrorManifest, error) {
	records := layout.Records()
	results := make(chan model.MirrorResult, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for _, rec := range records {
		g.Go(func() error {
			results <- c.verifyRecord(gctx, rec, opts)
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	manifest := &model.MirrorManifest{}
	for res := range results {
		manifest.Add(res)
	}
	return manifest, ctx.Err()
}

func (c *Coordinator) verifyRecord(ctx context.Context, rec *model.PackageRecord, opts VerifyOptions) model.MirrorResult {
	finalPath := channel.AbsPath(c.root, rec.Subdir, rec.Filename)

	status := classifyExisting(finalPath, rec.SHA256)
	switch status {
	case model.StatusMissing:
		c.hooks.emit(Event{Phase: model.StatusMissing, ID: rec.ID()})
		return model.MirrorResult{Record: rec, Status: model.StatusMissing}
	case model.StatusCorrupt:
		c.hooks.emit(Event{Phase: model.StatusCorrupt, ID: rec.ID(), Msg: "hash mismatch"})
		return model.MirrorResult{Record: rec, Status: model.StatusCorrupt}
	}

	if opts.Deep {
		if err := checkArchiveReadable(ctx, finalPath); err != nil {
			c.hooks.emit(Event{Phase: model.StatusCorrupt, ID: rec.ID(), Msg: err.Error()})
			return model.MirrorResult{Record: rec, Status: model.StatusCorrupt, Err: err}
		}
	}

	c.hooks.emit(Event{Phase: model.StatusSkipped, ID: rec.ID(), Msg: "valid"})
	return model.MirrorResult{Record: rec, Status: model.StatusSkipped}
}

// checkArchiveReadable opens the artifact as an archive and walks its entries.
func checkArchiveReadable(ctx context.Context, path string) error {
	fsys, err := archives.FileSystem(ctx, path, nil)
	if err != nil {
		return errors.Wrapf(err, "opening %s as archive", path)
	}
	if closer, ok := fsys.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	entries := 0
	err = fs.WalkDir(fsys, ".", func(_ string, _ fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		entries++
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "walking %s", path)
	}
	if entries == 0 {
		return errors.Wrapf(errors.ErrValidation, "%s contains no entries", path)
	}
	return nil
}
