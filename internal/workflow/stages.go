package workflow

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/JaimeStill/botwatch/internal/analysis"
	"github.com/JaimeStill/botwatch/internal/profiles"
	"github.com/JaimeStill/botwatch/pkg/formatting"
)

const jsonContentType = "application/json"

// ArchiveKey returns the blob key an artifact of postID is archived under.
func ArchiveKey(postID, fileName string) string {
	return path.Join("posts", postID, fileName)
}

func (p *post) prepareDirectory(_ context.Context) error {
	p.dir = filepath.Join(p.rt.OutputDir, PostDir(p.id))
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrDirectoryFailed, err)
	}
	return nil
}

// fetch treats an upstream failure like an empty roster; the error is
// returned for reporting only.
func (p *post) fetch(ctx context.Context) ([]profiles.Profile, error) {
	logger := p.rt.logger()

	users, err := p.rt.Fetcher.Fetch(ctx, p.url)
	if err != nil {
		logger.ErrorContext(ctx, "fetch failed", "post_id", p.id, "error", err)
		return nil, err
	}

	if len(users) == 0 {
		logger.WarnContext(ctx, "no likers found", "post_id", p.id)
		return nil, nil
	}

	logger.InfoContext(ctx, "likers fetched", "post_id", p.id, "users", len(users))
	return users, nil
}

func (p *post) persist(users []profiles.Profile) error {
	if _, err := profiles.WriteLooseRoster(p.rt.OutputDir, p.id, users); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}
	return nil
}

// organize moves loosely named rosters from the output root into the post
// directory under their canonical names. Each move is independent; a missing
// source is logged and skipped.
func (p *post) organize(ctx context.Context) {
	moves := []struct {
		from string
		to   string
	}{
		{profiles.LooseRawName(p.id), profiles.RawFile},
		{profiles.LooseEnrichedName(p.id), profiles.EnrichedFile},
	}

	logger := p.rt.logger()
	for _, m := range moves {
		src := filepath.Join(p.rt.OutputDir, m.from)
		dst := p.path(m.to)

		err := os.Rename(src, dst)
		switch {
		case err == nil:
			if m.to == profiles.EnrichedFile {
				p.relocated = true
			}
			logger.InfoContext(ctx, "roster relocated", "post_id", p.id, "from", m.from, "to", m.to)
		case errors.Is(err, fs.ErrNotExist):
			relocationsSkipped.Inc()
			logger.InfoContext(ctx, "roster relocation skipped", "post_id", p.id, "file", m.from)
		default:
			logger.WarnContext(ctx, "roster relocation failed", "post_id", p.id, "file", m.from, "error", err)
		}
	}
}

// enrich reports whether the post directory holds an enriched roster for
// this run. One left by an earlier run is removed before enrichment starts.
func (p *post) enrich(ctx context.Context) bool {
	logger := p.rt.logger()
	dst := p.path(profiles.EnrichedFile)

	if !p.relocated {
		if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.WarnContext(ctx, "stale enriched roster not removed", "post_id", p.id, "error", err)
		}
	}

	if p.rt.Enricher == nil {
		logger.DebugContext(ctx, "enrichment not configured", "post_id", p.id)
		return p.relocated
	}

	if err := p.rt.Enricher.Enrich(ctx, p.path(profiles.RawFile), dst); err != nil {
		logger.WarnContext(ctx, "enrichment failed, scoring raw roster", "post_id", p.id, "error", err)
		return p.relocated
	}

	logger.InfoContext(ctx, "roster enriched", "post_id", p.id)
	return true
}

func (p *post) archive(ctx context.Context) error {
	return archivePost(ctx, p.rt, p.id, p.dir)
}

// archivePost uploads every artifact present in dir. An artifact absent
// locally has its archived copy from an earlier run removed.
func archivePost(ctx context.Context, rt *Runtime, postID, dir string) error {
	logger := rt.logger()

	for _, name := range []string{profiles.RawFile, profiles.EnrichedFile, analysis.FileName} {
		key := ArchiveKey(postID, name)

		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				if err := pruneArchived(ctx, rt, key); err != nil {
					return fmt.Errorf("%w: %w", ErrArchiveFailed, err)
				}
				continue
			}
			return fmt.Errorf("%w: %w", ErrArchiveFailed, err)
		}

		var size int64
		if info, err := f.Stat(); err == nil {
			size = info.Size()
		}

		err = rt.Archive.Upload(ctx, key, f, jsonContentType)
		f.Close()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrArchiveFailed, err)
		}

		logger.InfoContext(
			ctx, "artifact archived",
			"post_id", postID,
			"key", key,
			"size", formatting.FormatBytes(size, 1),
		)
	}

	return nil
}

func pruneArchived(ctx context.Context, rt *Runtime, key string) error {
	exists, err := rt.Archive.Exists(ctx, key)
	if err != nil || !exists {
		return err
	}
	if err := rt.Archive.Delete(ctx, key); err != nil {
		return err
	}
	rt.logger().InfoContext(ctx, "stale artifact removed", "key", key)
	return nil
}

func record(ctx context.Context, rt *Runtime, a *analysis.Analysis) error {
	if err := rt.Reports.Record(ctx, a, rt.Weights); err != nil {
		return fmt.Errorf("%w: %w", ErrRecordFailed, err)
	}
	rt.logger().InfoContext(ctx, "report recorded", "post_id", a.PostID)
	return nil
}
