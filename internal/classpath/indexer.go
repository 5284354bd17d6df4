// Package classpath builds the class index: every class file reachable from a
// classpath string, decoded and keyed by fully qualified name.
package classpath

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/errgroup"

	"jls/internal/classfile"
	"jls/internal/slogutil"
)

// maxClassSize bounds how much of one archive entry is read.
const maxClassSize = 32 << 20

// Index maps fully qualified class names to decoded classes.
type Index map[string]*classfile.ClassDescriptor

// Stats summarizes one indexing run.
type Stats struct {
	Entries  int           `json:"entries"`
	Missing  int           `json:"missing"`
	Decoded  int           `json:"decoded"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// Options configures an Indexer.
type Options struct {
	// Workers bounds concurrent decodes within one classpath entry.
	Workers int
	// ClassExtension selects archive and directory members to decode.
	ClassExtension string
}

// Indexer decodes classpath entries. Decoding fans out over a bounded worker
// group but Index itself blocks until the whole classpath is done.
type Indexer struct {
	logger   *slog.Logger
	workers  int
	classExt string
}

// NewIndexer creates an indexer.
func NewIndexer(logger *slog.Logger, opts Options) *Indexer {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.ClassExtension == "" {
		opts.ClassExtension = ".class"
	}
	return &Indexer{logger: logger, workers: opts.Workers, classExt: opts.ClassExtension}
}

// member is one class file inside an archive or directory.
type member struct {
	name string
	read func() ([]byte, error)
}

// Index splits classpath on the platform list separator and decodes every
// class found in existing archives and directories. Missing entries and
// undecodable classes are skipped. When two entries define the same class the
// one earlier on the classpath wins.
func (ix *Indexer) Index(ctx context.Context, classpath string) (Index, Stats) {
	start := time.Now()
	idx := make(Index)
	var stats Stats

	for _, entry := range filepath.SplitList(classpath) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		stats.Entries++

		info, err := os.Stat(entry)
		if err != nil {
			stats.Missing++
			ix.logger.Debug("Skipping missing classpath entry", "entry", entry)
			continue
		}

		var members []member
		var closer io.Closer
		switch {
		case info.IsDir():
			members, err = ix.directoryMembers(entry)
		case isArchive(entry):
			members, closer, err = ix.archiveMembers(entry)
		default:
			ix.logger.Debug("Skipping non-archive classpath entry", "entry", entry)
			continue
		}
		if err != nil {
			ix.logger.Warn("Failed to read classpath entry", "entry", entry, "error", err.Error())
			continue
		}

		decoded, failed := ix.decodeAll(ctx, entry, members)
		if closer != nil {
			_ = closer.Close()
		}
		stats.Failed += failed
		for _, cd := range decoded {
			if cd == nil {
				continue
			}
			if _, exists := idx[cd.Name]; exists {
				continue
			}
			idx[cd.Name] = cd
			stats.Decoded++
		}
	}

	stats.Duration = time.Since(start)
	recordIndexMetrics(ctx, stats)
	ix.logger.Info("Indexed classpath",
		"entries", stats.Entries,
		"classes", len(idx),
		"failed", stats.Failed,
		"duration", stats.Duration.String(),
	)
	return idx, stats
}

func isArchive(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jar", ".zip":
		return true
	}
	return false
}

func (ix *Indexer) archiveMembers(path string) ([]member, io.Closer, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, nil, err
	}
	var members []member
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, ix.classExt) {
			continue
		}
		members = append(members, member{
			name: f.Name,
			read: func() ([]byte, error) {
				rc, err := f.Open()
				if err != nil {
					return nil, err
				}
				defer rc.Close()
				return io.ReadAll(io.LimitReader(rc, maxClassSize))
			},
		})
	}
	return members, zr, nil
}

func (ix *Indexer) directoryMembers(root string) ([]member, error) {
	var members []member
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal.
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(path, ix.classExt) {
			return nil
		}
		members = append(members, member{
			name: path,
			read: func() ([]byte, error) { return os.ReadFile(path) },
		})
		return nil
	})
	return members, err
}

// decodeAll decodes members concurrently. The result slice keeps member
// order; failed slots are nil.
func (ix *Indexer) decodeAll(ctx context.Context, entry string, members []member) ([]*classfile.ClassDescriptor, int) {
	out := make([]*classfile.ClassDescriptor, len(members))
	failures := make([]bool, len(members))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)
	for i, m := range members {
		g.Go(func() error {
			if gCtx.Err() != nil {
				return gCtx.Err()
			}
			data, err := m.read()
			if err == nil {
				out[i], err = classfile.Decode(data)
			}
			if err != nil {
				failures[i] = true
				ix.logger.Debug("Skipping undecodable class",
					"entry", entry,
					"path", m.name,
					"error", err.Error(),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, f := range failures {
		if f {
			failed++
		}
	}
	return out, failed
}
