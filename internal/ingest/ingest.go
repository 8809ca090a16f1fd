// Package ingest turns a folder of files into index records.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sokinpui/patchspace/internal/index"
	"github.com/sokinpui/patchspace/model"
)

// ErrTooLarge marks a file skipped for exceeding Options.MaxFileSize.
var ErrTooLarge = errors.New("file exceeds size limit")

const sniffLen = 8000

// Entry is one file handed over by an ingestion source. Err set means the
// file could not be read.
type Entry struct {
	Path    string
	Content []byte
	Binary  bool
	Err     error
}

// Stats counts what Populate did with a batch.
type Stats struct {
	Loaded     int
	Binary     int
	Ignored    int
	Unreadable int
}

// Options tunes ReadDir.
type Options struct {
	// Workers bounds concurrent reads. Zero means 8.
	Workers int
	// MaxFileSize skips larger files. Zero means no limit.
	MaxFileSize int64
	Logger      *zap.Logger
}

// FromFiles builds text entries from an in-memory path → content map.
func FromFiles(files map[string]string) []Entry {
	entries := make([]Entry, 0, len(files))
	for p, c := range files {
		entries = append(entries, Entry{Path: p, Content: []byte(c)})
	}
	return entries
}

// ReadDir walks root and reads every non-ignored regular file. Reads run
// concurrently and the call returns once all of them have settled; a read
// that fails is recorded on its entry rather than returned. Cancelling ctx
// stops further reads from starting.
func ReadDir(ctx context.Context, root string, opts Options) ([]Entry, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 8
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open project folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", root)
	}

	var files []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if walkErr != nil {
			logger.Warn("skipping unreadable path", zap.String("path", rel), zap.Error(walkErr))
			return nil
		}
		if Ignored(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	entries := make([]Entry, len(files))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, rel := range files {
		i, rel := i, rel
		g.Go(func() error {
			entries[i] = readEntry(ctx, filepath.Join(root, filepath.FromSlash(rel)), rel, opts.MaxFileSize)
			return nil
		})
	}
	_ = g.Wait()

	logger.Debug("read project folder", zap.String("root", root), zap.Int("files", len(entries)))
	return entries, ctx.Err()
}

func readEntry(ctx context.Context, abs, rel string, maxSize int64) Entry {
	e := Entry{Path: rel}
	if err := ctx.Err(); err != nil {
		e.Err = err
		return e
	}
	if maxSize > 0 {
		if info, err := os.Stat(abs); err == nil && info.Size() > maxSize {
			e.Err = ErrTooLarge
			return e
		}
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		e.Err = err
		return e
	}
	e.Content = data
	e.Binary = IsBinary(data)
	return e
}

// IsBinary sniffs data for NUL bytes or invalid UTF-8.
func IsBinary(data []byte) bool {
	head := data
	truncated := len(head) > sniffLen
	if truncated {
		head = head[:sniffLen]
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return true
	}
	if truncated {
		head = trimPartialRune(head)
	}
	return !utf8.Valid(head)
}

// trimPartialRune drops a rune cut in half by the sniff window.
func trimPartialRune(b []byte) []byte {
	for i := 0; i < utf8.UTFMax-1 && len(b) > 0; i++ {
		r, size := utf8.DecodeLastRune(b)
		if r != utf8.RuneError || size != 1 {
			return b
		}
		b = b[:len(b)-1]
	}
	return b
}

// Populate adds entries to idx. Ignored and unreadable entries are skipped.
func Populate(idx *index.Index, entries []Entry, logger *zap.Logger) Stats {
	if logger == nil {
		logger = zap.NewNop()
	}
	var stats Stats
	for _, e := range entries {
		p := model.CleanPath(e.Path)
		if p == "" || Ignored(p) {
			stats.Ignored++
			continue
		}
		if e.Err != nil {
			stats.Unreadable++
			logger.Warn("skipping unreadable file", zap.String("path", p), zap.Error(e.Err))
			continue
		}

		var rec *model.FileRecord
		if e.Binary {
			rec = model.NewBinaryRecord(p, mimeFor(p, e.Content))
			stats.Binary++
		} else {
			rec = model.NewFileRecord(p, string(e.Content))
			rec.MimeType = mimeFor(p, e.Content)
		}
		idx.Set(p, rec)
		stats.Loaded++
	}
	return stats
}

func mimeFor(p string, data []byte) string {
	if t := mime.TypeByExtension(path.Ext(p)); t != "" {
		return t
	}
	return http.DetectContentType(data)
}
