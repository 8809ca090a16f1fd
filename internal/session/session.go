// Package session owns the state of one loaded project: the path index,
// the derived tree, the open tabs and the in-flight request flag.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sokinpui/patchspace/internal/index"
	"github.com/sokinpui/patchspace/internal/ingest"
	"github.com/sokinpui/patchspace/internal/lang"
	"github.com/sokinpui/patchspace/internal/logging"
	"github.com/sokinpui/patchspace/internal/patcher"
	"github.com/sokinpui/patchspace/internal/tree"
	"github.com/sokinpui/patchspace/model"
)

var (
	ErrNotFound   = errors.New("file not found")
	ErrBinaryFile = errors.New("binary files cannot be opened for editing")
	ErrBusy       = errors.New("a request is already in progress")
)

// Document is what an editor view receives when a path becomes active.
type Document struct {
	Path     string
	Content  string
	Language string
}

// Session is one loaded project. It is not safe for concurrent mutation;
// only Begin may be called from other goroutines.
type Session struct {
	ID     string
	Index  *index.Index
	Active string
	Tabs   []string

	tree    *tree.Node
	busy    atomic.Bool
	applier *patcher.Applier
	logger  *zap.Logger
}

// New creates an empty session.
func New(logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	logger = logging.WithSession(logger, id)
	idx := index.New()
	return &Session{
		ID:      id,
		Index:   idx,
		applier: patcher.New(idx, logger),
		logger:  logger,
	}
}

// Load replaces the whole project with entries. Nothing from the previous
// project survives, including open tabs.
func (s *Session) Load(entries []ingest.Entry) ingest.Stats {
	s.Index.Clear()
	s.Active = ""
	s.Tabs = nil
	stats := ingest.Populate(s.Index, entries, s.logger)
	s.Rebuild()
	s.logger.Info("project loaded",
		zap.Int("files", stats.Loaded),
		zap.Int("binary", stats.Binary),
		zap.Int("ignored", stats.Ignored),
		zap.Int("unreadable", stats.Unreadable))
	return stats
}

// LoadDir reads root from disk and loads it once every read has settled.
// The current project is kept if the folder cannot be read.
func (s *Session) LoadDir(ctx context.Context, root string, opts ingest.Options) (ingest.Stats, error) {
	if opts.Logger == nil {
		opts.Logger = s.logger
	}
	entries, err := ingest.ReadDir(ctx, root, opts)
	if err != nil {
		return ingest.Stats{}, fmt.Errorf("failed to load %s: %w", root, err)
	}
	return s.Load(entries), nil
}

// Tree returns the last built tree, or nil if none was built yet.
func (s *Session) Tree() *tree.Node {
	return s.tree
}

// Rebuild recomputes the tree from the index.
func (s *Session) Rebuild() *tree.Node {
	s.tree = tree.Build(s.Index.Paths())
	return s.tree
}

// Open makes path the active tab and returns its content for editing.
// Binary records are refused without any change to the session.
func (s *Session) Open(path string) (Document, error) {
	rec, ok := s.Index.Get(path)
	if !ok {
		return Document{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if rec.Binary {
		return Document{}, fmt.Errorf("%w: %s", ErrBinaryFile, path)
	}

	if !s.hasTab(path) {
		s.Tabs = append(s.Tabs, path)
	}
	s.Active = path
	return Document{Path: path, Content: rec.Content, Language: lang.ForFile(path)}, nil
}

// Edit stores new content from the editor and flags the record modified
// when the content changed.
func (s *Session) Edit(path, content string) error {
	rec, ok := s.Index.Get(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if rec.Binary {
		return fmt.Errorf("%w: %s", ErrBinaryFile, path)
	}
	if rec.Content != content {
		rec.Content = content
		rec.Modified = true
	}
	return nil
}

// CloseTab removes path from the open tabs. Closing the active tab
// activates the last remaining one.
func (s *Session) CloseTab(path string) {
	for i, t := range s.Tabs {
		if t == path {
			s.Tabs = append(s.Tabs[:i], s.Tabs[i+1:]...)
			break
		}
	}
	if s.Active == path {
		s.Active = ""
		if n := len(s.Tabs); n > 0 {
			s.Active = s.Tabs[n-1]
		}
	}
}

func (s *Session) hasTab(path string) bool {
	for _, t := range s.Tabs {
		if t == path {
			return true
		}
	}
	return false
}

// Apply applies changes in order and rebuilds the tree when new paths
// appeared.
func (s *Session) Apply(changes []model.ProposedChange) ([]patcher.Result, []model.ProposedChange) {
	results, failed := s.applier.ApplyAll(changes)
	if patcher.KeySetGrew(results) {
		s.Rebuild()
	}
	return results, failed
}

// Begin marks a request as in flight. It fails with ErrBusy while another
// one is outstanding; call done when the request settles.
func (s *Session) Begin() (done func(), err error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			s.busy.Store(false)
		}
	}, nil
}

// Busy reports whether a request is in flight.
func (s *Session) Busy() bool {
	return s.busy.Load()
}

// Modified returns the records changed since load, sorted by path.
func (s *Session) Modified() []*model.FileRecord {
	var out []*model.FileRecord
	for _, e := range s.Index.Entries() {
		if e.Record.Modified {
			out = append(out, e.Record)
		}
	}
	return out
}

// Files lists every indexed path in sorted order.
func (s *Session) Files() []string {
	return s.Index.Paths()
}
