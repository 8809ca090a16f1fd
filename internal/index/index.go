// Package index holds the authoritative flat map from project path to
// file record.
package index

import (
	"sort"
	"strings"

	"github.com/sokinpui/patchspace/model"
)

// Entry is one (path, record) pair returned by Entries.
type Entry struct {
	Path   string
	Record *model.FileRecord
}

// Index maps project-relative paths to file records. It owns the records
// it stores and knows nothing about trees or editors.
type Index struct {
	files map[string]*model.FileRecord
}

// New creates an empty index.
func New() *Index {
	return &Index{files: make(map[string]*model.FileRecord)}
}

// Get returns the record stored at p.
func (x *Index) Get(p string) (*model.FileRecord, bool) {
	r, ok := x.files[p]
	return r, ok
}

// Set creates or replaces the record at p. An empty path is ignored.
func (x *Index) Set(p string, r *model.FileRecord) {
	if p == "" || r == nil {
		return
	}
	x.files[p] = r
}

// Has reports whether a record exists at p.
func (x *Index) Has(p string) bool {
	_, ok := x.files[p]
	return ok
}

// Conflict returns a key that would clash with a file stored at p: either
// a key nested under p, or a key naming one of p's parent directories.
func (x *Index) Conflict(p string) (string, bool) {
	for dir := p; ; {
		i := strings.LastIndex(dir, "/")
		if i < 0 {
			break
		}
		dir = dir[:i]
		if _, ok := x.files[dir]; ok {
			return dir, true
		}
	}
	prefix := p + "/"
	for k := range x.files {
		if strings.HasPrefix(k, prefix) {
			return k, true
		}
	}
	return "", false
}

// Clear drops every entry. Used on full project reload only.
func (x *Index) Clear() {
	x.files = make(map[string]*model.FileRecord)
}

// Len returns the number of tracked files.
func (x *Index) Len() int {
	return len(x.files)
}

// Entries returns every entry sorted by path.
func (x *Index) Entries() []Entry {
	entries := make([]Entry, 0, len(x.files))
	for p, r := range x.files {
		entries = append(entries, Entry{Path: p, Record: r})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
	return entries
}

// Paths returns every key sorted.
func (x *Index) Paths() []string {
	paths := make([]string, 0, len(x.files))
	for p := range x.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
