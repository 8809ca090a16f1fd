package model

import (
	"path"
	"strings"
)

// BinaryContent is stored in place of the bytes of a binary file.
const BinaryContent = "[Binary file]"

// FileRecord is one tracked project file.
type FileRecord struct {
	Path     string
	Name     string
	Content  string
	Modified bool
	MimeType string
	Binary   bool
}

// NewFileRecord creates a record for path with Name derived from it.
func NewFileRecord(p, content string) *FileRecord {
	r := &FileRecord{Content: content}
	r.SetPath(p)
	return r
}

// NewBinaryRecord creates a record that carries the binary sentinel.
func NewBinaryRecord(p, mimeType string) *FileRecord {
	r := NewFileRecord(p, BinaryContent)
	r.Binary = true
	r.MimeType = mimeType
	return r
}

// SetPath updates Path and keeps Name in sync with it.
func (r *FileRecord) SetPath(p string) {
	r.Path = CleanPath(p)
	r.Name = path.Base(r.Path)
}

// CleanPath normalises a project-relative path: forward slashes, no
// leading "./" or "/", no trailing slash.
func CleanPath(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	p = strings.Trim(p, "/")
	if p == "" || p == "." {
		return ""
	}
	return path.Clean(p)
}

// EscapesRoot reports whether a cleaned path climbs above the project root.
func EscapesRoot(p string) bool {
	return p == ".." || strings.HasPrefix(p, "../")
}

// ProposedChange is a parsed instruction to create or overwrite a file.
type ProposedChange struct {
	// Filename is the name or path exactly as written in the response.
	Filename string
	Language string
	Content  string
	// IsNew reports whether the block was introduced with the "new file"
	// wording. Resolution does not rely on it alone.
	IsNew bool
}

// Summary holds the results of an operation for display.
type Summary struct {
	Created   []string
	Modified  []string
	Ambiguous []string
	Failed    []string
	Added     int
	Removed   int
	Message   string
}
