package ingest

import (
	"path"
	"strings"
)

// ignoredNames are matched against every path segment.
var ignoredNames = []string{
	// version control metadata
	".git", ".svn", ".hg",
	// dependency caches
	"node_modules", "bower_components", "vendor", "__pycache__", ".venv", "venv",
	// OS metadata
	".DS_Store", "Thumbs.db", "desktop.ini",
	// compiled bytecode
	"*.pyc", "*.pyo", "*.class",
}

// Ignored reports whether a project-relative path should be left out of
// the index: any hidden segment or any segment matching ignoredNames.
func Ignored(p string) bool {
	for _, seg := range strings.Split(strings.ReplaceAll(p, "\\", "/"), "/") {
		if seg == "" || seg == "." || seg == ".." {
			continue
		}
		if strings.HasPrefix(seg, ".") {
			return true
		}
		for _, pattern := range ignoredNames {
			if ok, _ := path.Match(pattern, seg); ok {
				return true
			}
		}
	}
	return false
}
