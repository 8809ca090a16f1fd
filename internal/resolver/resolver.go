// Package resolver maps a file name written in a response onto a concrete
// project path.
package resolver

import (
	"path"
	"strings"

	"github.com/sokinpui/patchspace/internal/index"
	"github.com/sokinpui/patchspace/model"
)

// Rule names the step of the fallback chain that produced a path.
type Rule string

const (
	RuleExact    Rule = "exact"
	RuleSuffix   Rule = "suffix"
	RuleBasename Rule = "basename"
	RulePlaced   Rule = "placed"
	RuleVerbatim Rule = "verbatim"
)

// Resolution reports where a name resolved to and how.
type Resolution struct {
	Path string
	Rule Rule
	// Candidates lists every key the deciding rule matched, in index
	// enumeration order. Path is always Candidates[0] when non-empty.
	Candidates []string
}

// Ambiguous reports whether more than one existing file matched.
func (r Resolution) Ambiguous() bool {
	return len(r.Candidates) > 1
}

// PathResolver resolves names against an index.
type PathResolver struct {
	idx *index.Index
}

// NewPathResolver creates a resolver over idx.
func NewPathResolver(idx *index.Index) *PathResolver {
	return &PathResolver{idx: idx}
}

// Resolve returns the path to write filename to.
func (r *PathResolver) Resolve(filename string, isNew bool) string {
	return r.Explain(filename, isNew).Path
}

// Explain runs the fallback chain: exact key, segment suffix, record name,
// placement under the project root for new files, then the name itself.
// The first step that matches wins; ties go to the first key in
// enumeration order. A name that climbs above the root is returned as is
// for the caller to refuse.
func (r *PathResolver) Explain(filename string, isNew bool) Resolution {
	name := model.CleanPath(filename)
	if name == "" || model.EscapesRoot(name) {
		return Resolution{Path: name, Rule: RuleVerbatim}
	}

	if r.idx.Has(name) {
		return Resolution{Path: name, Rule: RuleExact, Candidates: []string{name}}
	}

	entries := r.idx.Entries()

	want := splitAny(name)
	var suffix []string
	for _, e := range entries {
		if hasSegmentSuffix(splitAny(e.Path), want) {
			suffix = append(suffix, e.Path)
		}
	}
	if len(suffix) > 0 {
		return Resolution{Path: suffix[0], Rule: RuleSuffix, Candidates: suffix}
	}

	var named []string
	for _, e := range entries {
		if e.Record != nil && e.Record.Name == name {
			named = append(named, e.Path)
		}
	}
	if len(named) > 0 {
		return Resolution{Path: named[0], Rule: RuleBasename, Candidates: named}
	}

	if isNew {
		if root := rootComponent(entries); root != "" {
			if strings.HasPrefix(name, root+"/") {
				return Resolution{Path: name, Rule: RulePlaced}
			}
			return Resolution{Path: path.Clean(root + "/" + name), Rule: RulePlaced}
		}
	}

	return Resolution{Path: name, Rule: RuleVerbatim}
}

// rootComponent returns the first directory component among the keys.
// Keys without a directory do not name a root.
func rootComponent(entries []index.Entry) string {
	for _, e := range entries {
		if i := strings.Index(e.Path, "/"); i > 0 {
			return e.Path[:i]
		}
	}
	return ""
}

func splitAny(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool {
		return r == '/' || r == '\\'
	})
}

func hasSegmentSuffix(segments, suffix []string) bool {
	if len(suffix) == 0 || len(suffix) > len(segments) {
		return false
	}
	offset := len(segments) - len(suffix)
	for i, s := range suffix {
		if segments[offset+i] != s {
			return false
		}
	}
	return true
}
