package patcher

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"go.uber.org/zap"

	"github.com/sokinpui/patchspace/internal/index"
	"github.com/sokinpui/patchspace/internal/lang"
	"github.com/sokinpui/patchspace/internal/resolver"
	"github.com/sokinpui/patchspace/model"
)

var (
	// ErrEmptyPath is returned when a change resolves to no path at all.
	ErrEmptyPath = errors.New("change resolved to an empty path")
	// ErrOutsideRoot is returned for a name that climbs above the project
	// root with ".." segments.
	ErrOutsideRoot = errors.New("path is outside the project root")
	// ErrPathConflict is returned when a new file would sit where a
	// directory is, or under a path that is a file.
	ErrPathConflict = errors.New("path conflicts with an existing file or directory")
)

// Result describes one applied change.
type Result struct {
	Path       string
	Created    bool
	Resolution resolver.Resolution
	// Added and Removed count changed lines against the previous content.
	Added   int
	Removed int
}

// Applier writes proposed changes into an index. It never rebuilds any
// derived view; callers use the Created flags to decide that.
type Applier struct {
	idx      *index.Index
	resolver *resolver.PathResolver
	logger   *zap.Logger
}

// New creates an Applier over idx.
func New(idx *index.Index, logger *zap.Logger) *Applier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Applier{
		idx:      idx,
		resolver: resolver.NewPathResolver(idx),
		logger:   logger,
	}
}

// Apply resolves the change's target and creates or overwrites the record
// there. Applying the same change twice leaves the index as applying it once.
func (a *Applier) Apply(change model.ProposedChange) (Result, error) {
	res := a.resolver.Explain(change.Filename, change.IsNew)
	if res.Path == "" {
		return Result{Resolution: res}, ErrEmptyPath
	}
	if model.EscapesRoot(res.Path) {
		return Result{Resolution: res}, fmt.Errorf("%w: %s", ErrOutsideRoot, res.Path)
	}
	if res.Ambiguous() {
		a.logger.Warn("ambiguous file name, using first match",
			zap.String("filename", change.Filename),
			zap.String("path", res.Path),
			zap.Strings("candidates", res.Candidates))
	}

	result := Result{Path: res.Path, Resolution: res}

	if rec, ok := a.idx.Get(res.Path); ok {
		if rec.Binary {
			a.logger.Warn("replacing binary file with text", zap.String("path", res.Path))
			result.Added = lineCount(change.Content)
		} else {
			result.Added, result.Removed = lineStats(rec.Content, change.Content)
		}
		rec.Content = change.Content
		rec.Binary = false
		rec.Modified = true
		a.logger.Debug("updated file", zap.String("path", res.Path), zap.String("rule", string(res.Rule)))
		return result, nil
	}

	if other, ok := a.idx.Conflict(res.Path); ok {
		return Result{Resolution: res}, fmt.Errorf("%w: %s and %s", ErrPathConflict, res.Path, other)
	}

	rec := model.NewFileRecord(res.Path, change.Content)
	rec.Modified = true
	rec.MimeType = lang.MimeType(rec.Path)
	a.idx.Set(rec.Path, rec)

	result.Path = rec.Path
	result.Created = true
	result.Added = lineCount(change.Content)
	a.logger.Debug("created file", zap.String("path", rec.Path), zap.String("rule", string(res.Rule)))
	return result, nil
}

// ApplyAll applies changes in the order given. A change that cannot be
// applied is reported in failed and does not stop the batch.
func (a *Applier) ApplyAll(changes []model.ProposedChange) (results []Result, failed []model.ProposedChange) {
	for _, c := range changes {
		r, err := a.Apply(c)
		if err != nil {
			a.logger.Warn("skipping change", zap.String("filename", c.Filename), zap.Error(err))
			failed = append(failed, c)
			continue
		}
		results = append(results, r)
	}
	return results, failed
}

// KeySetGrew reports whether any result created a new path.
func KeySetGrew(results []Result) bool {
	for _, r := range results {
		if r.Created {
			return true
		}
	}
	return false
}

// Summarize folds results into a display summary. A path touched more than
// once is listed once, under Created if its first touch created it.
func Summarize(results []Result, failed []model.ProposedChange) model.Summary {
	var s model.Summary
	seen := make(map[string]bool, len(results))
	for _, r := range results {
		s.Added += r.Added
		s.Removed += r.Removed
		if r.Resolution.Ambiguous() {
			s.Ambiguous = append(s.Ambiguous, r.Path)
		}
		if seen[r.Path] {
			continue
		}
		seen[r.Path] = true
		if r.Created {
			s.Created = append(s.Created, r.Path)
		} else {
			s.Modified = append(s.Modified, r.Path)
		}
	}
	for _, c := range failed {
		s.Failed = append(s.Failed, c.Filename)
	}
	return s
}

func lineStats(before, after string) (added, removed int) {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += lineCount(d.Text)
		case diffmatchpatch.DiffDelete:
			removed += lineCount(d.Text)
		}
	}
	return added, removed
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
