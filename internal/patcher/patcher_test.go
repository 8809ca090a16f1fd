package patcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/patchspace/internal/index"
	"github.com/sokinpui/patchspace/internal/resolver"
	"github.com/sokinpui/patchspace/internal/tree"
	"github.com/sokinpui/patchspace/model"
)

func newProject(t *testing.T, files map[string]string) *index.Index {
	t.Helper()
	idx := index.New()
	for p, content := range files {
		idx.Set(p, model.NewFileRecord(p, content))
	}
	return idx
}

func snapshot(idx *index.Index) map[string]model.FileRecord {
	out := make(map[string]model.FileRecord)
	for _, e := range idx.Entries() {
		out[e.Path] = *e.Record
	}
	return out
}

func TestApplyUpdatesExistingFile(t *testing.T) {
	idx := newProject(t, map[string]string{"project/app.js": "old()\nkeep()"})
	a := New(idx, nil)

	res, err := a.Apply(model.ProposedChange{Filename: "app.js", Content: "new()\nkeep()"})
	require.NoError(t, err)

	assert.Equal(t, "project/app.js", res.Path)
	assert.False(t, res.Created)
	assert.Equal(t, resolver.RuleSuffix, res.Resolution.Rule)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 1, res.Removed)

	rec, ok := idx.Get("project/app.js")
	require.True(t, ok)
	assert.Equal(t, "new()\nkeep()", rec.Content)
	assert.True(t, rec.Modified)
	assert.Equal(t, 1, idx.Len())
}

func TestApplyCreatesNewFile(t *testing.T) {
	idx := newProject(t, map[string]string{"project/app.js": ""})
	a := New(idx, nil)

	res, err := a.Apply(model.ProposedChange{Filename: "utils.js", Content: "a\nb\nc", IsNew: true})
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.Equal(t, "project/utils.js", res.Path)
	assert.Equal(t, 3, res.Added)

	rec, ok := idx.Get("project/utils.js")
	require.True(t, ok)
	assert.Equal(t, "utils.js", rec.Name)
	assert.True(t, rec.Modified)
	assert.False(t, rec.Binary)
	assert.Contains(t, rec.MimeType, "javascript")
}

func TestApplyIsIdempotent(t *testing.T) {
	idx := newProject(t, map[string]string{"src/main.go": "package main"})
	a := New(idx, nil)
	change := model.ProposedChange{Filename: "cmd/tool.go", Content: "package cmd", IsNew: true}

	first, err := a.Apply(change)
	require.NoError(t, err)
	once := snapshot(idx)

	second, err := a.Apply(change)
	require.NoError(t, err)

	assert.True(t, first.Created)
	assert.False(t, second.Created)
	assert.Equal(t, first.Path, second.Path)
	assert.Equal(t, once, snapshot(idx))
}

func TestApplyAllLaterBlockWins(t *testing.T) {
	idx := newProject(t, map[string]string{"web/index.html": "<p>0</p>"})
	a := New(idx, nil)

	results, failed := a.ApplyAll([]model.ProposedChange{
		{Filename: "index.html", Content: "<p>1</p>"},
		{Filename: "index.html", Content: "<p>2</p>"},
	})
	assert.Empty(t, failed)
	require.Len(t, results, 2)

	rec, _ := idx.Get("web/index.html")
	assert.Equal(t, "<p>2</p>", rec.Content)
	assert.Equal(t, 1, idx.Len())
}

func TestApplyAllNewThenUpdateSameName(t *testing.T) {
	idx := newProject(t, map[string]string{"app/main.py": ""})
	a := New(idx, nil)

	results, _ := a.ApplyAll([]model.ProposedChange{
		{Filename: "helpers.py", Content: "v1", IsNew: true},
		{Filename: "helpers.py", Content: "v2"},
	})
	require.Len(t, results, 2)
	assert.True(t, results[0].Created)
	assert.False(t, results[1].Created)
	assert.Equal(t, "app/helpers.py", results[1].Path)

	rec, _ := idx.Get("app/helpers.py")
	assert.Equal(t, "v2", rec.Content)
}

func TestApplyReplacesBinaryRecord(t *testing.T) {
	idx := index.New()
	idx.Set("assets/icon.svg", model.NewBinaryRecord("assets/icon.svg", "image/svg+xml"))
	a := New(idx, nil)

	res, err := a.Apply(model.ProposedChange{Filename: "icon.svg", Content: "<svg/>"})
	require.NoError(t, err)
	assert.False(t, res.Created)

	rec, _ := idx.Get("assets/icon.svg")
	assert.False(t, rec.Binary)
	assert.Equal(t, "<svg/>", rec.Content)
}

func TestApplyAllReportsEmptyPath(t *testing.T) {
	a := New(index.New(), nil)
	results, failed := a.ApplyAll([]model.ProposedChange{
		{Filename: "./", Content: "x"},
		{Filename: "ok.txt", Content: "y"},
	})
	require.Len(t, failed, 1)
	require.Len(t, results, 1)
	assert.Equal(t, "ok.txt", results[0].Path)
}

func TestKeySetGrewAndSummarize(t *testing.T) {
	idx := newProject(t, map[string]string{"p/a.js": "1", "p/x/a.js": "2"})
	a := New(idx, nil)

	results, failed := a.ApplyAll([]model.ProposedChange{
		{Filename: "p/a.js", Content: "1\n2"},
		{Filename: "b.js", Content: "b", IsNew: true},
		{Filename: "b.js", Content: "bb"},
	})
	assert.True(t, KeySetGrew(results))
	assert.False(t, KeySetGrew(results[:1]))

	s := Summarize(results, append(failed, model.ProposedChange{Filename: "bad"}))
	assert.Equal(t, []string{"p/b.js"}, s.Created)
	assert.Equal(t, []string{"p/a.js"}, s.Modified)
	assert.Equal(t, []string{"bad"}, s.Failed)
	assert.Empty(t, s.Ambiguous)
	// "1" -> "1\n2" rewrites the unterminated last line: +2 -1.
	assert.Equal(t, 2+1+1, s.Added)
	assert.Equal(t, 1+1, s.Removed)
}

func TestSummarizeFlagsAmbiguousResolution(t *testing.T) {
	idx := newProject(t, map[string]string{"a/util.go": "", "b/util.go": ""})
	results, failed := New(idx, nil).ApplyAll([]model.ProposedChange{{Filename: "util.go", Content: "x"}})
	s := Summarize(results, failed)
	assert.Equal(t, []string{"a/util.go"}, s.Ambiguous)
}

func TestLineCount(t *testing.T) {
	assert.Equal(t, 0, lineCount(""))
	assert.Equal(t, 1, lineCount("a"))
	assert.Equal(t, 1, lineCount("a\n"))
	assert.Equal(t, 2, lineCount("a\nb"))
}

func TestApplyRefusesPathsOutsideRoot(t *testing.T) {
	idx := newProject(t, map[string]string{"project/app.js": "app()"})
	a := New(idx, nil)
	changes := []model.ProposedChange{
		{Filename: "../outside.js", Content: "x", IsNew: true},
		{Filename: "../outside.js", Content: "x", IsNew: true},
		{Filename: "../../etc/passwd", Content: "root"},
		{Filename: "..", Content: "x"},
	}

	for _, c := range changes {
		_, err := a.Apply(c)
		assert.ErrorIs(t, err, ErrOutsideRoot, c.Filename)
	}

	results, failed := a.ApplyAll(changes)
	assert.Empty(t, results)
	assert.Len(t, failed, len(changes))
	assert.Equal(t, []string{"project/app.js"}, idx.Paths())
}

func TestApplyReportsStoredKey(t *testing.T) {
	idx := newProject(t, map[string]string{"project/app.js": "app()"})
	a := New(idx, nil)
	change := model.ProposedChange{Filename: "project/lib/../util.js", Content: "u", IsNew: true}

	first, err := a.Apply(change)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "project/util.js", first.Path)
	assert.True(t, idx.Has(first.Path))

	second, err := a.Apply(change)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Path, second.Path)
	assert.False(t, KeySetGrew([]Result{second}))
	assert.Equal(t, 2, idx.Len())
}

func TestApplyRefusesFileDirectoryConflicts(t *testing.T) {
	idx := newProject(t, map[string]string{"src/a.js": "a", "README": "r"})
	a := New(idx, nil)

	_, err := a.Apply(model.ProposedChange{Filename: "src", Content: "x"})
	assert.ErrorIs(t, err, ErrPathConflict)

	_, err = a.Apply(model.ProposedChange{Filename: "README/notes.md", Content: "x"})
	assert.ErrorIs(t, err, ErrPathConflict)

	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, idx.Len(), tree.Build(idx.Paths()).CountFiles())
}
