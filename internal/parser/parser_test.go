package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/patchspace/model"
)

func TestParseUpdateAndNewBlocks(t *testing.T) {
	const response = "Here are the changes.\n\n" +
		"UPDATE FILE: index.html\n" +
		"```html\n<h1>Hello</h1>\n```\n\n" +
		"And a stylesheet:\n\n" +
		"NEW FILE: style.css\n" +
		"```css\nh1 { color: red; }\n```\n"

	changes := Parse(response)
	require.Len(t, changes, 2)

	assert.Equal(t, model.ProposedChange{
		Filename: "index.html",
		Language: "html",
		Content:  "<h1>Hello</h1>",
		IsNew:    false,
	}, changes[0])
	assert.Equal(t, model.ProposedChange{
		Filename: "style.css",
		Language: "css",
		Content:  "h1 { color: red; }",
		IsNew:    true,
	}, changes[1])
}

func TestParseMarkerVariants(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		file   string
		isNew  bool
		parsed bool
	}{
		{"plain update", "UPDATE FILE: src/app.js", "src/app.js", false, true},
		{"lower case", "update file: src/app.js", "src/app.js", false, true},
		{"modify verb", "Modify file: a.go", "a.go", false, true},
		{"create verb", "Create file: b.go", "b.go", true, true},
		{"heading and bold", "### **New file:** `style.css`", "style.css", true, true},
		{"bold around colon", "**UPDATE FILE: main.py**", "main.py", false, true},
		{"bullet", "- NEW FILE: docs/guide.md", "docs/guide.md", true, true},
		{"spaces in name", "NEW FILE: My Notes/todo list.txt", "My Notes/todo list.txt", true, true},
		{"backslashes kept raw", "UPDATE FILE: src\\app.js", "src\\app.js", false, true},
		{"underscores kept", "NEW FILE: pkg/__init__.py", "pkg/__init__.py", true, true},
		{"no file word", "UPDATE: app.js", "", false, false},
		{"empty name", "UPDATE FILE: ``", "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changes := Parse(tt.line + "\n```\nbody\n```\n")
			if !tt.parsed {
				assert.Empty(t, changes)
				return
			}
			require.Len(t, changes, 1)
			assert.Equal(t, tt.file, changes[0].Filename)
			assert.Equal(t, tt.isNew, changes[0].IsNew)
		})
	}
}

func TestParseLanguageDefaults(t *testing.T) {
	t.Run("missing annotation falls back to extension", func(t *testing.T) {
		changes := Parse("UPDATE FILE: main.go\n```\npackage main\n```")
		require.Len(t, changes, 1)
		assert.Equal(t, "go", changes[0].Language)
	})

	t.Run("unknown extension is plaintext", func(t *testing.T) {
		changes := Parse("NEW FILE: LICENSE\n```\nMIT\n```")
		require.Len(t, changes, 1)
		assert.Equal(t, "plaintext", changes[0].Language)
	})

	t.Run("info string first word", func(t *testing.T) {
		changes := Parse("NEW FILE: a.ts\n```TypeScript title=\"a\"\nlet x = 1\n```")
		require.Len(t, changes, 1)
		assert.Equal(t, "typescript", changes[0].Language)
	})

	t.Run("info string with path suffix", func(t *testing.T) {
		changes := Parse("NEW FILE: a.ts\n```ts:src/a.ts\nlet x = 1\n```")
		require.Len(t, changes, 1)
		assert.Equal(t, "ts", changes[0].Language)
	})
}

func TestParseTrimsContentOnce(t *testing.T) {
	changes := Parse("UPDATE FILE: a.py\n```python\n\n\n    indented()\n\nlast()\n\n```")
	require.Len(t, changes, 1)
	assert.Equal(t, "indented()\n\nlast()", changes[0].Content)
}

func TestParseDropsUnterminatedFence(t *testing.T) {
	t.Run("only block", func(t *testing.T) {
		assert.Empty(t, Parse("UPDATE FILE: a.js\n```js\nconsole.log(1)\n"))
	})

	t.Run("trailing unterminated block after a good one", func(t *testing.T) {
		changes := Parse("UPDATE FILE: a.js\n```js\nok()\n```\n\nNEW FILE: b.js\n```js\nbroken(\n")
		require.Len(t, changes, 1)
		assert.Equal(t, "a.js", changes[0].Filename)
	})

	t.Run("marker without fence", func(t *testing.T) {
		changes := Parse("UPDATE FILE: a.js\nno fence here\n\nNEW FILE: b.js\n```\nb\n```")
		require.Len(t, changes, 1)
		assert.Equal(t, "b.js", changes[0].Filename)
	})
}

func TestParseFenceVariants(t *testing.T) {
	t.Run("tilde fence", func(t *testing.T) {
		changes := Parse("NEW FILE: a.md\n~~~markdown\n# Title\n~~~")
		require.Len(t, changes, 1)
		assert.Equal(t, "# Title", changes[0].Content)
		assert.Equal(t, "markdown", changes[0].Language)
	})

	t.Run("longer fence wraps inner fences", func(t *testing.T) {
		response := "NEW FILE: README.md\n````markdown\nUsage:\n```sh\nmake\n```\n````"
		changes := Parse(response)
		require.Len(t, changes, 1)
		assert.Equal(t, "Usage:\n```sh\nmake\n```", changes[0].Content)
	})

	t.Run("blank line between marker and fence", func(t *testing.T) {
		changes := Parse("UPDATE FILE: a.txt\n\n```\nx\n```")
		require.Len(t, changes, 1)
	})

	t.Run("crlf line endings", func(t *testing.T) {
		changes := Parse("UPDATE FILE: a.txt\r\n```\r\nx\r\ny\r\n```\r\n")
		require.Len(t, changes, 1)
		assert.Equal(t, "x\ny", changes[0].Content)
	})

	t.Run("empty body", func(t *testing.T) {
		changes := Parse("NEW FILE: empty.txt\n```\n```")
		require.Len(t, changes, 1)
		assert.Equal(t, "", changes[0].Content)
	})
}

func TestParseKeepsDocumentOrderForRepeatedNames(t *testing.T) {
	response := "UPDATE FILE: a.js\n```js\nfirst\n```\n" +
		"NEW FILE: b.js\n```js\nb\n```\n" +
		"UPDATE FILE: a.js\n```js\nsecond\n```\n"
	changes := Parse(response)
	require.Len(t, changes, 3)
	assert.Equal(t, "first", changes[0].Content)
	assert.Equal(t, "b.js", changes[1].Filename)
	assert.Equal(t, "second", changes[2].Content)
}

func TestParseIgnoresPlainCodeBlocks(t *testing.T) {
	assert.Empty(t, Parse("Run this:\n```sh\nnpm test\n```\n"))
}

func TestFilterByExtension(t *testing.T) {
	changes := []model.ProposedChange{
		{Filename: "a.py"}, {Filename: "b.js"}, {Filename: "c.PY"},
	}
	assert.Len(t, FilterByExtension(changes, nil), 3)

	kept := FilterByExtension(changes, []string{".py"})
	require.Len(t, kept, 2)
	assert.Equal(t, "a.py", kept[0].Filename)
	assert.Equal(t, "c.PY", kept[1].Filename)
}
