package parser

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// pathInHintRegex finds a backticked path in the paragraph line right
// before a fenced block, e.g. "`web/src/index.js`".
var pathInHintRegex = regexp.MustCompile("`([^`\n]+)`")

// CodeBlock is a fenced block located through the markdown AST.
type CodeBlock struct {
	// Hint is the last line of the paragraph immediately preceding the block.
	Hint string
	// HintOffset is the byte offset of the hint line in the source.
	HintOffset int
	// FenceLine is the index of the opening fence line.
	FenceLine int
}

// ExtractCodeBlocks walks the markdown AST and returns every fenced code
// block that directly follows a paragraph.
func ExtractCodeBlocks(source []byte) ([]CodeBlock, error) {
	var blocks []CodeBlock
	root := goldmark.DefaultParser().Parse(text.NewReader(source))

	walker := func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fenced, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		p, ok := fenced.PreviousSibling().(*ast.Paragraph)
		if !ok || p.Lines().Len() == 0 {
			return ast.WalkSkipChildren, nil
		}
		last := p.Lines().At(p.Lines().Len() - 1)
		hint := strings.TrimSpace(string(last.Value(source)))

		// The fence starts on the line after the paragraph's last line.
		fenceStart := last.Stop
		if fenceStart > 0 && fenceStart <= len(source) && source[fenceStart-1] != '\n' {
			if nl := bytes.IndexByte(source[fenceStart:], '\n'); nl >= 0 {
				fenceStart += nl + 1
			}
		}

		blocks = append(blocks, CodeBlock{
			Hint:       hint,
			HintOffset: last.Start,
			FenceLine:  bytes.Count(source[:fenceStart], []byte{'\n'}),
		})
		return ast.WalkSkipChildren, nil
	}

	if err := ast.Walk(root, walker); err != nil {
		return nil, err
	}
	return blocks, nil
}

// parseHinted turns hint-introduced blocks into update changes. Hints that
// are marker lines are left to parseMarkers.
func parseHinted(src string) ([]located, error) {
	blocks, err := ExtractCodeBlocks([]byte(src))
	if err != nil {
		return nil, err
	}

	lines := strings.Split(src, "\n")
	var found []located
	for _, b := range blocks {
		if _, _, isMarker := matchMarker(b.Hint); isMarker {
			continue
		}
		name := extractPathFromHint(b.Hint)
		if name == "" {
			continue
		}
		start := b.FenceLine
		for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
			start++
		}
		language, content, _, ok := readFence(lines, start)
		if !ok {
			continue
		}
		found = append(found, located{
			offset: b.HintOffset,
			change: newChange(name, language, content, false),
		})
	}
	return found, nil
}

func extractPathFromHint(hint string) string {
	if match := pathInHintRegex.FindStringSubmatch(hint); len(match) > 1 {
		path := strings.TrimSpace(match[1])
		// Disallow spaces to avoid capturing commands like `go run main.go` as a path.
		if !strings.Contains(path, " ") {
			return path
		}
	}
	return ""
}
