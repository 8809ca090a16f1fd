package parser

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/sokinpui/patchspace/internal/lang"
	"github.com/sokinpui/patchspace/model"
)

var (
	// markerRegex matches an instruction line naming a target file, e.g.
	// "UPDATE FILE: src/app.js" or "### **New file:** `style.css`".
	markerRegex = regexp.MustCompile(
		`(?i)^[ \t]*(?:(?:#{1,6}|>|[-*+])[ \t]+)*[*_]{0,2}[ \t]*` +
			`(?P<verb>update|modify|edit|new|create)[ \t]+file[ \t]*[*_]{0,2}[ \t]*:` +
			`[ \t]*(?P<name>.+?)[ \t]*$`)

	fenceOpenRegex  = regexp.MustCompile("^[ \t]{0,3}(?P<fence>`{3,}|~{3,})[ \t]*(?P<info>[^\n]*)$")
	fenceCloseRegex = regexp.MustCompile("^[ \t]{0,3}(?P<fence>`{3,}|~{3,})[ \t]*$")
)

// located pairs a parsed change with the byte offset of its introducing line.
type located struct {
	offset int
	change model.ProposedChange
}

// Parse extracts the marker-introduced change blocks from text in
// document order. Blocks whose fence is never closed are dropped.
func Parse(text string) []model.ProposedChange {
	return strip(parseMarkers(normalize(text)))
}

// ParseAll returns the marker blocks plus the blocks introduced by a
// backticked path hint, merged in document order.
func ParseAll(text string) ([]model.ProposedChange, error) {
	src := normalize(text)
	hinted, err := parseHinted(src)
	if err != nil {
		return nil, err
	}
	all := append(parseMarkers(src), hinted...)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].offset < all[j].offset
	})
	return strip(all), nil
}

func parseMarkers(src string) []located {
	lines := strings.Split(src, "\n")
	offsets := lineOffsets(lines)

	var found []located
	for i := 0; i < len(lines); i++ {
		name, isNew, ok := matchMarker(lines[i])
		if !ok {
			continue
		}

		j := i + 1
		for j < len(lines) && strings.TrimSpace(lines[j]) == "" {
			j++
		}
		language, content, end, ok := readFence(lines, j)
		if !ok {
			// Not followed by a complete block; keep scanning after the
			// marker so a later well-formed block is still found.
			continue
		}

		found = append(found, located{
			offset: offsets[i],
			change: newChange(name, language, content, isNew),
		})
		i = end
	}
	return found
}

// matchMarker reports the file name and new-file wording of a marker line.
func matchMarker(line string) (name string, isNew bool, ok bool) {
	match := markerRegex.FindStringSubmatch(line)
	if match == nil {
		return "", false, false
	}
	name = cleanName(match[markerRegex.SubexpIndex("name")])
	if name == "" {
		return "", false, false
	}
	switch strings.ToLower(match[markerRegex.SubexpIndex("verb")]) {
	case "new", "create":
		isNew = true
	}
	return name, isNew, true
}

// readFence reads a fenced block whose opening line is lines[start]. It
// returns the info language, the body and the index of the closing line.
func readFence(lines []string, start int) (language, content string, end int, ok bool) {
	if start >= len(lines) {
		return "", "", 0, false
	}
	open := fenceOpenRegex.FindStringSubmatch(lines[start])
	if open == nil {
		return "", "", 0, false
	}
	fence := open[fenceOpenRegex.SubexpIndex("fence")]
	info := open[fenceOpenRegex.SubexpIndex("info")]
	if fence[0] == '`' && strings.Contains(info, "`") {
		return "", "", 0, false
	}

	for k := start + 1; k < len(lines); k++ {
		closing := fenceCloseRegex.FindStringSubmatch(lines[k])
		if closing == nil {
			continue
		}
		c := closing[fenceCloseRegex.SubexpIndex("fence")]
		if c[0] == fence[0] && len(c) >= len(fence) {
			return infoLanguage(info), strings.Join(lines[start+1:k], "\n"), k, true
		}
	}
	return "", "", 0, false
}

func newChange(name, language, content string, isNew bool) model.ProposedChange {
	if language == "" {
		language = lang.ForFile(name)
	}
	return model.ProposedChange{
		Filename: name,
		Language: language,
		Content:  strings.TrimSpace(content),
		IsNew:    isNew,
	}
}

// infoLanguage takes the first word of a fence info string, e.g. "css" from
// "css title=x" or "ts" from "ts:src/app.ts".
func infoLanguage(info string) string {
	fields := strings.Fields(info)
	if len(fields) == 0 {
		return ""
	}
	l := strings.SplitN(fields[0], ":", 2)[0]
	l = strings.Trim(l, "{}.")
	return strings.ToLower(l)
}

// cleanName strips markdown decoration around a file name. Underscores are
// left alone since they are common in real names.
func cleanName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimRight(name, "*:")
	name = strings.Trim(name, "*`\"' \t")
	return strings.TrimSpace(name)
}

func normalize(text string) string {
	return strings.ReplaceAll(text, "\r\n", "\n")
}

func lineOffsets(lines []string) []int {
	offsets := make([]int, len(lines))
	pos := 0
	for i, l := range lines {
		offsets[i] = pos
		pos += len(l) + 1
	}
	return offsets
}

func strip(found []located) []model.ProposedChange {
	changes := make([]model.ProposedChange, 0, len(found))
	for _, f := range found {
		changes = append(changes, f.change)
	}
	return changes
}

// FilterByExtension keeps the changes whose filename has one of the given
// extensions. An empty list means no filter.
func FilterByExtension(changes []model.ProposedChange, extensions []string) []model.ProposedChange {
	if len(extensions) == 0 {
		return changes
	}
	var kept []model.ProposedChange
	for _, c := range changes {
		if hasAllowedExtension(c.Filename, extensions) {
			kept = append(kept, c)
		}
	}
	return kept
}

func hasAllowedExtension(path string, extensions []string) bool {
	ext := filepath.Ext(path)
	for _, allowedExt := range extensions {
		if strings.EqualFold(ext, allowedExt) {
			return true
		}
	}
	return false
}
