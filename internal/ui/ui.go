package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/sokinpui/patchspace/internal/tree"
	"github.com/sokinpui/patchspace/model"
)

var (
	HeaderColor  = color.New(color.FgBlue, color.Bold)
	InfoColor    = color.New(color.FgCyan)
	SuccessColor = color.New(color.FgGreen)
	WarningColor = color.New(color.FgYellow)
	ErrorColor   = color.New(color.FgRed)
	PathColor    = color.New(color.FgYellow)
	DirColor     = color.New(color.FgBlue, color.Bold)
	PromptColor  = color.New(color.FgMagenta)
)

func Header(format string, a ...interface{}) {
	HeaderColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Info(format string, a ...interface{}) {
	InfoColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Success(format string, a ...interface{}) {
	SuccessColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Warning(format string, a ...interface{}) {
	WarningColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Error(format string, a ...interface{}) {
	ErrorColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Path(format string, a ...interface{}) {
	PathColor.Fprintf(os.Stderr, "  "+format+"\n", a...)
}

func Prompt(format string, a ...interface{}) string {
	return PromptColor.Sprintf(format, a...)
}

// --- Summaries ---

// PrintSummary writes the outcome of an apply to w.
func PrintSummary(w io.Writer, s model.Summary) {
	HeaderColor.Fprintln(w, "\n--- Update Summary ---")

	if s.Message != "" {
		InfoColor.Fprintln(w, s.Message)
	}
	if len(s.Created) == 0 && len(s.Modified) == 0 && len(s.Failed) == 0 {
		if s.Message == "" {
			InfoColor.Fprintln(w, "No files were updated.")
		}
		return
	}

	printGroup(w, SuccessColor, "Created %d new file(s):", s.Created)
	printGroup(w, SuccessColor, "Modified %d file(s):", s.Modified)
	printGroup(w, WarningColor, "Resolved %d ambiguous name(s) by first match:", s.Ambiguous)
	printGroup(w, ErrorColor, "Failed to process %d change(s):", s.Failed)

	if s.Added > 0 || s.Removed > 0 {
		fmt.Fprintf(w, "%s %s\n",
			SuccessColor.Sprintf("+%d", s.Added),
			ErrorColor.Sprintf("-%d", s.Removed))
	}
}

func printGroup(w io.Writer, c *color.Color, title string, paths []string) {
	if len(paths) == 0 {
		return
	}
	c.Fprintf(w, title+"\n", len(paths))
	for _, p := range paths {
		fmt.Fprintf(w, "  - %s\n", p)
	}
}

// PrintTree writes root as an indented listing, directories coloured.
func PrintTree(w io.Writer, root *tree.Node) {
	if root == nil {
		return
	}
	for _, line := range strings.Split(strings.TrimRight(tree.Render(root), "\n"), "\n") {
		if line == "" {
			continue
		}
		if strings.HasSuffix(line, "/") {
			fmt.Fprintln(w, DirColor.Sprint(line))
			continue
		}
		fmt.Fprintln(w, line)
	}
}

// --- Progress Bar ---

type ProgressBar struct {
	out     io.Writer
	total   int
	prefix  string
	current int
}

func NewProgressBar(total int, prefix string) *ProgressBar {
	return &ProgressBar{out: os.Stderr, total: total, prefix: prefix}
}

func (p *ProgressBar) Start() {
	p.draw()
}

// Set moves the bar to current.
func (p *ProgressBar) Set(current int) {
	p.current = current
	p.draw()
}

func (p *ProgressBar) Increment() {
	p.Set(p.current + 1)
}

func (p *ProgressBar) Finish() {
	fmt.Fprintln(p.out)
}

func (p *ProgressBar) draw() {
	if p.total == 0 {
		return
	}
	const barLength = 40
	percent := float64(p.current) / float64(p.total)
	filledLength := int(percent * barLength)
	bar := strings.Repeat("█", filledLength) + strings.Repeat("-", barLength-filledLength)

	percentStr := fmt.Sprintf("%.1f%%", percent*100)
	countStr := fmt.Sprintf("[%d/%d]", p.current, p.total)

	fmt.Fprintf(p.out, "\r%s |%s| %s %s", p.prefix, bar, countStr, percentStr)
}
