package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/sokinpui/patchspace/cli"
	"github.com/sokinpui/patchspace/internal/assistant"
	"github.com/sokinpui/patchspace/internal/ingest"
	"github.com/sokinpui/patchspace/internal/nvim"
	"github.com/sokinpui/patchspace/internal/parser"
	"github.com/sokinpui/patchspace/internal/patcher"
	"github.com/sokinpui/patchspace/internal/session"
	"github.com/sokinpui/patchspace/internal/source"
	"github.com/sokinpui/patchspace/internal/ui"
	"github.com/sokinpui/patchspace/model"
)

// Commands understood by Execute.
const (
	CommandTree  = "tree"
	CommandParse = "parse"
	CommandApply = "apply"
	CommandAsk   = "ask"
)

// ProgressUpdate is a callback function to report progress.
type ProgressUpdate func(current, total int)

// Request selects what Execute does.
type Request struct {
	Command string
	// Root is the project folder. Parse ignores it.
	Root   string
	Prompt string
	// Active names the file the prompt is about. Ask only.
	Active string
}

// editorView is the editor side of the session: buffers are filled from
// records, then read back so the session holds what the editor shows.
type editorView interface {
	Push(records []*model.FileRecord, progressCb func(int)) (updated, failed []string)
	Pull(ed nvim.Editor, paths []string) (updated, failed []string)
	Close()
}

func openNvim(root string, logger *zap.Logger) (editorView, error) {
	m, err := nvim.New(root, logger)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// App orchestrates the entire application logic.
type App struct {
	cfg              *cli.Config
	logger           *zap.Logger
	session          *session.Session
	sourceProvider   *source.SourceProvider
	assistant        *assistant.Client
	openEditor       func(root string, logger *zap.Logger) (editorView, error)
	out              io.Writer
	progressCallback ProgressUpdate
}

// DetailedError enhances a standard error with a stack trace.
type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string {
	return e.Err.Error()
}

func (e *DetailedError) Unwrap() error {
	return e.Err
}

// New creates a new App instance.
func New(cfg *cli.Config, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		cfg:            cfg,
		logger:         logger,
		session:        session.New(logger),
		sourceProvider: source.New(),
		assistant:      assistant.New(cfg.Assistant(), logger),
		openEditor:     openNvim,
		out:            os.Stdout,
	}
}

// SetProgressCallback sets a function to be called for progress updates.
func (a *App) SetProgressCallback(cb ProgressUpdate) {
	a.progressCallback = cb
}

// SetSource replaces where response text is read from.
func (a *App) SetSource(sp *source.SourceProvider) {
	a.sourceProvider = sp
}

// SetAssistant replaces the AI client.
func (a *App) SetAssistant(c *assistant.Client) {
	a.assistant = c
}

// SetOutput redirects what tree and parse print.
func (a *App) SetOutput(w io.Writer) {
	a.out = w
}

// Session exposes the loaded project.
func (a *App) Session() *session.Session {
	return a.session
}

// Execute runs one command. Panics are turned into a DetailedError.
func (a *App) Execute(ctx context.Context, req Request) (summary model.Summary, err error) {
	// Centralized panic recovery.
	defer func() {
		if r := recover(); r != nil {
			err = &DetailedError{
				Err:   fmt.Errorf("internal panic: %v", r),
				Stack: debug.Stack(),
			}
		}
	}()

	switch req.Command {
	case CommandTree:
		return a.printTree(ctx, req.Root)
	case CommandParse:
		return a.printChanges()
	case CommandApply:
		return a.applyFromSource(ctx, req.Root)
	case CommandAsk:
		return a.ask(ctx, req)
	default:
		return model.Summary{}, fmt.Errorf("unknown command %q", req.Command)
	}
}

// Load reads root into the session.
func (a *App) Load(ctx context.Context, root string) (ingest.Stats, error) {
	return a.session.LoadDir(ctx, root, ingest.Options{
		Workers:     a.cfg.Workers,
		MaxFileSize: a.cfg.MaxFileSize,
		Logger:      a.logger,
	})
}

// Parse extracts proposed changes from response text, honouring the
// extension filter and loose mode.
func (a *App) Parse(content string) ([]model.ProposedChange, error) {
	var changes []model.ProposedChange
	if a.cfg.Loose {
		var err error
		changes, err = parser.ParseAll(content)
		if err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
	} else {
		changes = parser.Parse(content)
	}
	return parser.FilterByExtension(changes, a.cfg.Extensions), nil
}

// ApplyResponse parses content and applies it to the loaded project.
// Only one apply or ask may run at a time.
func (a *App) ApplyResponse(content string) (model.Summary, error) {
	done, err := a.session.Begin()
	if err != nil {
		return model.Summary{}, err
	}
	defer done()
	return a.applyResponse(content)
}

func (a *App) applyResponse(content string) (model.Summary, error) {
	changes, err := a.Parse(content)
	if err != nil {
		return model.Summary{}, err
	}
	if len(changes) == 0 {
		return model.Summary{Message: "No valid changes were found. Nothing to do."}, nil
	}

	results, failed := a.session.Apply(changes)
	summary := patcher.Summarize(results, failed)
	a.logger.Info("changes applied",
		zap.Int("created", len(summary.Created)),
		zap.Int("modified", len(summary.Modified)),
		zap.Int("failed", len(summary.Failed)))
	return summary, nil
}

func (a *App) printTree(ctx context.Context, root string) (model.Summary, error) {
	stats, err := a.Load(ctx, root)
	if err != nil {
		return model.Summary{}, err
	}
	ui.PrintTree(a.out, a.session.Tree())
	return model.Summary{Message: loadMessage(stats)}, nil
}

func (a *App) printChanges() (model.Summary, error) {
	content, err := a.sourceProvider.GetContent()
	if err != nil {
		return model.Summary{}, err
	}
	changes, err := a.Parse(content)
	if err != nil {
		return model.Summary{}, err
	}
	for _, c := range changes {
		verb := "UPDATE"
		if c.IsNew {
			verb = "NEW"
		}
		fmt.Fprintf(a.out, "%s %s (%s, %d bytes)\n", verb, c.Filename, c.Language, len(c.Content))
	}
	return model.Summary{Message: fmt.Sprintf("Found %d change(s).", len(changes))}, nil
}

// applyFromSource handles the core logic of reading the response,
// applying it and pushing results to Neovim.
func (a *App) applyFromSource(ctx context.Context, root string) (model.Summary, error) {
	done, err := a.session.Begin()
	if err != nil {
		return model.Summary{}, err
	}
	defer done()

	if _, err := a.Load(ctx, root); err != nil {
		return model.Summary{}, err
	}
	content, err := a.sourceProvider.GetContent()
	if errors.Is(err, source.ErrEmpty) {
		return model.Summary{Message: "Source is empty. Nothing to process."}, nil
	}
	if err != nil {
		return model.Summary{}, err
	}

	summary, err := a.applyResponse(content)
	if err != nil {
		return model.Summary{}, err
	}
	return a.pushToEditor(root, summary)
}

func (a *App) ask(ctx context.Context, r Request) (model.Summary, error) {
	done, err := a.session.Begin()
	if err != nil {
		return model.Summary{}, err
	}
	defer done()

	if _, err := a.Load(ctx, r.Root); err != nil {
		return model.Summary{}, err
	}
	if !a.assistant.Available() {
		return model.Summary{}, errors.New("no API key configured; set PATCHSPACE_API_KEY or OPENAI_API_KEY")
	}

	req := assistant.Request{Prompt: r.Prompt, Files: a.session.Files()}
	if r.Active != "" {
		doc, err := a.session.Open(r.Active)
		if err != nil {
			return model.Summary{}, err
		}
		req.Active, req.ActiveContent = doc.Path, doc.Content
	}

	start := time.Now()
	reply, err := a.assistant.Complete(ctx, req)
	if err != nil {
		failure := assistant.Classify(err)
		a.logger.Warn("assistant request failed", zap.Stringer("kind", failure.Kind), zap.Error(err))
		return model.Summary{}, errors.New(failure.Message)
	}
	a.logger.Debug("assistant replied", zap.Duration("elapsed", time.Since(start)))

	summary, err := a.applyResponse(reply)
	if err != nil {
		return model.Summary{}, err
	}
	return a.pushToEditor(r.Root, summary)
}

// Watch loads root, then reloads it after every burst of changes until
// ctx is done. onReload runs after each load on the watching goroutine.
func (a *App) Watch(ctx context.Context, root string, delay time.Duration, onReload func(*session.Session, ingest.Stats)) error {
	stats, err := a.Load(ctx, root)
	if err != nil {
		return err
	}
	onReload(a.session, stats)

	return ingest.Watch(ctx, root, delay, a.logger, func() {
		stats, err := a.Load(ctx, root)
		if err != nil {
			a.logger.Warn("reload failed", zap.String("root", root), zap.Error(err))
			return
		}
		onReload(a.session, stats)
	})
}

// pushToEditor loads modified records into Neovim buffers when enabled and
// reads the buffers back into the session.
func (a *App) pushToEditor(root string, summary model.Summary) (model.Summary, error) {
	if !a.cfg.Nvim {
		return summary, nil
	}
	records := a.session.Modified()
	if len(records) == 0 {
		return summary, nil
	}

	editor, err := a.openEditor(root, a.logger)
	if err != nil {
		return summary, err
	}
	defer editor.Close()

	total := len(records)
	var nvimProgressCb func(int)
	if a.progressCallback != nil {
		a.progressCallback(0, total)
		nvimProgressCb = func(current int) {
			a.progressCallback(current, total)
		}
	}

	pushed, failed := editor.Push(records, nvimProgressCb)
	summary.Failed = append(summary.Failed, failed...)

	// Buffer autocommands may rewrite what was pushed.
	_, unread := editor.Pull(a.session, pushed)
	if len(unread) > 0 {
		a.logger.Warn("buffers not read back", zap.Strings("paths", unread))
	}

	summary.Message = fmt.Sprintf("Loaded %d file(s) into Neovim buffers (not saved).", len(pushed))
	return summary, nil
}

func loadMessage(stats ingest.Stats) string {
	msg := fmt.Sprintf("%d file(s) loaded, %d binary.", stats.Loaded, stats.Binary)
	if stats.Unreadable > 0 {
		msg += fmt.Sprintf(" %d unreadable file(s) skipped.", stats.Unreadable)
	}
	return msg
}
