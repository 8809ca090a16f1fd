package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sokinpui/patchspace/app"
	"github.com/sokinpui/patchspace/cli"
	"github.com/sokinpui/patchspace/internal/ingest"
	"github.com/sokinpui/patchspace/internal/logging"
	"github.com/sokinpui/patchspace/internal/session"
	"github.com/sokinpui/patchspace/internal/tui"
	"github.com/sokinpui/patchspace/internal/ui"
)

const watchDelay = 300 * time.Millisecond

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		ui.Error("Error: %v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := &cli.Config{}
	logger := logging.Nop()

	rootCmd := &cobra.Command{
		Use:   "patchspace",
		Short: "Apply AI-proposed file changes to an in-memory project",
		Long: `patchspace loads a project folder into memory, reads an AI response
from stdin (if piped) or the clipboard, and applies every
"UPDATE FILE:" / "NEW FILE:" block to the loaded files.

Nothing is written back to disk.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			l, err := logging.NewLogger(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("initializing logger: %w", err)
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	cfg.BindFlags(rootCmd.PersistentFlags())

	treeCmd := &cobra.Command{
		Use:   "tree DIR",
		Short: "Print the file tree of a project folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app.New(cfg, logger)
			if cfg.Watch {
				return watchTree(cmd.Context(), a, args[0])
			}
			summary, err := a.Execute(cmd.Context(), app.Request{Command: app.CommandTree, Root: args[0]})
			if err != nil {
				return err
			}
			ui.Info("%s", summary.Message)
			return nil
		},
	}
	treeCmd.Flags().BoolVarP(&cfg.Watch, "watch", "w", false, "Reload and reprint the tree whenever files change.")

	parseCmd := &cobra.Command{
		Use:   "parse",
		Short: "List the file changes found in an AI response",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := app.New(cfg, logger).Execute(cmd.Context(), app.Request{Command: app.CommandParse})
			if err != nil {
				return err
			}
			ui.Info("%s", summary.Message)
			return nil
		},
	}

	applyCmd := &cobra.Command{
		Use:     "apply DIR",
		Short:   "Apply an AI response to a project folder",
		Example: "  pbpaste | patchspace apply . -e py",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg, logger, app.Request{Command: app.CommandApply, Root: args[0]})
		},
	}
	cfg.BindApplyFlags(applyCmd.Flags())

	var active string
	askCmd := &cobra.Command{
		Use:   "ask DIR PROMPT...",
		Short: "Ask the assistant for changes and apply its answer",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg, logger, app.Request{
				Command: app.CommandAsk,
				Root:    args[0],
				Prompt:  strings.Join(args[1:], " "),
				Active:  active,
			})
		},
	}
	cfg.BindApplyFlags(askCmd.Flags())
	cfg.BindAIFlags(askCmd.Flags())
	askCmd.Flags().StringVar(&active, "file", "", "Project path the prompt is about; its content is sent along.")

	rootCmd.AddCommand(treeCmd, parseCmd, applyCmd, askCmd)
	return rootCmd
}

// run executes a changing command, with the spinner unless animation is off.
func run(ctx context.Context, cfg *cli.Config, logger *zap.Logger, req app.Request) error {
	a := app.New(cfg, logger)

	if cfg.NoAnimation {
		var bar *ui.ProgressBar
		a.SetProgressCallback(func(current, total int) {
			if bar == nil {
				bar = ui.NewProgressBar(total, "Updating buffers")
			}
			bar.Set(current)
		})
		summary, err := a.Execute(ctx, req)
		if bar != nil {
			bar.Finish()
		}
		if err != nil {
			var detailed *app.DetailedError
			if errors.As(err, &detailed) {
				fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", detailed.Stack)
			}
			return err
		}
		ui.PrintSummary(os.Stderr, summary)
		if len(summary.Created)+len(summary.Modified) > 0 {
			ui.PrintTree(os.Stderr, a.Session().Tree())
		}
		return nil
	}

	model := tui.New(ctx, a, req)
	p := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	model.SetProgram(p)
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	if m, ok := final.(tui.Model); ok && m.Err() != nil {
		if errors.Is(m.Err(), tui.ErrInterrupted) {
			return m.Err()
		}
		// Already shown by the TUI.
		os.Exit(1)
	}
	return nil
}

func watchTree(ctx context.Context, a *app.App, root string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.Watch(ctx, root, watchDelay, func(s *session.Session, stats ingest.Stats) {
		ui.Header("--- %s (%s) ---", root, time.Now().Format("15:04:05"))
		ui.PrintTree(os.Stdout, s.Tree())
		ui.Info("%d file(s) loaded, %d binary.", stats.Loaded, stats.Binary)
	})
}
