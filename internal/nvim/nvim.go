package nvim

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/neovim/go-client/nvim"
	"go.uber.org/zap"

	"github.com/sokinpui/patchspace/model"
)

// Editor receives buffer contents read back from Neovim.
type Editor interface {
	Edit(path, content string) error
}

// Manager handles the connection and interaction with a Neovim instance.
type Manager struct {
	nvim          *nvim.Nvim
	isSelfStarted bool
	cmd           *exec.Cmd
	socketPath    string
	root          string
	logger        *zap.Logger
}

// New creates a new Neovim manager, connecting to an existing instance
// or starting a new headless one. Index paths are placed under root.
func New(root string, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	// Try to connect to a running instance first.
	if addr := os.Getenv("NVIM_LISTEN_ADDRESS"); addr != "" {
		v, err := nvim.Dial(addr)
		if err == nil {
			m := &Manager{nvim: v, root: absRoot, logger: logger}
			m.configure()
			return m, nil
		}
		logger.Debug("could not reach running nvim", zap.String("addr", addr), zap.Error(err))
	}

	// If that fails, start a temporary headless instance.
	tmpDir, err := os.MkdirTemp("", "patchspace-nvim-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir for nvim: %w", err)
	}
	socketPath := filepath.Join(tmpDir, "nvim.sock")

	cmd := exec.Command("nvim", "--headless", "--clean", "--listen", socketPath)
	if err := cmd.Start(); err != nil {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("failed to start headless nvim: %w. Is 'nvim' in your PATH?", err)
	}

	// Wait for the socket file to appear.
	for i := 0; i < 20; i++ {
		if _, err := os.Stat(socketPath); err == nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	v, err := nvim.Dial(socketPath)
	if err != nil {
		cmd.Process.Kill()
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("failed to connect to headless nvim: %w", err)
	}

	m := &Manager{
		nvim:          v,
		isSelfStarted: true,
		cmd:           cmd,
		socketPath:    socketPath,
		root:          absRoot,
		logger:        logger,
	}
	m.configure()
	return m, nil
}

// configure lets buffers stay modified in the background; nothing is
// ever written to disk from here.
func (m *Manager) configure() {
	b := m.nvim.NewBatch()
	b.Command("set hidden")
	b.Command("set noswapfile")
	if err := b.Execute(); err != nil {
		m.logger.Warn("failed to configure nvim", zap.Error(err))
	}
}

// Close disconnects from Neovim and cleans up if it was self-started.
func (m *Manager) Close() {
	if m.nvim != nil {
		m.nvim.Close()
	}
	if m.isSelfStarted && m.cmd != nil && m.cmd.Process != nil {
		if err := m.cmd.Process.Kill(); err == nil {
			m.cmd.Wait()
			os.RemoveAll(filepath.Dir(m.socketPath))
		}
	}
}

// processSequentially is a generic helper function to run a set of jobs sequentially.
func processSequentially[T any](
	items []T,
	processFn func(item T) (path string, success bool),
	progressCb func(int),
) (succeeded, failed []string) {
	numItems := len(items)
	if numItems == 0 {
		return nil, nil
	}

	for i, item := range items {
		path, success := processFn(item)
		if success {
			succeeded = append(succeeded, path)
		} else {
			failed = append(failed, path)
		}
		if progressCb != nil {
			progressCb(i + 1)
		}
	}

	return succeeded, failed
}

// Push loads each record into a buffer without saving it. Binary records
// are reported as failed.
func (m *Manager) Push(records []*model.FileRecord, progressCb func(int)) (updated, failed []string) {
	processFn := func(rec *model.FileRecord) (string, bool) {
		if rec.Binary {
			return rec.Path, false
		}
		if err := m.updateBuffer(rec.Path, rec.Content); err != nil {
			m.logger.Warn("failed to update buffer", zap.String("path", rec.Path), zap.Error(err))
			return rec.Path, false
		}
		return rec.Path, true
	}
	return processSequentially(records, processFn, progressCb)
}

// Pull reads the buffers for paths back and hands their content to ed.
func (m *Manager) Pull(ed Editor, paths []string) (updated, failed []string) {
	processFn := func(p string) (string, bool) {
		content, err := m.Read(p)
		if err == nil {
			err = ed.Edit(p, content)
		}
		if err != nil {
			m.logger.Warn("failed to read buffer", zap.String("path", p), zap.Error(err))
			return p, false
		}
		return p, true
	}
	return processSequentially(paths, processFn, nil)
}

// Read returns the current content of the buffer for an index path.
func (m *Manager) Read(p string) (string, error) {
	var nr int
	if err := m.nvim.Call("bufnr", &nr, m.abs(p)); err != nil {
		return "", err
	}
	if nr <= 0 {
		return "", fmt.Errorf("no buffer for %s", p)
	}
	lines, err := m.nvim.BufferLines(nvim.Buffer(nr), 0, -1, true)
	if err != nil {
		return "", err
	}
	return joinLines(lines), nil
}

func (m *Manager) updateBuffer(p, content string) error {
	b := m.nvim.NewBatch()
	b.Command(fmt.Sprintf("edit %s", escapePath(m.abs(p))))
	b.SetBufferLines(0, 0, -1, true, splitLines(content))
	return b.Execute()
}

func (m *Manager) abs(p string) string {
	return filepath.Join(m.root, filepath.FromSlash(p))
}

func escapePath(p string) string {
	return strings.ReplaceAll(p, " ", `\ `)
}

func splitLines(content string) [][]byte {
	lines := strings.Split(content, "\n")
	out := make([][]byte, len(lines))
	for i, l := range lines {
		out[i] = []byte(l)
	}
	return out
}

func joinLines(lines [][]byte) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = string(l)
	}
	return strings.Join(parts, "\n")
}
