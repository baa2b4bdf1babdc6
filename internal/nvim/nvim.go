package nvim

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/neovim/go-client/nvim"
	"go.uber.org/zap"

	"github.com/sokinpui/directive/internal/executor"
)

// ErrNoInstance is returned when no running Neovim can be reached.
var ErrNoInstance = errors.New("no running neovim instance")

// addressEnv lists the variables a running Neovim exports for its RPC socket.
var addressEnv = []string{"NVIM", "NVIM_LISTEN_ADDRESS"}

// Viewer opens a side-by-side diff of the current and proposed file in a
// running Neovim instance.
type Viewer struct {
	addr string
	log  *zap.Logger
}

// NewViewer creates a viewer for the given socket address. An empty address
// is looked up from the environment at Show time.
func NewViewer(addr string, log *zap.Logger) *Viewer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Viewer{addr: addr, log: log}
}

// Address returns the socket the viewer will dial, or "".
func (v *Viewer) Address() string {
	if v.addr != "" {
		return v.addr
	}
	for _, key := range addressEnv {
		if addr := os.Getenv(key); addr != "" {
			return addr
		}
	}
	return ""
}

// Show implements executor.DiffViewer. The proposed file opens in a new tab
// diffed against the original. Nothing is written.
func (v *Viewer) Show(ctx context.Context, originalPath, proposedPath string) error {
	addr := v.Address()
	if addr == "" {
		return ErrNoInstance
	}

	client, err := nvim.Dial(addr, nvim.DialContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to connect to neovim at %s: %w", addr, err)
	}
	defer client.Close()

	orig, err := filepath.Abs(originalPath)
	if err != nil {
		return err
	}
	proposed, err := filepath.Abs(proposedPath)
	if err != nil {
		return err
	}

	b := client.NewBatch()
	b.Command(fmt.Sprintf("tabedit %s", escape(orig)))
	b.Command(fmt.Sprintf("vert diffsplit %s", escape(proposed)))
	b.Command("setlocal nomodifiable")
	if err := b.Execute(); err != nil {
		return fmt.Errorf("failed to open diff in neovim: %w", err)
	}
	v.log.Debug("opened neovim diff", zap.String("addr", addr), zap.String("path", orig))
	return nil
}

func escape(path string) string {
	out := make([]rune, 0, len(path))
	for _, r := range path {
		switch r {
		case ' ', '\\', '%', '#', '|', '"':
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}

// Chain tries each viewer in order until one succeeds.
type Chain struct {
	viewers []executor.DiffViewer
	log     *zap.Logger
}

// NewChain creates a chain. nil viewers are skipped.
func NewChain(log *zap.Logger, viewers ...executor.DiffViewer) *Chain {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Chain{log: log}
	for _, v := range viewers {
		if v != nil {
			c.viewers = append(c.viewers, v)
		}
	}
	return c
}

// Show implements executor.DiffViewer.
func (c *Chain) Show(ctx context.Context, originalPath, proposedPath string) error {
	var errs []error
	for _, v := range c.viewers {
		err := v.Show(ctx, originalPath, proposedPath)
		if err == nil {
			return nil
		}
		c.log.Debug("diff viewer failed, trying next", zap.Error(err))
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return errors.New("no diff viewer available")
	}
	return errors.Join(errs...)
}

var (
	_ executor.DiffViewer = (*Viewer)(nil)
	_ executor.DiffViewer = (*Chain)(nil)
)
