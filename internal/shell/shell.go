package shell

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"
	"go.uber.org/zap"
)

// Terminal is anything that accepts text typed into an interactive shell.
// There is no completion signal.
type Terminal interface {
	SendText(text string)
}

// Session is a persistent shell running on a pseudo-terminal.
type Session struct {
	cmd  *exec.Cmd
	ptmx *os.File
	log  *zap.Logger

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// DefaultShell returns $SHELL, or /bin/sh when unset.
func DefaultShell() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

// Start launches shellPath in dir and copies everything it prints to out.
func Start(shellPath, dir string, out io.Writer, log *zap.Logger) (*Session, error) {
	if shellPath == "" {
		shellPath = DefaultShell()
	}
	if out == nil {
		out = io.Discard
	}
	if log == nil {
		log = zap.NewNop()
	}

	cmd := exec.Command(shellPath)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "DIRECTIVE_SHELL=1")

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to start shell %s: %w", shellPath, err)
	}
	_ = pty.Setsize(ptmx, &pty.Winsize{Rows: 40, Cols: 120})

	s := &Session{cmd: cmd, ptmx: ptmx, log: log, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		_, _ = io.Copy(out, ptmx)
	}()
	log.Debug("shell started", zap.String("shell", shellPath), zap.String("dir", dir), zap.Int("pid", cmd.Process.Pid))
	return s, nil
}

// SendText writes text to the shell as if typed. Errors are logged, not returned.
func (s *Session) SendText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.log.Warn("send on closed shell", zap.String("text", text))
		return
	}
	if _, err := io.WriteString(s.ptmx, text); err != nil {
		s.log.Warn("shell write failed", zap.Error(err))
	}
}

// Close terminates the shell and waits for its output to drain.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	err := s.ptmx.Close()
	<-s.done
	if waitErr := s.cmd.Wait(); waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			err = errors.Join(err, waitErr)
		}
	}
	return err
}

var _ Terminal = (*Session)(nil)
