package sequencer

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sokinpui/directive/internal/shell"
	"github.com/sokinpui/directive/model"
)

// ErrBusy is returned by Start while another batch still owns the sequencer.
var ErrBusy = errors.New("a command batch is already running")

const (
	DefaultSettleDelay            = 1500 * time.Millisecond
	DefaultInteractiveSettleDelay = 4000 * time.Millisecond
	DefaultInjectDelay            = 1000 * time.Millisecond
)

// Options tunes the timed steps. Zero durations take the defaults.
type Options struct {
	SettleDelay            time.Duration
	InteractiveSettleDelay time.Duration
	InjectDelay            time.Duration
	Logger                 *zap.Logger
	// OnStep is called right before a command is dispatched.
	OnStep func(index, total int, entry model.CommandEntry)
}

// Sequencer types command batches into one terminal, one entry at a time.
// At most one batch is active.
type Sequencer struct {
	term shell.Terminal
	opts Options
	log  *zap.Logger

	mu     sync.Mutex
	active *Batch
}

// New creates a sequencer driving term.
func New(term shell.Terminal, opts Options) *Sequencer {
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.InteractiveSettleDelay <= 0 {
		opts.InteractiveSettleDelay = DefaultInteractiveSettleDelay
	}
	if opts.InjectDelay <= 0 {
		opts.InjectDelay = DefaultInjectDelay
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Sequencer{term: term, opts: opts, log: log}
}

// Active reports whether a batch currently owns the sequencer.
func (s *Sequencer) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}

// Start acquires the sequencer and begins dispatching entries in the
// background. An empty batch completes immediately without acquiring.
func (s *Sequencer) Start(ctx context.Context, entries []model.CommandEntry) (*Batch, error) {
	b := &Batch{
		seq:     s,
		pending: append([]model.CommandEntry(nil), entries...),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if len(entries) == 0 {
		b.pending = nil
		close(b.done)
		return b, nil
	}

	s.mu.Lock()
	if s.active != nil {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.active = b
	s.mu.Unlock()

	s.log.Debug("batch started", zap.Int("commands", len(entries)))
	go b.run(ctx)
	return b, nil
}

// Run starts a batch and blocks until it finishes, returning what was dispatched.
func (s *Sequencer) Run(ctx context.Context, entries []model.CommandEntry) ([]string, error) {
	b, err := s.Start(ctx, entries)
	if err != nil {
		return nil, err
	}
	return b.Wait(), nil
}

func (s *Sequencer) release(b *Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == b {
		s.active = nil
	}
}

// Batch is one running sequence of commands.
type Batch struct {
	seq *Sequencer

	mu         sync.Mutex
	pending    []model.CommandEntry
	index      int
	dispatched []string

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func (b *Batch) run(ctx context.Context) {
	defer b.finish()

	opts := b.seq.opts
	for {
		b.mu.Lock()
		if b.index >= len(b.pending) {
			b.mu.Unlock()
			return
		}
		idx, total := b.index, len(b.pending)
		entry := b.pending[idx]
		b.mu.Unlock()

		if opts.OnStep != nil {
			opts.OnStep(idx, total, entry)
		}
		b.seq.term.SendText(entry.Text + "\n")
		b.mu.Lock()
		b.dispatched = append(b.dispatched, entry.Text)
		b.mu.Unlock()
		b.seq.log.Debug("command dispatched",
			zap.Int("index", idx),
			zap.String("command", entry.Text),
			zap.Bool("interactive", entry.IsInteractive))

		settle := opts.SettleDelay
		if entry.IsInteractive {
			settle = opts.InteractiveSettleDelay
			if !b.sleep(ctx, opts.InjectDelay) {
				return
			}
			// Best effort: nothing confirms the program is waiting for input.
			b.seq.term.SendText(entry.DefaultResponse + "\n")
			b.seq.log.Debug("response injected", zap.String("rule", entry.Rule), zap.String("response", entry.DefaultResponse))
			settle -= opts.InjectDelay
		}
		if !b.sleep(ctx, settle) {
			return
		}

		b.mu.Lock()
		b.index++
		b.mu.Unlock()
	}
}

// sleep waits d and reports false if the batch was stopped meanwhile.
func (b *Batch) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-b.stop:
			return false
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-b.stop:
		return false
	case <-ctx.Done():
		return false
	}
}

func (b *Batch) finish() {
	b.mu.Lock()
	b.pending = nil
	b.index = 0
	b.mu.Unlock()
	b.seq.release(b)
	close(b.done)
	b.seq.log.Debug("batch finished", zap.Int("dispatched", len(b.Dispatched())))
}

// Stop clears the remaining commands and releases the sequencer. A command
// already typed into the shell keeps running.
func (b *Batch) Stop() {
	b.stopOnce.Do(func() {
		close(b.stop)
		b.mu.Lock()
		b.pending = nil
		b.index = 0
		b.mu.Unlock()
	})
	<-b.done
}

// Wait blocks until the batch is finished or stopped.
func (b *Batch) Wait() []string {
	<-b.done
	return b.Dispatched()
}

// Done is closed when the batch finishes.
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// Dispatched returns the command strings sent so far, in order.
func (b *Batch) Dispatched() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.dispatched...)
}

// Active reports whether the batch is still running.
func (b *Batch) Active() bool {
	select {
	case <-b.done:
		return false
	default:
		return true
	}
}

// Remaining returns how many commands have not been dispatched yet.
func (b *Batch) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.index >= len(b.pending) {
		return 0
	}
	return len(b.pending) - b.index
}
