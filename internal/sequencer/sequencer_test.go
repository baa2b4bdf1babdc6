package sequencer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sokinpui/directive/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeTerminal struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeTerminal) SendText(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
}

func (f *fakeTerminal) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func fast() Options {
	return Options{
		SettleDelay:            time.Millisecond,
		InteractiveSettleDelay: 3 * time.Millisecond,
		InjectDelay:            time.Millisecond,
	}
}

func slow() Options {
	return Options{
		SettleDelay:            time.Hour,
		InteractiveSettleDelay: time.Hour,
		InjectDelay:            time.Hour,
	}
}

func TestRunDispatchesInOrderWithInjection(t *testing.T) {
	term := &fakeTerminal{}
	var steps []int
	opts := fast()
	opts.OnStep = func(index, total int, _ model.CommandEntry) {
		assert.Equal(t, 3, total)
		steps = append(steps, index)
	}
	s := New(term, opts)

	entries := []model.CommandEntry{
		{Text: "echo a"},
		{Text: "git clone https://example/repo.git", IsInteractive: true, DefaultResponse: ""},
		{Text: "ssh host", IsInteractive: true, DefaultResponse: "yes"},
	}
	dispatched, err := s.Run(context.Background(), entries)
	require.NoError(t, err)

	want := []string{"echo a", "git clone https://example/repo.git", "ssh host"}
	if diff := cmp.Diff(want, dispatched); diff != "" {
		t.Errorf("dispatched mismatch (-want +got):\n%s", diff)
	}
	wantSent := []string{
		"echo a\n",
		"git clone https://example/repo.git\n",
		"\n",
		"ssh host\n",
		"yes\n",
	}
	if diff := cmp.Diff(wantSent, term.Sent()); diff != "" {
		t.Errorf("terminal input mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []int{0, 1, 2}, steps)
	assert.False(t, s.Active())
}

func TestStartRejectsSecondBatch(t *testing.T) {
	term := &fakeTerminal{}
	s := New(term, slow())

	first, err := s.Start(context.Background(), []model.CommandEntry{{Text: "sleep 100"}})
	require.NoError(t, err)
	assert.True(t, s.Active())

	_, err = s.Start(context.Background(), []model.CommandEntry{{Text: "echo other"}})
	assert.ErrorIs(t, err, ErrBusy)

	first.Stop()
	assert.False(t, s.Active())

	s.opts = fast()
	second, err := s.Start(context.Background(), []model.CommandEntry{{Text: "echo other"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"echo other"}, second.Wait())
}

func TestStopClearsPending(t *testing.T) {
	term := &fakeTerminal{}
	s := New(term, slow())

	b, err := s.Start(context.Background(), []model.CommandEntry{
		{Text: "one"}, {Text: "two"}, {Text: "three"},
	})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(term.Sent()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 3, b.Remaining())

	b.Stop()
	b.Stop()

	assert.False(t, b.Active())
	assert.Equal(t, 0, b.Remaining())
	assert.Equal(t, []string{"one"}, b.Dispatched())
	assert.Equal(t, []string{"one\n"}, term.Sent())
}

func TestStopDuringInjectDelay(t *testing.T) {
	term := &fakeTerminal{}
	s := New(term, slow())

	b, err := s.Start(context.Background(), []model.CommandEntry{
		{Text: "npx create-react-app x", IsInteractive: true, DefaultResponse: "y"},
	})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(term.Sent()) == 1 }, time.Second, time.Millisecond)

	b.Stop()
	assert.Equal(t, []string{"npx create-react-app x\n"}, term.Sent())
}

func TestContextCancelStopsBatch(t *testing.T) {
	term := &fakeTerminal{}
	s := New(term, slow())
	ctx, cancel := context.WithCancel(context.Background())

	b, err := s.Start(ctx, []model.CommandEntry{{Text: "a"}, {Text: "b"}})
	require.NoError(t, err)
	cancel()

	assert.Equal(t, []string{"a"}, b.Wait())
	assert.False(t, s.Active())
}

func TestEmptyBatch(t *testing.T) {
	s := New(&fakeTerminal{}, slow())

	b, err := s.Start(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, b.Active())
	assert.Empty(t, b.Wait())
	assert.False(t, s.Active())

	dispatched, err := s.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, dispatched)
}

func TestNewDefaults(t *testing.T) {
	s := New(&fakeTerminal{}, Options{})
	assert.Equal(t, DefaultSettleDelay, s.opts.SettleDelay)
	assert.Equal(t, DefaultInteractiveSettleDelay, s.opts.InteractiveSettleDelay)
	assert.Equal(t, DefaultInjectDelay, s.opts.InjectDelay)
}
