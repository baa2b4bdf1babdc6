package state

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sokinpui/directive/internal/executor"
	"github.com/sokinpui/directive/internal/fs"
	"github.com/sokinpui/directive/model"
)

const (
	DirName       = ".directive"
	stateFileName = "state"
	objectsDir    = "objects"
	// noHash marks a side of an operation where the file did not exist.
	noHash = "-"
)

var (
	ErrNothingToUndo = errors.New("no operation to undo")
	ErrNothingToRedo = errors.New("no operation to redo")
	// ErrConflict means the file changed since the journal recorded it.
	ErrConflict = errors.New("file changed since it was recorded")
)

// Operation is one journaled file change. A hash is empty when the file did
// not exist on that side of the change.
type Operation struct {
	Action     string
	Path       string
	BeforeHash string
	AfterHash  string
}

// HistoryEntry is every change applied by one processed turn.
type HistoryEntry struct {
	Timestamp  int64
	Operations []Operation
}

// State is the whole journal.
type State struct {
	History      []HistoryEntry
	CurrentIndex int
}

// Manager keeps the undo/redo journal under <root>/.directive.
type Manager struct {
	statePath  string
	objectsDir string
	StateDir   string
	root       string
	state      *State
	ws         fs.Workspace
	log        *zap.Logger
}

// New loads (or starts) the journal for the project at root.
func New(root string, log *zap.Logger) (*Manager, error) {
	if root == "" {
		return nil, fs.ErrNoProjectRoot
	}
	if log == nil {
		log = zap.NewNop()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	stateDir := filepath.Join(abs, DirName)
	objects := filepath.Join(stateDir, objectsDir)
	if err := os.MkdirAll(objects, 0o755); err != nil {
		return nil, fmt.Errorf("could not create state directory: %w", err)
	}
	m := &Manager{
		statePath:  filepath.Join(stateDir, stateFileName),
		objectsDir: objects,
		StateDir:   stateDir,
		root:       abs,
		ws:         fs.OSWorkspace{},
		log:        log,
	}
	if err := m.load(); err != nil {
		log.Warn("state file unreadable, starting a new journal", zap.Error(err))
		m.state = &State{CurrentIndex: -1}
	}
	return m, nil
}

// State returns a copy of the journal.
func (m *Manager) State() State {
	s := State{CurrentIndex: m.state.CurrentIndex}
	s.History = append(s.History, m.state.History...)
	return s
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.statePath)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			m.state = &State{CurrentIndex: -1}
			return nil
		}
		return err
	}

	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	blocks := strings.Split(content, "\n\n")
	if len(blocks) == 0 || strings.TrimSpace(blocks[0]) == "" {
		m.state = &State{CurrentIndex: -1}
		return nil
	}

	index, err := strconv.Atoi(strings.TrimSpace(blocks[0]))
	if err != nil {
		return fmt.Errorf("invalid state file: could not parse current index: %w", err)
	}
	st := &State{CurrentIndex: index}

	for _, block := range blocks[1:] {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		ts, err := strconv.ParseInt(lines[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid state file: could not parse timestamp from '%s': %w", lines[0], err)
		}
		entry := HistoryEntry{Timestamp: ts}
		opLines := lines[1:]
		if len(opLines)%4 != 0 {
			return fmt.Errorf("invalid state file: incomplete operation record")
		}
		for i := 0; i < len(opLines); i += 4 {
			entry.Operations = append(entry.Operations, Operation{
				Action:     opLines[i],
				Path:       opLines[i+1],
				BeforeHash: fromField(opLines[i+2]),
				AfterHash:  fromField(opLines[i+3]),
			})
		}
		st.History = append(st.History, entry)
	}
	if st.CurrentIndex >= len(st.History) || st.CurrentIndex < -1 {
		return fmt.Errorf("invalid state file: index %d out of range", st.CurrentIndex)
	}
	m.state = st
	return nil
}

func (m *Manager) save() error {
	blocks := []string{strconv.Itoa(m.state.CurrentIndex)}
	for _, entry := range m.state.History {
		lines := []string{strconv.FormatInt(entry.Timestamp, 10)}
		for _, op := range entry.Operations {
			lines = append(lines, op.Action, op.Path, toField(op.BeforeHash), toField(op.AfterHash))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return m.ws.WriteFile(m.statePath, []byte(strings.Join(blocks, "\n\n")+"\n"))
}

func toField(hash string) string {
	if hash == "" {
		return noHash
	}
	return hash
}

func fromField(field string) string {
	field = strings.TrimSpace(field)
	if field == noHash {
		return ""
	}
	return field
}

// Write journals the changes of one batch and drops any redo tail.
func (m *Manager) Write(applied []executor.Applied) error {
	if len(applied) == 0 {
		return nil
	}

	ops := make([]Operation, 0, len(applied))
	for _, a := range applied {
		op := Operation{Action: a.Kind.String(), Path: a.Path}
		if a.Existed {
			hash, err := m.storeBlob(a.Before)
			if err != nil {
				return err
			}
			op.BeforeHash = hash
		}
		if a.Kind != model.Delete {
			hash, err := m.storeBlob(a.After)
			if err != nil {
				return err
			}
			op.AfterHash = hash
		}
		ops = append(ops, op)
	}

	if m.state.CurrentIndex < len(m.state.History)-1 {
		m.state.History = m.state.History[:m.state.CurrentIndex+1]
	}
	m.state.History = append(m.state.History, HistoryEntry{
		Timestamp:  time.Now().UTC().Unix(),
		Operations: ops,
	})
	m.state.CurrentIndex++
	return m.save()
}

func (m *Manager) storeBlob(data []byte) (string, error) {
	hash := fs.SHA256(data)
	path := filepath.Join(m.objectsDir, hash)
	if ok, _ := m.ws.Exists(path); ok {
		return hash, nil
	}
	if err := m.ws.WriteFile(path, data); err != nil {
		return "", fmt.Errorf("failed to store object %s: %w", hash, err)
	}
	return hash, nil
}

// Undo reverts the most recent batch, newest change first.
func (m *Manager) Undo() (model.Summary, error) {
	if m.state.CurrentIndex < 0 {
		return model.Summary{Message: "No operation to undo."}, ErrNothingToUndo
	}
	ops := m.state.History[m.state.CurrentIndex].Operations

	var s model.Summary
	for i := len(ops) - 1; i >= 0; i-- {
		op := ops[i]
		if err := m.move(op.Path, op.AfterHash, op.BeforeHash); err != nil {
			m.log.Warn("undo failed", zap.String("path", op.Path), zap.Error(err))
			s.Failed = append(s.Failed, op.Path)
			continue
		}
		record(&s, op.Path, op.AfterHash, op.BeforeHash)
	}

	m.state.CurrentIndex--
	s.Message = "Undid last operation."
	return s, m.save()
}

// Redo re-applies the batch after the current position.
func (m *Manager) Redo() (model.Summary, error) {
	next := m.state.CurrentIndex + 1
	if next >= len(m.state.History) {
		return model.Summary{Message: "No operation to redo."}, ErrNothingToRedo
	}
	ops := m.state.History[next].Operations

	var s model.Summary
	for _, op := range ops {
		if err := m.move(op.Path, op.BeforeHash, op.AfterHash); err != nil {
			m.log.Warn("redo failed", zap.String("path", op.Path), zap.Error(err))
			s.Failed = append(s.Failed, op.Path)
			continue
		}
		record(&s, op.Path, op.BeforeHash, op.AfterHash)
	}

	m.state.CurrentIndex = next
	s.Message = "Redid last undone operation."
	return s, m.save()
}

// move takes path from content hash `from` to content hash `to`, refusing
// when the file on disk no longer matches `from`.
func (m *Manager) move(path, from, to string) error {
	current, err := fs.GetFileSHA256(path)
	if errors.Is(err, iofs.ErrNotExist) {
		current = ""
	} else if err != nil {
		return err
	}
	if current != from {
		return fmt.Errorf("%s: %w", path, ErrConflict)
	}

	if to == "" {
		if err := m.ws.Remove(path); err != nil {
			return err
		}
		m.pruneEmptyParent(path)
		return nil
	}

	data, err := os.ReadFile(filepath.Join(m.objectsDir, to))
	if err != nil {
		return fmt.Errorf("missing object %s: %w", to, err)
	}
	if err := m.ws.MkdirAll(filepath.Dir(path)); err != nil {
		return err
	}
	return m.ws.WriteFile(path, data)
}

func (m *Manager) pruneEmptyParent(path string) {
	parent := filepath.Dir(path)
	if parent == m.root || !strings.HasPrefix(parent, m.root+string(filepath.Separator)) {
		return
	}
	if empty, _ := fs.IsEmpty(parent); empty {
		_ = os.Remove(parent)
	}
}

func record(s *model.Summary, path, from, to string) {
	switch {
	case from == "":
		s.Created = append(s.Created, path)
	case to == "":
		s.Deleted = append(s.Deleted, path)
	default:
		s.Modified = append(s.Modified, path)
	}
}
