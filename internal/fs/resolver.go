package fs

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sokinpui/directive/model"
)

var (
	ErrNotInContext  = errors.New("not found in context")
	ErrNoProjectRoot = errors.New("no project root")
	ErrOutsideRoot   = errors.New("path is outside the project root")
)

// Rejection explains why an operation could not be bound to a target.
type Rejection struct {
	Op  model.Operation
	Err error
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s: %v", r.Op.DirectiveLabel, r.Op.StatedPath, r.Err)
}

func (r *Rejection) Unwrap() error {
	return r.Err
}

// PathResolver binds parsed operations to filesystem targets.
type PathResolver struct {
	registry *Registry
	root     string
}

// NewPathResolver creates a resolver. An empty root means no project root is known.
func NewPathResolver(registry *Registry, projectRoot string) *PathResolver {
	root := ""
	if projectRoot != "" {
		if abs, err := filepath.Abs(projectRoot); err == nil {
			root = abs
		} else {
			root = filepath.Clean(projectRoot)
		}
	}
	if registry == nil {
		registry = NewRegistry()
	}
	return &PathResolver{registry: registry, root: root}
}

// Root returns the resolved project root, or "" when there is none.
func (r *PathResolver) Root() string {
	return r.root
}

// Resolve binds one operation. Modify must name a file from the registry and
// never falls back to a guessed path. Create and Delete are joined onto the
// project root.
func (r *PathResolver) Resolve(op model.Operation) (model.Operation, error) {
	switch op.Kind {
	case model.Modify:
		known, ok := r.registry.Lookup(op.StatedPath)
		if !ok {
			return op, &Rejection{Op: op, Err: ErrNotInContext}
		}
		op.ResolvedPath = known.FullPath
		return op, nil
	case model.Create, model.Delete:
		target, err := r.underRoot(op.StatedPath)
		if err != nil {
			return op, &Rejection{Op: op, Err: err}
		}
		op.ResolvedPath = target
		return op, nil
	default:
		return op, &Rejection{Op: op, Err: fmt.Errorf("unknown operation kind %d", op.Kind)}
	}
}

// ResolveAll binds every operation, keeping parse order among the bound ones.
func (r *PathResolver) ResolveAll(ops []model.Operation) ([]model.Operation, []*Rejection) {
	bound := make([]model.Operation, 0, len(ops))
	var rejected []*Rejection
	for _, op := range ops {
		resolved, err := r.Resolve(op)
		if err != nil {
			var rej *Rejection
			if errors.As(err, &rej) {
				rejected = append(rejected, rej)
			}
			continue
		}
		bound = append(bound, resolved)
	}
	return bound, rejected
}

func (r *PathResolver) underRoot(stated string) (string, error) {
	if r.root == "" {
		return "", ErrNoProjectRoot
	}
	if filepath.IsAbs(stated) {
		return "", ErrOutsideRoot
	}
	target := filepath.Join(r.root, filepath.FromSlash(stated))
	rel, err := filepath.Rel(r.root, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return target, nil
}
