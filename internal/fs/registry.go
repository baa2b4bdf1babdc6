package fs

import (
	iofs "io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/sokinpui/directive/model"
)

// Registry is the set of files the model was shown, keyed by full path.
// It is built before a turn is processed and only read afterwards.
type Registry struct {
	files []model.KnownFile
	index map[string]int
}

// NewRegistry creates a registry holding the given files, deduplicated by path.
func NewRegistry(files ...model.KnownFile) *Registry {
	r := &Registry{index: make(map[string]int)}
	for _, f := range files {
		r.Add(f.DisplayName, f.FullPath)
	}
	return r
}

// Add inserts a file. A path that is already present keeps its first display name.
func (r *Registry) Add(displayName, fullPath string) bool {
	if fullPath == "" {
		return false
	}
	key := filepath.Clean(fullPath)
	if _, ok := r.index[key]; ok {
		return false
	}
	if displayName == "" {
		displayName = filepath.Base(key)
	}
	r.index[key] = len(r.files)
	r.files = append(r.files, model.KnownFile{DisplayName: displayName, FullPath: key})
	return true
}

// Files returns the registry entries in insertion order.
func (r *Registry) Files() []model.KnownFile {
	out := make([]model.KnownFile, len(r.files))
	copy(out, r.files)
	return out
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	return len(r.files)
}

// Lookup finds the entry a model-stated path refers to. Precedence:
// display name equals the last path segment, then display name equals the
// whole stated path, then full path ends with the stated path.
func (r *Registry) Lookup(stated string) (model.KnownFile, bool) {
	stated = strings.TrimPrefix(filepath.ToSlash(strings.TrimSpace(stated)), "./")
	if stated == "" || r == nil {
		return model.KnownFile{}, false
	}
	base := path.Base(stated)

	for _, f := range r.files {
		if f.DisplayName == base {
			return f, true
		}
	}
	for _, f := range r.files {
		if f.DisplayName == stated {
			return f, true
		}
	}
	for _, f := range r.files {
		if hasPathSuffix(filepath.ToSlash(f.FullPath), stated) {
			return f, true
		}
	}
	return model.KnownFile{}, false
}

// hasPathSuffix reports whether full ends with suffix on a segment boundary.
func hasPathSuffix(full, suffix string) bool {
	if full == suffix {
		return true
	}
	return strings.HasSuffix(full, "/"+suffix)
}

// skippedDirs are never descended into when collecting context.
var skippedDirs = map[string]struct{}{
	".git":         {},
	".directive":   {},
	"node_modules": {},
	"vendor":       {},
}

// CollectRegistry builds a registry from user-picked files and directories.
// Directories are walked recursively up to maxFiles entries (0 means no limit).
// A picked file is named by its base name; a walked file by its slash path
// relative to the picked directory, so "src/utils/index.ts" and "a/index.ts"
// stay distinguishable.
func CollectRegistry(paths []string, maxFiles int) (*Registry, error) {
	r := NewRegistry()
	full := func() bool { return maxFiles > 0 && r.Len() >= maxFiles }

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		err = filepath.WalkDir(abs, func(current string, d iofs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if full() {
				return filepath.SkipAll
			}
			if d.IsDir() {
				if _, skip := skippedDirs[d.Name()]; skip && current != abs {
					return filepath.SkipDir
				}
				return nil
			}
			r.Add(displayName(abs, current), current)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

func displayName(picked, current string) string {
	rel, err := filepath.Rel(picked, current)
	if err != nil || rel == "." {
		return filepath.Base(current)
	}
	return filepath.ToSlash(rel)
}
