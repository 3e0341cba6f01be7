// Package workspace applies a toolchain descriptor to a project directory.
//
// It resolves the descriptor's path overrides against the project root,
// creates the output directories the external runner writes to and exports
// the descriptor in a format the runner can read.
package workspace

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/isdmx/chainconf/descriptor"
)

// Layout holds absolute, cleaned project directories.
type Layout struct {
	Root      string
	Artifacts string
	Cache     string
	Sources   string
	Tests     string
}

// Workspace is a project root on a file system.
type Workspace struct {
	logger *zap.Logger
	fs     FileSystem
	root   string
}

// New creates a Workspace rooted at root.
func New(logger *zap.Logger, fs FileSystem, root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root %s: %w", root, err)
	}
	return &Workspace{logger: logger, fs: fs, root: abs}, nil
}

// Root returns the absolute project root.
func (w *Workspace) Root() string {
	return w.root
}

// Resolve maps paths onto the project root. Relative paths must stay inside
// the root; absolute paths are kept as declared.
func (w *Workspace) Resolve(paths descriptor.PathSet) (Layout, error) {
	layout := Layout{Root: w.root}
	targets := []struct {
		key string
		in  string
		out *string
	}{
		{"artifacts", paths.Artifacts, &layout.Artifacts},
		{"cache", paths.Cache, &layout.Cache},
		{"sources", paths.Sources, &layout.Sources},
		{"tests", paths.Tests, &layout.Tests},
	}
	for _, t := range targets {
		resolved, err := w.resolve(t.in)
		if err != nil {
			return Layout{}, fmt.Errorf("paths.%s: %w", t.key, err)
		}
		*t.out = resolved
	}
	return layout, nil
}

func (w *Workspace) resolve(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("empty path")
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	joined := filepath.Join(w.root, p)
	rel, err := filepath.Rel(w.root, joined)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s escapes project root", p)
	}
	return joined, nil
}

// Prepare creates the artifacts and cache directories and checks that the
// sources directory exists.
func (w *Workspace) Prepare(layout Layout) error {
	ok, err := w.fs.DirExists(layout.Sources)
	if err != nil {
		return fmt.Errorf("failed to stat sources directory: %w", err)
	}
	if !ok {
		return fmt.Errorf("sources directory %s does not exist", layout.Sources)
	}

	for _, dir := range []string{layout.Artifacts, layout.Cache} {
		if err := w.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	w.logger.Info("workspace prepared",
		zap.String("root", layout.Root),
		zap.String("artifacts", layout.Artifacts),
		zap.String("cache", layout.Cache))
	return nil
}

// Export writes desc into the project root under name, using the format
// implied by the file extension, and reads the file back to confirm the
// runner will see the same bytes. It returns the written path.
func (w *Workspace) Export(desc *descriptor.Descriptor, name string) (string, error) {
	format, err := descriptor.ParseFormat(filepath.Ext(name))
	if err != nil {
		return "", err
	}
	target, err := w.resolve(name)
	if err != nil {
		return "", err
	}

	data, err := desc.Marshal(format)
	if err != nil {
		return "", err
	}
	if err := w.fs.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", target, err)
	}
	written, err := w.fs.ReadFile(target)
	if err != nil {
		return "", fmt.Errorf("failed to read back %s: %w", target, err)
	}
	if !bytes.Equal(written, data) {
		return "", fmt.Errorf("exported file %s does not match the encoded descriptor", target)
	}

	w.logger.Info("descriptor exported", zap.String("path", target), zap.String("format", string(format)))
	return target, nil
}
