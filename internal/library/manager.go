package library

import (
	"fmt"
	"os"
	"path/filepath"
)

// Manager resolves paths under the single markdown library root.
type Manager struct {
	root string
}

// NewManager validates the library root and returns a manager for it.
func NewManager(root string) (*Manager, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve library root %s: %w", root, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("library root not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("library root is not a directory: %s", abs)
	}

	return &Manager{root: abs}, nil
}

// Root returns the absolute library root path.
func (m *Manager) Root() string {
	return m.root
}

// AbsPath returns the absolute path for a file given its library-relative path.
func (m *Manager) AbsPath(relPath string) string {
	return filepath.Join(m.root, filepath.FromSlash(relPath))
}
