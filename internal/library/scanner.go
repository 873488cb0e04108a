package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ScannedFile represents a markdown file found during a library scan.
type ScannedFile struct {
	RelPath string // Relative path from the library root (e.g., "projects/notes.md")
	Folder  string // Folder path (path components except filename, e.g., "projects")
	AbsPath string // Absolute file path
}

// Scan walks the library root and returns all markdown files. Hidden
// directories (dot-prefixed, including editor and Obsidian config dirs) are
// skipped entirely.
func (m *Manager) Scan(ctx context.Context) ([]ScannedFile, error) {
	var scanned []ScannedFile

	err := filepath.Walk(m.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("failed to access path %s: %w", path, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") && path != m.root {
				return filepath.SkipDir
			}
			return nil
		}

		if filepath.Ext(path) != ".md" {
			return nil
		}

		relPath, err := filepath.Rel(m.root, path)
		if err != nil {
			return fmt.Errorf("failed to compute relative path for %s: %w", path, err)
		}
		relPath = filepath.ToSlash(relPath)

		folder := filepath.Dir(relPath)
		if folder == "." || folder == "" {
			folder = ""
		} else {
			folder = filepath.ToSlash(folder)
		}

		scanned = append(scanned, ScannedFile{
			RelPath: relPath,
			Folder:  folder,
			AbsPath: path,
		})
		return nil
	})
	if err != nil {
		return scanned, fmt.Errorf("failed to scan library: %w", err)
	}

	return scanned, nil
}
