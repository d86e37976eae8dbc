package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Recognized source image extensions (lowercase, with leading dot).
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// Fatal discovery errors. Everything else in the pipeline is per-image and
// non-fatal.
var (
	ErrPathInvalid = errors.New("invalid source path")
	ErrNoImages    = errors.New("no image files found")
)

// FileEntry is one discovered source image: its path plus the derived id
// (base name without extension).
type FileEntry struct {
	Path string
	ID   string

	numeric   int64
	isNumeric bool
}

// ValidateSourcePath rejects empty paths, traversal sequences, and paths
// that are not existing directories, before any work starts.
func ValidateSourcePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: empty path", ErrPathInvalid)
	}
	if strings.Contains(path, "..") {
		return fmt.Errorf("%w: traversal sequence in %q", ErrPathInvalid, path)
	}
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPathInvalid, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("%w: %q is not a directory", ErrPathInvalid, path)
	}
	return nil
}

// Discover lists inputDir (non-recursive), filters to recognized image
// extensions, and sorts by the numeric value of each base name so "2" comes
// before "10". Non-numeric names sort after all numeric ones, lexically.
func Discover(inputDir string) ([]FileEntry, error) {
	dirents, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, err
	}

	var files []FileEntry
	for _, d := range dirents {
		if d.IsDir() {
			continue
		}
		name := d.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !imageExtensions[ext] {
			continue
		}
		id := strings.TrimSuffix(name, filepath.Ext(name))
		e := FileEntry{Path: filepath.Join(inputDir, name), ID: id}
		if n, err := strconv.ParseInt(id, 10, 64); err == nil {
			e.numeric = n
			e.isNumeric = true
		}
		files = append(files, e)
	}

	sort.Slice(files, func(i, j int) bool {
		a, b := files[i], files[j]
		switch {
		case a.isNumeric && b.isNumeric:
			return a.numeric < b.numeric
		case a.isNumeric:
			return true
		case b.isNumeric:
			return false
		default:
			return a.ID < b.ID
		}
	})
	return files, nil
}
