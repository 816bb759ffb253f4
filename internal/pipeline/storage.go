package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/renameio"
	"github.com/segmentio/ksuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/kozaktomas/backdrop/internal/constants"
)

// Storage owns the on-disk layout: the output directory with the two fixed
// result files and the directory for kept uploads.
type Storage struct {
	outputDir     string
	originalsDir  string
	keepOriginals bool
}

func NewStorage(outputDir, originalsDir string, keepOriginals bool) *Storage {
	return &Storage{
		outputDir:     outputDir,
		originalsDir:  originalsDir,
		keepOriginals: keepOriginals,
	}
}

// EnsureDirs creates the output and originals directories if they are missing.
func (s *Storage) EnsureDirs() error {
	for _, dir := range []string{s.outputDir, s.originalsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func (s *Storage) OutputDir() string {
	return s.outputDir
}

func (s *Storage) ProcessedPath() string {
	return filepath.Join(s.outputDir, constants.ProcessedFileName)
}

func (s *Storage) FinalPath() string {
	return filepath.Join(s.outputDir, constants.FinalFileName)
}

// OutputPath resolves one of the two result file names. Any other name is
// rejected so callers cannot reach outside the output directory.
func (s *Storage) OutputPath(name string) (string, error) {
	switch name {
	case constants.ProcessedFileName:
		return s.ProcessedPath(), nil
	case constants.FinalFileName:
		return s.FinalPath(), nil
	default:
		return "", fmt.Errorf("unknown output %q", name)
	}
}

// WriteProcessed replaces the processed image atomically.
func (s *Storage) WriteProcessed(data []byte) error {
	return writeAtomic(s.ProcessedPath(), data)
}

// WriteFinal replaces the final composite atomically.
func (s *Storage) WriteFinal(data []byte) error {
	return writeAtomic(s.FinalPath(), data)
}

func writeAtomic(path string, data []byte) error {
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// KeepOriginal archives an uploaded subject as <ksuid>_<name> when keeping
// originals is enabled. It returns the written path, or "" when disabled.
func (s *Storage) KeepOriginal(name string, data []byte) (string, error) {
	if !s.keepOriginals || s.originalsDir == "" {
		return "", nil
	}

	path := filepath.Join(s.originalsDir, ksuid.New().String()+"_"+sanitizeName(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to keep original: %w", err)
	}
	return path, nil
}

// PruneOriginals removes kept uploads older than maxAge. The age comes from
// the ksuid prefix; files without one fall back to their modification time.
func (s *Storage) PruneOriginals(maxAge time.Duration, now time.Time) (int, error) {
	if s.originalsDir == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(s.originalsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to list originals: %w", err)
	}

	cutoff := now.Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		created, ok := originalCreatedAt(e)
		if !ok || !created.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.originalsDir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("failed to remove %s: %w", e.Name(), err)
		}
		removed++
	}
	return removed, nil
}

func originalCreatedAt(e os.DirEntry) (time.Time, bool) {
	if prefix, _, found := strings.Cut(e.Name(), "_"); found {
		if id, err := ksuid.Parse(prefix); err == nil {
			return id.Time(), true
		}
	}
	info, err := e.Info()
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// foldDiacritics turns "č" into "c" so accented upload names stay readable.
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

// sanitizeName keeps only the base name and replaces characters that are
// awkward in file names.
func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, foldDiacritics(name))
}
