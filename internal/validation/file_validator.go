package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DatasetExtensions are the file extensions the loader can read
var DatasetExtensions = []string{".csv", ".txt", ".xlsx", ".xlsm"}

var (
	ErrNotFound      = errors.New("does not exist")
	ErrIsDirectory   = errors.New("is a directory")
	ErrEmptyFile     = errors.New("is empty")
	ErrUnsupported   = errors.New("has an unsupported extension")
	ErrTemporaryFile = errors.New("is a temporary office lock file")
	ErrNotWritable   = errors.New("is not writable")
	ErrNotADirectory = errors.New("is not a directory")
)

// FileValidator runs cheap filesystem checks ahead of a load or export so
// the failure names the path instead of surfacing halfway through a run
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{logger: logger}
}

// ValidateDataset checks that path is a readable, non-empty file with an
// extension the loader supports
func (v *FileValidator) ValidateDataset(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return v.fail("dataset", path, ErrNotFound)
	}
	if err != nil {
		return v.fail("dataset", path, err)
	}
	if info.IsDir() {
		return v.fail("dataset", path, ErrIsDirectory)
	}
	if info.Size() == 0 {
		return v.fail("dataset", path, ErrEmptyFile)
	}

	if strings.HasPrefix(filepath.Base(path), "~$") {
		return v.fail("dataset", path, ErrTemporaryFile)
	}
	if !SupportedDataset(path) {
		return v.fail("dataset", path, fmt.Errorf("%w (%q)", ErrUnsupported, filepath.Ext(path)))
	}

	file, err := os.Open(path)
	if err != nil {
		return v.fail("dataset", path, err)
	}
	file.Close()

	v.logger.Debug("Dataset validated",
		slog.String("path", path),
		slog.Int64("bytes", info.Size()))
	return nil
}

// ValidateOutputDirectory ensures dir exists, creating it when missing, and
// that a file can be created inside it
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		return v.fail("output directory", dir, ErrNotADirectory)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return v.fail("output directory", dir, err)
	}

	probe, err := os.CreateTemp(dir, ".write_test_*")
	if err != nil {
		return v.fail("output directory", dir, fmt.Errorf("%w: %v", ErrNotWritable, err))
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)

	v.logger.Debug("Output directory validated", slog.String("directory", dir))
	return nil
}

func (v *FileValidator) fail(kind, path string, err error) error {
	v.logger.Warn("Validation failed",
		slog.String("kind", kind),
		slog.String("path", path),
		slog.String("error", err.Error()))
	return fmt.Errorf("%s %s: %w", kind, path, err)
}

// SupportedDataset reports whether the extension of path is one the loader reads
func SupportedDataset(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range DatasetExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}
