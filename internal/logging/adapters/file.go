package adapters

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"dealer-inventory/internal/logging/types"
)

// FileAdapter appends entries to a file, rotating it once it grows past MaxSize.
type FileAdapter struct {
	name        string
	config      FileConfig
	file        *os.File
	currentSize int64
	mu          sync.Mutex
}

// FileConfig represents configuration for the file adapter
type FileConfig struct {
	FilePath string `yaml:"file_path"`
	Format   string `yaml:"format"`   // json or text
	MaxSize  int64  `yaml:"max_size"` // bytes, 0 = no rotation
}

// NewFileAdapter creates a new file adapter
func NewFileAdapter(name string, config FileConfig) (*FileAdapter, error) {
	if config.FilePath == "" {
		return nil, fmt.Errorf("file_path is required for file adapter")
	}
	if config.Format == "" {
		config.Format = "json"
	}

	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	adapter := &FileAdapter{name: name, config: config}
	if err := adapter.open(); err != nil {
		return nil, err
	}
	return adapter, nil
}

func (a *FileAdapter) Write(entry *types.LogEntry) error {
	output, err := formatEntry(entry, a.config.Format, false)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return fmt.Errorf("log file %s is closed", a.config.FilePath)
	}

	if a.config.MaxSize > 0 && a.currentSize+int64(len(output)+1) > a.config.MaxSize {
		if err := a.rotate(); err != nil {
			return err
		}
	}

	n, err := fmt.Fprintln(a.file, output)
	a.currentSize += int64(n)
	return err
}

func (a *FileAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

func (a *FileAdapter) Name() string {
	return a.name
}

func (a *FileAdapter) open() error {
	file, err := os.OpenFile(a.config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	a.file = file
	a.currentSize = info.Size()
	return nil
}

// rotate renames the current file with a timestamp suffix and reopens. Caller holds mu.
func (a *FileAdapter) rotate() error {
	if err := a.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file for rotation: %w", err)
	}

	rotated := fmt.Sprintf("%s.%s", a.config.FilePath, time.Now().Format("20060102-150405.000"))
	if err := os.Rename(a.config.FilePath, rotated); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}

	return a.open()
}
