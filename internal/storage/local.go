package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ppiankov/hdfhub/internal/models"
)

// RecordSuffix ends every stored record's file name
const RecordSuffix = ".hdf.json"

// LocalStorage implements Storage interface using local filesystem
type LocalStorage struct {
	baseDir string

	mu   sync.Mutex
	used map[string]bool
}

// NewLocal creates a new local storage instance
func NewLocal(baseDir string) *LocalStorage {
	return &LocalStorage{
		baseDir: baseDir,
		used:    make(map[string]bool),
	}
}

// SaveRecord writes conv's record as indented JSON. Inputs sharing a base
// name within one store are told apart by format, then by counter, so a run
// never overwrites its own output.
func (s *LocalStorage) SaveRecord(conv models.Conversion) (string, error) {
	if err := s.EnsureDirectoryExists(); err != nil {
		return "", err
	}

	path := filepath.Join(s.baseDir, s.recordName(conv))

	data, err := json.MarshalIndent(conv.Output, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal record: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return path, nil
}

// LoadRecord loads a stored record by file name
func (s *LocalStorage) LoadRecord(name string) (*models.ExecJSON, error) {
	return LoadFile(filepath.Join(s.baseDir, name))
}

// ListRecords returns stored record file names sorted by name
func (s *LocalStorage) ListRecords() ([]string, error) {
	// Check if directory exists
	if _, err := os.Stat(s.baseDir); os.IsNotExist(err) {
		return []string{}, nil
	}

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read record directory: %w", err)
	}

	names := []string{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), RecordSuffix) {
			continue
		}
		names = append(names, entry.Name())
	}

	sort.Strings(names)
	return names, nil
}

// LoadFile loads a record from any file path
func LoadFile(path string) (*models.ExecJSON, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("record not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var exec models.ExecJSON
	if err := json.Unmarshal(data, &exec); err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	return &exec, nil
}

// DecodeError reports a file that is not a JSON execution record
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: not an HDF record: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// recordName derives a file name for conv that this store has not handed out
func (s *LocalStorage) recordName(conv models.Conversion) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := filepath.Base(conv.Path)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	name := base + RecordSuffix
	if s.used[name] {
		name = base + "." + string(conv.Tool) + RecordSuffix
	}
	for n := 2; s.used[name]; n++ {
		name = fmt.Sprintf("%s.%s-%d%s", base, conv.Tool, n, RecordSuffix)
	}
	s.used[name] = true
	return name
}

// GetStoragePath returns the full path to the storage directory
func (s *LocalStorage) GetStoragePath() string {
	return s.baseDir
}

// EnsureDirectoryExists creates the storage directory if it doesn't exist
func (s *LocalStorage) EnsureDirectoryExists() error {
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return fmt.Errorf("failed to create record directory: %w", err)
	}
	return nil
}
