package poller

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Keys kept in the client state file.
const (
	KeySessionID  = "chat_session_id"
	KeyUserName   = "chat_user_name"
	KeyAdminToken = "admin_token"
)

// State is the small per-device key-value store the clients persist to.
type State interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

type stateEntry struct {
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

type stateFile struct {
	Entries map[string]stateEntry `json:"entries"`
}

// FileState is a State backed by a JSON file, rewritten atomically on
// every change.
type FileState struct {
	path string
	mu   sync.Mutex
}

func NewFileState(path string) *FileState {
	return &FileState{path: path}
}

func (s *FileState) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return "", false, err
	}
	e, ok := file.Entries[key]
	return e.Value, ok, nil
}

func (s *FileState) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return err
	}
	file.Entries[key] = stateEntry{Value: value, UpdatedAt: time.Now().UTC()}
	return s.save(file)
}

// Delete removes key. Missing keys are not an error.
func (s *FileState) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := file.Entries[key]; !ok {
		return nil
	}
	delete(file.Entries, key)
	return s.save(file)
}

// load returns an empty file when nothing is on disk yet.
func (s *FileState) load() (stateFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return stateFile{Entries: make(map[string]stateEntry)}, nil
		}
		return stateFile{}, err
	}
	if len(data) == 0 {
		return stateFile{Entries: make(map[string]stateEntry)}, nil
	}

	var file stateFile
	if err := json.Unmarshal(data, &file); err != nil {
		return stateFile{}, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if file.Entries == nil {
		file.Entries = make(map[string]stateEntry)
	}
	return file, nil
}

func (s *FileState) save(file stateFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
