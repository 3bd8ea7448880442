package state

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// PageState is what was pulled for a single page
type PageState struct {
	Path        string    `json:"path"`
	Title       string    `json:"title"`
	Version     int       `json:"version"`
	MTime       int64     `json:"mtime"`
	FileHash    string    `json:"file_hash"`
	StorageHash string    `json:"storage_hash"`
	TextHash    string    `json:"text_hash"`
	PulledAt    time.Time `json:"pulled_at"`
}

// State represents the sync state, keyed by page id
type State struct {
	Pages map[string]*PageState `json:"pages"`
}

// NewState creates a new empty state
func NewState() *State {
	return &State{
		Pages: make(map[string]*PageState),
	}
}

// Load reads state from the state file
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}

	if state.Pages == nil {
		state.Pages = make(map[string]*PageState)
	}

	return &state, nil
}

// Save writes state to the state file
func (s *State) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	return nil
}

// ComputeHash computes the SHA256 hash of content
func ComputeHash(content string) string {
	return fmt.Sprintf("sha256:%x", sha256.Sum256([]byte(content)))
}

// HashFile computes the SHA256 hash of a file
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("sha256:%x", h.Sum(nil)), nil
}

// Record stores the state of a freshly pulled page file
func (s *State) Record(pageID string, page *PageState) error {
	info, err := os.Stat(page.Path)
	if err != nil {
		return err
	}

	hash, err := HashFile(page.Path)
	if err != nil {
		return err
	}

	page.MTime = info.ModTime().Unix()
	page.FileHash = hash
	s.Pages[pageID] = page
	return nil
}

// Get returns the state of a page, or nil
func (s *State) Get(pageID string) *PageState {
	return s.Pages[pageID]
}

// FindByPath returns the id and state of the page pulled to path
func (s *State) FindByPath(path string) (string, *PageState) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	for id, p := range s.Pages {
		if p.Path == abs || p.Path == path {
			return id, p
		}
	}
	return "", nil
}

// HasChanged checks if a page file has changed since it was pulled.
// Uses hybrid mtime + hash approach.
func (s *State) HasChanged(pageID string) (bool, error) {
	page, exists := s.Pages[pageID]
	if !exists {
		return true, nil
	}

	info, err := os.Stat(page.Path)
	if err != nil {
		return false, err
	}

	// Fast path: check mtime first
	if info.ModTime().Unix() == page.MTime {
		return false, nil
	}

	hash, err := HashFile(page.Path)
	if err != nil {
		return false, err
	}

	return hash != page.FileHash, nil
}

// PageIDs returns the ids of all tracked pages, sorted
func (s *State) PageIDs() []string {
	ids := make([]string, 0, len(s.Pages))
	for id := range s.Pages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
