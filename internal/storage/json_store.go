package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// JSONStore persists the documents of a MemoryStore to a single JSON file so
// a local emulator keeps its data across restarts.
type JSONStore struct {
	mu       sync.Mutex
	filePath string
}

type jsonDocument struct {
	Path string         `json:"path"`
	Data map[string]any `json:"data"`
}

type jsonFile struct {
	Documents []jsonDocument `json:"documents"`
}

// NewJSONStore creates a JSON store at dataDir/filename.
func NewJSONStore(dataDir, filename string) (*JSONStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}

	return &JSONStore{
		filePath: filepath.Join(dataDir, filename),
	}, nil
}

// Path returns the file backing the store.
func (s *JSONStore) Path() string {
	return s.filePath
}

// Load reads every persisted document. A missing file yields no documents.
func (s *JSONStore) Load() (map[string]map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := make(map[string]map[string]any)

	file, err := os.Open(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return docs, nil
		}
		return nil, err
	}
	defer file.Close()

	var contents jsonFile
	if err := json.NewDecoder(file).Decode(&contents); err != nil {
		return nil, err
	}
	for _, d := range contents.Documents {
		if d.Data == nil {
			d.Data = map[string]any{}
		}
		docs[d.Path] = d.Data
	}
	return docs, nil
}

// Save writes the documents, replacing the previous file atomically.
func (s *JSONStore) Save(docs map[string]map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents := jsonFile{Documents: make([]jsonDocument, 0, len(docs))}
	for path, data := range docs {
		contents.Documents = append(contents.Documents, jsonDocument{Path: path, Data: data})
	}
	sort.Slice(contents.Documents, func(i, j int) bool {
		return contents.Documents[i].Path < contents.Documents[j].Path
	})

	tempFile := s.filePath + ".tmp"
	file, err := os.Create(tempFile)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(contents); err != nil {
		file.Close()
		os.Remove(tempFile)
		return err
	}

	if err := file.Close(); err != nil {
		os.Remove(tempFile)
		return err
	}

	return os.Rename(tempFile, s.filePath)
}
