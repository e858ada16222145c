package record

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"xhscrawler/pkg/logger"
)

// FileName is the record file inside the work directory
const FileName = "download_record.json"

const version = 1

// Entry is one downloaded note
type Entry struct {
	DownloadedAt time.Time `json:"downloaded_at"`
	// Data is the extracted detail, kept when data recording is on
	Data map[string]any `json:"data,omitempty"`
}

// Record is the on-disk download record
type Record struct {
	Notes     map[string]Entry `json:"notes"`
	UpdatedAt time.Time        `json:"updated_at"`
	Version   int              `json:"version"`
}

// Manager guards one record file. Every change is saved immediately.
type Manager struct {
	path   string
	mu     sync.Mutex
	record *Record
	now    func() time.Time
	logger logger.Logger
}

// NewManager opens or creates the record in dir
func NewManager(dir string, log logger.Logger) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create record directory: %w", err)
	}
	if log == nil {
		log = logger.GetLogger()
	}

	m := &Manager{
		path:   filepath.Join(dir, FileName),
		now:    time.Now,
		logger: log,
	}
	rec, err := m.load()
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = &Record{Notes: map[string]Entry{}, Version: version}
	}
	m.record = rec
	return m, nil
}

// Path returns the record file path
func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) load() (*Record, error) {
	file, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open download record: %w", err)
	}
	defer file.Close()

	var rec Record
	if err := json.NewDecoder(file).Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode download record: %w", err)
	}
	if rec.Notes == nil {
		rec.Notes = map[string]Entry{}
	}

	m.logger.DebugWithFields("download record loaded", map[string]interface{}{
		"path":  m.path,
		"notes": len(rec.Notes),
	})
	return &rec, nil
}

// save writes the record to disk atomically. Callers hold mu.
func (m *Manager) save() error {
	m.record.UpdatedAt = m.now()

	tempPath := m.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary record file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(m.record); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode download record: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync record file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close record file: %w", err)
	}

	if err := os.Rename(tempPath, m.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace record file: %w", err)
	}
	return nil
}

// Has reports whether noteID was recorded
func (m *Manager) Has(noteID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.record.Notes[noteID]
	return ok
}

// Add records noteID. data may be nil.
func (m *Manager) Add(noteID string, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record.Notes[noteID] = Entry{DownloadedAt: m.now(), Data: data}
	if err := m.save(); err != nil {
		return err
	}
	m.logger.DebugWithFields("note recorded", map[string]interface{}{"note_id": noteID})
	return nil
}

// Delete forgets noteID
func (m *Manager) Delete(noteID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.record.Notes[noteID]; !ok {
		return nil
	}
	delete(m.record.Notes, noteID)
	return m.save()
}

// IDs returns the recorded note ids, sorted
func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.record.Notes))
	for id := range m.record.Notes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Get returns the entry stored for noteID
func (m *Manager) Get(noteID string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.record.Notes[noteID]
	return e, ok
}
