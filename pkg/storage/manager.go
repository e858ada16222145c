package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"xhscrawler/pkg/config"
	"xhscrawler/pkg/models"
)

const (
	nicknameLimit = 20
	titleLimit    = 40
)

// Manager owns the media and export roots. Both are resolved to absolute
// paths and created once, when the manager is built.
type Manager struct {
	mediaDir string
	excelDir string
}

// NewManager resolves baseDir (a leading ~ is expanded) and creates the
// media and export directories beneath it
func NewManager(baseDir, mediaSubdir, excelSubdir string) (*Manager, error) {
	root, err := config.ExpandPath(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	m := &Manager{
		mediaDir: filepath.Join(root, mediaSubdir),
		excelDir: filepath.Join(root, excelSubdir),
	}
	for _, dir := range []string{m.mediaDir, m.excelDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return m, nil
}

// MediaDir returns the media root
func (m *Manager) MediaDir() string {
	return m.mediaDir
}

// ExcelDir returns the export root
func (m *Manager) ExcelDir() string {
	return m.excelDir
}

// NoteDir returns {media}/{nickname}_{user_id}/{title}_{note_id}
func (m *Manager) NoteDir(note models.Note) string {
	title := truncateRunes(NormName(note.Title), titleLimit)
	if title == "" {
		title = models.UntitledPlaceholder
	}
	nickname := truncateRunes(NormName(note.Nickname), nicknameLimit)

	return filepath.Join(m.mediaDir, nickname+"_"+note.UserID, title+"_"+note.NoteID)
}

// UserDir returns {media}/{nickname}_{user_id}
func (m *Manager) UserDir(user models.User) string {
	nickname := truncateRunes(NormName(user.Nickname), nicknameLimit)
	return filepath.Join(m.mediaDir, nickname+"_"+user.UserID)
}

// WriteAtomic writes through a temporary file in the target directory and
// renames it into place, so readers never see a partial file
func WriteAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	out, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempFile := out.Name()

	err = write(out)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return err
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

// writeFile stores data at path atomically
func writeFile(path string, data []byte) error {
	return WriteAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
