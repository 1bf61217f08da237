package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/tatianab/waystation/internal/logging"
	"github.com/tatianab/waystation/internal/models"
)

// ErrInvalidID is returned for session ids that cannot name a save.
var ErrInvalidID = errors.New("invalid session id")

// ValidID reports whether id can be used as a session id: non-blank and
// free of path separators.
func ValidID(id string) bool {
	if strings.TrimSpace(id) == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`)
}

// FileStore keeps one JSON document per session in a directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(id string) (string, error) {
	if !ValidID(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}

// Get loads a session. A missing or unreadable document is reported as
// absent so the caller starts over.
func (s *FileStore) Get(_ context.Context, id string) (*models.GameState, bool, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, false, err
	}
	st, err := models.ReadDocument(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		logging.Warn("discarding unreadable save", err, logging.Fields{"session": id, "path": path})
		return nil, false, nil
	}
	st.ID = id
	return st, true, nil
}

// Put replaces the session's document with the persisted form of st.
func (s *FileStore) Put(_ context.Context, id string, st *models.GameState) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	return models.WriteDocument(path, st)
}

func (s *FileStore) NewID() string {
	return uuid.NewString()
}
