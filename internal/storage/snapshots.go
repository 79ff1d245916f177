package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/domain/alpr"
)

// SnapshotStore writes detection images under a date-partitioned directory
// tree and returns paths relative to the storage root:
// YYYY/MM/DD/{camera}_{PLATE}_{HHMMSS}.jpg
type SnapshotStore struct {
	root string
	log  zerolog.Logger
}

func NewSnapshotStore(root string, log zerolog.Logger) (*SnapshotStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create image storage root: %w", err)
	}
	return &SnapshotStore{root: root, log: log}, nil
}

func (s *SnapshotStore) Save(frame *alpr.Frame, cameraKey, plate string, ts time.Time) (string, error) {
	datePath := ts.Format("2006/01/02")
	dir := filepath.Join(s.root, datePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot directory: %w", err)
	}

	filename := fmt.Sprintf("%s_%s_%s.jpg", cameraKey, plate, ts.Format("150405"))
	if err := os.WriteFile(filepath.Join(dir, filename), frame.Data, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	rel := filepath.ToSlash(filepath.Join(datePath, filename))
	s.log.Debug().Str("path", rel).Msg("snapshot saved")
	return rel, nil
}
