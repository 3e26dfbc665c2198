package repository

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"intel-agent/models"
	apperrors "intel-agent/utils/errors"
)

// fileEventRepository persists events as a single JSON array on disk.
// A mutex serializes read-modify-write cycles within the process; the
// single-writer assumption across processes is a deployment concern.
type fileEventRepository struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewFileEventRepository creates an event repository backed by the JSON file
// at path. The file is created lazily on first write.
func NewFileEventRepository(path string, logger *slog.Logger) EventRepository {
	return &fileEventRepository{
		path:   path,
		logger: logger,
	}
}

func (r *fileEventRepository) GetAll(ctx context.Context) ([]models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.readLocked(ctx)
}

func (r *fileEventRepository) ReplaceAll(ctx context.Context, events []models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	deduped := models.DedupeByTitleURL(events)

	return r.writeLocked(ctx, deduped)
}

func (r *fileEventRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.writeLocked(ctx, []models.Event{})
}

func (r *fileEventRepository) readLocked(ctx context.Context) ([]models.Event, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.Event{}, nil
		}

		r.logger.ErrorContext(ctx, "event store unreadable", "path", r.path, "error", err)

		return nil, apperrors.StorageError("event store unreadable", err, map[string]interface{}{"path": r.path})
	}

	var events []models.Event
	if err := json.Unmarshal(data, &events); err != nil {
		// Corrupted store degrades to an empty list rather than blocking
		// every downstream operation.
		r.logger.WarnContext(ctx, "event store corrupted, treating as empty", "path", r.path, "error", err)

		return []models.Event{}, nil
	}

	if events == nil {
		return []models.Event{}, nil
	}

	return events, nil
}

// writeLocked persists events atomically: marshal to a temp file in the same
// directory, then rename over the store. Write failures propagate so callers
// can report that the save did not happen.
func (r *fileEventRepository) writeLocked(ctx context.Context, events []models.Event) error {
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return apperrors.StorageError("failed to encode events", err, map[string]interface{}{"count": len(events)})
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.StorageError("failed to create store directory", err, map[string]interface{}{"dir": dir})
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".tmp-*")
	if err != nil {
		return apperrors.StorageError("failed to create temp store file", err, map[string]interface{}{"dir": dir})
	}

	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)

		return apperrors.StorageError("failed to write events", err, map[string]interface{}{"path": tmpPath})
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)

		return apperrors.StorageError("failed to flush events", err, map[string]interface{}{"path": tmpPath})
	}

	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)

		return apperrors.StorageError("failed to commit events", err, map[string]interface{}{"path": r.path})
	}

	r.logger.DebugContext(ctx, "event store written", "path", r.path, "count", len(events))

	return nil
}
