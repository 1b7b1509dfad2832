package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cartsync/internal/domain"

	"github.com/goccy/go-json"
)

// SnapshotRepository persists one JSON document per session under a
// directory. This is the default durable store for single-node deployments.
type SnapshotRepository struct {
	dir string
}

func NewSnapshotRepository(dir string) (*SnapshotRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &SnapshotRepository{dir: dir}, nil
}

// path validates the session key before it touches the filesystem. Keys are
// opaque tokens, never paths.
func (r *SnapshotRepository) path(sessionKey string) (string, error) {
	if sessionKey == "" || strings.ContainsAny(sessionKey, `/\`) || strings.Contains(sessionKey, "..") {
		return "", fmt.Errorf("invalid session key %q", sessionKey)
	}
	return filepath.Join(r.dir, sessionKey+".json"), nil
}

func (r *SnapshotRepository) Load(ctx context.Context, sessionKey string) (*domain.Snapshot, error) {
	p, err := r.path(sessionKey)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

func (r *SnapshotRepository) Save(ctx context.Context, sessionKey string, snap *domain.Snapshot) error {
	p, err := r.path(sessionKey)
	if err != nil {
		return err
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	// Write-then-rename so a crash mid-write never leaves a torn snapshot.
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) Delete(ctx context.Context, sessionKey string) error {
	p, err := r.path(sessionKey)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
