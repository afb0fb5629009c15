// Package file stores raw snapshots as one JSON file per day.
//
// Files are named YYYY-MM-DD.json and hold
// {"date","fetched_at","count","results"}. Writes go to a temporary file in
// the same directory and are renamed into place.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/fedreg/internal/core/domain"
	"github.com/custodia-labs/fedreg/internal/core/ports/driven"
)

const fileSuffix = ".json"

// Store is a directory of daily snapshot files.
type Store struct {
	dir string
}

var _ driven.SnapshotStore = (*Store)(nil)

// snapshotFile is the on-disk format.
type snapshotFile struct {
	Date      string            `json:"date"`
	FetchedAt time.Time         `json:"fetched_at"`
	Count     int               `json:"count"`
	Results   []json.RawMessage `json:"results"`
}

// NewStore creates a snapshot store rooted at dir, creating it if needed.
// If dir is empty, defaults to ~/.fedreg/raw_data.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, ".fedreg", "raw_data")
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}

	return &Store{dir: dir}, nil
}

// Dir returns the snapshot directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(day time.Time) string {
	return filepath.Join(s.dir, domain.DayKey(day)+fileSuffix)
}

// Save writes the snapshot atomically, replacing any existing file for the day.
func (s *Store) Save(ctx context.Context, snapshot *domain.RawSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	results := snapshot.Items
	if results == nil {
		results = []json.RawMessage{}
	}
	data, err := json.Marshal(snapshotFile{
		Date:      domain.DayKey(snapshot.Day),
		FetchedAt: snapshot.FetchedAt.UTC(),
		Count:     len(results),
		Results:   results,
	})
	if err != nil {
		return fmt.Errorf("marshalling snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing snapshot: %w", err)
	}

	if err := os.Rename(tmpName, s.path(snapshot.Day)); err != nil {
		return fmt.Errorf("renaming snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot for day.
func (s *Store) Load(ctx context.Context, day time.Time) (*domain.RawSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(day))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("snapshot %s: %w", domain.DayKey(day), domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var f snapshotFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w: %w", domain.DayKey(day), domain.ErrParse, err)
	}

	return &domain.RawSnapshot{
		Day:       domain.Day(day),
		Items:     f.Results,
		FetchedAt: f.FetchedAt,
	}, nil
}

// List returns the days that have a snapshot file, oldest first.
// Files not named YYYY-MM-DD.json are ignored.
func (s *Store) List(ctx context.Context) ([]time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot directory: %w", err)
	}

	var days []time.Time
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		day, err := time.Parse(domain.DateLayout, strings.TrimSuffix(name, fileSuffix))
		if err != nil {
			continue
		}
		days = append(days, day)
	}

	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days, nil
}
