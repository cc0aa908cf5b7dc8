package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/claimcheck/internal/model"
)

// DiskStore keeps one JSON file per entry, grouped in a directory per key.
// File names start with the zero-padded creation time so a directory
// listing sorts oldest first.
type DiskStore struct {
	dir string
}

// NewDiskStore creates a disk store rooted at dir
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Insert writes the entry atomically
func (s *DiskStore) Insert(ctx context.Context, entry *model.CacheEntry) error {
	if entry.Result == nil || entry.Result.ID == "" {
		return fmt.Errorf("cache entry has no result id")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	keyDir := s.keyDir(entry.Key)
	if err := os.MkdirAll(keyDir, 0o755); err != nil {
		return fmt.Errorf("create key dir: %w", err)
	}

	path := filepath.Join(keyDir, entryName(entry.CreatedAt, entry.Result.ID))
	tmp, err := createTemp(keyDir)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("commit cache file: %w", err)
	}
	return nil
}

// createTemp opens a temp file in keyDir. A sweep may remove an emptied
// key dir between MkdirAll and here, so a missing dir is recreated once.
func createTemp(keyDir string) (*os.File, error) {
	tmp, err := os.CreateTemp(keyDir, ".tmp-*")
	if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(keyDir, 0o755); err != nil {
			return nil, err
		}
		tmp, err = os.CreateTemp(keyDir, ".tmp-*")
	}
	return tmp, err
}

// Latest returns the newest entry for key created at or after since
func (s *DiskStore) Latest(ctx context.Context, key string, since time.Time) (*model.CacheEntry, error) {
	names, err := entryNames(s.keyDir(key))
	if err != nil {
		return nil, err
	}

	for i := len(names) - 1; i >= 0; i-- {
		created, _, ok := parseEntryName(names[i])
		if !ok {
			continue
		}
		if created.Before(since) {
			break
		}
		return readEntry(filepath.Join(s.keyDir(key), names[i]))
	}
	return nil, notFound("cache entry")
}

// ByID scans key directories for the entry with the given result id
func (s *DiskStore) ByID(ctx context.Context, id string) (*model.CacheEntry, error) {
	if id == "" || strings.ContainsAny(id, `/\*?[`) {
		return nil, notFound("analysis")
	}
	matches, err := filepath.Glob(filepath.Join(s.dir, "*", "*_"+id+".json"))
	if err != nil {
		return nil, fmt.Errorf("glob cache dir: %w", err)
	}
	if len(matches) == 0 {
		return nil, notFound("analysis")
	}
	return readEntry(matches[0])
}

// DeleteBefore removes entries created before cutoff and prunes empty key
// directories
func (s *DiskStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	keyDirs, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read cache dir: %w", err)
	}

	var deleted int64
	for _, kd := range keyDirs {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		if !kd.IsDir() {
			continue
		}
		dir := filepath.Join(s.dir, kd.Name())
		names, err := entryNames(dir)
		if err != nil {
			return deleted, err
		}

		remaining := len(names)
		for _, name := range names {
			created, _, ok := parseEntryName(name)
			if !ok || !created.Before(cutoff) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
				return deleted, fmt.Errorf("remove cache file: %w", err)
			}
			deleted++
			remaining--
		}
		if remaining == 0 {
			// Fails harmlessly if a concurrent insert just landed
			_ = os.Remove(dir)
		}
	}
	return deleted, nil
}

// Close is a no-op for the disk store
func (s *DiskStore) Close() error {
	return nil
}

func (s *DiskStore) keyDir(key string) string {
	return filepath.Join(s.dir, strings.TrimPrefix(CacheKey(key), "claimcheck:v1:"))
}

func entryName(created time.Time, id string) string {
	return fmt.Sprintf("%020d_%s.json", created.UnixNano(), id)
}

func parseEntryName(name string) (time.Time, string, bool) {
	stamp, rest, ok := strings.Cut(strings.TrimSuffix(name, ".json"), "_")
	if !ok || !strings.HasSuffix(name, ".json") {
		return time.Time{}, "", false
	}
	nanos, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil {
		return time.Time{}, "", false
	}
	return time.Unix(0, nanos).UTC(), rest, true
}

// entryNames lists entry files oldest first; a missing directory is empty
func entryNames(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read key dir: %w", err)
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		if !f.IsDir() && strings.HasSuffix(f.Name(), ".json") {
			names = append(names, f.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func readEntry(path string) (*model.CacheEntry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, notFound("cache entry")
	}
	if err != nil {
		return nil, fmt.Errorf("read cache file: %w", err)
	}

	var entry model.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("unmarshal cache file: %w", err)
	}
	return &entry, nil
}
