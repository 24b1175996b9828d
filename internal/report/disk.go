package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound is returned by Load for an unknown run ID.
var ErrNotFound = errors.New("run not found")

// DiskStore writes RunRecords as JSON files into a directory, created on
// the first Save.
type DiskStore struct {
	mu  sync.Mutex
	dir string
}

// NewDiskStore returns a DiskStore rooted at dir.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: dir}
}

// Dir returns the directory records are kept in.
func (s *DiskStore) Dir() string { return s.dir }

// Save writes rec to disk, replacing any earlier record with the same ID.
func (s *DiskStore) Save(rec *RunRecord) error {
	if err := validID(rec.ID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling run %s: %w", rec.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}
	// Write then rename so readers never see a partial record.
	tmp, err := os.CreateTemp(s.dir, rec.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("writing run %s: %w", rec.ID, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing run %s: %w", rec.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing run %s: %w", rec.ID, err)
	}
	if err := os.Rename(tmp.Name(), s.path(rec.ID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing run %s: %w", rec.ID, err)
	}
	return nil
}

// Load reads a record. runID may be a unique prefix of the full ID.
func (s *DiskStore) Load(runID string) (*RunRecord, error) {
	if err := validID(runID); err != nil {
		return nil, err
	}
	path := s.path(runID)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		path, err = s.byPrefix(runID)
		if err != nil {
			return nil, err
		}
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading run %s: %w", runID, err)
	}
	var rec RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshalling run %s: %w", runID, err)
	}
	return &rec, nil
}

// IDs returns the stored run IDs, most recently written first.
func (s *DiskStore) IDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	type stamped struct {
		id  string
		mod int64
	}
	var runs []stamped
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		runs = append(runs, stamped{strings.TrimSuffix(name, ".json"), info.ModTime().UnixNano()})
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].mod > runs[j].mod })
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.id
	}
	return ids, nil
}

func (s *DiskStore) byPrefix(prefix string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, prefix+"*.json"))
	if err != nil {
		return "", fmt.Errorf("reading run %s: %w", prefix, err)
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrNotFound, prefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("run ID %s is ambiguous (%d matches)", prefix, len(matches))
	}
}

func (s *DiskStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// validID rejects IDs that could escape the history directory or act as
// glob patterns.
func validID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\*?[]`) || strings.Contains(id, "..") {
		return fmt.Errorf("invalid run ID %q", id)
	}
	return nil
}
