package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const keySuffix = "_modified"

// FileStore keeps all watermarks in one JSON object, e.g.
// {"movies_modified": "2021-06-16T20:14:09.221838Z"}.
type FileStore struct {
	path  string
	mu    sync.Mutex
	state map[string]string
}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("checkpoint file path is empty")
	}
	state := make(map[string]string)

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read checkpoint file '%s': %w", path, err)
	case len(strings.TrimSpace(string(data))) > 0:
		if err := json.Unmarshal(data, &state); err != nil {
			return nil, fmt.Errorf("failed to parse checkpoint file '%s': %w", path, err)
		}
	}

	return &FileStore{path: path, state: state}, nil
}

func stateKey(stream string) string {
	return stream + keySuffix
}

func (s *FileStore) Get(_ context.Context, stream string) (Watermark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Watermark(s.state[stateKey(stream)]), nil
}

func (s *FileStore) Set(_ context.Context, stream string, w Watermark) error {
	if _, err := w.Time(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]string, len(s.state)+1)
	for k, v := range s.state {
		next[k] = v
	}
	next[stateKey(stream)] = string(w)

	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("failed to persist checkpoint for %s: %w", stream, err)
	}
	s.state = next
	return nil
}

func (s *FileStore) All(_ context.Context) (map[string]Watermark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Watermark, len(s.state))
	for k, v := range s.state {
		if stream, ok := strings.CutSuffix(k, keySuffix); ok {
			out[stream] = Watermark(v)
		}
	}
	return out, nil
}

func (s *FileStore) Close() error {
	return nil
}

// writeFileAtomic replaces path via a synced temp file and rename, so readers
// observe either the old or the new content.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}

	// Best effort: persist the rename itself.
	if d, err := os.Open(dir); err == nil {
		d.Sync()
		d.Close()
	}
	return nil
}
