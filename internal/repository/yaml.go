package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLRepository keeps the snapshot in a single YAML mapping of
// "<uuid>: <seconds>", the playtime.yml layout. Display names live in a
// sidecar mapping of "<uuid>: <name>" next to it.
type YAMLRepository struct {
	path      string
	namesPath string
}

// NewYAMLRepository creates a repository backed by the file at path.
// Names go to the same path with ".names" before the extension.
func NewYAMLRepository(path string) *YAMLRepository {
	ext := filepath.Ext(path)
	return &YAMLRepository{
		path:      path,
		namesPath: strings.TrimSuffix(path, ext) + ".names" + ext,
	}
}

// Name identifies the backend in logs
func (r *YAMLRepository) Name() string {
	return "yaml:" + r.path
}

// Path returns the snapshot file location
func (r *YAMLRepository) Path() string {
	return r.path
}

// Load parses the snapshot file. A missing file is created empty.
// Entries whose value is not an integer are skipped.
func (r *YAMLRepository) Load(_ context.Context) (map[string]int64, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		if err := r.createEmpty(); err != nil {
			return nil, err
		}
		return map[string]int64{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.path, err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", r.path, err)
	}
	if len(root.Content) == 0 {
		return map[string]int64{}, nil
	}

	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("failed to parse %s: top level is not a mapping", r.path)
	}

	out := make(map[string]int64, len(doc.Content)/2)
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key, value := doc.Content[i], doc.Content[i+1]

		var secs int64
		if err := value.Decode(&secs); err != nil {
			log.Printf("⚠️  Skipping %q in %s: value is not a number of seconds", key.Value, r.path)
			continue
		}
		out[key.Value] = secs
	}
	return out, nil
}

// Save replaces the snapshot file
func (r *YAMLRepository) Save(_ context.Context, snapshot map[string]int64) error {
	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return writeAtomic(r.path, data)
}

// NamesPath returns the names sidecar location
func (r *YAMLRepository) NamesPath() string {
	return r.namesPath
}

// LoadNames reads the names sidecar. A missing file means no names.
func (r *YAMLRepository) LoadNames(_ context.Context) (map[string]string, error) {
	data, err := os.ReadFile(r.namesPath)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.namesPath, err)
	}

	names := map[string]string{}
	if err := yaml.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", r.namesPath, err)
	}
	return names, nil
}

// SaveNames merges names into the sidecar
func (r *YAMLRepository) SaveNames(ctx context.Context, names map[string]string) error {
	if len(names) == 0 {
		return nil
	}

	merged, err := r.LoadNames(ctx)
	if err != nil {
		return err
	}
	for id, name := range names {
		merged[id] = name
	}

	data, err := yaml.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to encode names: %w", err)
	}
	return writeAtomic(r.namesPath, data)
}

// writeAtomic writes data to a temp file next to path and renames it over
// the old one, so a failed write never leaves a truncated file behind.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// Ping checks that the snapshot directory exists and is a directory
func (r *YAMLRepository) Ping(_ context.Context) error {
	dir := filepath.Dir(r.path)
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

// Close is a no-op; the file is only held open during Load and Save
func (r *YAMLRepository) Close() error {
	return nil
}

func (r *YAMLRepository) createEmpty() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", r.path, err)
	}
	return f.Close()
}
