package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps stored survey documents (<id>.json in dataDir) and raw
// uploads (<id>_<name> in uploadsDir).
type FileStore struct {
	dataDir    string
	uploadsDir string
}

// NewFileStore creates both directories if needed.
func NewFileStore(dataDir, uploadsDir string) (*FileStore, error) {
	for _, dir := range []string{dataDir, uploadsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return &FileStore{dataDir: dataDir, uploadsDir: uploadsDir}, nil
}

// DocumentPath returns the path of the stored document for id.
func (f *FileStore) DocumentPath(id string) string {
	return filepath.Join(f.dataDir, id+".json")
}

// WriteDocument encodes v as JSON to <id>.json. The file is written to a
// temporary name first and renamed, so readers never see a partial document.
func (f *FileStore) WriteDocument(id string, v interface{}) error {
	tmp, err := os.CreateTemp(f.dataDir, id+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp document: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := json.NewEncoder(tmp).Encode(v); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.DocumentPath(id)); err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}
	return nil
}

// ReadDocument decodes <id>.json into v.
func (f *FileStore) ReadDocument(id string, v interface{}) error {
	file, err := f.OpenDocument(id)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := json.NewDecoder(file).Decode(v); err != nil {
		return fmt.Errorf("failed to decode document %s: %w", id, err)
	}
	return nil
}

// OpenDocument opens the raw stored document for streaming.
func (f *FileStore) OpenDocument(id string) (*os.File, error) {
	file, err := os.Open(f.DocumentPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return file, err
}

// RemoveDocument deletes <id>.json; a missing document is not an error.
func (f *FileStore) RemoveDocument(id string) error {
	if err := os.Remove(f.DocumentPath(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// SaveUpload copies r to <id>_<name> and returns the path.
func (f *FileStore) SaveUpload(id, name string, r io.Reader) (string, error) {
	path := filepath.Join(f.uploadsDir, id+"_"+name)
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	return path, nil
}

// RemoveUploads deletes every upload saved for id.
func (f *FileStore) RemoveUploads(id string) error {
	entries, err := os.ReadDir(f.uploadsDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), id+"_") {
			if err := os.Remove(filepath.Join(f.uploadsDir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
		}
	}
	return nil
}

// DiskUsage returns the bytes used by stored documents and uploads.
func (f *FileStore) DiskUsage() (int64, error) {
	return DiskUsageBytes(f.dataDir, f.uploadsDir)
}

// DiskUsageBytes returns the total size in bytes of the given paths.
// Each path may be a file or a directory (recursively summed).
// Missing paths are skipped (contribute 0); errors during walk are returned.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		err := filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
			return nil
		})
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return 0, err
		}
	}
	return total, nil
}
