// Package store owns the on-disk object tree of an instance: one YAML file
// per object under module/content_type/, written atomically, enumerated
// into fingerprint snapshots, and guarded by an instance-scoped lock.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/opencontainers/go-digest"
	"gopkg.in/yaml.v3"

	"github.com/gocortexio/gcgit/internal/pull"
)

// CorruptLocalFileError reports a stored file that no longer parses. The
// file is excluded from the snapshot but left on disk for inspection.
type CorruptLocalFileError struct {
	Path string
	Err  error
}

func (e *CorruptLocalFileError) Error() string {
	return fmt.Sprintf("corrupt local file %s: %v", e.Path, e.Err)
}

func (e *CorruptLocalFileError) Unwrap() error { return e.Err }

// IdentifierCollisionError reports two distinct remote identifiers that
// sanitize to the same file name. Identity is ambiguous at that point, so
// the content type cannot be synced safely.
type IdentifierCollisionError struct {
	IDA          string
	IDB          string
	ResolvedName string
}

func (e *IdentifierCollisionError) Error() string {
	return fmt.Sprintf("identifiers %q and %q both resolve to file name %q", e.IDA, e.IDB, e.ResolvedName)
}

// Entry is one object in a snapshot.
type Entry struct {
	ID          string
	Fingerprint digest.Digest
	// Path is relative to the instance root, e.g. "xsiam/dashboards/x.yaml".
	Path string
}

// FileStore owns one instance's object tree.
type FileStore struct {
	root string
}

// NewFileStore creates a store rooted at the instance directory.
func NewFileStore(instanceDir string) *FileStore {
	return &FileStore{root: instanceDir}
}

// Root returns the instance directory.
func (s *FileStore) Root() string { return s.root }

// Snapshot enumerates the stored objects of one content type, keyed by
// identifier. The identifier is read from the named field inside each file,
// falling back to the file name stem for files that predate the field.
// Unparsable files are reported as CorruptLocalFileError values and excluded
// rather than failing the snapshot.
func (s *FileStore) Snapshot(module, contentType, idField string) (map[string]Entry, []error) {
	dir := filepath.Join(s.root, module, contentType)
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Entry{}, nil
		}
		return map[string]Entry{}, []error{fmt.Errorf("failed to enumerate %s: %w", dir, err)}
	}

	snapshot := make(map[string]Entry)
	var problems []error

	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}

		relPath := filepath.Join(module, contentType, name)
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			problems = append(problems, &CorruptLocalFileError{Path: relPath, Err: err})
			continue
		}

		var obj map[string]any
		if err := yaml.Unmarshal(data, &obj); err != nil {
			problems = append(problems, &CorruptLocalFileError{Path: relPath, Err: err})
			continue
		}

		id, ok := pull.FieldString(obj, idField)
		if !ok {
			id = strings.TrimSuffix(name, ".yaml")
		}

		snapshot[id] = Entry{
			ID:          id,
			Fingerprint: FingerprintBytes(data),
			Path:        relPath,
		}
	}

	return snapshot, problems
}

// ResolveNames maps each identifier to its sanitized file name, failing
// with IdentifierCollisionError when two distinct identifiers resolve to
// the same name. Identifiers are processed in sorted order so the reported
// pair is deterministic.
func ResolveNames(ids []string) (map[string]string, error) {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)

	names := make(map[string]string, len(sorted))
	taken := make(map[string]string, len(sorted))
	for _, id := range sorted {
		name := SanitizeID(id)
		if prev, exists := taken[name]; exists && prev != id {
			return nil, &IdentifierCollisionError{IDA: prev, IDB: id, ResolvedName: name}
		}
		taken[name] = id
		names[id] = name
	}
	return names, nil
}

// Apply writes the given objects (keyed by identifier) and deletes the
// given paths. Each write goes to a temporary file in the target directory
// and is renamed into place, so an interrupted apply never leaves a partial
// object file. Returns every path (relative to the instance root) that was
// written or deleted, in deterministic order.
func (s *FileStore) Apply(
	module, contentType string,
	upserts map[string]pull.Object,
	names map[string]string,
	removePaths []string,
) ([]string, error) {
	dir := filepath.Join(s.root, module, contentType)
	var changed []string

	if len(upserts) > 0 {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return changed, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	ids := make([]string, 0, len(upserts))
	for id := range upserts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		name, ok := names[id]
		if !ok {
			return changed, fmt.Errorf("no resolved file name for identifier %q", id)
		}
		relPath := filepath.Join(module, contentType, name+".yaml")
		if err := s.writeAtomic(dir, name+".yaml", upserts[id]); err != nil {
			return changed, err
		}
		changed = append(changed, relPath)
	}

	sortedRemove := make([]string, len(removePaths))
	copy(sortedRemove, removePaths)
	sort.Strings(sortedRemove)

	for _, relPath := range sortedRemove {
		if err := os.Remove(filepath.Join(s.root, relPath)); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return changed, fmt.Errorf("failed to delete %s: %w", relPath, err)
		}
		changed = append(changed, relPath)
	}

	return changed, nil
}

// writeAtomic stages the serialized object in a temp file and renames it
// into place.
func (s *FileStore) writeAtomic(dir, fileName string, obj pull.Object) error {
	data, err := Encode(obj)
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", fileName, err)
	}

	tmp, err := os.CreateTemp(dir, "."+fileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to stage %s: %w", fileName, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", fileName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", fileName, err)
	}

	if err := os.Rename(tmpName, filepath.Join(dir, fileName)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to commit %s: %w", fileName, err)
	}
	return nil
}
