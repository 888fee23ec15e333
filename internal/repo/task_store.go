package repo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	dom "TodoManager/internal/domain"

	"github.com/charmbracelet/log"
)

const (
	backupSuffix  = ".bak"
	corruptSuffix = ".corrupt."
	tempPattern   = "tasks_*.tmp"
)

// ErrStoreUnreadable is returned by Mutate when the tasks file exists but
// cannot be read for a reason other than corrupt content.
var ErrStoreUnreadable = errors.New("tasks file unreadable")

var errNotArray = errors.New("top-level JSON value is not an array")

// MutateFunc receives the current collection and returns the collection to
// persist plus whether anything changed. Returning an error aborts the write.
type MutateFunc func(tasks []dom.Task) ([]dom.Task, bool, error)

// TaskStore persists the whole task collection.
type TaskStore interface {
	Load() ([]dom.Task, error)
	Save(tasks []dom.Task) error
	Mutate(fn MutateFunc) error
}

// StoreStats counts notable store events since start.
type StoreStats struct {
	Recoveries     int64 `json:"recoveries"`
	LoadFailures   int64 `json:"load_failures"`
	BackupFailures int64 `json:"backup_failures"`
}

// FileTaskStore keeps the collection as a JSON array in a single file with a
// one-generation ".bak" sibling. Unparseable files are moved aside to
// "<path>.corrupt.<unix>" and never deleted.
type FileTaskStore struct {
	path string
	log  *log.Logger
	now  func() time.Time

	mu sync.Mutex

	recoveries     atomic.Int64
	loadFailures   atomic.Int64
	backupFailures atomic.Int64
}

// NewFileTaskStore returns a store for the file at path. A nil logger falls
// back to the package default.
func NewFileTaskStore(path string, logger *log.Logger) *FileTaskStore {
	if logger == nil {
		logger = log.Default()
	}
	return &FileTaskStore{
		path: path,
		log:  logger.WithPrefix("store"),
		now:  time.Now,
	}
}

// Path returns the main file path.
func (s *FileTaskStore) Path() string { return s.path }

// BackupPath returns the path of the previous-generation copy.
func (s *FileTaskStore) BackupPath() string { return s.path + backupSuffix }

// Stats returns a snapshot of the event counters.
func (s *FileTaskStore) Stats() StoreStats {
	return StoreStats{
		Recoveries:     s.recoveries.Load(),
		LoadFailures:   s.loadFailures.Load(),
		BackupFailures: s.backupFailures.Load(),
	}
}

// Load returns the stored collection. A missing file is an empty collection.
// Corrupt content is quarantined and replaced by the backup or by an empty
// array. Other read failures are logged and reported as an empty collection.
func (s *FileTaskStore) Load() ([]dom.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load()
	if err != nil {
		s.loadFailures.Add(1)
		s.log.Error("read tasks failed, serving empty collection", "path", s.path, "err", err)
		return []dom.Task{}, nil
	}
	return tasks, nil
}

// Save atomically replaces the file with tasks, keeping the previous content
// in the backup file.
func (s *FileTaskStore) Save(tasks []dom.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(tasks)
}

// Mutate runs a read-modify-write cycle under a single lock hold.
func (s *FileTaskStore) Mutate(fn MutateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load()
	if err != nil {
		s.loadFailures.Add(1)
		return fmt.Errorf("%w: %w", ErrStoreUnreadable, err)
	}
	next, changed, err := fn(tasks)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return s.save(next)
}

func (s *FileTaskStore) load() ([]dom.Task, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []dom.Task{}, nil
	}
	if err != nil {
		return nil, err
	}
	tasks, err := s.decodeTasks(data)
	if err == nil {
		return tasks, nil
	}
	return s.recover(err)
}

// decodeTasks fails only when the content is not JSON or not an array.
// Elements that do not decode as a task are logged and skipped.
func (s *FileTaskStore) decodeTasks(data []byte) ([]dom.Task, error) {
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		return nil, errors.New("invalid JSON")
	}
	if trimmed[0] != '[' {
		return nil, errNotArray
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, err
	}
	tasks := make([]dom.Task, 0, len(elems))
	for i, elem := range elems {
		var t dom.Task
		if err := json.Unmarshal(elem, &t); err != nil {
			s.log.Warn("skipping undecodable task", "index", i, "raw", string(elem), "err", err)
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// recover quarantines the corrupt main file, then tries the backup and
// finally resets the main file to an empty array.
func (s *FileTaskStore) recover(cause error) ([]dom.Task, error) {
	sidecar, err := s.quarantine()
	if err != nil {
		return nil, fmt.Errorf("quarantine corrupt tasks file: %w", err)
	}
	s.recoveries.Add(1)
	s.log.Warn("tasks file corrupt, moved aside", "path", s.path, "sidecar", sidecar, "cause", cause)

	tasks, err := s.restoreBackup()
	if err == nil {
		s.log.Warn("tasks restored from backup", "backup", s.BackupPath(), "count", len(tasks))
		return tasks, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		s.log.Warn("backup unusable", "backup", s.BackupPath(), "err", err)
	}

	if err := s.replace([]byte("[]\n")); err != nil {
		return nil, fmt.Errorf("reset tasks file: %w", err)
	}
	return []dom.Task{}, nil
}

func (s *FileTaskStore) quarantine() (string, error) {
	base := fmt.Sprintf("%s%s%d", s.path, corruptSuffix, s.now().Unix())
	name := base
	for i := 1; ; i++ {
		if _, err := os.Lstat(name); errors.Is(err, fs.ErrNotExist) {
			break
		}
		name = fmt.Sprintf("%s.%d", base, i)
	}
	if err := os.Rename(s.path, name); err != nil {
		return "", err
	}
	return name, nil
}

func (s *FileTaskStore) restoreBackup() ([]dom.Task, error) {
	if _, err := os.Stat(s.BackupPath()); err != nil {
		return nil, err
	}
	if err := copyFile(s.BackupPath(), s.path); err != nil {
		return nil, fmt.Errorf("copy backup: %w", err)
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	return s.decodeTasks(data)
}

func (s *FileTaskStore) save(tasks []dom.Task) error {
	if tasks == nil {
		tasks = []dom.Task{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tasks); err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create tasks dir: %w", err)
	}
	tmp, err := s.writeTemp(buf.Bytes())
	if err != nil {
		return err
	}
	defer s.removeIfExists(tmp)

	if _, err := os.Stat(s.path); err == nil {
		if err := copyFile(s.path, s.BackupPath()); err != nil {
			s.backupFailures.Add(1)
			s.log.Warn("backup failed, saving anyway", "backup", s.BackupPath(), "err", err)
		}
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace tasks file: %w", err)
	}
	return s.syncDir()
}

// replace swaps in data without touching the backup.
func (s *FileTaskStore) replace(data []byte) error {
	tmp, err := s.writeTemp(data)
	if err != nil {
		return err
	}
	defer s.removeIfExists(tmp)
	if err := os.Rename(tmp, s.path); err != nil {
		return err
	}
	return s.syncDir()
}

// syncDir flushes the directory entry so a completed rename survives power
// loss. Platforms that cannot fsync a directory report EINVAL or similar,
// which is ignored.
func (s *FileTaskStore) syncDir() error {
	dir, err := os.Open(filepath.Dir(s.path))
	if err != nil {
		return fmt.Errorf("open tasks dir: %w", err)
	}
	defer dir.Close()
	if err := dir.Sync(); err != nil && !isSyncUnsupported(err) {
		return fmt.Errorf("sync tasks dir: %w", err)
	}
	return nil
}

func isSyncUnsupported(err error) bool {
	return errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTSUP) ||
		errors.Is(err, errors.ErrUnsupported) || runtime.GOOS == "windows"
}

// writeTemp writes data to a synced temp file next to the main file.
func (s *FileTaskStore) writeTemp(data []byte) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(s.path), tempPattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	name := f.Name()
	if err := writeAndSync(f, data); err != nil {
		_ = f.Close()
		s.removeIfExists(name)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		s.removeIfExists(name)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return name, nil
}

func writeAndSync(f *os.File, data []byte) error {
	if err := f.Chmod(0o644); err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func (s *FileTaskStore) removeIfExists(name string) {
	if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Warn("remove temp file", "path", name, "err", err)
	}
}
