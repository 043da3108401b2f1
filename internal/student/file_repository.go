package student

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileRepository keeps the whole collection in a single JSON document that is
// re-read before every operation and rewritten after every mutation. The
// highest id ever issued is kept next to it in a sequence file, so ids stay
// unused after a delete even across restarts.
type FileRepository struct {
	path    string
	seqPath string

	mu     sync.Mutex
	lastID int
}

type idSequence struct {
	LastID int `json:"lastId"`
}

// NewFileRepository ensures the backing directory exists and initializes an
// empty collection when the file is missing.
func NewFileRepository(path string) (*FileRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	_, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
			return nil, fmt.Errorf("init data file: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("stat data file: %w", err)
	}

	r := &FileRepository{path: path, seqPath: path + ".seq"}
	if err := r.restoreSequence(); err != nil {
		return nil, err
	}
	return r, nil
}

// SequencePath returns the location of the id sequence file.
func (r *FileRepository) SequencePath() string {
	return r.seqPath
}

// restoreSequence seeds the high-water mark from the sequence file and the
// highest id currently on file. An unreadable collection is left for the
// first operation to report.
func (r *FileRepository) restoreSequence() error {
	data, err := os.ReadFile(r.seqPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read id sequence: %w", err)
	default:
		var seq idSequence
		if err := json.Unmarshal(data, &seq); err != nil {
			return fmt.Errorf("decode id sequence %s: %w", r.seqPath, err)
		}
		r.lastID = seq.LastID
	}

	students, err := r.load()
	if err != nil {
		return nil
	}
	return r.advance(highestID(students))
}

// Path returns the location of the backing file.
func (r *FileRepository) Path() string {
	return r.path
}

func (r *FileRepository) List(_ context.Context) ([]Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

func (r *FileRepository) Get(_ context.Context, id int) (Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	students, err := r.load()
	if err != nil {
		return Student{}, err
	}
	if i := indexOf(students, id); i >= 0 {
		return students[i], nil
	}
	return Student{}, ErrNotFound
}

func (r *FileRepository) Create(_ context.Context, s Student) (Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insert(s, false)
}

func (r *FileRepository) CreateUnique(_ context.Context, s Student) (Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insert(s, true)
}

func (r *FileRepository) Update(_ context.Context, id int, patch Patch) (Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	students, err := r.load()
	if err != nil {
		return Student{}, err
	}
	i := indexOf(students, id)
	if i < 0 {
		return Student{}, ErrNotFound
	}
	updated := students[i]
	if err := patch.applyTo(&updated); err != nil {
		return Student{}, err
	}
	students[i] = updated
	if err := r.save(students); err != nil {
		return Student{}, err
	}
	return updated, nil
}

func (r *FileRepository) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	students, err := r.load()
	if err != nil {
		return err
	}
	i := indexOf(students, id)
	if i < 0 {
		return ErrNotFound
	}
	if err := r.advance(highestID(students)); err != nil {
		return err
	}
	students = append(students[:i], students[i+1:]...)
	return r.save(students)
}

// Ping checks that the backing file is still readable.
func (r *FileRepository) Ping(_ context.Context) error {
	f, err := os.Open(r.path)
	if err != nil {
		return storageErr("open "+r.path, err)
	}
	return f.Close()
}

// insert must be called with r.mu held.
func (r *FileRepository) insert(s Student, uniqueLogin bool) (Student, error) {
	students, err := r.load()
	if err != nil {
		return Student{}, err
	}
	if uniqueLogin {
		for _, existing := range students {
			if existing.Login == s.Login {
				return Student{}, ErrDuplicateLogin
			}
		}
	}
	s.ID = max(r.lastID, highestID(students)) + 1
	if err := r.advance(s.ID); err != nil {
		return Student{}, err
	}
	students = append(students, s)
	if err := r.save(students); err != nil {
		return Student{}, err
	}
	return s, nil
}

// advance raises the high-water mark to id and persists it before the
// collection is rewritten. A failed collection write after a successful
// advance only skips an id. Must be called with r.mu held.
func (r *FileRepository) advance(id int) error {
	if id <= r.lastID {
		return nil
	}
	data, err := json.Marshal(idSequence{LastID: id})
	if err != nil {
		return storageErr("encode id sequence", err)
	}
	if err := writeFileAtomic(r.seqPath, data); err != nil {
		return err
	}
	r.lastID = id
	return nil
}

func highestID(students []Student) int {
	highest := 0
	for _, s := range students {
		if s.ID > highest {
			highest = s.ID
		}
	}
	return highest
}

func (r *FileRepository) load() ([]Student, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, storageErr("read "+r.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []Student{}, nil
	}
	var students []Student
	if err := json.Unmarshal(data, &students); err != nil {
		return nil, storageErr("decode "+r.path, err)
	}
	if students == nil {
		students = []Student{}
	}
	return students, nil
}

// save replaces the collection through a temp file and rename so readers
// never see a partially written collection.
func (r *FileRepository) save(students []Student) error {
	if students == nil {
		students = []Student{}
	}
	data, err := json.MarshalIndent(students, "", "  ")
	if err != nil {
		return storageErr("encode", err)
	}
	return writeFileAtomic(r.path, data)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return storageErr("create temp file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return storageErr("chmod "+tmpName, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return storageErr("write "+tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return storageErr("sync "+tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return storageErr("close "+tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return storageErr("replace "+path, err)
	}
	return nil
}

func indexOf(students []Student, id int) int {
	for i, s := range students {
		if s.ID == id {
			return i
		}
	}
	return -1
}
