package student

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu       sync.RWMutex
	students []Student
	lastID   int
}

// NewMemoryRepository builds an in-memory student store for testing and
// throwaway deployments. Contents are lost on restart.
func NewMemoryRepository() Repository {
	return &memoryRepository{students: []Student{}}
}

func (r *memoryRepository) List(_ context.Context) ([]Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Student, len(r.students))
	copy(out, r.students)
	return out, nil
}

func (r *memoryRepository) Get(_ context.Context, id int) (Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := indexOf(r.students, id); i >= 0 {
		return r.students[i], nil
	}
	return Student{}, ErrNotFound
}

func (r *memoryRepository) Create(_ context.Context, s Student) (Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.append(s), nil
}

func (r *memoryRepository) CreateUnique(_ context.Context, s Student) (Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.students {
		if existing.Login == s.Login {
			return Student{}, ErrDuplicateLogin
		}
	}
	return r.append(s), nil
}

func (r *memoryRepository) Update(_ context.Context, id int, patch Patch) (Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := indexOf(r.students, id)
	if i < 0 {
		return Student{}, ErrNotFound
	}
	updated := r.students[i]
	if err := patch.applyTo(&updated); err != nil {
		return Student{}, err
	}
	r.students[i] = updated
	return updated, nil
}

func (r *memoryRepository) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := indexOf(r.students, id)
	if i < 0 {
		return ErrNotFound
	}
	r.students = append(r.students[:i], r.students[i+1:]...)
	return nil
}

func (r *memoryRepository) Ping(context.Context) error { return nil }

func (r *memoryRepository) append(s Student) Student {
	r.lastID++
	s.ID = r.lastID
	r.students = append(r.students, s)
	return s
}
