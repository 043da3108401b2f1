package student

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no record carries the requested id.
	ErrNotFound = errors.New("student not found")

	// ErrDuplicateLogin is returned by registration when the login is already taken.
	ErrDuplicateLogin = errors.New("login already exists")

	// ErrImmutableID is returned when an update tries to change a record's id.
	ErrImmutableID = errors.New("student id cannot be changed")

	// ErrStorage wraps any failure to read or write the backing store.
	ErrStorage = errors.New("storage failure")
)

// Repository persists the student collection. Every mutating call is a single
// serialized read-modify-write: no two mutations observe the same prior state.
type Repository interface {
	List(ctx context.Context) ([]Student, error)
	Get(ctx context.Context, id int) (Student, error)
	// Create assigns the next id to s and appends it. Login uniqueness is not checked.
	Create(ctx context.Context, s Student) (Student, error)
	// CreateUnique behaves like Create but fails with ErrDuplicateLogin when
	// s.Login is already present.
	CreateUnique(ctx context.Context, s Student) (Student, error)
	Update(ctx context.Context, id int, patch Patch) (Student, error)
	Delete(ctx context.Context, id int) error
	Ping(ctx context.Context) error
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}
