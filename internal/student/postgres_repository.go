package student

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// registerLockKey guards the login check and insert performed by CreateUnique.
const registerLockKey int64 = 7_345_001

const selectStudents = `SELECT id, login, password, full_name, phone, student_id, extra FROM students`

// PostgresRepository implements Repository using PostgreSQL. Ids come from a
// BIGSERIAL sequence, so they are never reused after a delete.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed student repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// List returns every student in insertion order.
func (r *PostgresRepository) List(ctx context.Context) ([]Student, error) {
	rows, err := r.db.Query(ctx, selectStudents+` ORDER BY id`)
	if err != nil {
		return nil, storageErr("list students", err)
	}
	defer rows.Close()

	students := []Student{}
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, storageErr("scan student", err)
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list students", err)
	}
	return students, nil
}

// Get fetches a student by id.
func (r *PostgresRepository) Get(ctx context.Context, id int) (Student, error) {
	s, err := scanStudent(r.db.QueryRow(ctx, selectStudents+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Student{}, ErrNotFound
	}
	if err != nil {
		return Student{}, storageErr("get student", err)
	}
	return s, nil
}

// Create inserts a student without checking login uniqueness.
func (r *PostgresRepository) Create(ctx context.Context, s Student) (Student, error) {
	created, err := insertStudent(ctx, r.db, s)
	if err != nil {
		return Student{}, storageErr("insert student", err)
	}
	return created, nil
}

// CreateUnique inserts a student after verifying, under an advisory lock, that
// no other record uses the same login.
func (r *PostgresRepository) CreateUnique(ctx context.Context, s Student) (Student, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return Student{}, storageErr("begin", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, registerLockKey); err != nil {
		return Student{}, storageErr("lock", err)
	}

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM students WHERE login = $1)`, s.Login).Scan(&exists); err != nil {
		return Student{}, storageErr("check login", err)
	}
	if exists {
		return Student{}, ErrDuplicateLogin
	}

	created, err := insertStudent(ctx, tx, s)
	if err != nil {
		return Student{}, storageErr("insert student", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Student{}, storageErr("commit", err)
	}
	return created, nil
}

// Update merges patch over the stored row while holding its row lock.
func (r *PostgresRepository) Update(ctx context.Context, id int, patch Patch) (Student, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return Student{}, storageErr("begin", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanStudent(tx.QueryRow(ctx, selectStudents+` WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Student{}, ErrNotFound
	}
	if err != nil {
		return Student{}, storageErr("load student", err)
	}

	if err := patch.applyTo(&current); err != nil {
		return Student{}, err
	}

	extra, err := encodeExtra(current.Extra)
	if err != nil {
		return Student{}, storageErr("encode extra", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE students SET login = $1, password = $2, full_name = $3, phone = $4, student_id = $5, extra = $6::jsonb WHERE id = $7`,
		current.Login, current.Password, current.FullName, current.Phone, current.StudentID, extra, id); err != nil {
		return Student{}, storageErr("update student", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Student{}, storageErr("commit", err)
	}
	return current, nil
}

// Delete removes a student permanently.
func (r *PostgresRepository) Delete(ctx context.Context, id int) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return storageErr("delete student", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping verifies database connectivity.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return storageErr("ping", err)
	}
	return nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertStudent(ctx context.Context, q queryRower, s Student) (Student, error) {
	extra, err := encodeExtra(s.Extra)
	if err != nil {
		return Student{}, err
	}
	row := q.QueryRow(ctx, `INSERT INTO students (login, password, full_name, phone, student_id, extra)
        VALUES ($1, $2, $3, $4, $5, $6::jsonb) RETURNING id`, s.Login, s.Password, s.FullName, s.Phone, s.StudentID, extra)
	var id int64
	if err := row.Scan(&id); err != nil {
		return Student{}, err
	}
	s.ID = int(id)
	return s, nil
}

func scanStudent(row pgx.Row) (Student, error) {
	var (
		id    int64
		extra []byte
		s     Student
	)
	if err := row.Scan(&id, &s.Login, &s.Password, &s.FullName, &s.Phone, &s.StudentID, &extra); err != nil {
		return Student{}, err
	}
	s.ID = int(id)
	if err := json.Unmarshal(extra, &s.Extra); err != nil {
		return Student{}, err
	}
	if len(s.Extra) == 0 {
		s.Extra = nil
	}
	return s, nil
}

// encodeExtra renders the keys beyond the typed columns as a JSON object.
func encodeExtra(extra map[string]json.RawMessage) (string, error) {
	if len(extra) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
