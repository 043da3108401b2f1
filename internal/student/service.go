package student

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/student-portal/student_portal/internal/credential"
	"github.com/student-portal/student_portal/internal/logging"
	"github.com/student-portal/student_portal/internal/notification"
)

// Service manages the student record lifecycle on top of a Repository.
type Service struct {
	repo     Repository
	hasher   credential.Hasher
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService creates a student service. A nil hasher stores passwords as given.
func NewService(repo Repository, hasher credential.Hasher, notifier notification.Notifier, logger *slog.Logger) *Service {
	if hasher == nil {
		hasher = credential.Plain{}
	}
	return &Service{repo: repo, hasher: hasher, notifier: notifier, logger: logging.Component(logger, "student")}
}

// List returns all students in insertion order. A storage failure is logged
// and reported as an empty collection.
func (s *Service) List(ctx context.Context) []Student {
	students, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("list students", slog.Any("error", err))
		return []Student{}
	}
	return students
}

// Get fetches a single student.
func (s *Service) Get(ctx context.Context, id int) (Student, error) {
	st, err := s.repo.Get(ctx, id)
	if err != nil {
		s.logStorage("get student", err, slog.Int("id", id))
		return Student{}, err
	}
	return st, nil
}

// Create stores a new record built from the supplied fields and returns it
// with its assigned id.
func (s *Service) Create(ctx context.Context, fields Patch) (Student, error) {
	record := fields.Record()
	if fields.Password != nil {
		hashed, err := s.hasher.Hash(record.Password)
		if err != nil {
			return Student{}, err
		}
		record.Password = hashed
	}

	created, err := s.repo.Create(ctx, record)
	if err != nil {
		s.logStorage("create student", err)
		return Student{}, err
	}
	s.notify(ctx, notification.KindStudentCreated, created)
	return created, nil
}

// Register creates an account with an explicit field set, failing with
// ErrDuplicateLogin when the login is taken.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Student, error) {
	record := in.record()
	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Student{}, err
	}
	record.Password = hashed

	created, err := s.repo.CreateUnique(ctx, record)
	if err != nil {
		if errors.Is(err, ErrDuplicateLogin) {
			s.logger.Info("registration rejected", slog.String("login", in.Login), slog.String("reason", "duplicate login"))
			return Student{}, err
		}
		s.logStorage("register student", err, slog.String("login", in.Login))
		return Student{}, err
	}
	s.logger.Info("student registered", slog.Int("id", created.ID), slog.String("login", created.Login))
	s.notify(ctx, notification.KindStudentRegistered, created)
	return created, nil
}

// Update merges the supplied fields over the stored record.
func (s *Service) Update(ctx context.Context, id int, patch Patch) (Student, error) {
	if patch.Password != nil {
		hashed, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			return Student{}, err
		}
		patch.Password = &hashed
	}

	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		s.logStorage("update student", err, slog.Int("id", id))
		return Student{}, err
	}
	s.notify(ctx, notification.KindStudentUpdated, updated)
	return updated, nil
}

// Delete removes a student permanently.
func (s *Service) Delete(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logStorage("delete student", err, slog.Int("id", id))
		return err
	}
	s.notify(ctx, notification.KindStudentDeleted, Student{ID: id})
	return nil
}

// Ping probes the backing store.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) logStorage(op string, err error, attrs ...any) {
	if !errors.Is(err, ErrStorage) {
		return
	}
	s.logger.Error(op, append(attrs, slog.Any("error", err))...)
}

func (s *Service) notify(ctx context.Context, kind string, st Student) {
	if s.notifier == nil {
		return
	}
	event := notification.Event{Kind: kind, StudentID: st.ID, Login: st.Login, OccurredAt: time.Now().UTC()}
	if err := s.notifier.Send(ctx, event); err != nil {
		s.logger.Warn("notification failed", slog.String("kind", kind), slog.Int("student_id", st.ID), slog.Any("error", err))
	}
}
