package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/student-portal/student_portal/internal/credential"
	"github.com/student-portal/student_portal/internal/logging"
	"github.com/student-portal/student_portal/internal/student"
)

// ErrInvalidCredentials is returned when no record matches the login and password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Profile is the public view of an authenticated student. It never carries the password.
type Profile struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Group    string `json:"group"`
	Passport string `json:"passport"`
	Phone    string `json:"phone"`
}

// NewProfile derives the public view of s.
func NewProfile(s student.Student) Profile {
	return Profile{
		ID:       s.ID,
		Name:     s.GivenName(),
		Surname:  s.Surname(),
		Group:    s.StudentID,
		Passport: s.StudentID,
		Phone:    s.Phone,
	}
}

// Service validates credentials against the student store.
type Service struct {
	repo   student.Repository
	hasher credential.Hasher
	logger *slog.Logger
}

// NewService builds an auth service. A nil hasher compares passwords as plain text.
func NewService(repo student.Repository, hasher credential.Hasher, logger *slog.Logger) *Service {
	if hasher == nil {
		hasher = credential.Plain{}
	}
	return &Service{repo: repo, hasher: hasher, logger: logging.Component(logger, "auth")}
}

// Authenticate returns the profile of the first record whose login and
// password both match exactly.
func (s *Service) Authenticate(ctx context.Context, login, password string) (Profile, error) {
	students, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("load students", slog.Any("error", err))
		return Profile{}, err
	}
	for _, st := range students {
		if st.Login == login && s.hasher.Matches(st.Password, password) {
			return NewProfile(st), nil
		}
	}
	s.logger.Info("authentication failed", slog.String("login", login))
	return Profile{}, ErrInvalidCredentials
}
