package notification

import (
	"context"
	"log/slog"
	"time"
)

// Event kinds published after successful mutations.
const (
	KindStudentCreated    = "student.created"
	KindStudentRegistered = "student.registered"
	KindStudentUpdated    = "student.updated"
	KindStudentDeleted    = "student.deleted"
)

// Event describes a student lifecycle change.
type Event struct {
	Kind       string    `json:"kind"`
	StudentID  int       `json:"student_id"`
	Login      string    `json:"login,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier delivers events to downstream systems.
type Notifier interface {
	Send(ctx context.Context, event Event) error
}

// LoggerNotifier writes events to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the event to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, event Event) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		slog.String("kind", event.Kind),
		slog.Int("student_id", event.StudentID),
		slog.String("login", event.Login),
		slog.Time("occurred_at", event.OccurredAt),
	)
	return nil
}
