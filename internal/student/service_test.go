package student

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/student-portal/student_portal/internal/credential"
	"github.com/student-portal/student_portal/internal/logging"
	"github.com/student-portal/student_portal/internal/notification"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification.Event
}

func (n *recordingNotifier) Send(_ context.Context, e notification.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return nil
}

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Kind)
	}
	return out
}

func newTestService(t *testing.T, hasher credential.Hasher) (*Service, *FileRepository, *recordingNotifier) {
	t.Helper()
	repo := newTestRepository(t)
	notifier := &recordingNotifier{}
	return NewService(repo, hasher, notifier, logging.Discard()), repo, notifier
}

func TestServiceRegisterAndDuplicate(t *testing.T) {
	svc, _, notifier := newTestService(t, nil)
	ctx := context.Background()

	st, err := svc.Register(ctx, RegisterInput{Login: "ali", Password: "p1", FullName: "Ali Valiyev", Phone: "+998", StudentID: "G-12"})
	require.NoError(t, err)
	require.Equal(t, 1, st.ID)
	require.Equal(t, "p1", st.Password)

	_, err = svc.Register(ctx, RegisterInput{Login: "ali", Password: "other"})
	require.ErrorIs(t, err, ErrDuplicateLogin)

	require.Len(t, svc.List(ctx), 1)
	require.Equal(t, []string{notification.KindStudentRegistered}, notifier.kinds())
}

func TestServiceCreateIgnoresSuppliedID(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	id := 77
	st, err := svc.Create(ctx, Patch{ID: &id, Login: strPtr("ali")})
	require.NoError(t, err)
	require.Equal(t, 1, st.ID)
	require.Equal(t, "ali", st.Login)
}

func TestServiceLifecycleNotifications(t *testing.T) {
	svc, _, notifier := newTestService(t, nil)
	ctx := context.Background()

	st, err := svc.Create(ctx, Patch{})
	require.NoError(t, err)
	_, err = svc.Update(ctx, st.ID, Patch{FullName: strPtr("Ali Valiyev")})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, st.ID))

	require.Equal(t, []string{
		notification.KindStudentCreated,
		notification.KindStudentUpdated,
		notification.KindStudentDeleted,
	}, notifier.kinds())

	require.ErrorIs(t, svc.Delete(ctx, st.ID), ErrNotFound)
	require.Len(t, notifier.kinds(), 3)
}

func TestServiceListDegradesToEmptyOnStorageFailure(t *testing.T) {
	svc, repo, _ := newTestService(t, nil)
	ctx := context.Background()
	_, err := svc.Create(ctx, Patch{})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(repo.Path(), []byte("garbage"), 0o644))

	students := svc.List(ctx)
	require.NotNil(t, students)
	require.Empty(t, students)

	_, err = svc.Get(ctx, 1)
	require.ErrorIs(t, err, ErrStorage)
}

func TestServiceHashesPasswordsWithBcrypt(t *testing.T) {
	svc, repo, _ := newTestService(t, credential.Bcrypt{Cost: bcrypt.MinCost})
	ctx := context.Background()

	st, err := svc.Register(ctx, RegisterInput{Login: "ali", Password: "p1"})
	require.NoError(t, err)

	stored, err := repo.Get(ctx, st.ID)
	require.NoError(t, err)
	require.NotEqual(t, "p1", stored.Password)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("p1")))

	updated, err := svc.Update(ctx, st.ID, Patch{Password: strPtr("p2")})
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.Password), []byte("p2")))
}

func TestStudentNameSplitting(t *testing.T) {
	cases := []struct {
		full, given, surname string
	}{
		{"Ali Valiyev", "Ali", "Valiyev"},
		{"Ali  Valiyev  Olimovich", "Ali", "Valiyev Olimovich"},
		{"Ali", "Ali", ""},
		{"", "", ""},
	}
	for _, tc := range cases {
		s := Student{FullName: tc.full}
		require.Equal(t, tc.given, s.GivenName(), tc.full)
		require.Equal(t, tc.surname, s.Surname(), tc.full)
	}
}
