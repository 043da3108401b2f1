package student

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryRepositoryLifecycle(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	first, err := repo.CreateUnique(ctx, Student{Login: "ali", FullName: "Ali Valiyev"})
	require.NoError(t, err)
	require.Equal(t, 1, first.ID)

	_, err = repo.CreateUnique(ctx, Student{Login: "ali"})
	require.ErrorIs(t, err, ErrDuplicateLogin)

	second, err := repo.Create(ctx, Student{Login: "ali"})
	require.NoError(t, err)
	require.Equal(t, 2, second.ID)

	updated, err := repo.Update(ctx, first.ID, Patch{Phone: strPtr("+998")})
	require.NoError(t, err)
	require.Equal(t, "Ali Valiyev", updated.FullName)
	require.Equal(t, "+998", updated.Phone)

	other := 5
	_, err = repo.Update(ctx, first.ID, Patch{ID: &other})
	require.ErrorIs(t, err, ErrImmutableID)

	require.NoError(t, repo.Delete(ctx, second.ID))
	require.ErrorIs(t, repo.Delete(ctx, second.ID), ErrNotFound)
	_, err = repo.Update(ctx, second.ID, Patch{})
	require.ErrorIs(t, err, ErrNotFound)

	third, err := repo.Create(ctx, Student{})
	require.NoError(t, err)
	require.Equal(t, 3, third.ID)

	students, err := repo.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []int{1, 3}, []int{students[0].ID, students[1].ID})
	require.NoError(t, repo.Ping(ctx))
}

func TestMemoryRepositoryListIsACopy(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	_, err := repo.Create(ctx, Student{Login: "ali"})
	require.NoError(t, err)

	students, err := repo.List(ctx)
	require.NoError(t, err)
	students[0].Login = "changed"

	stored, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "ali", stored.Login)
}

func TestMemoryRepositoryConcurrentRegistrations(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.CreateUnique(ctx, Student{Login: "same"}); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, created)
}
