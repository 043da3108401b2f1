package infra

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestPgx5URL(t *testing.T) {
	require.Equal(t, "pgx5://u:p@db:5432/students", pgx5URL("postgres://u:p@db:5432/students"))
	require.Equal(t, "pgx5://db/students", pgx5URL("postgresql://db/students"))
	require.Equal(t, "pgx5://db/students", pgx5URL("pgx5://db/students"))
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	require.NotNil(t, client)
	defer client.Close()

	disabled, err := NewRedisClient(context.Background(), "")
	require.NoError(t, err)
	require.Nil(t, disabled)
}

func TestMigrationsAreEmbedded(t *testing.T) {
	entries, err := migrationFiles.ReadDir("migrations")
	require.NoError(t, err)
	require.Len(t, entries, 4)
}
