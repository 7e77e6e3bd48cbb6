package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func mustStartMongoContainer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	dbContainer, err := mongodb.Run(ctx, "mongo:latest")
	require.NoError(t, err, "could not start mongodb container")
	t.Cleanup(func() { _ = dbContainer.Terminate(context.Background()) })

	uri, err := dbContainer.ConnectionString(ctx)
	require.NoError(t, err)
	return uri
}

func TestNew(t *testing.T) {
	_, err := New(context.Background(), "", "hospitaldesk")
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test in short mode.")
	}

	srv, err := New(context.Background(), mustStartMongoContainer(t), "hospitaldesk_test")
	require.NoError(t, err)
	defer srv.Close(context.Background())

	stats := srv.Health()
	assert.Equal(t, "It's healthy", stats["message"])
	assert.Equal(t, "hospitaldesk_test", srv.Database().Name())
}

func TestNewDoctorPool(t *testing.T) {
	pool, err := NewDoctorPool(context.Background(), "", 5, 1)
	require.NoError(t, err)
	assert.Nil(t, pool)
	assert.Equal(t, "disabled", DoctorHealth(nil)["message"])

	if testing.Short() {
		t.Skip("skipping container test in short mode.")
	}

	ctx := context.Background()
	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("doctors"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(context.Background()) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err = NewDoctorPool(ctx, connStr, 4, 1)
	require.NoError(t, err)
	defer pool.Close()

	assert.Equal(t, "It's healthy", DoctorHealth(pool)["message"])
}
